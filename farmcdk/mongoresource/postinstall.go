package mongoresource

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// externalAuthDB is the database that X.509 authenticated users live in.
const externalAuthDB = "$external"

// UserProperties describes a single X.509 authenticated user to create.
type UserProperties struct {
	// CertArn references the secret holding the user's certificate, its subject
	// becomes the user name.
	CertArn string `mapstructure:"CertArn" validate:"required"`
	// Roles holds the role grants as a JSON list of {role, db} objects.
	Roles string `mapstructure:"Roles" validate:"required,json"`
}

// PostInstallProperties that configure the post-install resource.
type PostInstallProperties struct {
	// AdminSecretArn must provide the secret for the instance's admin user.
	AdminSecretArn string `mapstructure:"AdminSecretArn" validate:"required"`
	// Hostname of the database instance.
	Hostname string `mapstructure:"Hostname" validate:"required,hostname"`
	// Port of the database instance.
	Port string `mapstructure:"Port" validate:"required,numeric"`
	// Users to create on the instance.
	Users []UserProperties `mapstructure:"Users" validate:"required,min=1,dive"`
}

// ToPhysicalResourceID encodes the properties to a physical resource id.
func (p PostInstallProperties) ToPhysicalResourceID() string {
	return "post-install-" + p.Hostname
}

// resolvedUser is a user with its certificate subject and role grants resolved.
type resolvedUser struct {
	name  string
	roles bson.A
}

// handlePostInstallCreate creates every configured user. If a Create event fails, the
// resource provider framework will automatically IGNORE the subsequent Delete operation
// issued by AWS CloudFormation, so users created before the failure are left in place
// for the rollback to retry.
func (h Handler) handlePostInstallCreate(
	ctx context.Context, _ Input, props PostInstallProperties,
) (out Output, err error) {
	users, err := h.resolveUsers(ctx, props.Users)
	if err != nil {
		return out, err
	}

	if err := h.onInstance(ctx, props, func(ctx context.Context, sess Session) error {
		for _, usr := range users {
			h.logs.Info("creating user", zap.String("name", usr.name))

			if err := sess.RunCommand(ctx, externalAuthDB, bson.D{
				{Key: "createUser", Value: usr.name},
				{Key: "roles", Value: usr.roles},
			}); err != nil {
				return fmt.Errorf("failed to create user %s: %w", usr.name, err)
			}
		}

		return nil
	}); err != nil {
		return out, err
	}

	out.PhysicalResourceID = props.ToPhysicalResourceID()
	out.Data = map[string]any{"Users": userNames(users)}

	return out, nil
}

// handlePostInstallUpdate reconciles the configured users: users no longer configured
// are dropped, users that survive get their roles updated, new users are created.
func (h Handler) handlePostInstallUpdate(
	ctx context.Context, _ Input, newProps, oldProps PostInstallProperties,
) (out Output, err error) {
	newUsers, err := h.resolveUsers(ctx, newProps.Users)
	if err != nil {
		return out, err
	}

	oldUsers, err := h.resolveUsers(ctx, oldProps.Users)
	if err != nil {
		return out, err
	}

	if err := h.onInstance(ctx, newProps, func(ctx context.Context, sess Session) error {
		_, dropped := lo.Difference(userNames(newUsers), userNames(oldUsers))
		for _, name := range dropped {
			if err := h.dropUser(ctx, sess, name); err != nil {
				return err
			}
		}

		for _, usr := range newUsers {
			cmd := "createUser"
			if lo.Contains(userNames(oldUsers), usr.name) {
				cmd = "updateUser"
			}

			h.logs.Info("reconciling user", zap.String("name", usr.name), zap.String("command", cmd))

			if err := sess.RunCommand(ctx, externalAuthDB, bson.D{
				{Key: cmd, Value: usr.name},
				{Key: "roles", Value: usr.roles},
			}); err != nil {
				return fmt.Errorf("failed to %s %s: %w", cmd, usr.name, err)
			}
		}

		return nil
	}); err != nil {
		return out, err
	}

	out.PhysicalResourceID = newProps.ToPhysicalResourceID()
	out.Data = map[string]any{"Users": userNames(newUsers)}

	return out, nil
}

// handlePostInstallDelete drops every configured user. If a Delete event fails,
// CloudFormation will abandon this resource.
func (h Handler) handlePostInstallDelete(
	ctx context.Context, in Input, props PostInstallProperties,
) (out Output, err error) {
	users, err := h.resolveUsers(ctx, props.Users)
	if err != nil {
		return out, err
	}

	if err := h.onInstance(ctx, props, func(ctx context.Context, sess Session) error {
		for _, usr := range users {
			if err := h.dropUser(ctx, sess, usr.name); err != nil {
				return err
			}
		}

		return nil
	}); err != nil {
		return out, err
	}

	out.PhysicalResourceID = in.PhysicalResourceID // must always be the same, or cfn will error

	return
}

// dropUser drops a database user but won't error if it doesn't exist.
func (h Handler) dropUser(ctx context.Context, sess Session, name string) error {
	h.logs.Info("dropping user", zap.String("name", name))

	if err := sess.RunCommand(ctx, externalAuthDB, bson.D{
		{Key: "dropUser", Value: name},
	}); err != nil && !isUserNotFound(err) {
		return fmt.Errorf("failed to drop user %s: %w", name, err)
	}

	return nil
}

// userNotFoundCode is the server error code for dropping an absent user.
const userNotFoundCode = 11

func isUserNotFound(err error) bool {
	var cerr mongo.CommandError
	return errors.As(err, &cerr) && cerr.Code == userNotFoundCode
}

// onInstance runs code with an authenticated session on the configured instance.
func (h Handler) onInstance(
	ctx context.Context, props PostInstallProperties, runf func(context.Context, Session) error,
) error {
	val, err := h.smc.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(props.AdminSecretArn),
	})
	if err != nil {
		return fmt.Errorf("failed to get admin secret value: %w", err)
	}

	var creds AdminCredentials
	if err := json.Unmarshal(secretMaterial(val), &creds); err != nil {
		return fmt.Errorf("failed to unmarshal admin secret string: %w", err)
	}

	sess, err := h.mdb.Connect(ctx, net.JoinHostPort(props.Hostname, props.Port), creds)
	if err != nil {
		return fmt.Errorf("failed to connect to instance: %w", err)
	}

	defer func() {
		if err := sess.Disconnect(ctx); err != nil {
			h.logs.Error("failed to disconnect from instance", zap.Error(err))
		}
	}()

	if err := runf(ctx, sess); err != nil {
		return fmt.Errorf("failed to run on instance: %w", err)
	}

	return nil
}

// resolveUsers resolves each user's certificate subject and role grants.
func (h Handler) resolveUsers(ctx context.Context, users []UserProperties) ([]resolvedUser, error) {
	resolved := make([]resolvedUser, 0, len(users))

	for _, usr := range users {
		name, err := h.subjectFromCertSecret(ctx, usr.CertArn)
		if err != nil {
			return nil, err
		}

		var roles bson.A
		if err := json.Unmarshal([]byte(usr.Roles), &roles); err != nil {
			return nil, fmt.Errorf("failed to unmarshal roles: %w", err)
		}

		resolved = append(resolved, resolvedUser{name: name, roles: roles})
	}

	return resolved, nil
}

// ErrNoPEMBlock is returned when the certificate secret does not hold PEM material.
var ErrNoPEMBlock = errors.New("no PEM block in certificate secret")

// subjectFromCertSecret reads the user's certificate and returns its subject in the
// RFC 2253 form that the server derives from the presented client certificate.
func (h Handler) subjectFromCertSecret(ctx context.Context, arn string) (string, error) {
	val, err := h.smc.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(arn)})
	if err != nil {
		return "", fmt.Errorf("failed to get certificate secret value: %w", err)
	}

	block, _ := pem.Decode(secretMaterial(val))
	if block == nil {
		return "", ErrNoPEMBlock
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return "", fmt.Errorf("failed to parse certificate: %w", err)
	}

	return cert.Subject.String(), nil
}

// secretMaterial returns a secret's value as raw bytes, regardless of how it is stored.
func secretMaterial(val *secretsmanager.GetSecretValueOutput) []byte {
	if val.SecretString != nil {
		return []byte(*val.SecretString)
	}

	return val.SecretBinary
}

func userNames(users []resolvedUser) []string {
	return lo.Map(users, func(u resolvedUser, _ int) string { return u.name })
}
