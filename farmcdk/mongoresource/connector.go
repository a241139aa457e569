package mongoresource

import (
	"context"
	"crypto/tls"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AdminCredentials authenticate the administrative session. The JSON matches the
// generated admin secret of the database instance.
type AdminCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Session is an open administrative session on the database.
type Session interface {
	RunCommand(ctx context.Context, db string, cmd bson.D) error
	Disconnect(ctx context.Context) error
}

// Connector opens administrative sessions on a database instance.
type Connector interface {
	Connect(ctx context.Context, addr string, creds AdminCredentials) (Session, error)
}

// DriverConnector implements Connector using the official mongo driver.
type DriverConnector struct{}

// NewDriverConnector inits the driver-backed connector.
func NewDriverConnector() *DriverConnector { return &DriverConnector{} }

// Connect opens a direct, authenticated, TLS session to the instance.
func (DriverConnector) Connect(ctx context.Context, addr string, creds AdminCredentials) (Session, error) {
	opts := options.Client().
		ApplyURI("mongodb://" + addr).
		SetDirect(true).
		SetAuth(options.Credential{
			AuthSource: "admin",
			Username:   creds.Username,
			Password:   creds.Password,
		}).
		// the instance certificate is issued by the deployment's private authority,
		// which is not in the provider lambda's trust store
		SetTLSConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	return driverSession{client: client}, nil
}

type driverSession struct{ client *mongo.Client }

func (s driverSession) RunCommand(ctx context.Context, db string, cmd bson.D) error {
	if err := s.client.Database(db).RunCommand(ctx, cmd).Err(); err != nil {
		return fmt.Errorf("failed to run command: %w", err)
	}

	return nil
}

func (s driverSession) Disconnect(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}

	return nil
}
