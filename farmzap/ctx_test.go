package farmzap_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/renderloft/farmgo/farmzap"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var _ = Describe("context", func() {
	var logs *zap.Logger
	var obs *observer.ObservedLogs

	BeforeEach(func(ctx context.Context) {
		app := fx.New(farmzap.Test(), fx.Populate(&logs, &obs))
		Expect(app.Start(ctx)).To(Succeed())
		DeferCleanup(app.Stop)
	})

	It("should return nop logger without one in the context", func() {
		logs1 := farmzap.Log(context.Background())
		Expect(logs1).To(Equal(zap.NewNop()))

		logs1.Info("foo")
		Expect(obs.FilterMessage("foo").Len()).To(Equal(0))
	})

	It("should return the embedded logger", func() {
		ctx := farmzap.WithLogger(context.Background(), logs)

		farmzap.Log(ctx).Info("foo")
		Expect(obs.FilterMessage("foo").Len()).To(Equal(1))
	})
})
