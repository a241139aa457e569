package farmcdk_test

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/renderloft/farmgo/farmcdk"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("stack", func() {
	var app awscdk.App
	var conv farmcdk.Conventions

	BeforeEach(func() {
		app = awscdk.NewApp(nil)

		conv = farmcdk.NewConventions("RenderFarm", "eu-west-1")
	})

	It("should create an instanced stack with instance context", func() {
		app.Node().SetContext(jsii.String("instance"), jsii.String("1"))

		stack := farmcdk.NewInstancedStack(app, conv, "111111")
		tmpl := assertions.Template_FromStack(stack, nil)
		data := *tmpl.ToJSON()

		Expect(data["Description"]).To(Equal("RenderFarm (instance: 1)"))
		Expect(*awscdk.Stack_Of(stack).Account()).To(Equal("111111"))
		Expect(*awscdk.Stack_Of(stack).Region()).To(Equal("eu-west-1"))
	})

	It("should panic without instance context", func() {
		Expect(func() {
			farmcdk.NewInstancedStack(app, conv, "111111")
		}).To(PanicWith(MatchRegexp(`instance number`)))
	})

	It("should name exports after the qualifier", func() {
		Expect(conv.InstancedStackName(2)).To(Equal("RenderFarm2"))
		Expect(conv.ProvidersStackName()).To(Equal("RenderFarmProviders"))
		Expect(conv.CertProviderTokenExportName()).To(Equal("RenderFarm:CertResourceProviderServiceToken"))
		Expect(conv.MongoProviderTokenExportName()).To(Equal("RenderFarm:MongoResourceProviderServiceToken"))
	})
})
