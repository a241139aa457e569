// Command farminfra synthesizes the render-farm deployment as CloudFormation templates.
//
// Usage:
//
//	farminfra synth        Synthesize the deployment
//	farminfra version      Show version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time through ldflags.
var Version = "0.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "farminfra",
		Short: "Synthesize the render-farm deployment",
		Long: `farminfra declares the render-farm infrastructure and synthesizes it into
CloudFormation templates. It is meant to be invoked through the cdk cli:

    cdk synth -c instance=1 --app "farminfra synth"

The deployment is configured through FARMINFRA_ prefixed environment variables.`,
	}

	rootCmd.AddCommand(
		newSynthCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("farminfra %s\n", Version)
		},
	}
}
