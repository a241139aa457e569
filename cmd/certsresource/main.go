// Command certsresource serves the X.509 certificate custom resources.
package main

import (
	"github.com/renderloft/farmgo/farmcdk/certsresource"
	"go.uber.org/fx"
)

// Version is set at build time through ldflags.
var Version = "0.0.0"

func main() {
	fx.New(certsresource.Provide(Version)).Run()
}
