// Command mongoresource serves the MongoDB post-install custom resource.
package main

import (
	"github.com/renderloft/farmgo/farmcdk/mongoresource"
	"go.uber.org/fx"
)

// Version is set at build time through ldflags.
var Version = "0.0.0"

func main() {
	fx.New(mongoresource.Provide(Version)).Run()
}
