package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the build-time version string for this binary.
var Version = "dev"

// CMD prints the version string; the root command registers it.
var CMD = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(Version)
	},
}
