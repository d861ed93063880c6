package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/spigell/arie/internal/ocr"
)

// Actual version can be specified in build command.
var version = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("%s version: %s\n", app, version)
		if info, ok := debug.ReadBuildInfo(); ok {
			fmt.Printf("go version: %s\n", info.GoVersion)
		}
		fmt.Printf("ocr: %t\n", ocr.Available)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
