package cmd

import (
	"fmt"
	"runtime"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// SetVersion records the build information injected at link time
func SetVersion(v, built string) {
	version = v
	buildTime = built
	rootCmd.Version = v
}

var versionCmd = &cobra.Command{
	Use:                "version",
	Short:              "Print version information",
	PersistentPreRunE:  skipInit,
	PersistentPostRunE: skipInit,
	Run: func(cmd *cobra.Command, args []string) {
		if !jsonOutput {
			figure.NewFigure("tgtg", "cybermedium", true).Print()
			fmt.Println()
		}
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Built:      %s\n", buildTime)
		fmt.Printf("Go version: %s\n", runtime.Version())
		fmt.Printf("OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
