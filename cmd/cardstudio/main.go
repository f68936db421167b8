package main

import (
	"os"

	"github.com/spf13/cobra"

	"codeberg.org/snonux/cardstudio/internal/cli"
	"codeberg.org/snonux/cardstudio/internal/processor"
)

func main() {
	flags := cli.NewFlags()
	proc := processor.NewProcessor(flags)

	rootCmd := cli.CreateRootCommand(flags, proc)

	// Config must be read after flags are parsed and before any command runs
	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile)
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
