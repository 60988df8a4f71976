package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/go-go-golems/faqchat/cmd/faqchat/cmds"
	"github.com/go-go-golems/faqchat/pkg/settings"
)

var rootCmd = &cobra.Command{
	Use:   "faqchat",
	Short: "faqchat answers customer questions from a fixed knowledge base",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// reinitialize the logger now that --log-level and co are parsed
		return cmds.InitLogging(cmd)
	},
	SilenceUsage: true,
}

func main() {
	settings.AddLoggingFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		cmds.NewServeCommand(),
		cmds.NewCleanupCommand(),
		cmds.NewAskCommand(),
		cmds.NewHistoryCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
