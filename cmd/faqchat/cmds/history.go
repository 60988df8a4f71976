package cmds

import (
	"github.com/spf13/cobra"

	"github.com/go-go-golems/faqchat/pkg/client"
)

func NewHistoryCommand() *cobra.Command {
	var flags clientFlags
	cmd := &cobra.Command{
		Use:   "history <thread-id>",
		Short: "Show the transcript of a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := client.New(flags.url, nil).History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), historyMarkdown(h), flags.style, flags.raw)
		},
	}
	flags.register(cmd)
	return cmd
}
