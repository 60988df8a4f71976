package cmds

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/go-go-golems/faqchat/pkg/client"
)

type clientFlags struct {
	url   string
	style string
	raw   bool
}

func (f *clientFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.url, "url", client.DefaultBaseURL, "Base URL of the faqchat server")
	cmd.Flags().StringVar(&f.style, "style", "dark", "glamour style used on terminals")
	cmd.Flags().BoolVar(&f.raw, "raw", false, "Print plain markdown")
}

func NewAskCommand() *cobra.Command {
	var (
		flags    clientFlags
		threadID string
		language string
	)
	cmd := &cobra.Command{
		Use:   "ask <message>...",
		Short: "Send a message to a running faqchat server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(flags.url, nil)
			reply, err := c.Chat(cmd.Context(), client.ChatRequest{
				Message:  strings.Join(args, " "),
				Language: language,
				ThreadID: threadID,
			})
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), replyMarkdown(reply), flags.style, flags.raw)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&threadID, "thread-id", "", "Continue an existing conversation")
	cmd.Flags().StringVar(&language, "language", "", "Reply language (default English)")
	return cmd
}
