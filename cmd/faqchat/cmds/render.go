package cmds

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"

	"github.com/go-go-golems/faqchat/pkg/chat"
	"github.com/go-go-golems/faqchat/pkg/client"
)

const timeLayout = "2006-01-02 15:04:05"

func replyMarkdown(r client.ChatReply) string {
	var b strings.Builder
	b.WriteString(r.Response)
	fmt.Fprintf(&b, "\n\n---\n\n*thread* `%s` · *language* %s · %s\n", r.ThreadID, r.Language, r.Timestamp.Format(timeLayout))
	return b.String()
}

func historyMarkdown(h client.History) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Thread `%s`\n\n*language* %s, %d messages\n", h.ThreadID, h.Language, len(h.Messages))
	for _, m := range h.Messages {
		who := "Customer"
		if m.Role == chat.RoleAssistant {
			who = "Assistant"
		}
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", who, m.Content)
	}
	return b.String()
}

// render writes markdown styled with glamour when w is a terminal and raw is off.
func render(w io.Writer, md string, style string, raw bool) error {
	if !raw && isTerminal(w) {
		styled, err := glamour.Render(md, style)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, styled)
		return err
	}
	_, err := io.WriteString(w, md)
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
