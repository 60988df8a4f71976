package cmds

import (
	"bytes"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/faqchat/pkg/blobstore"
	"github.com/go-go-golems/faqchat/pkg/chat"
	"github.com/go-go-golems/faqchat/pkg/checkpoint"
	"github.com/go-go-golems/faqchat/pkg/client"
	"github.com/go-go-golems/faqchat/pkg/kb"
	"github.com/go-go-golems/faqchat/pkg/server"
	"github.com/go-go-golems/faqchat/pkg/settings"
)

func TestReplyMarkdown(t *testing.T) {
	md := replyMarkdown(client.ChatReply{
		Response:  "We are open 9 to 5.",
		Language:  "English",
		ThreadID:  "20240101120000-0000abcd",
		Timestamp: checkpoint.NewTimestamp(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)),
	})
	require.True(t, strings.HasPrefix(md, "We are open 9 to 5.\n\n---"))
	require.Contains(t, md, "`20240101120000-0000abcd`")
	require.Contains(t, md, "2024-01-01 12:00:00")
}

func TestHistoryMarkdown(t *testing.T) {
	md := historyMarkdown(client.History{
		ThreadID: "t1",
		Language: "English",
		Messages: []client.HistoryMessage{
			{Content: "hi", Role: chat.RoleHuman},
			{Content: "hello", Role: chat.RoleAssistant},
		},
	})
	require.Contains(t, md, "# Thread `t1`")
	require.Contains(t, md, "2 messages")
	require.Less(t, strings.Index(md, "## Customer"), strings.Index(md, "## Assistant"))
}

func newRoot(sub *cobra.Command) *cobra.Command {
	root := &cobra.Command{Use: "faqchat", SilenceUsage: true, SilenceErrors: true}
	settings.AddLoggingFlags(root.PersistentFlags())
	root.AddCommand(sub)
	return root
}

func TestAskAndHistoryCommands(t *testing.T) {
	svc, err := chat.NewService(chat.Options{
		Store: checkpoint.NewStore(blobstore.NewMemoryStore()),
		Responder: chat.NewKnowledgeBaseResponder(kb.NewMatcher([]kb.QAPair{
			{Question: "What are your business hours?", Answer: "We are open 9 to 5."},
		}, nil), nil, false),
	})
	require.NoError(t, err)
	ts := httptest.NewServer(server.NewHandler(svc))
	defer ts.Close()

	var out bytes.Buffer
	root := newRoot(NewAskCommand())
	root.SetOut(&out)
	root.SetArgs([]string{"ask", "--url", ts.URL, "--thread-id", "cli-1", "what", "time", "do", "you", "open"})
	require.NoError(t, root.Execute())
	require.Contains(t, out.String(), "We are open 9 to 5.")
	require.Contains(t, out.String(), "`cli-1`")

	out.Reset()
	root = newRoot(NewHistoryCommand())
	root.SetOut(&out)
	root.SetArgs([]string{"history", "--url", ts.URL, "cli-1"})
	require.NoError(t, root.Execute())
	require.Contains(t, out.String(), "what time do you open")
	require.Contains(t, out.String(), "## Assistant")
}

func TestCleanupCommand_SQLite(t *testing.T) {
	t.Setenv("FAQCHAT_STORE", "")
	dbPath := filepath.Join(t.TempDir(), "faqchat.db")

	var out bytes.Buffer
	root := newRoot(NewCleanupCommand())
	root.SetOut(&out)
	root.SetArgs([]string{"cleanup", "--store", "sqlite", "--sqlite-path", dbPath, "--max-age-days", "30"})
	require.NoError(t, root.Execute())
	require.Equal(t, "deleted 0 chat histories older than 30 days\n", out.String())
}
