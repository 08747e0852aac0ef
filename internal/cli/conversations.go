package cli

import (
	"encoding/json"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/estuportal/portalchat/internal/models"
	"github.com/estuportal/portalchat/internal/timestamp"
)

func newConversationsCmd(a *app) *cobra.Command {
	var pin string
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"ls"},
		Short:   "List conversations with their last message",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, closeStore, err := a.newMessenger(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			view, err := m.Snapshot(cmd.Context(), "", pin)
			if err != nil {
				return Exitf(ExitCodeFailure, "list conversations: %w", err)
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), view.Conversations)
			}
			return writeConversations(cmd.OutOrStdout(), view.Conversations, time.Now())
		},
	}
	cmd.Flags().StringVar(&pin, "pin", "", "list this counterpart even without messages")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func writeConversations(out io.Writer, list []models.Conversation, now time.Time) error {
	rows := make([][]string, 0, len(list))
	for _, c := range list {
		if c.Placeholder {
			rows = append(rows, []string{c.Counterpart, "(no messages yet)", "", ""})
			continue
		}
		rows = append(rows, []string{c.Counterpart, c.LastMessage, c.LastTimestamp, relativeTime(c.LastTimestamp, now)})
	}
	return writeTable(out, []string{"COUNTERPART", "LAST MESSAGE", "SENT", "AGO"}, rows)
}

// relativeTime renders raw as "3 minutes ago", or "" when it cannot be read.
func relativeTime(raw string, now time.Time) string {
	t := timestamp.Resolve(raw)
	if t.Equal(timestamp.Earliest) {
		return ""
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
