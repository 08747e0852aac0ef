package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/estuportal/portalchat/internal/models"
)

func newTimelineCmd(a *app) *cobra.Command {
	var limit int
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "timeline <counterpart>",
		Short: "Show the messages exchanged with a counterpart, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			counterpart := strings.TrimSpace(args[0])
			if counterpart == "" {
				return usageError(cmd, "counterpart is required")
			}
			if limit < 0 {
				return usageError(cmd, "--limit must not be negative")
			}

			m, closeStore, err := a.newMessenger(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			view, err := m.Snapshot(cmd.Context(), counterpart, "")
			if err != nil {
				return Exitf(ExitCodeFailure, "load timeline: %w", err)
			}
			records := view.Timeline
			if limit > 0 && len(records) > limit {
				records = records[len(records)-limit:]
			}
			if jsonOutput {
				if records == nil {
					records = []models.MessageRecord{}
				}
				return writeJSON(cmd.OutOrStdout(), records)
			}
			return writeTimeline(cmd.OutOrStdout(), m.User(), records)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show only the last n messages")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func writeTimeline(out io.Writer, user string, records []models.MessageRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(out, "no messages")
		return err
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		from := r.Sender
		if r.Sender == user {
			from = "you"
		}
		rows = append(rows, []string{r.Timestamp, from, r.Content})
	}
	return writeTable(out, []string{"SENT", "FROM", "MESSAGE"}, rows)
}
