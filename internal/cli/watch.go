package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/estuportal/portalchat/internal/messenger"
	"github.com/estuportal/portalchat/internal/models"
)

func newWatchCmd(a *app) *cobra.Command {
	var pin string
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "watch [counterpart]",
		Short: "Stream new messages until interrupted",
		Long: "Poll the message store and print what changes. With a counterpart,\n" +
			"new messages of that conversation are printed; without one, every\n" +
			"conversation whose last message changes is printed.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var counterpart string
			if len(args) == 1 {
				counterpart = strings.TrimSpace(args[0])
			}
			ctx := cmd.Context()

			m, closeStore, err := a.newMessenger(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			views, unsubscribe := m.Subscribe()
			defer unsubscribe()

			m.SetActive(counterpart)
			if err := m.Activate(ctx, pin); err != nil {
				return Exitf(ExitCodeFailure, "start sync: %w", err)
			}
			defer func() { _ = m.Deactivate() }()

			w := newViewPrinter(cmd.OutOrStdout(), m.User(), counterpart, jsonOutput)
			err = w.stream(ctx, views)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&pin, "pin", "", "list this counterpart even without messages")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print one JSON object per line")
	return cmd
}

// viewPrinter turns successive views into an append-only stream.
type viewPrinter struct {
	out         io.Writer
	user        string
	counterpart string
	json        bool

	seen map[string]int
	last map[string]models.Conversation
}

func newViewPrinter(out io.Writer, user, counterpart string, jsonOutput bool) *viewPrinter {
	return &viewPrinter{
		out:         out,
		user:        user,
		counterpart: counterpart,
		json:        jsonOutput,
		seen:        make(map[string]int),
		last:        make(map[string]models.Conversation),
	}
}

func (p *viewPrinter) stream(ctx context.Context, views <-chan messenger.View) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case v, ok := <-views:
			if !ok {
				return nil
			}
			if err := p.print(v); err != nil {
				return err
			}
		}
	}
}

func (p *viewPrinter) print(v messenger.View) error {
	if p.counterpart == "" {
		return p.printConversations(v.Conversations)
	}
	// A view fetched for an earlier selection says nothing about this one.
	if v.TimelineCounterpart != p.counterpart {
		return nil
	}
	return p.printTimeline(v.Timeline)
}

// printTimeline prints records not printed before. Identical records are
// counted, so a message sent twice is printed twice.
func (p *viewPrinter) printTimeline(records []models.MessageRecord) error {
	counts := make(map[string]int, len(records))
	for _, r := range records {
		key := recordKey(r)
		counts[key]++
		if counts[key] <= p.seen[key] {
			continue
		}
		if err := p.printRecord(r); err != nil {
			return err
		}
	}
	for key, n := range counts {
		if n > p.seen[key] {
			p.seen[key] = n
		}
	}
	return nil
}

func (p *viewPrinter) printConversations(list []models.Conversation) error {
	for _, c := range list {
		if prev, ok := p.last[c.Counterpart]; ok && prev == c {
			continue
		}
		p.last[c.Counterpart] = c
		if p.json {
			if err := writeJSONLine(p.out, c); err != nil {
				return err
			}
			continue
		}
		text := c.LastMessage
		if c.Placeholder {
			text = "(no messages yet)"
		}
		if _, err := fmt.Fprintf(p.out, "%s  %s: %s\n", stampOrDash(c.LastTimestamp), c.Counterpart, oneLine(text)); err != nil {
			return err
		}
	}
	return nil
}

func (p *viewPrinter) printRecord(r models.MessageRecord) error {
	if p.json {
		return writeJSONLine(p.out, r)
	}
	from := r.Sender
	if from == p.user {
		from = "you"
	}
	_, err := fmt.Fprintf(p.out, "%s  %s: %s\n", stampOrDash(r.Timestamp), from, oneLine(r.Content))
	return err
}

func recordKey(r models.MessageRecord) string {
	if r.HasID() {
		return "id:" + strconv.FormatInt(r.IDValue(), 10)
	}
	return strings.Join([]string{r.Sender, r.Receiver, r.Timestamp, r.Content}, "\x00")
}

func writeJSONLine(out io.Writer, v any) error {
	return json.NewEncoder(out).Encode(v)
}

func stampOrDash(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "-"
	}
	return raw
}

func oneLine(s string) string {
	return strings.ReplaceAll(s, "\n", " ⏎ ")
}
