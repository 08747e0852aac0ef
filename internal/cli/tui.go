package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/estuportal/portalchat/internal/config"
	"github.com/estuportal/portalchat/internal/tui"
)

func newTUICmd(a *app) *cobra.Command {
	var to, pin string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive chat client",
		Long: "Open the interactive chat client. The conversation opened last time is\n" +
			"selected again unless --to names another one.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, a, to, pin)
		},
		Annotations: map[string]string{annotationLogToFile: "true"},
	}
	cmd.Flags().StringVar(&to, "to", "", "open the conversation with this counterpart")
	cmd.Flags().StringVar(&pin, "pin", "", "always list this counterpart, even without messages")
	cmd.Flags().String("theme", "", "color theme (default, dark, light)")
	return cmd
}

func runTUI(cmd *cobra.Command, a *app, to, pin string) error {
	if !hasTTY() {
		return Exitf(ExitCodeFailure, "the chat client needs a terminal; see 'portalchat --help' for scriptable commands")
	}

	ctx := cmd.Context()
	m, closeStore, err := a.newMessenger(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	user := m.User()
	sessions := a.sessionStore()
	session, err := sessions.Load()
	if err != nil {
		a.logger.Warn().Err(err).Str("path", sessions.Path()).Msg("ignoring unreadable session")
		session = &config.Session{}
	}

	initial := strings.TrimSpace(to)
	if initial == "" {
		initial = session.Counterpart(user)
	}
	// Opening a conversation with --to also lists it before the first message.
	if pin == "" {
		pin = strings.TrimSpace(to)
	}

	return tui.Run(ctx, tui.Config{
		Chat:           m,
		Pinned:         pin,
		Initial:        initial,
		Theme:          a.cfg.TUI.Theme,
		ShowTimestamps: a.cfg.TUI.ShowTimestamps,
		PollInterval:   a.cfg.Sync.PollInterval,
		OnSelect: func(counterpart string) {
			session.Remember(user, counterpart)
			if err := sessions.Save(session); err != nil {
				a.logger.Warn().Err(err).Msg("save session failed")
			}
		},
	})
}

func hasTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
