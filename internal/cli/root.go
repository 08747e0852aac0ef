// Package cli implements the portalchat command line.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	root, a := newRootCmd(version)
	return execute(ctx, root, a)
}

// execute runs root and then releases what setup acquired. cobra skips
// persistent post-run hooks when a command fails, so teardown happens here.
func execute(ctx context.Context, root *cobra.Command, a *app) error {
	err := root.ExecuteContext(ctx)
	if terr := a.teardown(); terr != nil && err == nil {
		err = Exitf(ExitCodeFailure, "close log: %w", terr)
	}
	return err
}

// flagKeys maps persistent flags to configuration keys.
var flagKeys = map[string]string{
	"user":           "user.identity",
	"role":           "user.role",
	"backend":        "store.backend",
	"base-url":       "store.base_url",
	"timeout":        "store.timeout",
	"sqlite-path":    "store.sqlite_path",
	"poll-interval":  "sync.poll_interval",
	"log-level":      "logging.level",
	"log-format":     "logging.format",
	"log-file":       "logging.file",
	"metrics-listen": "metrics.listen",
	"data-dir":       "data_dir",
	"theme":          "tui.theme",
}

func newRootCmd(version string) (*cobra.Command, *app) {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "portalchat",
		Short: "Chat with students and academicians of the portal",
		Long: "portalchat polls the portal message store and shows conversations.\n" +
			"Without a subcommand it opens the interactive client.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, a, "", "")
		},
		Annotations: map[string]string{annotationLogToFile: "true"},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/portalchat/config.yaml)")
	flags.String("user", "", "local identity, as the portal knows it")
	flags.String("role", "", "role sent with list requests (academician, student)")
	flags.String("backend", "", "message store: http or sqlite")
	flags.String("base-url", "", "portal backend root for the http store")
	flags.Duration("timeout", 0, "per-request timeout for the http store")
	flags.String("sqlite-path", "", "database file for the sqlite store")
	flags.Duration("poll-interval", 0, "delay between scheduled fetches")
	flags.String("log-level", "", "log level (trace, debug, info, warn, error)")
	flags.String("log-format", "", "log format (console, json)")
	flags.String("log-file", "", "write logs to this file")
	flags.String("metrics-listen", "", "serve prometheus metrics on this address")
	flags.String("data-dir", "", "directory for the local database, session and logs")

	cmd.AddCommand(
		newTUICmd(a),
		newConversationsCmd(a),
		newTimelineCmd(a),
		newSendCmd(a),
		newWatchCmd(a),
		newSnapshotCmd(a),
		newConfigCmd(a),
	)

	return cmd, a
}
