package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/estuportal/portalchat/internal/models"
	"github.com/estuportal/portalchat/internal/store/sqlite"
)

func newSnapshotCmd(a *app) *cobra.Command {
	var out string
	var force bool
	cmd := &cobra.Command{
		Use:   "snapshot --out <file>",
		Short: "Copy your messages into a sqlite database",
		Long: "Copy every message visible to you from the configured store into a\n" +
			"sqlite database, keeping timestamps and ids. The copy can be used\n" +
			"with --backend sqlite --sqlite-path <file>.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out = strings.TrimSpace(out)
			if out == "" {
				return usageError(cmd, "--out is required")
			}
			if err := a.cfg.RequireIdentity(); err != nil {
				return Exitf(ExitCodeUsage, "%w", err)
			}
			if err := prepareSnapshotPath(out, force); err != nil {
				return err
			}

			ctx := cmd.Context()
			st, closeStore, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			records, err := st.List(ctx, a.cfg.User.Identity)
			if err != nil {
				return Exitf(ExitCodeFailure, "list messages: %w", err)
			}
			valid := make([]models.MessageRecord, 0, len(records))
			for _, r := range records {
				if err := r.Validate(); err != nil {
					a.logger.Debug().Err(err).Str("sender", r.Sender).Str("receiver", r.Receiver).Msg("skipping record")
					continue
				}
				valid = append(valid, r)
			}

			dst, err := sqlite.Open(ctx, out)
			if err != nil {
				return Exitf(ExitCodeFailure, "open %s: %w", out, err)
			}
			defer a.closer(dst)()
			if err := dst.Import(ctx, valid); err != nil {
				return Exitf(ExitCodeFailure, "write snapshot: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "saved %d messages to %s", len(valid), out)
			if skipped := len(records) - len(valid); skipped > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), " (%d incomplete skipped)", skipped)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "database file to create")
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing file")
	return cmd
}

func prepareSnapshotPath(path string, force bool) error {
	_, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Exitf(ExitCodeFailure, "stat %s: %w", path, err)
	case !force:
		return Exitf(ExitCodeFailure, "%s already exists; use --force to replace it", path)
	default:
		for _, p := range []string{path, path + "-wal", path + "-shm"} {
			if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return Exitf(ExitCodeFailure, "remove %s: %w", p, err)
			}
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Exitf(ExitCodeFailure, "create %s: %w", filepath.Dir(path), err)
	}
	return nil
}
