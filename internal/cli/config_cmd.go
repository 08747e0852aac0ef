package cli

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/estuportal/portalchat/internal/logging"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the merged configuration as YAML, secrets redacted",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				data, err := yaml.Marshal(logging.RedactMap(a.loader.AllSettings()))
				if err != nil {
					return Exitf(ExitCodeFailure, "encode config: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the files portalchat reads and writes",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				used := a.loader.ConfigFileUsed()
				if used == "" {
					used = "(none)"
				}
				return writeTable(cmd.OutOrStdout(), []string{"FILE", "PATH"}, [][]string{
					{"config", used},
					{"session", a.cfg.SessionPath()},
					{"database", a.cfg.DatabasePath()},
				})
			},
		},
	)
	return cmd
}
