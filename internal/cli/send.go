package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/estuportal/portalchat/internal/messenger"
)

func newSendCmd(a *app) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "send <counterpart> [message]",
		Short: "Send a message",
		Long: "Send a message to a counterpart. Without a message argument the body\n" +
			"is read from stdin when it is piped.",
		Example: "  portalchat send mehmet \"toplantı 11'de\"\n" +
			"  echo \"ödev ektedir\" | portalchat send zeynep",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			counterpart := strings.TrimSpace(args[0])
			var body string
			if len(args) == 2 {
				body = args[1]
			} else {
				data, err := readStdinIfPiped(cmd.InOrStdin())
				if err != nil {
					return Exitf(ExitCodeFailure, "read stdin: %w", err)
				}
				body = strings.TrimRight(data, "\n")
			}

			m, closeStore, err := a.newMessenger(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			err = m.Send(cmd.Context(), counterpart, body)
			var submitErr *messenger.SubmitError
			switch {
			case err == nil:
			case errors.Is(err, messenger.ErrEmptyContent):
				return usageError(cmd, "message body is required")
			case errors.Is(err, messenger.ErrNoCounterpart):
				return usageError(cmd, "counterpart is required")
			case errors.As(err, &submitErr):
				return Exitf(ExitCodeFailure, "send to %s failed: %w", submitErr.Counterpart, submitErr.Err)
			default:
				return Exitf(ExitCodeFailure, "send: %w", err)
			}

			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "sent to %s\n", counterpart)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print nothing on success")
	return cmd
}

// readStdinIfPiped returns everything on in unless it is a terminal.
func readStdinIfPiped(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok {
		info, err := f.Stat()
		if err != nil {
			return "", err
		}
		if info.Mode()&os.ModeCharDevice != 0 {
			return "", nil
		}
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
