package commands

import (
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vberset/resume/pkg/conventional"
	"github.com/vberset/resume/pkg/persist"
)

// NewParseCommand creates the command that parses one commit message, read
// from the arguments or from stdin when the only argument is "-".
func NewParseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <message...|->",
		Short: "Parse one conventional commit message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := strings.Join(args, " ")

			if len(args) == 1 && args[0] == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}

				raw = string(data)
			}

			msg, err := conventional.Parse(raw)
			if err != nil {
				return err
			}

			return persist.NewYAMLCodec().Encode(cmd.OutOrStdout(), msg)
		},
	}
}
