package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/luadoc-gen/internal/validator"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <bundle-dir>",
		Short: "Validate an emitted documentation bundle directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validator.ValidateBundleDir(args[0], cmd.OutOrStdout())
		},
	}
}
