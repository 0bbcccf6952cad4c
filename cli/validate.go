package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowgent/flowgent/engine/preflight"
)

func validateCmd() *cobra.Command {
	var (
		apiKey  string
		offline bool
	)
	cmd := &cobra.Command{
		Use:   "validate <config>",
		Short: "Validate a workflow document and its environment without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := preflight.ValidateSystem(cmd.Context(), args[0], preflight.Options{
				APIKey:         apiKey,
				SkipCredential: offline,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
	cmd.Flags().StringVar(&apiKey, "api-key", "", "explicit API credential to check")
	cmd.Flags().BoolVar(&offline, "offline", false, "skip the credential check")
	return cmd
}
