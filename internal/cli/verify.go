package cli

import (
	"github.com/spf13/cobra"

	"github.com/tbckr/mailcheck/internal/services/email"
)

func newVerifyCmd(d *deps) *cobra.Command {
	return &cobra.Command{
		Use:     "verify [email...]",
		Short:   "Validate email addresses given as arguments or on stdin",
		GroupID: "validate",
		Example: `  mailcheck verify alice@example.com
  mailcheck verify -o json alice@example.com bob@example.org
  cat addresses.txt | mailcheck verify -o plain`,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := resolveInputs(cmd, args)
			if err != nil {
				return err
			}
			v, err := d.newValidators(false)
			if err != nil {
				return err
			}
			results := v.batch.Validate(cmd.Context(), inputs)
			if err := cmd.Context().Err(); err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), d, &email.MultiResult{Results: results})
		},
	}
}
