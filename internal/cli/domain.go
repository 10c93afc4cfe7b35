package cli

import (
	"github.com/spf13/cobra"

	"github.com/tbckr/mailcheck/internal/services/domain"
)

func newDomainCmd(d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "domain [name...]",
		Short: "Look up the MX records of one or more domains",
		Long: `Look up the mail exchangers of each domain through the MX cache.

Multiple domains can be supplied as arguments or piped via stdin (one per line).
Domains without mail exchangers are reported on stderr.`,
		Example: `  mailcheck domain example.com
  mailcheck domain -o plain example.com example.org`,
		Args:    cobra.ArbitraryArgs,
		GroupID: "validate",
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := resolveInputs(cmd, args)
			if err != nil {
				return err
			}
			v, err := d.newValidators(false)
			if err != nil {
				return err
			}

			if len(inputs) == 1 {
				rec, err := v.domains.Run(cmd.Context(), inputs[0])
				if err != nil {
					return err
				}
				if rec.IsEmpty() {
					d.logger.Info("no MX records found", "domain", rec.Domain, "exists", rec.Exists)
					return nil
				}
				return writeResult(cmd.OutOrStdout(), d, rec)
			}

			multi := &domain.MultiRecord{}
			for _, name := range inputs {
				rec, err := v.domains.Run(cmd.Context(), name)
				if err != nil {
					if ctxErr := cmd.Context().Err(); ctxErr != nil {
						return ctxErr
					}
					d.logger.Error("MX lookup failed", "domain", name, "error", err)
					continue
				}
				if rec.IsEmpty() {
					d.logger.Info("no MX records found", "domain", rec.Domain, "exists", rec.Exists)
					continue
				}
				multi.Records = append(multi.Records, rec)
			}
			if multi.IsEmpty() {
				return nil
			}
			return writeResult(cmd.OutOrStdout(), d, multi)
		},
	}
}
