package cli

import (
	"github.com/spf13/cobra"

	"github.com/tbckr/mailcheck/internal/server"
)

func newServeCmd(d *deps) *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Short:   "Run the HTTP validation API",
		Args:    cobra.NoArgs,
		GroupID: "validate",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := d.newValidators(true)
			if err != nil {
				return err
			}
			srv := server.New(v.emails, v.domains, v.batch, d.logger,
				server.WithArtifactStore(v.store),
				server.WithLivemode(d.cfg.Livemode),
			)
			return srv.Start(cmd.Context(), d.cfg.Listen)
		},
	}
}
