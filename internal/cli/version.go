package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tbckr/mailcheck/internal/version"
)

func newVersionCmd(d *deps) *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Print the mailcheck version",
		Args:    cobra.NoArgs,
		GroupID: "utility",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeResult(cmd.OutOrStdout(), d, buildInfo(version.Get()))
		},
	}
}

type buildInfo version.Info

func (b buildInfo) WritePlain(w io.Writer) error {
	_, err := fmt.Fprintln(w, version.Info(b).String())
	return err
}

func (b buildInfo) WriteTable(w io.Writer) error { return b.WritePlain(w) }
