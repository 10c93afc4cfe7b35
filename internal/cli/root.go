// Package cli provides the Cobra command tree and output wiring for mailcheck.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tbckr/mailcheck/internal/config"
	"github.com/tbckr/mailcheck/internal/output"
	"github.com/tbckr/mailcheck/internal/version"
	"github.com/tbckr/mailcheck/internal/worker"
)

// NewRootCmd builds the top-level Cobra command for mailcheck.
// Callers must set stdout/stderr via cmd.SetOut / cmd.SetErr before Execute.
func NewRootCmd() *cobra.Command {
	// d is populated by PersistentPreRunE before any subcommand's RunE runs.
	// Cobra only executes the innermost PersistentPreRunE, so a subcommand
	// that defines its own must not rely on d.
	var d deps

	cmd := &cobra.Command{
		Use:   "mailcheck",
		Short: "mailcheck validates email addresses against DNS MX records",
		Long: `mailcheck checks email address syntax and whether the domain publishes mail exchangers.

Run "mailcheck serve" for the HTTP API, or validate addresses and spreadsheet
files (xlsx, xls, csv) directly from the command line.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			resolved, err := buildDeps(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			d = *resolved
			return nil
		},
	}

	config.RegisterFlags(cmd.PersistentFlags())
	config.RegisterFlagCompletions(cmd)

	cmd.Version = version.Version
	cmd.SetVersionTemplate("mailcheck version {{.Version}}\n")

	cmd.AddGroup(
		&cobra.Group{ID: "validate", Title: "Validation Commands:"},
		&cobra.Group{ID: "utility", Title: "Utility Commands:"},
	)

	cmd.AddCommand(
		newServeCmd(&d),
		newVerifyCmd(&d),
		newBatchCmd(&d),
		newDomainCmd(&d),
		newConfigCmd(&d),
		newCompletionCmd(),
		newVersionCmd(&d),
	)

	return cmd
}

// resolveInputs returns positional args, or reads entries from stdin when
// no args are provided. Returns an error if stdin is an interactive terminal
// with no args.
func resolveInputs(cmd *cobra.Command, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	r := cmd.InOrStdin()
	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) { //nolint:gosec // file descriptors fit in int
		return nil, fmt.Errorf("no input: pass an argument or pipe stdin")
	}
	inputs, err := worker.ReadInputs(r)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no input: stdin was empty")
	}
	return inputs, nil
}

// writeResult formats and writes a result to stdout.
func writeResult(stdout io.Writer, d *deps, result any) error {
	if err := output.Write(stdout, d.format, result); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
