package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tbckr/mailcheck/internal/apperr"
	"github.com/tbckr/mailcheck/internal/batch"
	"github.com/tbckr/mailcheck/internal/extract"
	"github.com/tbckr/mailcheck/internal/spreadsheet"
)

type batchOptions struct {
	xlsxPath string
	txtPath  string
}

func newBatchCmd(d *deps) *cobra.Command {
	var opts batchOptions

	cmd := &cobra.Command{
		Use:     "batch <file>",
		Short:   "Extract and validate the addresses in an xlsx, xls or csv file",
		Args:    cobra.ExactArgs(1),
		GroupID: "validate",
		Example: `  mailcheck batch contacts.xlsx
  mailcheck batch contacts.csv --xlsx results.xlsx --txt valid.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, d, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.xlsxPath, "xlsx", "", "write a results workbook (Email, Status) to this path")
	cmd.Flags().StringVar(&opts.txtPath, "txt", "", "write the valid addresses, one per line, to this path")
	return cmd
}

func runBatch(cmd *cobra.Command, d *deps, path string, opts batchOptions) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	v, err := d.newValidators(false)
	if err != nil {
		return err
	}
	// Reject oversized files before reading them into memory.
	if err := extract.CheckSize(info.Size(), v.batch.Limits()); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	res, err := v.batch.Run(cmd.Context(), extract.Upload{Name: filepath.Base(path), Data: data})
	if err != nil {
		if appErr, ok := apperr.As(err); ok {
			return fmt.Errorf("%s: %w", path, appErr)
		}
		return err
	}
	if res.Stats.Truncated {
		d.logger.Warn("file holds more addresses than max_emails; extra addresses were skipped",
			"max_emails", v.batch.Limits().MaxEmails)
	}

	if err := writeArtifacts(res, opts); err != nil {
		return err
	}
	return writeResult(cmd.OutOrStdout(), d, res)
}

func writeArtifacts(res *batch.Result, opts batchOptions) error {
	if opts.xlsxPath != "" {
		if err := writeFile(opts.xlsxPath, func(f *os.File) error {
			return spreadsheet.WriteResults(f, batch.Rows(res.Results))
		}); err != nil {
			return err
		}
	}
	if opts.txtPath != "" {
		if err := writeFile(opts.txtPath, func(f *os.File) error {
			_, err := spreadsheet.WriteEmails(f, res.ValidEmails())
			return err
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, write func(f *os.File) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
