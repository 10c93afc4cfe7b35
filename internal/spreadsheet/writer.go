package spreadsheet

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/tealeg/xlsx"
)

// ResultsSheetName is the sheet written by WriteResults.
const ResultsSheetName = "Validation Results"

// Column widths of the results sheet, in characters.
const (
	emailColWidth  = 40
	statusColWidth = 15
)

// Row is one line of the results workbook.
type Row struct {
	Email  string
	Status string
}

// WriteResults writes rows as an xlsx workbook with an "Email | Status" header.
func WriteResults(w io.Writer, rows []Row) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(ResultsSheetName)
	if err != nil {
		return fmt.Errorf("adding sheet: %w", err)
	}

	addRow(sheet, "Email", "Status")
	for _, r := range rows {
		addRow(sheet, r.Email, r.Status)
	}

	if err := sheet.SetColWidth(0, 0, emailColWidth); err != nil {
		return fmt.Errorf("setting email column width: %w", err)
	}
	if err := sheet.SetColWidth(1, 1, statusColWidth); err != nil {
		return fmt.Errorf("setting status column width: %w", err)
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// WriteEmails writes the lower-cased, trimmed, de-duplicated addresses one per line.
// It returns the number of lines written.
func WriteEmails(w io.Writer, emails []string) (int, error) {
	bw := bufio.NewWriter(w)
	seen := make(map[string]struct{}, len(emails))
	n := 0
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		if n > 0 {
			if err := bw.WriteByte('\n'); err != nil {
				return n, err
			}
		}
		if _, err := bw.WriteString(e); err != nil {
			return n, err
		}
		n++
	}
	return n, bw.Flush()
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
