// Package email implements single-address validation: normalisation, a
// format check, and MX-backed domain classification.
package email

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/tbckr/mailcheck/internal/output"
	"github.com/tbckr/mailcheck/internal/services/domain"
)

// Checks lists the individual checks behind a Result.
// SMTP is nil unless the smtp check is enabled.
type Checks struct {
	Format    bool  `json:"format"`
	Domain    bool  `json:"domain"`
	MXRecords int   `json:"mx_records"`
	SMTP      *bool `json:"smtp,omitempty"`
}

// Result is the immutable outcome of validating one address.
// Valid equals Domain.Exists && Domain.MXCount > 0.
type Result struct {
	Email       string                `json:"email"`
	Valid       bool                  `json:"valid"`
	Deliverable domain.Deliverability `json:"deliverable"`
	Domain      domain.Record         `json:"domain_info"`
	Reason      string                `json:"reason"`
	Checks      Checks                `json:"checks"`
	ElapsedMs   int64                 `json:"validation_time_ms"`
}

// Status is the spreadsheet label for the result.
func (r *Result) Status() string {
	if r.Valid {
		return "Valid"
	}
	return "Invalid"
}

// WritePlain renders "email status reason" on one line.
func (r *Result) WritePlain(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s %s %s\n", r.Email, r.Deliverable, r.Reason)
	return err
}

// WriteTable renders the result as a one-row table.
func (r *Result) WriteTable(w io.Writer) error {
	return writeTable(w, []*Result{r})
}

// MultiResult holds results for several addresses in input order.
type MultiResult struct {
	Results []*Result
}

// MarshalJSON serializes the multi-result as a JSON array of individual results.
func (m *MultiResult) MarshalJSON() ([]byte, error) {
	if m.Results == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(m.Results)
}

// WritePlain writes one line per result.
func (m *MultiResult) WritePlain(w io.Writer) error {
	for _, r := range m.Results {
		if err := r.WritePlain(w); err != nil {
			return err
		}
	}
	return nil
}

// WriteTable renders all results in a single table.
func (m *MultiResult) WriteTable(w io.Writer) error {
	return writeTable(w, m.Results)
}

func writeTable(w io.Writer, results []*Result) error {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			output.Cell(r.Email),
			string(r.Deliverable),
			strconv.Itoa(r.Checks.MXRecords),
			output.Cell(r.Reason),
		})
	}
	table := output.NewTable(w, output.EmailLayout)
	table.Header([]string{"Email", "Deliverable", "MX", "Reason"})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
