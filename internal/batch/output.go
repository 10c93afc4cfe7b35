package batch

import (
	"fmt"
	"io"

	"github.com/tbckr/mailcheck/internal/services/email"
)

// ValidEmails returns the addresses that passed validation, in input order.
func (r *Result) ValidEmails() []string {
	out := make([]string, 0, r.ValidCount)
	for _, res := range r.Results {
		if res.Valid {
			out = append(out, res.Email)
		}
	}
	return out
}

// WriteTable renders the per-address table followed by a summary line.
func (r *Result) WriteTable(w io.Writer) error {
	if err := (&email.MultiResult{Results: r.Results}).WriteTable(w); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%s: %d checked, %d valid, %d invalid (%d ms)%s\n",
		r.FileInfo.Name, r.TotalCount, r.ValidCount, r.InvalidCount, r.Stats.ElapsedMs, truncatedNote(r.Stats.Truncated))
	return err
}

// WritePlain writes one line per address.
func (r *Result) WritePlain(w io.Writer) error {
	return (&email.MultiResult{Results: r.Results}).WritePlain(w)
}

func truncatedNote(truncated bool) string {
	if truncated {
		return ", truncated"
	}
	return ""
}
