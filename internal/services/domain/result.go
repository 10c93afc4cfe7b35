// Package domain implements the MX-backed domain validator.
package domain

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/tbckr/mailcheck/internal/output"
)

// Deliverability is the derived classification of whether a domain can plausibly accept mail.
type Deliverability string

// Deliverability values. Unknown is reserved for an inconclusive mailbox check.
const (
	Deliverable   Deliverability = "deliverable"
	Undeliverable Deliverability = "undeliverable"
	Unknown       Deliverability = "unknown"
)

// MX is one mail exchanger for a domain.
type MX struct {
	Priority int    `json:"priority"`
	Exchange string `json:"exchange"`
}

// Record is the outcome of validating one domain.
// MXCount always equals len(MXRecords); Exists=false implies no MX records.
type Record struct {
	Domain    string `json:"domain"`
	Exists    bool   `json:"exists"`
	MXRecords []MX   `json:"mx_records"`
	MXCount   int    `json:"mx_count"`
}

// Deliverability derives the classification from the record alone.
func (r *Record) Deliverability() Deliverability {
	switch {
	case !r.Exists:
		return Undeliverable
	case r.MXCount == 0:
		return Undeliverable
	default:
		return Deliverable
	}
}

// IsEmpty reports whether the record carries no mail exchangers.
func (r *Record) IsEmpty() bool {
	return r.MXCount == 0
}

// WritePlain renders one "priority exchange" line per MX record.
func (r *Record) WritePlain(w io.Writer) error {
	for _, mx := range r.MXRecords {
		if _, err := fmt.Fprintf(w, "%d %s\n", mx.Priority, mx.Exchange); err != nil {
			return err
		}
	}
	return nil
}

// WriteTable renders the MX records as an ASCII table.
func (r *Record) WriteTable(w io.Writer) error {
	return writeTable(w, []*Record{r})
}

func writeTable(w io.Writer, records []*Record) error {
	var rows [][]string
	for _, r := range records {
		for _, mx := range r.MXRecords {
			rows = append(rows, []string{r.Domain, strconv.Itoa(mx.Priority), output.Cell(mx.Exchange)})
		}
		if len(r.MXRecords) == 0 {
			rows = append(rows, []string{r.Domain, "-", string(r.Deliverability())})
		}
	}
	table := output.NewTable(w, output.DomainLayout)
	table.Header([]string{"Domain", "Priority", "Exchange"})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

// MultiRecord holds the records of several domains in input order.
type MultiRecord struct {
	Records []*Record
}

// IsEmpty reports whether none of the records carries a mail exchanger.
func (m *MultiRecord) IsEmpty() bool {
	for _, r := range m.Records {
		if !r.IsEmpty() {
			return false
		}
	}
	return true
}

// MarshalJSON serializes the records as a JSON array.
func (m *MultiRecord) MarshalJSON() ([]byte, error) {
	if m.Records == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(m.Records)
}

// WritePlain renders "domain priority exchange" lines for every record.
func (m *MultiRecord) WritePlain(w io.Writer) error {
	for _, r := range m.Records {
		for _, mx := range r.MXRecords {
			if _, err := fmt.Fprintf(w, "%s %d %s\n", r.Domain, mx.Priority, mx.Exchange); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteTable renders all records in one table.
func (m *MultiRecord) WriteTable(w io.Writer) error {
	return writeTable(w, m.Records)
}
