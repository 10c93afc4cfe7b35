// Package batch validates many addresses with bounded concurrency and
// aggregates the outcome of an uploaded file.
package batch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tbckr/mailcheck/internal/artifact"
	"github.com/tbckr/mailcheck/internal/extract"
	"github.com/tbckr/mailcheck/internal/services"
	"github.com/tbckr/mailcheck/internal/services/domain"
	"github.com/tbckr/mailcheck/internal/services/email"
	"github.com/tbckr/mailcheck/internal/spreadsheet"
	"github.com/tbckr/mailcheck/internal/worker"
)

// Stats describes a batch run.
type Stats struct {
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	ElapsedMs   int64     `json:"elapsed_ms"`
	Truncated   bool      `json:"truncated"`
}

// Result aggregates a batch run. ValidCount+InvalidCount == TotalCount == len(Results).
type Result struct {
	TotalCount   int              `json:"total_count"`
	ValidCount   int              `json:"valid_count"`
	InvalidCount int              `json:"invalid_count"`
	Results      []*email.Result  `json:"results"`
	FileInfo     extract.FileInfo `json:"file_info"`
	Stats        Stats            `json:"stats"`
	ArtifactID   string           `json:"excel_file_id,omitempty"`
	EmailsID     string           `json:"txt_file_id,omitempty"`
}

// Orchestrator fans email validations out over a worker.Pool.
type Orchestrator struct {
	validator services.Service[*email.Result]
	pool      *worker.Pool
	store     *artifact.Store
	limits    extract.Limits
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithArtifactStore enables generation of a results workbook and a list of
// valid addresses on Run.
func WithArtifactStore(store *artifact.Store) Option {
	return func(o *Orchestrator) { o.store = store }
}

// WithLimits sets the extraction limits used by Run.
func WithLimits(limits extract.Limits) Option {
	return func(o *Orchestrator) { o.limits = limits }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator creates an Orchestrator. A nil pool selects the defaults
// of five concurrent validations and a 100ms pause between chunks.
func NewOrchestrator(validator services.Service[*email.Result], pool *worker.Pool, logger *slog.Logger, opts ...Option) *Orchestrator {
	if pool == nil {
		pool = worker.NewPool(worker.DefaultSize, worker.DefaultDelay, logger)
	}
	o := &Orchestrator{
		validator: validator,
		pool:      pool,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Limits returns the effective extraction limits.
func (o *Orchestrator) Limits() extract.Limits { return o.limits.WithDefaults() }

// Validate returns exactly one result per input, in input order. A failed
// or panicking validation yields an invalid placeholder carrying the error
// message; it never aborts the batch.
//
// If ctx is cancelled, chunks not yet started are filled with placeholders.
func (o *Orchestrator) Validate(ctx context.Context, emails []string) []*email.Result {
	results := make([]*email.Result, len(emails))

	// A failed address becomes a placeholder; only the end of ctx aborts the run.
	err := o.pool.Process(ctx, len(emails), func(jobCtx context.Context, i int) error {
		results[i] = o.validateOne(jobCtx, emails[i])
		return ctx.Err()
	})
	if err != nil {
		o.logger.Warn("batch interrupted", "error", err, "total", len(emails))
		for i, r := range results {
			if r == nil {
				results[i] = placeholder(emails[i], err.Error())
			}
		}
	}
	return results
}

func (o *Orchestrator) validateOne(ctx context.Context, addr string) (res *email.Result) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("email validation panicked", "email", addr, "panic", r)
			res = placeholder(addr, fmt.Sprint(r))
		}
	}()

	res, err := o.validator.Run(ctx, addr)
	if err != nil {
		o.logger.Debug("email validation failed", "email", addr, "error", err)
		return placeholder(addr, err.Error())
	}
	if res == nil {
		return placeholder(addr, "validation produced no result")
	}
	return res
}

// Run extracts candidates from up, validates them and aggregates the outcome.
// With an artifact store configured, a results workbook and a plain list of
// the valid addresses are stored; their ids are returned in ArtifactID and
// EmailsID.
func (o *Orchestrator) Run(ctx context.Context, up extract.Upload) (*Result, error) {
	started := o.now()

	ex, err := extract.Extract(up, o.limits)
	if err != nil {
		return nil, err
	}
	o.logger.Info("emails extracted", "file", up.Name, "count", len(ex.Emails),
		"duplicates", ex.DuplicatesRemoved, "truncated", ex.Truncated)

	results := o.Validate(ctx, ex.Emails)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := Aggregate(results)
	res.FileInfo = ex.FileInfo
	completed := o.now()
	res.Stats = Stats{
		StartedAt:   started,
		CompletedAt: completed,
		ElapsedMs:   completed.Sub(started).Milliseconds(),
		Truncated:   ex.Truncated,
	}

	if o.store != nil {
		id, err := o.storeWorkbook(results)
		if err != nil {
			o.logger.Error("storing results workbook", "error", err)
		} else {
			res.ArtifactID = id
		}
		id, err = o.storeEmails(res.ValidEmails())
		if err != nil {
			o.logger.Error("storing email list", "error", err)
		} else {
			res.EmailsID = id
		}
	}
	return res, nil
}

// Aggregate counts valid and invalid results.
func Aggregate(results []*email.Result) *Result {
	res := &Result{
		TotalCount: len(results),
		Results:    results,
	}
	for _, r := range results {
		if r.Valid {
			res.ValidCount++
		} else {
			res.InvalidCount++
		}
	}
	return res
}

// Rows converts results into workbook rows.
func Rows(results []*email.Result) []spreadsheet.Row {
	rows := make([]spreadsheet.Row, 0, len(results))
	for _, r := range results {
		rows = append(rows, spreadsheet.Row{Email: r.Email, Status: r.Status()})
	}
	return rows
}

func (o *Orchestrator) storeWorkbook(results []*email.Result) (string, error) {
	var buf bytes.Buffer
	if err := spreadsheet.WriteResults(&buf, Rows(results)); err != nil {
		return "", err
	}
	return o.store.Put(artifact.KindXLSX, buf.Bytes())
}

func (o *Orchestrator) storeEmails(valid []string) (string, error) {
	var buf bytes.Buffer
	if _, err := spreadsheet.WriteEmails(&buf, valid); err != nil {
		return "", err
	}
	return o.store.Put(artifact.KindTXT, buf.Bytes())
}

func placeholder(addr, reason string) *email.Result {
	addr = strings.ToLower(strings.TrimSpace(addr))
	host := ""
	if i := strings.LastIndexByte(addr, '@'); i >= 0 {
		host = addr[i+1:]
	}
	return &email.Result{
		Email:       addr,
		Valid:       false,
		Deliverable: domain.Undeliverable,
		Domain:      domain.Record{Domain: host, MXRecords: []domain.MX{}},
		Reason:      reason,
	}
}
