package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/tbckr/mailcheck/internal/apperr"
	"github.com/tbckr/mailcheck/internal/artifact"
	"github.com/tbckr/mailcheck/internal/batch"
	"github.com/tbckr/mailcheck/internal/dnscache"
	"github.com/tbckr/mailcheck/internal/extract"
	"github.com/tbckr/mailcheck/internal/services/email"
	"github.com/tbckr/mailcheck/internal/spreadsheet"
)

// multipartOverhead is allowed on top of the file size limit for form
// boundaries and part headers.
const multipartOverhead = 1 << 20

type emailObject struct {
	Object      string       `json:"object"`
	ID          string       `json:"id"`
	Created     int64        `json:"created"`
	Livemode    bool         `json:"livemode"`
	Email       string       `json:"email"`
	Valid       bool         `json:"valid"`
	Deliverable string       `json:"deliverable"`
	Domain      string       `json:"domain"`
	Reason      string       `json:"reason"`
	Checks      email.Checks `json:"checks"`
}

type batchMetadata struct {
	FileType         string `json:"file_type"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
	Truncated        bool   `json:"truncated"`
}

type batchObject struct {
	Object       string        `json:"object"`
	ID           string        `json:"id"`
	Created      int64         `json:"created"`
	Livemode     bool          `json:"livemode"`
	TotalCount   int           `json:"total_count"`
	ValidCount   int           `json:"valid_count"`
	InvalidCount int           `json:"invalid_count"`
	FileName     string        `json:"file_name"`
	FileSize     int64         `json:"file_size"`
	ProcessedAt  int64         `json:"processed_at"`
	Results      []emailObject `json:"results"`
	Metadata     batchMetadata `json:"metadata"`
	ExcelFileID  string        `json:"excel_file_id,omitempty"`
	TxtFileID    string        `json:"txt_file_id,omitempty"`
}

func (s *Server) toEmailObject(r *email.Result) emailObject {
	return emailObject{
		Object:      "email",
		ID:          newID("email"),
		Created:     s.now().Unix(),
		Livemode:    s.livemode,
		Email:       r.Email,
		Valid:       r.Valid,
		Deliverable: string(r.Deliverable),
		Domain:      r.Domain.Domain,
		Reason:      r.Reason,
		Checks:      r.Checks,
	}
}

func (s *Server) toBatchObject(res *batch.Result) batchObject {
	results := make([]emailObject, 0, len(res.Results))
	for _, r := range res.Results {
		results = append(results, s.toEmailObject(r))
	}
	return batchObject{
		Object:       "batch_result",
		ID:           newID("batch"),
		Created:      s.now().Unix(),
		Livemode:     s.livemode,
		TotalCount:   res.TotalCount,
		ValidCount:   res.ValidCount,
		InvalidCount: res.InvalidCount,
		FileName:     res.FileInfo.Name,
		FileSize:     res.FileInfo.Size,
		ProcessedAt:  res.Stats.CompletedAt.Unix(),
		Results:      results,
		Metadata: batchMetadata{
			FileType:         string(res.FileInfo.Type),
			ProcessingTimeMs: res.Stats.ElapsedMs,
			Truncated:        res.Stats.Truncated,
		},
		ExcelFileID: res.ArtifactID,
		TxtFileID:   res.EmailsID,
	}
}

func (s *Server) handleHealth() http.HandlerFunc {
	type response struct {
		Status string `json:"status"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		s.respond(w, r, response{Status: "ok"}, http.StatusOK)
	}
}

func (s *Server) handleVerifyPost() http.HandlerFunc {
	type options struct {
		CheckMX   *bool `json:"check_mx"`
		CheckSMTP *bool `json:"check_smtp"`
	}
	type request struct {
		Email   string   `json:"email" validate:"required,email"`
		Options *options `json:"options"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := s.decode(r, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
		svc := s.emails
		if req.Options != nil && req.Options.CheckSMTP != nil {
			svc = svc.WithOptions(email.WithSMTPCheck(*req.Options.CheckSMTP))
		}
		s.verify(w, r, svc, req.Email)
	}
}

func (s *Server) handleVerifyGet() http.HandlerFunc {
	type query struct {
		Email string `json:"email" validate:"email"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		q := query{Email: r.URL.Query().Get("email")}
		if q.Email == "" {
			s.respondError(w, r, apperr.Validation("Email parameter is required", "email"))
			return
		}
		if err := s.check(q); err != nil {
			s.respondError(w, r, err)
			return
		}
		s.verify(w, r, s.emails, q.Email)
	}
}

func (s *Server) verify(w http.ResponseWriter, r *http.Request, svc *email.Service, addr string) {
	res, err := svc.Run(r.Context(), addr)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, s.toEmailObject(res), http.StatusOK)
}

func (s *Server) handleBatch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limits := s.batch.Limits()
		r.Body = http.MaxBytesReader(w, r.Body, limits.MaxBytes()+multipartOverhead)

		file, header, err := r.FormFile("file")
		if err != nil {
			s.respondError(w, r, formFileError(err, limits))
			return
		}
		defer file.Close()

		if err := extract.CheckSize(header.Size, limits); err != nil {
			s.respondError(w, r, err)
			return
		}
		data, err := io.ReadAll(file)
		if err != nil {
			s.respondError(w, r, apperr.Internal(apperr.CodeExtractionFailed, "Failed to read uploaded file", err))
			return
		}

		res, err := s.batch.Run(r.Context(), extract.Upload{
			Name:     header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Data:     data,
		})
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		s.respond(w, r, s.toBatchObject(res), http.StatusOK)
	}
}

func formFileError(err error, limits extract.Limits) error {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return apperr.Validation("File is required", "file")
	case errors.As(err, &tooLarge):
		return extract.CheckSize(limits.MaxBytes()+1, limits)
	default:
		return apperr.InvalidRequest(apperr.CodeInvalidParameters,
			"Request must be multipart/form-data with a file field", "file")
	}
}

func (s *Server) handleBatchInfo() http.HandlerFunc {
	type limitsInfo struct {
		MaxFileSizeMB     int `json:"max_file_size_mb"`
		MaxEmailsPerBatch int `json:"max_emails_per_batch"`
	}
	type response struct {
		Object           string                            `json:"object"`
		SupportedFormats []spreadsheet.FileType            `json:"supported_formats"`
		Limits           limitsInfo                        `json:"limits"`
		MIMETypes        map[spreadsheet.FileType][]string `json:"mime_types"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		limits := s.batch.Limits()
		s.respond(w, r, response{
			Object:           "batch_info",
			SupportedFormats: spreadsheet.SupportedTypes,
			Limits: limitsInfo{
				MaxFileSizeMB:     limits.MaxFileSizeMB,
				MaxEmailsPerBatch: limits.MaxEmails,
			},
			MIMETypes: spreadsheet.MIMETypes,
		}, http.StatusOK)
	}
}

func (s *Server) handleDownload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		id := q.Get("id")
		if id == "" {
			s.respondError(w, r, apperr.InvalidRequest(apperr.CodeMissingFileID, "File ID is required", "id"))
			return
		}
		kind, err := artifact.ParseKind(q.Get("format"))
		if err != nil {
			s.respondError(w, r, apperr.InvalidRequest(apperr.CodeInvalidParameters, "Format must be xlsx or txt", "format"))
			return
		}
		if !artifact.ValidID(id) {
			s.respondError(w, r, apperr.InvalidRequest(apperr.CodeInvalidFileID, "Invalid file ID", "id"))
			return
		}
		if s.store == nil {
			s.respondError(w, r, apperr.NotFound(apperr.CodeFileNotFound, "File not found or has expired"))
			return
		}

		data, err := s.store.Take(id, kind)
		switch {
		case errors.Is(err, artifact.ErrNotFound):
			s.respondError(w, r, apperr.NotFound(apperr.CodeFileNotFound, "File not found or has expired"))
			return
		case errors.Is(err, artifact.ErrInvalidID):
			s.respondError(w, r, apperr.InvalidRequest(apperr.CodeInvalidFileID, "Invalid file ID", "id"))
			return
		case err != nil:
			s.respondError(w, r, apperr.Internal(apperr.CodeDownloadFailed, "Failed to download file", err))
			return
		}

		h := w.Header()
		h.Set("Content-Type", kind.ContentType())
		h.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="validation-results-%s.%s"`, id, kind))
		h.Set("Content-Length", strconv.Itoa(len(data)))
		h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(data); err != nil {
			s.logger.Warn("writing download", "id", id, "error", err)
		}
	}
}

func (s *Server) handleCacheStats() http.HandlerFunc {
	type response struct {
		Object string `json:"object"`
		dnscache.Stats
	}

	return func(w http.ResponseWriter, r *http.Request) {
		s.respond(w, r, response{Object: "cache", Stats: s.domains.CacheStats()}, http.StatusOK)
	}
}

func (s *Server) handleCacheClear() http.HandlerFunc {
	type response struct {
		Object  string `json:"object"`
		Cleared bool   `json:"cleared"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		s.domains.ClearCache()
		s.logger.Info("dns cache cleared", "request_id", RequestID(r.Context()))
		s.respond(w, r, response{Object: "cache", Cleared: true}, http.StatusOK)
	}
}
