// Package extract turns an uploaded spreadsheet into a deduplicated,
// format-filtered list of candidate email addresses.
package extract

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tbckr/mailcheck/internal/apperr"
	"github.com/tbckr/mailcheck/internal/spreadsheet"
	"github.com/tbckr/mailcheck/internal/validate"
)

// Defaults applied when a Limits field is zero.
const (
	DefaultMaxEmails     = 100
	DefaultMaxFileSizeMB = 10
)

// Limits bounds a single extraction.
type Limits struct {
	MaxEmails     int
	MaxFileSizeMB int
}

// WithDefaults fills zero fields with the package defaults.
func (l Limits) WithDefaults() Limits {
	if l.MaxEmails <= 0 {
		l.MaxEmails = DefaultMaxEmails
	}
	if l.MaxFileSizeMB <= 0 {
		l.MaxFileSizeMB = DefaultMaxFileSizeMB
	}
	return l
}

// MaxBytes returns the file size limit in bytes.
func (l Limits) MaxBytes() int64 {
	return int64(l.WithDefaults().MaxFileSizeMB) * 1024 * 1024
}

// Upload is a file handed to the extractor.
type Upload struct {
	Name     string
	MimeType string
	Data     []byte
}

// FileInfo describes the processed upload.
type FileInfo struct {
	Name     string               `json:"name"`
	Size     int64                `json:"size"`
	Type     spreadsheet.FileType `json:"type"`
	MimeType string               `json:"mime_type"`
}

// Extraction is the outcome of Extract. Emails holds at most MaxEmails
// entries; Truncated is set iff more unique candidates were found.
type Extraction struct {
	Emails            []string `json:"emails"`
	Truncated         bool     `json:"truncated"`
	TotalExtracted    int      `json:"total_extracted"`
	DuplicatesRemoved int      `json:"duplicates_removed"`
	FileInfo          FileInfo `json:"file_info"`
}

// DetectFileType resolves the upload format from the file extension,
// falling back to the declared MIME type.
func DetectFileType(name, mimeType string) (spreadsheet.FileType, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	for _, ft := range spreadsheet.SupportedTypes {
		if ext == string(ft) {
			return ft, nil
		}
	}

	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	for _, ft := range spreadsheet.SupportedTypes {
		if slices.Contains(spreadsheet.MIMETypes[ft], mimeType) {
			return ft, nil
		}
	}

	return "", apperr.FileProcessing(apperr.CodeUnsupportedFormat,
		fmt.Sprintf("Unsupported file format. Supported formats: %s", supportedList()))
}

// CheckSize rejects uploads above the configured limit.
func CheckSize(size int64, limits Limits) error {
	limits = limits.WithDefaults()
	if size > limits.MaxBytes() {
		return apperr.FileProcessing(apperr.CodeFileTooLarge,
			fmt.Sprintf("File size exceeds maximum limit of %dMB", limits.MaxFileSizeMB))
	}
	return nil
}

// Extract validates the upload, flattens it to text and collects candidates.
func Extract(up Upload, limits Limits) (*Extraction, error) {
	limits = limits.WithDefaults()

	ft, err := DetectFileType(up.Name, up.MimeType)
	if err != nil {
		return nil, err
	}
	if err := CheckSize(int64(len(up.Data)), limits); err != nil {
		return nil, err
	}

	text, err := spreadsheet.ReadText(up.Data, ft)
	if err != nil {
		return nil, apperr.FileProcessing(apperr.CodeExtractionFailed,
			fmt.Sprintf("Failed to extract emails from file. Failed to parse spreadsheet: %v", err))
	}

	found := validate.FindEmails(text)
	unique := Candidates(found)
	if len(unique) == 0 {
		return nil, apperr.FileProcessing(apperr.CodeNoEmailsFound, "No valid email addresses found in file")
	}

	ex := &Extraction{
		Emails:            unique,
		TotalExtracted:    len(found),
		DuplicatesRemoved: len(found) - len(unique),
		FileInfo: FileInfo{
			Name:     up.Name,
			Size:     int64(len(up.Data)),
			Type:     ft,
			MimeType: up.MimeType,
		},
	}
	if len(unique) > limits.MaxEmails {
		ex.Emails = unique[:limits.MaxEmails:limits.MaxEmails]
		ex.Truncated = true
	}
	return ex, nil
}

// Candidates normalises raw, drops entries that fail the candidate filter
// and removes duplicates keeping the first occurrence.
func Candidates(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.ToLower(strings.TrimSpace(s))
		if !validate.IsCandidate(s) {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func supportedList() string {
	names := make([]string, 0, len(spreadsheet.SupportedTypes))
	for _, ft := range spreadsheet.SupportedTypes {
		names = append(names, string(ft))
	}
	return strings.Join(names, ", ")
}
