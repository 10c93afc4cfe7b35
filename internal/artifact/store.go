// Package artifact stores generated result files on disk for one-time download.
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tbckr/mailcheck/internal/appdir"
	"github.com/tbckr/mailcheck/internal/validate"
)

// DefaultMaxAge is how long an unclaimed artifact survives a sweep.
const DefaultMaxAge = time.Hour

// Kind identifies the artifact format.
type Kind string

// Supported artifact kinds.
const (
	KindXLSX Kind = "xlsx"
	KindTXT  Kind = "txt"
)

// ErrNotFound is returned when no artifact exists for an id.
var ErrNotFound = errors.New("artifact not found")

// ErrInvalidID is returned for ids that are not safe to use as file names.
var ErrInvalidID = errors.New("invalid artifact id")

// ParseKind maps a download format parameter to a Kind. Empty selects xlsx.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "", string(KindXLSX):
		return KindXLSX, nil
	case string(KindTXT):
		return KindTXT, nil
	}
	return "", fmt.Errorf("unknown artifact format %q", s)
}

// ContentType returns the MIME type served for the kind.
func (k Kind) ContentType() string {
	if k == KindTXT {
		return "text/plain; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (k Kind) prefix() string {
	if k == KindTXT {
		return "emails-"
	}
	return "excel-"
}

// Store is a filesystem blob store rooted at a single directory.
type Store struct {
	dir    string
	maxAge time.Duration
	logger *slog.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithMaxAge sets the age after which Sweep removes artifacts.
func WithMaxAge(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.maxAge = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates dir if needed. An empty dir selects appdir.ArtifactDir.
func NewStore(dir string, logger *slog.Logger, opts ...Option) (*Store, error) {
	if dir == "" {
		dir = appdir.ArtifactDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating artifact directory: %w", err)
	}
	s := &Store{
		dir:    dir,
		maxAge: DefaultMaxAge,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// ValidID reports whether id can address an artifact.
func ValidID(id string) bool {
	return validate.IsArtifactID(id)
}

// Put writes data under a fresh id and sweeps stale artifacts.
func (s *Store) Put(kind Kind, data []byte) (string, error) {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(s.path(id, kind), data, 0o600); err != nil {
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	if n, err := s.sweepLocked(s.maxAge); err != nil {
		s.logger.Warn("artifact sweep failed", "error", err)
	} else if n > 0 {
		s.logger.Debug("artifacts swept", "removed", n)
	}
	return id, nil
}

// Take returns the artifact and deletes it. A second Take for the same id
// returns ErrNotFound.
func (s *Store) Take(id string, kind Kind) ([]byte, error) {
	if !ValidID(id) {
		return nil, ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.path(id, kind)
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("removing served artifact", "id", id, "error", err)
	}
	return data, nil
}

// Sweep removes artifacts last modified before olderThan ago and returns
// how many were removed.
func (s *Store) Sweep(olderThan time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(olderThan)
}

func (s *Store) sweepLocked(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("listing artifacts: %w", err)
	}
	cutoff := s.now().Add(-olderThan)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !isArtifactName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

func (s *Store) path(id string, kind Kind) string {
	return filepath.Join(s.dir, kind.prefix()+id+"."+string(kind))
}

func isArtifactName(name string) bool {
	return (strings.HasPrefix(name, KindXLSX.prefix()) && strings.HasSuffix(name, "."+string(KindXLSX))) ||
		(strings.HasPrefix(name, KindTXT.prefix()) && strings.HasSuffix(name, "."+string(KindTXT)))
}
