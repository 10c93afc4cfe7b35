package artifact_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbckr/mailcheck/internal/artifact"
	"github.com/tbckr/mailcheck/internal/testutil"
)

func newStore(t *testing.T, opts ...artifact.Option) *artifact.Store {
	t.Helper()
	s, err := artifact.NewStore(t.TempDir(), testutil.NopLogger(), opts...)
	require.NoError(t, err)
	return s
}

func TestPutTake_OneTime(t *testing.T) {
	s := newStore(t)

	id, err := s.Put(artifact.KindXLSX, []byte("workbook"))
	require.NoError(t, err)
	assert.True(t, artifact.ValidID(id))
	assert.FileExists(t, filepath.Join(s.Dir(), "excel-"+id+".xlsx"))

	data, err := s.Take(id, artifact.KindXLSX)
	require.NoError(t, err)
	assert.Equal(t, []byte("workbook"), data)

	_, err = s.Take(id, artifact.KindXLSX)
	assert.ErrorIs(t, err, artifact.ErrNotFound)
}

func TestTake_KindMismatch(t *testing.T) {
	s := newStore(t)
	id, err := s.Put(artifact.KindTXT, []byte("a@b.com"))
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(s.Dir(), "emails-"+id+".txt"))

	_, err = s.Take(id, artifact.KindXLSX)
	assert.ErrorIs(t, err, artifact.ErrNotFound)
}

func TestTake_InvalidID(t *testing.T) {
	s := newStore(t)
	for _, id := range []string{"", "../etc/passwd", "abc def", "a/b"} {
		_, err := s.Take(id, artifact.KindXLSX)
		assert.ErrorIs(t, err, artifact.ErrInvalidID, "id %q", id)
	}
}

func TestSweep_RemovesStale(t *testing.T) {
	clock := testutil.NewClock(time.Now())
	s := newStore(t, artifact.WithClock(clock.Now))

	old, err := s.Put(artifact.KindXLSX, []byte("old"))
	require.NoError(t, err)
	stale := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(s.Dir(), "excel-"+old+".xlsx"), stale, stale))

	unrelated := filepath.Join(s.Dir(), "keep.me")
	require.NoError(t, os.WriteFile(unrelated, []byte("x"), 0o600))
	require.NoError(t, os.Chtimes(unrelated, stale, stale))

	n, err := s.Sweep(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.FileExists(t, unrelated)

	_, err = s.Take(old, artifact.KindXLSX)
	assert.ErrorIs(t, err, artifact.ErrNotFound)
}

func TestParseKind(t *testing.T) {
	k, err := artifact.ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, artifact.KindXLSX, k)

	k, err = artifact.ParseKind("TXT")
	require.NoError(t, err)
	assert.Equal(t, artifact.KindTXT, k)

	_, err = artifact.ParseKind("pdf")
	assert.Error(t, err)
}
