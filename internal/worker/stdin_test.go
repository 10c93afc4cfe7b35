package worker_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbckr/mailcheck/internal/worker"
)

func TestReadInputs_Basic(t *testing.T) {
	inputs, err := worker.ReadInputs(strings.NewReader("alice@example.com\nbob@example.com\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"alice@example.com", "bob@example.com"}, inputs)
}

func TestReadInputs_Separators(t *testing.T) {
	inputs, err := worker.ReadInputs(strings.NewReader("  a@x.com, b@x.com;c@x.com\td@x.com  \r\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com"}, inputs)
}

func TestReadInputs_CommentsAndBlankLines(t *testing.T) {
	inputs, err := worker.ReadInputs(strings.NewReader("# header\n\n\na@x.com\n   \n# b@x.com\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com"}, inputs)
}

func TestReadInputs_KeepsDuplicates(t *testing.T) {
	inputs, err := worker.ReadInputs(strings.NewReader("a@x.com,a@x.com"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com", "a@x.com"}, inputs)
}

func TestReadInputs_Empty(t *testing.T) {
	inputs, err := worker.ReadInputs(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, inputs)
}

func TestReadInputs_NoTrailingNewline(t *testing.T) {
	inputs, err := worker.ReadInputs(strings.NewReader("a@x.com"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com"}, inputs)
}
