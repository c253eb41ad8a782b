package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileSHA256MatchesSum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.db")
	require.NoError(t, os.WriteFile(path, []byte("SQLite format 3\x00"), 0o644))

	got, err := FileSHA256(path)
	require.NoError(t, err)
	require.Equal(t, SumSHA256([]byte("SQLite format 3\x00")), got)
	require.Len(t, got, 64)
}

func TestFileSHA256MissingFile(t *testing.T) {
	_, err := FileSHA256(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}
