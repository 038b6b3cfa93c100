package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalArchive_Store(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	a, err := NewLocalArchive(dir)
	require.NoError(t, err)

	where, err := a.Store(context.Background(), "identification_report_2025-06-01_12-00-00.csv", []byte("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "identification_report_2025-06-01_12-00-00.csv"), where)

	got, err := os.ReadFile(where)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(got))

	_, err = os.Stat(where + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestLocalArchive_RejectsTraversal(t *testing.T) {
	a, err := NewLocalArchive(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "../x.csv", "sub/x.csv", ".hidden"} {
		_, err := a.Store(context.Background(), name, []byte("x"))
		assert.Error(t, err, name)
	}
}

func TestLocalArchive_EmptyDir(t *testing.T) {
	_, err := NewLocalArchive("")
	require.Error(t, err)
}

func TestNewAzureArchive_BadKey(t *testing.T) {
	_, err := NewAzureArchive("account", "not base64!", "reports")
	require.Error(t, err)
}
