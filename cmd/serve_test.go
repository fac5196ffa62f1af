package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picrate/picrate/apperr"
)

func execServe(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(append([]string{"serve"}, args...))
	return rootCmd.Execute()
}

func TestServeRejectsMissingImagesFolder(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")

	err := execServe(t, "--images", missing)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInvalidConfig)
	// The folder scan must fail before any database file is created
	// at the default path inside the folder.
	assert.NoDirExists(t, missing)
}

func TestServeRejectsEmptyImagesFolder(t *testing.T) {
	empty := t.TempDir()

	err := execServe(t, "--images", empty)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInvalidConfig)

	entries, readErr := os.ReadDir(empty)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "a refused start must not leave files in the images folder")
}
