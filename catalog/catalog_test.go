package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picrate/picrate/apperr"
)

func writeImage(t *testing.T, root, rel string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("not a real image"), 0644))
	return path
}

func TestScanRecursiveAndSorted(t *testing.T) {
	root := t.TempDir()
	writeImage(t, root, "b.jpg")
	writeImage(t, root, "sub/c.png")
	writeImage(t, root, "a.jpeg")
	writeImage(t, root, "notes.txt") // not an image, ignored

	cat, err := Scan(root, SortFilenameAsc)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.jpeg", "b.jpg", "sub/c.png"}, cat.Paths())
	assert.Equal(t, 3, cat.Len())
	assert.Equal(t, "b.jpg", cat.At(1))

	i, ok := cat.IndexOf("sub/c.png")
	require.True(t, ok)
	assert.Equal(t, 2, i)

	_, ok = cat.IndexOf("missing.jpg")
	assert.False(t, ok)

	assert.Equal(t, filepath.Join(root, "sub", "c.png"), cat.AbsPath("sub/c.png"))
}

func TestScanMissingFolder(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "does-not-exist"), SortFilenameAsc)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInvalidConfig)
}

func TestScanNotADirectory(t *testing.T) {
	root := t.TempDir()
	file := writeImage(t, root, "a.jpg")

	_, err := Scan(file, SortFilenameAsc)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInvalidConfig)
}

func TestScanEmptyFolder(t *testing.T) {
	_, err := Scan(t.TempDir(), SortFilenameAsc)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInvalidConfig)
}

func TestScanNaturalOrder(t *testing.T) {
	root := t.TempDir()
	writeImage(t, root, "img10.jpg")
	writeImage(t, root, "img2.jpg")
	writeImage(t, root, "img1.jpg")

	cat, err := Scan(root, SortFilenameNat)
	require.NoError(t, err)
	assert.Equal(t, []string{"img1.jpg", "img2.jpg", "img10.jpg"}, cat.Paths())

	// plain lexicographic order puts img10 before img2
	cat, err = Scan(root, SortFilenameAsc)
	require.NoError(t, err)
	assert.Equal(t, []string{"img1.jpg", "img10.jpg", "img2.jpg"}, cat.Paths())
}

func TestScanDateOrder(t *testing.T) {
	root := t.TempDir()
	older := writeImage(t, root, "older.jpg")
	newer := writeImage(t, root, "newer.jpg")

	// no EXIF in these files, so the capture time falls back to mtime
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(older, base, base))
	require.NoError(t, os.Chtimes(newer, base.Add(time.Hour), base.Add(time.Hour)))

	cat, err := Scan(root, SortDateAsc)
	require.NoError(t, err)
	assert.Equal(t, []string{"older.jpg", "newer.jpg"}, cat.Paths())

	cat, err = Scan(root, SortDateDesc)
	require.NoError(t, err)
	assert.Equal(t, []string{"newer.jpg", "older.jpg"}, cat.Paths())
}

func TestIsValidSortOrder(t *testing.T) {
	for _, order := range []string{SortFilenameAsc, SortFilenameNat, SortDateAsc, SortDateDesc} {
		assert.True(t, IsValidSortOrder(order), order)
	}
	assert.False(t, IsValidSortOrder(""))
	assert.False(t, IsValidSortOrder("filename_desc"))
}
