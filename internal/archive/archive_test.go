package archive

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	for name, body := range entries {
		e, err := w.Create(name)
		require.NoError(t, err)
		_, err = e.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}

func TestZipExtract(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "mysql-8.0.36-winx64.zip")
	writeZip(t, archive, map[string]string{
		"mysql-8.0.36-winx64/":                "",
		"mysql-8.0.36-winx64/bin/mysqld.exe":  "daemon",
		"mysql-8.0.36-winx64/share/errmsg.sys": "msgs",
	})

	dest := filepath.Join(dir, "install")
	require.NoError(t, Zip{}.Extract(archive, dest))

	data, err := os.ReadFile(filepath.Join(dest, "mysql-8.0.36-winx64", "bin", "mysqld.exe"))
	require.NoError(t, err)
	assert.Equal(t, "daemon", string(data))
	assert.DirExists(t, filepath.Join(dest, "mysql-8.0.36-winx64", "share"))
}

func TestZipRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")
	writeZip(t, archive, map[string]string{"../outside.txt": "x"})

	err := Zip{}.Extract(archive, filepath.Join(dir, "install"))
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "outside.txt"))
}

func TestZipMissingArchive(t *testing.T) {
	err := Zip{}.Extract(filepath.Join(t.TempDir(), "none.zip"), t.TempDir())
	assert.Error(t, err)
}

func TestFindExplicit(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "server.zip")
	require.NoError(t, os.WriteFile(zipPath, []byte("PK"), 0644))

	got, err := Find(zipPath, dir, DefaultCandidates)
	require.NoError(t, err)
	assert.Equal(t, zipPath, got)

	_, err = Find(filepath.Join(dir, "server.tar.gz"), dir, DefaultCandidates)
	assert.Error(t, err)

	_, err = Find(filepath.Join(dir, "missing.zip"), dir, DefaultCandidates)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFindCandidatesInOrder(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "resources", "installer", "mysql.zip")
	require.NoError(t, os.MkdirAll(filepath.Dir(nested), 0755))
	require.NoError(t, os.WriteFile(nested, []byte("PK"), 0644))

	got, err := Find("", dir, DefaultCandidates)
	require.NoError(t, err)
	assert.Equal(t, nested, got)

	top := filepath.Join(dir, "mysql.zip")
	require.NoError(t, os.WriteFile(top, []byte("PK"), 0644))
	got, err = Find("", dir, DefaultCandidates)
	require.NoError(t, err)
	assert.Equal(t, top, got)
}

func TestFindNothing(t *testing.T) {
	_, err := Find("", t.TempDir(), DefaultCandidates)
	assert.True(t, errors.Is(err, ErrNotFound))
}
