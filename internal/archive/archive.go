// Package archive locates and unpacks server distribution archives.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when no archive could be located.
var ErrNotFound = errors.New("archive not found")

// Extractor unpacks an archive into a directory.
type Extractor interface {
	Extract(archivePath, destDir string) error
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(archivePath, destDir string) error

func (f ExtractorFunc) Extract(archivePath, destDir string) error { return f(archivePath, destDir) }

// Zip extracts .zip archives. Entries that would land outside the destination
// are rejected.
type Zip struct{}

func (Zip) Extract(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", archivePath, err)
	}
	defer r.Close()

	dest, err := filepath.Abs(destDir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", destDir, err)
	}

	for _, f := range r.File {
		target, err := entryPath(dest, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("creating %s: %w", target, err)
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

// entryPath joins an entry name onto dest and rejects names escaping dest.
func entryPath(dest, name string) (string, error) {
	clean := filepath.FromSlash(strings.ReplaceAll(name, `\`, "/"))
	target := filepath.Join(dest, clean)
	if target != dest && !strings.HasPrefix(target, dest+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry %q escapes destination", name)
	}
	return target, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(target), err)
	}
	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("reading entry %s: %w", f.Name, err)
	}
	defer src.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("writing %s: %w", target, err)
	}
	return dst.Close()
}

// DefaultCandidates are the archive locations tried, relative to the working
// directory, when no archive is given.
var DefaultCandidates = []string{
	"mysql.zip",
	filepath.Join("resources", "installer", "mysql.zip"),
}

// Find returns the archive to install from. An explicit path must name an
// existing .zip file; otherwise candidates are tried in order relative to dir.
func Find(explicit, dir string, candidates []string) (string, error) {
	if explicit != "" {
		if !strings.EqualFold(filepath.Ext(explicit), ".zip") {
			return "", fmt.Errorf("%s: not a .zip archive", explicit)
		}
		if !isFile(explicit) {
			return "", fmt.Errorf("%s: %w", explicit, ErrNotFound)
		}
		return explicit, nil
	}
	for _, c := range candidates {
		p := c
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, c)
		}
		if isFile(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("looked for %s in %s: %w", strings.Join(candidates, ", "), dir, ErrNotFound)
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
