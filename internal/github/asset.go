package github

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"text/template"
)

// Version is a dotted major.minor.patch server version.
type Version struct {
	Major, Minor, Patch int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0 or 1 as v is older than, equal to or newer than o.
func (v Version) Compare(o Version) int {
	for _, d := range [3]int{v.Major - o.Major, v.Minor - o.Minor, v.Patch - o.Patch} {
		switch {
		case d < 0:
			return -1
		case d > 0:
			return 1
		}
	}
	return 0
}

var (
	serverTag   = regexp.MustCompile(`^mysql-(\d+)\.(\d+)\.(\d+)$`)
	archiveName = regexp.MustCompile(`(?i)mysql-(\d+)\.(\d+)\.(\d+)`)
)

// ParseServerTag parses a server release tag such as "mysql-8.0.36". Cluster and
// other product tags are rejected.
func ParseServerTag(tag string) (Version, bool) {
	return parse(serverTag.FindStringSubmatch(tag))
}

// ParseArchiveVersion extracts the version from an archive or root directory
// name such as "mysql-8.0.36-winx64.zip".
func ParseArchiveVersion(path string) (Version, bool) {
	return parse(archiveName.FindStringSubmatch(filepath.Base(path)))
}

func parse(m []string) (Version, bool) {
	if m == nil {
		return Version{}, false
	}
	var n [3]int
	for i := range n {
		v, err := strconv.Atoi(m[i+1])
		if err != nil {
			return Version{}, false
		}
		n[i] = v
	}
	return Version{Major: n[0], Minor: n[1], Patch: n[2]}, true
}

// ResolveArchiveName executes the archive name template for a version.
func ResolveArchiveName(tmpl *template.Template, v Version) (string, error) {
	var buf bytes.Buffer
	data := map[string]string{
		"Version": v.String(),
		"Series":  fmt.Sprintf("%d.%d", v.Major, v.Minor),
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing archive pattern template: %w", err)
	}
	return buf.String(), nil
}
