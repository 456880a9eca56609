package svctext

import "strings"

// ExecutablePath reduces a service command line to the executable it launches.
// The first of exeNames found (case-insensitive) ends the path; surrounding
// quotes and any trailing arguments are dropped.
func ExecutablePath(pathname string, exeNames ...string) string {
	p := strings.TrimSpace(pathname)
	if p == "" {
		return ""
	}
	if len(p) > 1 && strings.HasPrefix(p, `"`) && strings.HasSuffix(p, `"`) {
		p = p[1 : len(p)-1]
	}

	lower := strings.ToLower(p)
	for _, exe := range exeNames {
		if i := strings.Index(lower, strings.ToLower(exe)); i >= 0 {
			p = p[:i+len(exe)]
			break
		}
	}
	return strings.TrimPrefix(p, `"`)
}

// ResolveBinDir returns the directory holding the executable named in a service
// command line. When the executable does not exist on disk but the path runs
// through a \bin\ directory, the path is cut right after that segment.
// It returns "" when no directory can be resolved.
func ResolveBinDir(pathname string, exists func(string) bool, exeNames ...string) string {
	exe := ExecutablePath(pathname, exeNames...)
	if exe == "" {
		return ""
	}
	if exists != nil && exists(exe) {
		return parentDir(exe)
	}
	if i := strings.Index(strings.ToLower(exe), `\bin\`); i >= 0 {
		return exe[:i+len(`\bin`)]
	}
	return ""
}

func parentDir(p string) string {
	i := strings.LastIndexAny(p, `\/`)
	switch {
	case i < 0:
		return ""
	case i == 0:
		return p[:1]
	}
	return p[:i]
}
