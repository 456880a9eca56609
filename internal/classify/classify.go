// Package classify decides whether a scraped service is a database engine
// service. Windows exposes no vendor metadata for services, so the decision is
// made by substring matching, followed by passes that reject known collisions.
package classify

import "strings"

// Rules configures the classifier.
type Rules struct {
	Keyword           string   // product keyword, e.g. "mysql"
	Daemon            string   // daemon process name pattern; defaults to Keyword + "d"
	Denylist          []string // exact service names of companion tools
	HostnamePrefixes  []string // generated machine-name prefixes
	LongNameThreshold int      // names longer than this need the keyword itself
}

// Default returns the rules used for MySQL.
func Default() Rules {
	return Rules{
		Keyword:           "mysql",
		Denylist:          []string{"mysqlrouter", "mysqlnotifier", "mysqlinstaller", "mysqlworkbench"},
		HostnamePrefixes:  []string{"desktop-", "win-", "pc-"},
		LongNameThreshold: 12,
	}
}

// Classifier applies Rules to service candidates.
type Classifier struct {
	keyword  string
	daemon   string
	deny     map[string]bool
	prefixes []string
	long     int
}

// New builds a classifier. Matching is case-insensitive throughout.
func New(r Rules) *Classifier {
	daemon := r.Daemon
	if daemon == "" {
		daemon = r.Keyword + "d"
	}
	c := &Classifier{
		keyword: strings.ToLower(r.Keyword),
		daemon:  strings.ToLower(daemon),
		deny:    make(map[string]bool, len(r.Denylist)),
		long:    r.LongNameThreshold,
	}
	for _, d := range r.Denylist {
		c.deny[strings.ToLower(d)] = true
	}
	for _, p := range r.HostnamePrefixes {
		c.prefixes = append(c.prefixes, strings.ToLower(p))
	}
	return c
}

// IsCandidate reports whether the service looks like a database engine service.
// displayName and path may be empty.
func (c *Classifier) IsCandidate(name, displayName, path string) bool {
	if name == "" || c.keyword == "" {
		return false
	}
	n := strings.ToLower(name)
	d := strings.ToLower(displayName)
	p := strings.ToLower(path)

	if c.deny[n] {
		return false
	}

	direct := strings.Contains(n, c.keyword) || strings.Contains(d, c.keyword) || strings.Contains(p, c.keyword)
	daemon := strings.Contains(n, c.daemon) || strings.Contains(d, c.daemon)
	if !direct && !daemon {
		return false
	}

	// only the daemon variant matched: most likely a machine name
	if len(n) > c.long && !direct {
		return false
	}

	for _, prefix := range c.prefixes {
		if strings.HasPrefix(n, prefix) {
			return false
		}
	}
	return true
}
