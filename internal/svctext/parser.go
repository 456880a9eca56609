// Package svctext turns the text printed by Windows service tools into
// service candidates. All knowledge of the tools' output layout lives here.
package svctext

import (
	"bufio"
	"strings"

	"github.com/ecairns22/DolphinDock/internal/winsvc"
)

// Candidate is a partially filled service description scraped from tool output.
type Candidate struct {
	Name        string
	DisplayName string
	State       winsvc.State
	Path        string // full command line, when the tool reports one
}

// Parser turns raw listing output into candidates, in input order.
type Parser interface {
	Parse(text string) []Candidate
}

// KeyedBlockParser reads "KEY : value" blocks in which every record starts with
// a line keyed by NameKey. A record is emitted only once both its name and its
// state have been seen; a record still lacking a state when the next record
// starts, or when input ends, is dropped.
type KeyedBlockParser struct {
	NameKey    string
	StateKey   string
	DisplayKey string
	States     map[string]winsvc.State
}

// SCQuery returns a parser for `sc query` output.
func SCQuery() KeyedBlockParser {
	return KeyedBlockParser{
		NameKey:    "SERVICE_NAME",
		StateKey:   "STATE",
		DisplayKey: "DISPLAY_NAME",
		States: map[string]winsvc.State{
			"RUNNING":       winsvc.Running,
			"STOPPED":       winsvc.Stopped,
			"START_PENDING": winsvc.StartPending,
			"STOP_PENDING":  winsvc.StopPending,
			"PAUSED":        winsvc.Paused,
		},
	}
}

func (p KeyedBlockParser) Parse(text string) []Candidate {
	var (
		out      []Candidate
		cur      Candidate
		open     bool
		hasState bool
	)
	flush := func() {
		if open && hasState {
			out = append(out, cur)
		}
	}

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		key, value, ok := splitKey(sc.Text())
		if !ok {
			continue
		}
		switch {
		case key == p.NameKey:
			flush()
			cur = Candidate{Name: value}
			open = value != ""
			hasState = false
		case !open:
			// lines before the first record
		case key == p.StateKey:
			cur.State = p.state(value)
			hasState = true
		case key == p.DisplayKey:
			cur.DisplayName = value
		}
	}
	flush()
	return out
}

// state maps "4  RUNNING" to Running; the numeric code is ignored.
func (p KeyedBlockParser) state(value string) winsvc.State {
	for _, tok := range strings.Fields(value) {
		if isNumber(tok) {
			continue
		}
		if s, ok := p.States[strings.ToUpper(tok)]; ok {
			return s
		}
		return winsvc.Unknown
	}
	return winsvc.Unknown
}

// BinaryPathName extracts the BINARY_PATH_NAME value from `sc qc` output.
func BinaryPathName(text string) (string, bool) {
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		key, value, ok := splitKey(sc.Text())
		if ok && key == "BINARY_PATH_NAME" && value != "" {
			return value, true
		}
	}
	return "", false
}

func splitKey(line string) (string, string, bool) {
	line = strings.TrimSpace(line)
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return "", "", false
	}
	return strings.TrimSpace(key), strings.TrimSpace(value), true
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
