package svctext

import (
	"encoding/csv"
	"strings"

	"github.com/ecairns22/DolphinDock/internal/winsvc"
)

// CSVParser reads header-plus-CSV inventories such as
// `wmic service ... /format:csv` or PowerShell's ConvertTo-Csv.
//
// The first non-blank line is the header. When it names the Name, DisplayName,
// State and PathName columns they are located by name; otherwise each row is
// read positionally as name, display name, state, path. Rows with fewer than
// four fields are dropped. A state of "Running" (any case) maps to Running,
// everything else to Stopped.
type CSVParser struct{}

func (CSVParser) Parse(text string) []Candidate {
	var (
		out     []Candidate
		cols    = [4]int{0, 1, 2, 3}
		width   int
		hasHead bool
	)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !hasHead {
			hasHead = true
			header := splitRow(line, 0)
			width = len(header)
			if named, found := namedColumns(header); found {
				cols = named
			}
			continue
		}
		fields := splitRow(line, width)
		if len(fields) < 4 || maxIndex(cols) >= len(fields) {
			continue
		}
		state := winsvc.Stopped
		if strings.EqualFold(strings.TrimSpace(fields[cols[2]]), "Running") {
			state = winsvc.Running
		}
		out = append(out, Candidate{
			Name:        strings.TrimSpace(fields[cols[0]]),
			DisplayName: strings.TrimSpace(fields[cols[1]]),
			State:       state,
			Path:        strings.TrimSpace(fields[cols[3]]),
		})
	}
	return out
}

// splitRow splits a CSV row. wmic does not quote its fields, so a command line
// such as `"C:\bin\mysqld.exe" --defaults-file=...` confuses a strict CSV
// reader; when the quoted reading does not produce the header's width, a plain
// comma split that does is preferred.
func splitRow(line string, width int) []string {
	quoted, err := splitCSV(line)
	if err == nil && (width == 0 || len(quoted) == width) {
		return quoted
	}
	plain := strings.Split(line, ",")
	if len(plain) == width || err != nil {
		return plain
	}
	return quoted
}

func splitCSV(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.Read()
}

// namedColumns finds name, display name, state and path columns in a header.
func namedColumns(header []string) ([4]int, bool) {
	idx := [4]int{-1, -1, -1, -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "name":
			idx[0] = i
		case "displayname":
			idx[1] = i
		case "state":
			idx[2] = i
		case "pathname":
			idx[3] = i
		}
	}
	for _, i := range idx {
		if i < 0 {
			return [4]int{}, false
		}
	}
	return idx, true
}

func maxIndex(cols [4]int) int {
	m := cols[0]
	for _, c := range cols[1:] {
		if c > m {
			m = c
		}
	}
	return m
}
