// Package leads parses uploaded lead lists into ordered (handle, display name)
// pairs. Parsing is a pure data-loading step; callers decide whether an empty
// list is fatal for their account.
package leads

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnreadableFile indicates the lead file could not be opened or read.
	ErrUnreadableFile = errors.New("lead file unreadable")

	// ErrUnsupportedFormat indicates the file extension is not a recognized lead format.
	ErrUnsupportedFormat = errors.New("unsupported lead file format")
)

// Lead is a target recipient. DisplayName falls back to Handle when the source
// file carries no second field.
type Lead struct {
	Handle      string
	DisplayName string
}

// Load reads a lead file and returns leads in file order. Supported formats:
// line-delimited .txt ("handle<tab-or-space>display name" per line) and tabular
// .csv / .tsv with a header heuristic. A recognized file with no data rows
// returns an empty slice, not an error.
func Load(path string) ([]Lead, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".txt":
		return loadLines(path)
	case ".csv":
		return loadTabular(path, ',')
	case ".tsv":
		return loadTabular(path, '\t')
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// loadLines parses the line-delimited format: each non-blank line splits on the
// first tab, else the first whitespace run.
func loadLines(path string) ([]Lead, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}

	leads := []Lead{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var handle, name string
		if idx := strings.Index(line, "\t"); idx >= 0 {
			handle = strings.TrimSpace(line[:idx])
			name = strings.TrimSpace(line[idx+1:])
		} else {
			fields := strings.SplitN(line, " ", 2)
			handle = strings.TrimSpace(fields[0])
			if len(fields) > 1 {
				name = strings.TrimSpace(fields[1])
			}
		}

		if name == "" {
			name = handle
		}
		leads = append(leads, Lead{Handle: handle, DisplayName: name})
	}

	return leads, nil
}

// loadTabular parses CSV/TSV files. The column whose header contains "user"
// becomes the handle and the column containing "name" becomes the display name;
// without a handle-like column the first two positional columns are used.
func loadTabular(path string, comma rune) ([]Lead, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}

	leads := []Lead{}
	if len(records) == 0 {
		return leads, nil
	}

	header := records[0]
	handleCol, nameCol := -1, -1
	for i, col := range header {
		lower := strings.ToLower(strings.TrimSpace(col))
		if handleCol < 0 && strings.Contains(lower, "user") {
			handleCol = i
		}
		if nameCol < 0 && strings.Contains(lower, "name") {
			nameCol = i
		}
	}

	// The first row is always a header row; without a handle-like column the
	// first two positional columns are used for the remaining rows.
	rows := records[1:]
	if handleCol < 0 {
		handleCol, nameCol = 0, 1
	}

	for _, row := range rows {
		if handleCol >= len(row) {
			continue
		}
		handle := strings.TrimSpace(row[handleCol])
		if handle == "" {
			continue
		}

		name := ""
		if nameCol >= 0 && nameCol < len(row) {
			name = strings.TrimSpace(row[nameCol])
		}
		if name == "" {
			name = handle
		}

		leads = append(leads, Lead{Handle: handle, DisplayName: name})
	}

	return leads, nil
}
