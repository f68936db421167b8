package batch

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"codeberg.org/snonux/cardstudio/internal/draft"
)

// Entry is one card read from an uploaded file
type Entry struct {
	Front string
	Back  string
	Line  int
}

// Draft converts the entry into a text/text draft at the given number.
// An entry without a back keeps that face empty.
func (e Entry) Draft(number int) draft.Draft {
	d := draft.Draft{Number: number, Front: draft.Text(e.Front)}
	if e.Back != "" {
		d.Back = draft.Text(e.Back)
	}
	return d
}

// ReadBatchFile reads card entries from a file. See Parse for the format.
func ReadBatchFile(filename string) ([]Entry, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads one card per line:
//   - "front = back" gives both faces; only the first '=' separates them
//   - "front" gives a front-only card
//   - blank lines and lines starting with '#' are skipped
//
// Lines with an empty front are ignored.
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(strings.TrimSuffix(scanner.Text(), "\r"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		front, back, _ := strings.Cut(line, "=")
		front = strings.TrimSpace(front)
		back = strings.TrimSpace(back)
		if front == "" {
			continue
		}

		entries = append(entries, Entry{Front: front, Back: back, Line: lineNo})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse batch input: %w", err)
	}

	return entries, nil
}
