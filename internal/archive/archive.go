package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNothingToArchive is returned when the exports directory holds no decks
var ErrNothingToArchive = errors.New("no exported decks to archive")

// exportExts are the files an export run produces
var exportExts = map[string]bool{".apkg": true, ".csv": true}

// ArchiveExports moves every exported deck in exportsDir into
// <parent>/archive/exports-<timestamp>/ and returns that directory.
// The exports directory itself stays in place for the next run.
func ArchiveExports(exportsDir string, now time.Time) (string, error) {
	entries, err := os.ReadDir(exportsDir)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("exports directory does not exist: %s", exportsDir)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read exports directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && exportExts[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return "", ErrNothingToArchive
	}

	archivePath := filepath.Join(filepath.Dir(exportsDir), "archive", "exports-"+now.Format("20060102-150405"))
	if _, err := os.Stat(archivePath); err == nil {
		archivePath = filepath.Join(filepath.Dir(exportsDir), "archive", "exports-"+now.Format("20060102-150405.000000"))
	}
	if err := os.MkdirAll(archivePath, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	for _, name := range files {
		if err := os.Rename(filepath.Join(exportsDir, name), filepath.Join(archivePath, name)); err != nil {
			return "", fmt.Errorf("failed to archive %s: %w", name, err)
		}
	}

	return archivePath, nil
}
