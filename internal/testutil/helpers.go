package testutil

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

// CreateTestFile writes content to path, creating parent directories
func CreateTestFile(t *testing.T, path string, content []byte) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for test file: %v", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to create test file %s: %v", path, err)
	}
	return path
}

// CreateTestFiles writes small placeholder files into dir
func CreateTestFiles(t *testing.T, dir string, names ...string) {
	t.Helper()

	for _, name := range names {
		CreateTestFile(t, filepath.Join(dir, name), []byte("data"))
	}
}

// AssertFileExists checks if a file exists
func AssertFileExists(t *testing.T, path string) {
	t.Helper()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected file %s to exist: %v", path, err)
	}
}

// AssertFileNotExists checks if a file does not exist
func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Expected file %s to not exist", path)
	}
}

// ZipEntries opens an archive such as an APKG and returns its entries by name
func ZipEntries(t *testing.T, path string) map[string]*zip.File {
	t.Helper()

	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("Failed to open %s as zip: %v", path, err)
	}
	t.Cleanup(func() { r.Close() })

	entries := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		entries[f.Name] = f
	}
	return entries
}
