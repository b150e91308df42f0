package persistence

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileSlot stores each slot as a JSON file inside a data directory. Writes go
// to a temporary file first and are atomically renamed into place, so a crash
// mid-write never leaves a truncated snapshot behind.
type FileSlot struct {
	dataDir string
}

// NewFileSlot creates a file-backed slot store rooted at dataDir, creating
// the directory if needed.
func NewFileSlot(dataDir string) (*FileSlot, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileSlot{dataDir: dataDir}, nil
}

// Read returns the blob stored under name, or ErrSlotEmpty if the slot file
// does not exist yet.
func (f *FileSlot) Read(name string) ([]byte, error) {
	data, err := os.ReadFile(f.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSlotEmpty
		}
		return nil, fmt.Errorf("failed to read slot %s: %w", name, err)
	}
	return data, nil
}

// Write replaces the blob stored under name using a temp file + rename.
func (f *FileSlot) Write(name string, data []byte) error {
	final := f.path(name)
	tempFile := final + ".tmp"

	file, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create slot file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempFile)
		return fmt.Errorf("failed to write slot %s: %w", name, err)
	}
	file.Sync()
	file.Close()

	if err := os.Rename(tempFile, final); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to finalize slot %s: %w", name, err)
	}
	return nil
}

// path maps a slot name to a filesystem path. Slot names may contain
// namespace separators, which are not filename-safe everywhere.
func (f *FileSlot) path(name string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, name)
	return filepath.Join(f.dataDir, safe+".json")
}
