package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"storysnap/pkg/errors"
)

// Manager writes slide captures into one date bucket
type Manager struct {
	baseDir string
	dayDir  string
	saved   map[string]bool
	mu      sync.RWMutex
}

// NewManager creates the date bucket for now under baseDir.
// The bucket is fixed for the Manager's lifetime, so a run that crosses
// midnight keeps writing into the directory it started with.
func NewManager(baseDir, dateLayout string, now time.Time) (*Manager, error) {
	dayDir := filepath.Join(baseDir, now.Format(dateLayout))
	if err := os.MkdirAll(dayDir, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeStorage, "create output directory", err)
	}

	return &Manager{
		baseDir: baseDir,
		dayDir:  dayDir,
		saved:   make(map[string]bool),
	}, nil
}

// SlideName returns the file name for a 0-based slide index: 0 -> 001.png
func SlideName(index int) string {
	return fmt.Sprintf("%03d.png", index+1)
}

// SlidePath returns the full path a slide is written to
func (m *Manager) SlidePath(index int) string {
	return filepath.Join(m.dayDir, SlideName(index))
}

// SaveSlide writes the slide through a temporary file and an atomic rename,
// replacing any earlier file for the same index.
func (m *Manager) SaveSlide(index int, r io.Reader) (string, error) {
	filename := m.SlidePath(index)
	tempFile := filename + ".tmp"

	out, err := os.Create(tempFile)
	if err != nil {
		return "", errors.Wrap(errors.ErrorTypeStorage, "create temporary file", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return "", errors.Wrap(errors.ErrorTypeStorage, "write slide data", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return "", errors.Wrap(errors.ErrorTypeStorage, "close slide file", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return "", errors.Wrap(errors.ErrorTypeStorage, "rename temporary file", err)
	}

	m.mu.Lock()
	m.saved[filename] = true
	m.mu.Unlock()

	return filename, nil
}

// Discard removes a rejected capture. A missing file is not an error.
func (m *Manager) Discard(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.ErrorTypeStorage, "discard slide", err)
	}

	m.mu.Lock()
	delete(m.saved, path)
	m.mu.Unlock()

	return nil
}

// GetOutputDir returns the date bucket directory
func (m *Manager) GetOutputDir() string {
	return m.dayDir
}

// GetBaseDir returns the directory holding all date buckets
func (m *Manager) GetBaseDir() string {
	return m.baseDir
}

// Count returns the number of slides currently kept by this Manager
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.saved)
}
