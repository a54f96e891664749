// Package gallery builds the date-grouped image index read by the static
// gallery page and serves it over HTTP.
package gallery

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Extensions are the image types listed in the index, compared case-insensitively
var Extensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}

// ErrNoPicsDir is returned when the capture directory does not exist yet
var ErrNoPicsDir = errors.New("pictures directory not found")

// Day is one date bucket of the index
type Day struct {
	Date   string   `json:"date"`
	Images []string `json:"images"`
}

// Index is the whole gallery, newest date first
type Index []Day

// Dates returns the number of dates with at least one image
func (idx Index) Dates() int { return len(idx) }

// Images returns the total number of images
func (idx Index) Images() int {
	total := 0
	for _, d := range idx {
		total += len(d.Images)
	}
	return total
}

// Latest returns the newest date, or "" for an empty index
func (idx Index) Latest() string {
	if len(idx) == 0 {
		return ""
	}
	return idx[0].Date
}

// Scan lists every date directory under picsDir. Dates are sorted descending,
// images by name, and dates without images are left out. Image paths are
// relative to root and use forward slashes.
func Scan(root, picsDir string) (Index, error) {
	entries, err := os.ReadDir(picsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return Index{}, fmt.Errorf("%w: %s", ErrNoPicsDir, picsDir)
		}
		return Index{}, fmt.Errorf("read %s: %w", picsDir, err)
	}

	prefix, err := relativePrefix(root, picsDir)
	if err != nil {
		return Index{}, err
	}

	var dates []string
	for _, e := range entries {
		if isDir(picsDir, e) {
			dates = append(dates, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	idx := Index{}
	for _, date := range dates {
		files, err := os.ReadDir(filepath.Join(picsDir, date))
		if err != nil {
			return idx, fmt.Errorf("read %s: %w", date, err)
		}

		var names []string
		for _, f := range files {
			if isImage(f.Name()) && isFile(filepath.Join(picsDir, date), f) {
				names = append(names, f.Name())
			}
		}
		if len(names) == 0 {
			continue
		}
		sort.Strings(names)

		day := Day{Date: date, Images: make([]string, 0, len(names))}
		for _, name := range names {
			day.Images = append(day.Images, path.Join(prefix, date, name))
		}
		idx = append(idx, day)
	}

	return idx, nil
}

// WriteIndex writes idx as indented JSON, replacing path atomically
func WriteIndex(filePath string, idx Index) error {
	if idx == nil {
		idx = Index{}
	}
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}

	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}

// isFile reports whether f is a regular file, following symlinks
func isFile(dir string, f fs.DirEntry) bool {
	if f.Type().IsRegular() {
		return true
	}
	info, ok := followLink(dir, f)
	return ok && info.Mode().IsRegular()
}

// isDir reports whether e is a directory, following symlinks
func isDir(dir string, e fs.DirEntry) bool {
	if e.IsDir() {
		return true
	}
	info, ok := followLink(dir, e)
	return ok && info.IsDir()
}

func followLink(dir string, e fs.DirEntry) (fs.FileInfo, bool) {
	if e.Type()&fs.ModeSymlink == 0 {
		return nil, false
	}
	info, err := os.Stat(filepath.Join(dir, e.Name()))
	return info, err == nil
}

func isImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func relativePrefix(root, picsDir string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	absPics, err := filepath.Abs(picsDir)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absRoot, absPics)
	if err != nil {
		return "", fmt.Errorf("%s is not under %s: %w", picsDir, root, err)
	}
	return filepath.ToSlash(rel), nil
}
