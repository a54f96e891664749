package gallery

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, parts ...string) {
	t.Helper()
	p := filepath.Join(parts...)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
}

func newTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	pics := filepath.Join(root, "pics")

	touch(t, pics, "2026-10-18", "002.png")
	touch(t, pics, "2026-10-18", "001.PNG")
	touch(t, pics, "2026-10-18", "notes.txt")
	touch(t, pics, "2026-10-19", "001.jpg")
	touch(t, pics, "2026-10-19", "003.webp")
	touch(t, pics, "2026-10-19", "002.GIF")
	touch(t, pics, "2026-10-17", "readme.md")
	touch(t, pics, "stray.png")
	return root
}

func TestScan(t *testing.T) {
	root := newTree(t)

	idx, err := Scan(root, filepath.Join(root, "pics"))
	require.NoError(t, err)

	want := Index{
		{Date: "2026-10-19", Images: []string{"pics/2026-10-19/001.jpg", "pics/2026-10-19/002.GIF", "pics/2026-10-19/003.webp"}},
		{Date: "2026-10-18", Images: []string{"pics/2026-10-18/001.PNG", "pics/2026-10-18/002.png"}},
	}
	assert.Equal(t, want, idx)
	assert.Equal(t, 2, idx.Dates())
	assert.Equal(t, 5, idx.Images())
	assert.Equal(t, "2026-10-19", idx.Latest())
}

func TestScanFollowsSymlinks(t *testing.T) {
	root := t.TempDir()
	pics := filepath.Join(root, "pics")
	elsewhere := filepath.Join(root, "archive")

	touch(t, pics, "2026-10-19", "001.png")
	touch(t, elsewhere, "kept.png")
	touch(t, elsewhere, "2026-10-01", "001.jpg")

	links := map[string]string{
		filepath.Join(pics, "2026-10-19", "002.png"): filepath.Join(elsewhere, "kept.png"),
		filepath.Join(pics, "2026-10-19", "003.png"): filepath.Join(elsewhere, "missing.png"),
		filepath.Join(pics, "2026-10-01"):            filepath.Join(elsewhere, "2026-10-01"),
	}
	for link, target := range links {
		if err := os.Symlink(target, link); err != nil {
			t.Skipf("symlinks unsupported: %v", err)
		}
	}

	idx, err := Scan(root, pics)
	require.NoError(t, err)

	want := Index{
		{Date: "2026-10-19", Images: []string{"pics/2026-10-19/001.png", "pics/2026-10-19/002.png"}},
		{Date: "2026-10-01", Images: []string{"pics/2026-10-01/001.jpg"}},
	}
	assert.Equal(t, want, idx)
}

func TestScanNestedPicsDir(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "site", "captures", "2026-01-02", "001.png")

	idx, err := Scan(root, filepath.Join(root, "site", "captures"))
	require.NoError(t, err)
	require.Len(t, idx, 1)
	assert.Equal(t, "site/captures/2026-01-02/001.png", idx[0].Images[0])
}

func TestScanMissingDir(t *testing.T) {
	root := t.TempDir()
	idx, err := Scan(root, filepath.Join(root, "pics"))
	assert.True(t, errors.Is(err, ErrNoPicsDir))
	assert.Empty(t, idx)
	assert.Equal(t, "", idx.Latest())
}

func TestWriteIndex(t *testing.T) {
	root := newTree(t)
	idx, err := Scan(root, filepath.Join(root, "pics"))
	require.NoError(t, err)

	out := filepath.Join(root, "gallery-data.json")
	require.NoError(t, WriteIndex(out, idx))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  {\n    \"date\": \"2026-10-19\"")

	var decoded Index
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, idx, decoded)

	_, err = os.Stat(out + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWriteEmptyIndex(t *testing.T) {
	out := filepath.Join(t.TempDir(), "gallery-data.json")
	require.NoError(t, WriteIndex(out, nil))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}
