package vault

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"storysnap/pkg/browser"
)

func sampleCookies() []browser.Cookie {
	return []browser.Cookie{
		{Name: "sessionid", Value: "1234567890abcdef", Domain: ".instagram.com", Path: "/", HTTPOnly: true, Secure: true},
		{Name: "csrftoken", Value: "tok", Domain: "www.instagram.com", Path: "/"},
		{Name: "NID", Value: "other", Domain: ".google.com", Path: "/"},
	}
}

func TestManagerSaveLoadDelete(t *testing.T) {
	store := NewMockStore()
	m := NewManagerWithStores(store)

	if err := m.Save("main", sampleCookies(), "instagram.com"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	record, err := m.Load("main")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(record.Cookies) != 2 {
		t.Errorf("expected 2 instagram cookies, got %d", len(record.Cookies))
	}
	if record.SavedAt.IsZero() {
		t.Error("SavedAt should be set")
	}

	if err := m.Delete("main"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := m.Load("main"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if store.Count() != 0 {
		t.Errorf("expected empty store, got %d records", store.Count())
	}
}

func TestManagerSaveRejectsEmpty(t *testing.T) {
	m := NewManagerWithStores(NewMockStore())

	if err := m.Save("", sampleCookies(), "instagram.com"); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("expected ErrInvalidRecord, got %v", err)
	}
	if err := m.Save("main", sampleCookies()[2:], "instagram.com"); err == nil {
		t.Error("expected an error when no site cookies are present")
	}
}

func TestManagerFallsBackToNextStore(t *testing.T) {
	broken := NewMockStore()
	broken.SaveError = errors.New("keychain locked")
	working := NewMockStore()

	m := NewManagerWithStores(broken, working)
	if err := m.Save("main", sampleCookies(), "instagram.com"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !working.Exists("main") {
		t.Error("record should land in the second store")
	}
}

func TestManagerListKeepsNewest(t *testing.T) {
	a := NewMockStore()
	b := NewMockStore()
	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = a.Save(&Record{Account: "zed", SavedAt: old})
	_ = a.Save(&Record{Account: "amy", SavedAt: old})
	_ = b.Save(&Record{Account: "amy", SavedAt: old.Add(time.Hour)})

	records, err := NewManagerWithStores(a, b).List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Account != "amy" || !records[0].SavedAt.Equal(old.Add(time.Hour)) {
		t.Errorf("unexpected first record: %+v", records[0])
	}
}

func TestFilterDomain(t *testing.T) {
	cookies := append(sampleCookies(), browser.Cookie{Name: "x", Domain: "notinstagram.com"})
	kept := FilterDomain(cookies, ".Instagram.com")
	if len(kept) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(kept))
	}
	for _, c := range kept {
		if !strings.HasSuffix(c.Domain, "instagram.com") || c.Domain == "notinstagram.com" {
			t.Errorf("unexpected cookie domain %q", c.Domain)
		}
	}
}

func TestRecordExpired(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	past := float64(now.Add(-time.Hour).Unix())
	future := float64(now.Add(time.Hour).Unix())

	tests := []struct {
		name    string
		cookies []browser.Cookie
		want    bool
	}{
		{"empty", nil, true},
		{"all past", []browser.Cookie{{Expires: past}, {Expires: past}}, true},
		{"one future", []browser.Cookie{{Expires: past}, {Expires: future}}, false},
		{"session cookie", []browser.Cookie{{Expires: -1}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Record{Cookies: tt.cookies}
			if got := r.Expired(now); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	r := &Record{Account: "main", Cookies: sampleCookies()}
	s := Sanitize(r)

	if s.Cookies[0].Value != "1234...cdef" {
		t.Errorf("unexpected mask: %s", s.Cookies[0].Value)
	}
	if s.Cookies[1].Value != "********" {
		t.Errorf("short values should be fully masked, got %s", s.Cookies[1].Value)
	}
	if r.Cookies[0].Value != "1234567890abcdef" {
		t.Error("Sanitize must not modify the original record")
	}
	if Sanitize(nil) != nil {
		t.Error("Sanitize(nil) should be nil")
	}
}

func TestEncryptedFileStore(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(PassphraseEnv, "")
	path := filepath.Join(dir, "cookies.enc")

	store, err := NewEncryptedFileStore(path, dir)
	if err != nil {
		t.Fatalf("NewEncryptedFileStore failed: %v", err)
	}

	record := &Record{Account: "main", Cookies: sampleCookies()[:2], SavedAt: time.Now()}
	if err := store.Save(record); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("file not written: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600, got %v", info.Mode().Perm())
	}

	content, _ := os.ReadFile(path)
	if strings.Contains(string(content), "1234567890abcdef") {
		t.Error("cookie value stored in plain text")
	}

	// A second store over the same directory reads the same passphrase
	reopened, err := NewEncryptedFileStore(path, dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	loaded, err := reopened.Load("main")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Cookies[0].Value != "1234567890abcdef" {
		t.Errorf("round trip lost the cookie value: %+v", loaded.Cookies[0])
	}

	if err := reopened.Delete("main"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file should be removed with its last record")
	}
	if reopened.Exists("main") {
		t.Error("record should be gone")
	}
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cookies.enc")

	t.Setenv(PassphraseEnv, "first")
	store, err := NewEncryptedFileStore(path, dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save(&Record{Account: "main", Cookies: sampleCookies()[:1]}); err != nil {
		t.Fatal(err)
	}

	t.Setenv(PassphraseEnv, "second")
	other, err := NewEncryptedFileStore(path, dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Load("main"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected a decrypt error, got %v", err)
	}
}
