// Package vault keeps the browser cookies of a logged-in account between runs.
//
// Cookies are written after a successful run and seeded into the next browser
// profile before its first navigation. Whether the seeded cookies still work is
// decided by the live session check, never by the vault.
package vault

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"storysnap/pkg/browser"
)

// Record is the saved cookie jar of one account
type Record struct {
	Account string           `json:"account"`
	Cookies []browser.Cookie `json:"cookies"`
	SavedAt time.Time        `json:"saved_at"`
}

// Store is the interface for saving and loading cookie records
type Store interface {
	// Save stores the record under its account name
	Save(record *Record) error

	// Load gets the record for an account
	Load(account string) (*Record, error)

	// List returns all stored records
	List() ([]*Record, error)

	// Delete removes the record for an account
	Delete(account string) error

	// Exists checks if a record exists for an account
	Exists(account string) bool
}

// Manager handles cookie storage with fallback stores
type Manager struct {
	stores []Store
}

// NewManager creates a manager using the system keychain when available and an
// encrypted file under dir otherwise. An empty dir uses ConfigDir.
func NewManager(dir string) (*Manager, error) {
	var stores []Store

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	if dir == "" {
		var err error
		dir, err = ConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get config directory: %w", err)
		}
	}

	fileStore, err := NewEncryptedFileStore(filepath.Join(dir, "cookies.enc"), dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, fileStore)

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a manager over explicit stores
func NewManagerWithStores(stores ...Store) *Manager {
	return &Manager{stores: stores}
}

// Save keeps the site cookies of account in the first store that accepts them.
// Cookies from other domains are dropped.
func (m *Manager) Save(account string, cookies []browser.Cookie, domain string) error {
	if account == "" {
		return ErrInvalidRecord
	}
	kept := FilterDomain(cookies, domain)
	if len(kept) == 0 {
		return fmt.Errorf("no %s cookies to save", domain)
	}

	record := &Record{Account: account, Cookies: kept, SavedAt: time.Now()}

	var lastErr error
	for _, store := range m.stores {
		err := store.Save(record)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to save cookies: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Load gets the record of account from the first store that has it
func (m *Manager) Load(account string) (*Record, error) {
	for _, store := range m.stores {
		if record, err := store.Load(account); err == nil && record != nil {
			return record, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, account)
}

// List returns the newest record of every account across all stores, sorted by name
func (m *Manager) List() ([]*Record, error) {
	byAccount := make(map[string]*Record)

	for _, store := range m.stores {
		records, err := store.List()
		if err != nil {
			continue
		}
		for _, r := range records {
			if existing, ok := byAccount[r.Account]; !ok || r.SavedAt.After(existing.SavedAt) {
				byAccount[r.Account] = r
			}
		}
	}

	result := make([]*Record, 0, len(byAccount))
	for _, r := range byAccount {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Account < result[j].Account })
	return result, nil
}

// Delete removes account from every store
func (m *Manager) Delete(account string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(account); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete cookies: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrNotFound, account)
	}
	return nil
}

// FilterDomain returns the cookies whose domain is domain or one of its subdomains
func FilterDomain(cookies []browser.Cookie, domain string) []browser.Cookie {
	domain = strings.TrimPrefix(strings.ToLower(domain), ".")
	var kept []browser.Cookie
	for _, c := range cookies {
		d := strings.TrimPrefix(strings.ToLower(c.Domain), ".")
		if d == domain || strings.HasSuffix(d, "."+domain) {
			kept = append(kept, c)
		}
	}
	return kept
}

// Expired reports whether every cookie in the record has expired at now.
// Session cookies (no expiry) never expire.
func (r *Record) Expired(now time.Time) bool {
	if len(r.Cookies) == 0 {
		return true
	}
	for _, c := range r.Cookies {
		if c.Expires <= 0 || time.Unix(int64(c.Expires), 0).After(now) {
			return false
		}
	}
	return true
}

// Sanitize returns a copy of the record with cookie values masked
func Sanitize(r *Record) *Record {
	if r == nil {
		return nil
	}
	out := &Record{Account: r.Account, SavedAt: r.SavedAt}
	for _, c := range r.Cookies {
		c.Value = maskString(c.Value)
		out.Cookies = append(out.Cookies, c)
	}
	return out
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// ConfigDir returns the per-user storysnap configuration directory, creating it
func ConfigDir() (string, error) {
	var dir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, "Library", "Application Support", "storysnap")
	case "windows":
		dir = filepath.Join(os.Getenv("APPDATA"), "storysnap")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			dir = filepath.Join(xdg, "storysnap")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dir = filepath.Join(home, ".config", "storysnap")
		}
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// Errors
var (
	ErrNotFound         = errors.New("cookies not found")
	ErrInvalidRecord    = errors.New("invalid cookie record")
	ErrStoreUnavailable = errors.New("cookie store unavailable")
)
