package scraper

import (
	"storysnap/pkg/browser"
	"storysnap/pkg/vault"
)

// CookieVault persists the site cookies of an account between runs
type CookieVault interface {
	Load(account string) (*vault.Record, error)
	Save(account string, cookies []browser.Cookie, domain string) error
}
