package session

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storysnap/pkg/browser"
	"storysnap/pkg/browser/browsertest"
	"storysnap/pkg/config"
	"storysnap/pkg/errors"
	"storysnap/pkg/instagram"
	"storysnap/pkg/logger"
)

func newGuard(page *browsertest.Page) *Guard {
	return NewGuard(page, instagram.BaseURL, config.DefaultConfig().Session, logger.NewTestLogger())
}

func TestCheckSessionCookieWithoutNavigation(t *testing.T) {
	page := browsertest.NewPage("https://www.instagram.com/")
	page.CookieJar = []browser.Cookie{{Name: "sessionid", Value: "abc", Domain: ".instagram.com"}}

	g := newGuard(page)
	ok, err := g.Ensure()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, page.Gotos())
	assert.Empty(t, page.Waits())
}

func TestCheckSignals(t *testing.T) {
	tests := []struct {
		name  string
		setup func(p *browsertest.Page)
		want  bool
	}{
		{
			name:  "nothing",
			setup: func(p *browsertest.Page) {},
			want:  false,
		},
		{
			name: "empty session cookie",
			setup: func(p *browsertest.Page) {
				p.CookieJar = []browser.Cookie{{Name: "sessionid", Value: ""}, {Name: "csrftoken", Value: "x"}}
			},
			want: false,
		},
		{
			name:  "inbox link",
			setup: func(p *browsertest.Page) { p.Add(`a[href*="/direct/inbox/"]`, browsertest.NewElement(0, 0, 24, 24)) },
			want:  true,
		},
		{
			name:  "home icon",
			setup: func(p *browsertest.Page) { p.Add(`svg[aria-label="Home"]`, browsertest.NewElement(0, 0, 24, 24)) },
			want:  true,
		},
		{
			name:  "root link",
			setup: func(p *browsertest.Page) { p.Add(`a[href="/"][role="link"]`, browsertest.NewElement(0, 0, 24, 24)) },
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := browsertest.NewPage("https://www.instagram.com/")
			tt.setup(page)
			ok, err := newGuard(page).Check()
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.Empty(t, page.Gotos())
		})
	}
}

func TestEnsureWaitsForManualLogin(t *testing.T) {
	page := browsertest.NewPage("https://www.instagram.com/")
	polls := 0
	page.OnWait = func(d time.Duration) {
		if d != loginPollInterval {
			return
		}
		polls++
		switch polls {
		case 2:
			page.SetURL("https://www.instagram.com/accounts/onetap/?next=%2F")
		case 4:
			page.SetURL("https://www.instagram.com/")
		}
	}

	g := newGuard(page)
	required := false
	g.OnLoginRequired = func() { required = true }

	ok, err := g.Ensure()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, required)
	assert.Equal(t, []string{"https://www.instagram.com/accounts/login/"}, page.Gotos())

	waits := page.Waits()
	require.Len(t, waits, 5)
	assert.Equal(t, 2*time.Second, waits[4], "login is followed by a settle delay")
}

func TestEnsureLoginTimeout(t *testing.T) {
	page := browsertest.NewPage("https://www.instagram.com/")
	cfg := config.DefaultConfig().Session
	cfg.LoginTimeout = 3 * time.Second

	g := NewGuard(page, instagram.BaseURL, cfg, nil)
	_, err := g.Ensure()
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrLoginTimeout))

	// 3s at 500ms per poll
	assert.Len(t, page.Waits(), 6)
	assert.Equal(t, "https://www.instagram.com/accounts/login/", page.URL())
}

func TestCheckPageClosed(t *testing.T) {
	page := browsertest.NewPage("https://www.instagram.com/")
	page.Close()

	_, err := newGuard(page).Ensure()
	assert.True(t, errors.IsPageClosed(err))
}
