package instagram

import (
	"fmt"
	"strings"
)

const (
	// BaseURL is the base URL for Instagram
	BaseURL = "https://www.instagram.com"

	// LoginPath is the manual login entry point
	LoginPath = "/accounts/login/"

	// StoryMarker appears in every story viewer URL
	StoryMarker = "stories"

	// SessionCookie is set once a login succeeds
	SessionCookie = "sessionid"
)

// loginRoutes are the routes a user sits on while logging in
var loginRoutes = []string{"accounts/login", "accounts/onetap"}

// AuthenticatedSelectors only render for a logged-in session
var AuthenticatedSelectors = []string{
	`a[href*="/direct/inbox/"]`,
	`svg[aria-label="Home"]`,
	`a[href="/"][role="link"]`,
}

// LoginFormSelector matches the username field of the login form
const LoginFormSelector = "input[name='username']"

// NextSelectors are tried in order to advance a story
var NextSelectors = []string{
	"button[aria-label='Next']",
	"div[aria-label='Next']",
}

// InterstitialPattern matches the "View story" confirmation control
const InterstitialPattern = `^view story$`

// HomeURL returns the landing page under base
func HomeURL(base string) string {
	return strings.TrimRight(base, "/") + "/"
}

// LoginURL returns the login page under base
func LoginURL(base string) string {
	return strings.TrimRight(base, "/") + LoginPath
}

// StoryURL constructs the story viewer URL for a user
func StoryURL(base, username string) string {
	if username == "" {
		return ""
	}
	return fmt.Sprintf("%s/stories/%s/", strings.TrimRight(base, "/"), username)
}

// IsLoginRoute reports whether url is a login or one-tap page
func IsLoginRoute(url string) bool {
	for _, route := range loginRoutes {
		if strings.Contains(url, route) {
			return true
		}
	}
	return false
}

// IsStoryRoute reports whether url is inside the story viewer
func IsStoryRoute(url string) bool {
	return strings.Contains(url, StoryMarker)
}

// IsValidUsername checks if a username is valid according to Instagram rules
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}

	// Instagram usernames can only contain letters, numbers, periods, and underscores
	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}

	return true
}

// SanitizeUsername strips a leading @, a pasted profile URL prefix and trailing slashes or spaces
func SanitizeUsername(username string) string {
	username = strings.TrimSpace(username)
	username = strings.TrimPrefix(username, BaseURL+"/")
	username = strings.TrimPrefix(username, "@")
	return strings.TrimRight(username, "/ ")
}
