package truthsocial

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// BaseURL is the default origin of the source site
	BaseURL = "https://truthsocial.com"

	// StatusesEndpoint is the account timeline path pattern
	StatusesEndpoint = "/api/v1/accounts/%s/statuses"

	// DefaultPageLimit is the number of statuses requested per page
	DefaultPageLimit = 40

	// MaxPageLimit is the largest page the API will honor
	MaxPageLimit = 40
)

// TimelineURL builds the statuses URL for one account page. An empty maxID
// requests the newest page.
func TimelineURL(base, accountID, maxID string, limit int) string {
	if base == "" {
		base = BaseURL
	}
	if limit <= 0 || limit > MaxPageLimit {
		limit = DefaultPageLimit
	}

	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", limit))
	if maxID != "" {
		params.Set("max_id", maxID)
	}

	return strings.TrimRight(base, "/") + fmt.Sprintf(StatusesEndpoint, url.PathEscape(accountID)) + "?" + params.Encode()
}

// ProfileURL returns the public profile page for a handle such as "@realDonaldTrump"
func ProfileURL(base, handle string) string {
	if base == "" {
		base = BaseURL
	}
	handle = SanitizeHandle(handle)
	if handle == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/@" + handle
}

// IsTimelineURL reports whether a URL observed on the network is an account
// timeline page.
func IsTimelineURL(u string) bool {
	return strings.Contains(u, "api/v1/accounts") && strings.Contains(u, "statuses")
}

// SanitizeHandle strips a leading "@" and any trailing slashes or spaces
func SanitizeHandle(handle string) string {
	handle = strings.TrimSpace(handle)
	handle = strings.TrimPrefix(handle, "@")
	return strings.TrimRight(handle, "/ ")
}
