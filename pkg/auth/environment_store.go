package auth

import (
	"os"
	"time"
)

// Environment variables read by EnvironmentStore
const (
	CookiesEnv   = "POSTHARVEST_COOKIES"
	DomainEnv    = "POSTHARVEST_COOKIE_DOMAIN"
	UserAgentEnv = "POSTHARVEST_USER_AGENT"

	DefaultCookieDomain = ".truthsocial.com"
)

// EnvironmentStore is a read-only CredentialStore built from a Cookie header
// in POSTHARVEST_COOKIES
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(set *CookieSet) error {
	return ErrStoreUnavailable
}

// Retrieve builds a cookie set from the environment. The name is only used
// to label the result.
func (e *EnvironmentStore) Retrieve(name string) (*CookieSet, error) {
	header := os.Getenv(CookiesEnv)
	if header == "" {
		return nil, ErrCredentialsNotFound
	}

	domain := os.Getenv(DomainEnv)
	if domain == "" {
		domain = DefaultCookieDomain
	}

	cookies := ParseCookieHeader(header, domain)
	if len(cookies) == 0 {
		return nil, ErrInvalidCredentials
	}

	if name == "" {
		name = "env"
	}

	return &CookieSet{
		Name:         name,
		Cookies:      cookies,
		UserAgent:    os.Getenv(UserAgentEnv),
		LastModified: time.Now(),
	}, nil
}

// List returns the environment cookie set when one is configured
func (e *EnvironmentStore) List() ([]*CookieSet, error) {
	set, err := e.Retrieve("")
	if err != nil {
		return []*CookieSet{}, nil
	}
	return []*CookieSet{set}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists reports whether POSTHARVEST_COOKIES is set
func (e *EnvironmentStore) Exists(name string) bool {
	return os.Getenv(CookiesEnv) != ""
}
