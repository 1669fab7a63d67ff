package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"postharvest/pkg/browser"
)

// CookieSet is a saved browser session for the source site
type CookieSet struct {
	Name         string           `json:"name"`
	Cookies      []browser.Cookie `json:"cookies"`
	UserAgent    string           `json:"user_agent,omitempty"`
	LastModified time.Time        `json:"last_modified"`
}

// Cookie returns the value of the named cookie
func (c *CookieSet) Cookie(name string) (string, bool) {
	for _, ck := range c.Cookies {
		if ck.Name == name {
			return ck.Value, true
		}
	}
	return "", false
}

// CredentialStore is the interface for storing and retrieving cookie sets
type CredentialStore interface {
	// Store saves a cookie set under its name
	Store(set *CookieSet) error

	// Retrieve gets the cookie set with the given name
	Retrieve(name string) (*CookieSet, error)

	// List returns all stored cookie sets
	List() ([]*CookieSet, error)

	// Delete removes a cookie set
	Delete(name string) error

	// Exists checks if a cookie set is stored
	Exists(name string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a manager over the keyring, an encrypted file in the
// user config directory and the environment, in that order
func NewManager() (*Manager, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	return NewManagerAt(configDir, true)
}

// NewManagerAt creates a manager whose encrypted file lives in dir. The
// system keyring is only consulted when useKeyring is set.
func NewManagerAt(dir string, useKeyring bool) (*Manager, error) {
	var stores []CredentialStore

	if useKeyring {
		if keyringStore, err := NewKeyringStore(); err == nil {
			stores = append(stores, keyringStore)
		}
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(dir, "cookies.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// Store saves a cookie set using the first store that accepts it
func (m *Manager) Store(set *CookieSet) error {
	if set == nil || set.Name == "" {
		return errors.New("name is required")
	}
	if len(set.Cookies) == 0 {
		return errors.New("at least one cookie is required")
	}

	set.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(set); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store cookies: %w", lastErr)
	}
	return errors.New("no available credential stores")
}

// Retrieve gets a cookie set from the first store that has it
func (m *Manager) Retrieve(name string) (*CookieSet, error) {
	for _, store := range m.stores {
		if set, err := store.Retrieve(name); err == nil && set != nil {
			return set, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCredentialsNotFound, name)
}

// RetrieveDefault returns the environment cookie set if present, otherwise
// the most recently modified stored set
func (m *Manager) RetrieveDefault() (*CookieSet, error) {
	for _, store := range m.stores {
		envStore, ok := store.(*EnvironmentStore)
		if !ok {
			continue
		}
		if set, err := envStore.Retrieve(""); err == nil && set != nil {
			return set, nil
		}
	}

	sets, err := m.List()
	if err == nil && len(sets) > 0 {
		return sets[0], nil
	}

	return nil, ErrCredentialsNotFound
}

// List returns all cookie sets across stores, newest first
func (m *Manager) List() ([]*CookieSet, error) {
	byName := make(map[string]*CookieSet)

	for _, store := range m.stores {
		sets, err := store.List()
		if err != nil {
			continue
		}
		for _, set := range sets {
			if existing, ok := byName[set.Name]; !ok || set.LastModified.After(existing.LastModified) {
				byName[set.Name] = set
			}
		}
	}

	result := make([]*CookieSet, 0, len(byName))
	for _, set := range byName {
		result = append(result, set)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastModified.After(result[j].LastModified)
	})
	return result, nil
}

// Delete removes a cookie set from all stores
func (m *Manager) Delete(name string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(name); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete cookies: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrCredentialsNotFound, name)
	}

	return nil
}

// ParseCookieHeader turns a "Cookie:" request header value as copied from
// the browser's developer tools into cookies scoped to domain
func ParseCookieHeader(header, domain string) []browser.Cookie {
	header = strings.TrimSpace(header)
	header = strings.TrimPrefix(header, "Cookie:")
	header = strings.TrimPrefix(header, "cookie:")

	var cookies []browser.Cookie
	for _, part := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		cookies = append(cookies, browser.Cookie{
			Name:   name,
			Value:  strings.Trim(strings.TrimSpace(value), `"`),
			Domain: domain,
			Path:   "/",
			Secure: true,
		})
	}
	return cookies
}

// getConfigDir returns the configuration directory path
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "postharvest")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "postharvest")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "postharvest")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "postharvest")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// SanitizeCookieSet creates a copy of the set with cookie values masked
func SanitizeCookieSet(set *CookieSet) *CookieSet {
	if set == nil {
		return nil
	}

	masked := make([]browser.Cookie, len(set.Cookies))
	for i, c := range set.Cookies {
		c.Value = maskString(c.Value)
		masked[i] = c
	}

	return &CookieSet{
		Name:         set.Name,
		Cookies:      masked,
		UserAgent:    set.UserAgent,
		LastModified: set.LastModified,
	}
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("cookies not found")
	ErrInvalidCredentials  = errors.New("invalid cookie set")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
