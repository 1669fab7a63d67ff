package auth

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"postharvest/pkg/browser"
)

func testSet(name string) *CookieSet {
	return &CookieSet{
		Name: name,
		Cookies: []browser.Cookie{
			{Name: "_session_id", Value: "session_value_1234567890", Domain: ".truthsocial.com", Path: "/", Secure: true, HTTPOnly: true},
			{Name: "cf_clearance", Value: "clearance_value_abcdefgh", Domain: ".truthsocial.com", Path: "/", Secure: true},
		},
		UserAgent: "TestAgent/1.0",
	}
}

func TestCredentialManager(t *testing.T) {
	manager, mockStore := NewMockManager()

	set := testSet("main")
	if err := manager.Store(set); err != nil {
		t.Fatalf("Failed to store cookie set: %v", err)
	}
	if set.LastModified.IsZero() {
		t.Error("Store should stamp LastModified")
	}

	retrieved, err := manager.Retrieve("main")
	if err != nil {
		t.Fatalf("Failed to retrieve cookie set: %v", err)
	}
	if len(retrieved.Cookies) != 2 {
		t.Fatalf("Expected 2 cookies, got %d", len(retrieved.Cookies))
	}
	if v, ok := retrieved.Cookie("_session_id"); !ok || v != "session_value_1234567890" {
		t.Errorf("Session cookie mismatch: got %q", v)
	}
	if retrieved.UserAgent != set.UserAgent {
		t.Errorf("UserAgent mismatch: got %s, want %s", retrieved.UserAgent, set.UserAgent)
	}

	sets, err := manager.List()
	if err != nil {
		t.Fatalf("Failed to list cookie sets: %v", err)
	}
	if len(sets) != 1 {
		t.Errorf("Expected 1 cookie set in list, got %d", len(sets))
	}

	if err := manager.Delete("main"); err != nil {
		t.Errorf("Failed to delete cookie set: %v", err)
	}
	if _, err := manager.Retrieve("main"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound after delete, got %v", err)
	}
	if mockStore.Count() != 0 {
		t.Errorf("Expected 0 sets after deletion, got %d", mockStore.Count())
	}
}

func TestManagerRejectsInvalidSets(t *testing.T) {
	manager, _ := NewMockManager()

	if err := manager.Store(nil); err == nil {
		t.Error("Expected error for nil set")
	}
	if err := manager.Store(&CookieSet{Name: "empty"}); err == nil {
		t.Error("Expected error for set without cookies")
	}
	if err := manager.Store(&CookieSet{Cookies: testSet("x").Cookies}); err == nil {
		t.Error("Expected error for set without name")
	}
}

func TestManagerFallsBackToNextStore(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = fmt.Errorf("keychain locked")
	working := NewMockStore()

	manager := NewManagerWithStores(broken, working)
	if err := manager.Store(testSet("main")); err != nil {
		t.Fatalf("Expected fallback store to accept the set: %v", err)
	}
	if !working.Exists("main") {
		t.Error("Set should have landed in the second store")
	}
	if broken.Exists("main") {
		t.Error("Set should not be in the failing store")
	}
}

func TestSanitizeCookieSet(t *testing.T) {
	set := testSet("main")
	sanitized := SanitizeCookieSet(set)

	for i, c := range sanitized.Cookies {
		if c.Value == set.Cookies[i].Value {
			t.Errorf("Cookie %s should be masked", c.Name)
		}
		if c.Name != set.Cookies[i].Name {
			t.Errorf("Cookie name should not be masked")
		}
	}
	if sanitized.Cookies[0].Value != "sess...7890" {
		t.Errorf("Unexpected mask: %s", sanitized.Cookies[0].Value)
	}
	if set.Cookies[0].Value != "session_value_1234567890" {
		t.Error("SanitizeCookieSet must not modify its input")
	}
	if SanitizeCookieSet(nil) != nil {
		t.Error("Expected nil for nil input")
	}
	if maskString("short") != "********" {
		t.Error("Short values should be fully masked")
	}
}

func TestParseCookieHeader(t *testing.T) {
	cookies := ParseCookieHeader(`Cookie: _session_id=abc; cf_clearance="x=y"; ; broken; __cf_bm=123`, ".truthsocial.com")

	if len(cookies) != 3 {
		t.Fatalf("Expected 3 cookies, got %d: %+v", len(cookies), cookies)
	}
	if cookies[0].Name != "_session_id" || cookies[0].Value != "abc" {
		t.Errorf("Unexpected first cookie: %+v", cookies[0])
	}
	if cookies[1].Value != "x=y" {
		t.Errorf("Quoted value with '=' not preserved: %q", cookies[1].Value)
	}
	for _, c := range cookies {
		if c.Domain != ".truthsocial.com" || c.Path != "/" || !c.Secure {
			t.Errorf("Cookie %s not scoped to the domain: %+v", c.Name, c)
		}
	}

	if got := ParseCookieHeader("", "example.com"); len(got) != 0 {
		t.Errorf("Expected no cookies from empty header, got %d", len(got))
	}
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv(PassphraseEnv, "test_passphrase_123")
	path := filepath.Join(t.TempDir(), "cookies.enc")

	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}

	if err := store.Store(testSet("main")); err != nil {
		t.Fatalf("Failed to store in encrypted file: %v", err)
	}

	retrieved, err := store.Retrieve("main")
	if err != nil {
		t.Fatalf("Failed to retrieve from encrypted file: %v", err)
	}
	if v, _ := retrieved.Cookie("cf_clearance"); v != "clearance_value_abcdefgh" {
		t.Errorf("Cookie mismatch after encryption/decryption: %q", v)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(content, []byte("session_value")) {
		t.Error("File contains plaintext cookie value")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("Temporary file left behind")
	}

	// a store opened with another passphrase cannot read the file
	t.Setenv(PassphraseEnv, "wrong")
	other, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Retrieve("main"); err == nil {
		t.Error("Expected decryption failure with wrong passphrase")
	}
}

func TestEncryptedFileStoreDeleteRemovesEmptyFile(t *testing.T) {
	t.Setenv(PassphraseEnv, "test_passphrase_123")
	path := filepath.Join(t.TempDir(), "cookies.enc")

	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Store(testSet("a")); err != nil {
		t.Fatal(err)
	}
	if err := store.Store(testSet("b")); err != nil {
		t.Fatal(err)
	}

	if err := store.Delete("a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if store.Exists("a") || !store.Exists("b") {
		t.Error("Only 'a' should have been deleted")
	}
	if err := store.Delete("a"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}
	if err := store.Delete("b"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("File should be removed once the last set is deleted")
	}
}

func TestEncryptedFileStoreGeneratesPassphrase(t *testing.T) {
	t.Setenv(PassphraseEnv, "")
	dir := t.TempDir()

	first, err := NewEncryptedFileStore(filepath.Join(dir, "cookies.enc"))
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Store(testSet("main")); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dir, ".passphrase")); err != nil {
		t.Fatalf("Passphrase file not created: %v", err)
	}

	second, err := NewEncryptedFileStore(filepath.Join(dir, "cookies.enc"))
	if err != nil {
		t.Fatal(err)
	}
	if !second.Exists("main") {
		t.Error("Second store should reuse the saved passphrase")
	}
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv(CookiesEnv, "_session_id=env_session; cf_clearance=env_clear")
	t.Setenv(DomainEnv, "")
	t.Setenv(UserAgentEnv, "EnvAgent/2.0")

	store := NewEnvironmentStore()

	set, err := store.Retrieve("")
	if err != nil {
		t.Fatalf("Failed to retrieve from environment: %v", err)
	}
	if set.Name != "env" {
		t.Errorf("Name mismatch: got %s, want env", set.Name)
	}
	if v, _ := set.Cookie("_session_id"); v != "env_session" {
		t.Errorf("Session mismatch: got %s", v)
	}
	if set.Cookies[0].Domain != DefaultCookieDomain {
		t.Errorf("Expected default domain, got %s", set.Cookies[0].Domain)
	}
	if set.UserAgent != "EnvAgent/2.0" {
		t.Errorf("UserAgent mismatch: %s", set.UserAgent)
	}

	if err := store.Store(testSet("x")); err != ErrStoreUnavailable {
		t.Error("Expected ErrStoreUnavailable for environment store")
	}
	if err := store.Delete("x"); err != ErrStoreUnavailable {
		t.Error("Expected ErrStoreUnavailable for environment delete")
	}
}

func TestManagerAtWithEncryptedStore(t *testing.T) {
	t.Setenv(PassphraseEnv, "test_passphrase_real_manager")
	t.Setenv(CookiesEnv, "")

	manager, err := NewManagerAt(t.TempDir(), false)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	older := testSet("older")
	if err := manager.Store(older); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := manager.Store(testSet("newer")); err != nil {
		t.Fatal(err)
	}

	sets, err := manager.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(sets) != 2 || sets[0].Name != "newer" {
		t.Fatalf("Expected newest first, got %+v", sets)
	}

	def, err := manager.RetrieveDefault()
	if err != nil {
		t.Fatal(err)
	}
	if def.Name != "newer" {
		t.Errorf("Default should be the newest set, got %s", def.Name)
	}

	t.Setenv(CookiesEnv, "_session_id=from_env")
	def, err = manager.RetrieveDefault()
	if err != nil {
		t.Fatal(err)
	}
	if def.Name != "env" {
		t.Errorf("Environment cookies should win, got %s", def.Name)
	}
}

func TestMockStore(t *testing.T) {
	store := NewMockStore()

	sets, err := store.List()
	if err != nil {
		t.Errorf("Failed to list empty store: %v", err)
	}
	if len(sets) != 0 {
		t.Errorf("Expected 0 sets, got %d", len(sets))
	}

	if err := store.Store(testSet("mock")); err != nil {
		t.Errorf("Failed to store set: %v", err)
	}
	if store.Count() != 1 {
		t.Errorf("Expected 1 set, got %d", store.Count())
	}
	if !store.Exists("mock") {
		t.Error("Set should exist")
	}

	store.ListError = fmt.Errorf("injected error")
	if _, err := store.List(); err == nil || err.Error() != "injected error" {
		t.Error("Expected injected error")
	}
}

func TestGuides(t *testing.T) {
	var buf bytes.Buffer
	ShowCookieExtractionGuide(&buf)
	if !strings.Contains(buf.String(), "postharvest auth import") {
		t.Error("Guide should mention the import command")
	}

	buf.Reset()
	ShowQuickExtractGuide(&buf)
	if !strings.Contains(buf.String(), "Cookie") {
		t.Error("Quick guide should mention the Cookie header")
	}
}
