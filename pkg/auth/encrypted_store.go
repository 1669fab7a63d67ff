package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 32
	keySize    = 32
	iterations = 100000

	vaultVersion = 2

	// PassphraseEnv overrides the generated passphrase file
	PassphraseEnv = "POSTHARVEST_PASSPHRASE"
)

// EncryptedFileStore keeps all cookie sets in one AES-GCM sealed file. The
// key is derived from a passphrase with PBKDF2 and a per-file salt.
type EncryptedFileStore struct {
	path       string
	passphrase []byte

	mu sync.RWMutex
	// key derived for salt, reused until the salt changes
	salt []byte
	key  []byte
}

// vaultFile is the on-disk envelope. Sealed holds nonce||ciphertext of the
// JSON-encoded map of cookie sets.
type vaultFile struct {
	Version  int       `json:"version"`
	Salt     []byte    `json:"salt"`
	Sealed   []byte    `json:"sealed"`
	Modified time.Time `json:"modified"`
}

// NewEncryptedFileStore opens the vault at path. The passphrase comes from
// POSTHARVEST_PASSPHRASE or a .passphrase file next to path, generated on
// first use.
func NewEncryptedFileStore(path string) (*EncryptedFileStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	pass, err := loadPassphrase(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get passphrase: %w", err)
	}

	return &EncryptedFileStore{path: path, passphrase: pass}, nil
}

// Path returns the location of the encrypted file
func (e *EncryptedFileStore) Path() string {
	return e.path
}

// Store adds or replaces a cookie set
func (e *EncryptedFileStore) Store(set *CookieSet) error {
	if set == nil || set.Name == "" {
		return ErrInvalidCredentials
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	sets, err := e.read()
	if err != nil {
		return err
	}
	sets[set.Name] = *set
	return e.write(sets)
}

// Retrieve returns the named cookie set
func (e *EncryptedFileStore) Retrieve(name string) (*CookieSet, error) {
	if name == "" {
		return nil, ErrInvalidCredentials
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	sets, err := e.read()
	if err != nil {
		return nil, err
	}
	set, ok := sets[name]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &set, nil
}

// List returns every stored set ordered by name
func (e *EncryptedFileStore) List() ([]*CookieSet, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	sets, err := e.read()
	if err != nil {
		return nil, err
	}

	out := make([]*CookieSet, 0, len(sets))
	for name := range sets {
		set := sets[name]
		out = append(out, &set)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes a cookie set. The file is removed with the last set.
func (e *EncryptedFileStore) Delete(name string) error {
	if name == "" {
		return ErrInvalidCredentials
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	sets, err := e.read()
	if err != nil {
		return err
	}
	if _, ok := sets[name]; !ok {
		return ErrCredentialsNotFound
	}
	delete(sets, name)

	if len(sets) == 0 {
		e.salt, e.key = nil, nil
		return os.Remove(e.path)
	}
	return e.write(sets)
}

// Exists checks if a cookie set is stored
func (e *EncryptedFileStore) Exists(name string) bool {
	set, err := e.Retrieve(name)
	return err == nil && set != nil
}

// read decrypts the vault. A missing file is an empty vault.
func (e *EncryptedFileStore) read() (map[string]CookieSet, error) {
	sets := make(map[string]CookieSet)

	raw, err := os.ReadFile(e.path)
	if os.IsNotExist(err) {
		return sets, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read vault: %w", err)
	}

	var vf vaultFile
	if err := json.Unmarshal(raw, &vf); err != nil {
		return nil, fmt.Errorf("failed to parse vault: %w", err)
	}
	if vf.Version != vaultVersion {
		return nil, fmt.Errorf("unsupported vault version %d", vf.Version)
	}

	gcm, err := e.cipherFor(vf.Salt)
	if err != nil {
		return nil, err
	}
	n := gcm.NonceSize()
	if len(vf.Sealed) < n {
		return nil, errors.New("vault data too short")
	}
	plain, err := gcm.Open(nil, vf.Sealed[:n], vf.Sealed[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt vault: %w", err)
	}

	if err := json.Unmarshal(plain, &sets); err != nil {
		return nil, fmt.Errorf("failed to parse cookie sets: %w", err)
	}
	return sets, nil
}

// write seals sets and replaces the vault file atomically
func (e *EncryptedFileStore) write(sets map[string]CookieSet) error {
	salt := e.salt
	if salt == nil {
		salt = make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return fmt.Errorf("failed to generate salt: %w", err)
		}
	}

	gcm, err := e.cipherFor(salt)
	if err != nil {
		return err
	}

	plain, err := json.Marshal(sets)
	if err != nil {
		return fmt.Errorf("failed to marshal cookie sets: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	content, err := json.MarshalIndent(vaultFile{
		Version:  vaultVersion,
		Salt:     salt,
		Sealed:   gcm.Seal(nonce, nonce, plain, nil),
		Modified: time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal vault: %w", err)
	}

	tmp := e.path + ".tmp"
	if err := os.WriteFile(tmp, content, 0600); err != nil {
		return fmt.Errorf("failed to write vault: %w", err)
	}
	if err := os.Rename(tmp, e.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace vault: %w", err)
	}
	return nil
}

// cipherFor returns an AEAD keyed for salt, deriving the key only when the
// salt differs from the cached one
func (e *EncryptedFileStore) cipherFor(salt []byte) (cipher.AEAD, error) {
	if e.key == nil || string(salt) != string(e.salt) {
		e.key = pbkdf2.Key(e.passphrase, salt, iterations, keySize, sha256.New)
		e.salt = append([]byte(nil), salt...)
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// loadPassphrase reads the passphrase from the environment or dir/.passphrase,
// creating the file with a random value when neither exists
func loadPassphrase(dir string) ([]byte, error) {
	if pass := os.Getenv(PassphraseEnv); pass != "" {
		return []byte(pass), nil
	}

	file := filepath.Join(dir, ".passphrase")
	if content, err := os.ReadFile(file); err == nil && len(content) > 0 {
		return content, nil
	}

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate passphrase: %w", err)
	}
	pass := []byte(base64.URLEncoding.EncodeToString(b))
	if err := os.WriteFile(file, pass, 0600); err != nil {
		return nil, fmt.Errorf("failed to save passphrase: %w", err)
	}
	return pass, nil
}
