package gate

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

// FlagStore persists the access flag on the visitor's side.
type FlagStore interface {
	Get(key string) (string, error) // Get returns "" with a nil error when the key is absent
	Set(key, value string) error
}

// MemoryStore keeps flags in a map.
type MemoryStore struct {
	mu    sync.RWMutex
	flags map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{flags: map[string]string{}}
}

func (m *MemoryStore) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.flags[key], nil
}

func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flags[key] = value
	return nil
}

// CookieStore reads flags from request cookies and writes them as long-lived cookies on the response.
type CookieStore struct {
	r      *http.Request
	w      http.ResponseWriter
	Secure bool
	Name   string // cookie name used for every key when set
}

// NewCookieStore binds a store to one request/response pair.
func NewCookieStore(w http.ResponseWriter, r *http.Request, secure bool) *CookieStore {
	return &CookieStore{r: r, w: w, Secure: secure}
}

func (c *CookieStore) cookieName(key string) string {
	if c.Name != "" {
		return c.Name
	}
	return key
}

func (c *CookieStore) Get(key string) (string, error) {
	cookie, err := c.r.Cookie(c.cookieName(key))
	if errors.Is(err, http.ErrNoCookie) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

// Set writes a cookie that lasts ten years, which is as close to "no expiry" as browsers allow.
func (c *CookieStore) Set(key, value string) error {
	cookie := &http.Cookie{
		Name:     c.cookieName(key),
		Value:    value,
		Path:     "/",
		MaxAge:   10 * 365 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if err := cookie.Valid(); err != nil {
		return fmt.Errorf("invalid cookie: %w", err)
	}
	http.SetCookie(c.w, cookie)
	return nil
}

// FileStore keeps flags in a small TOML file, used by the CLI.
type FileStore struct {
	Path string
	mu   sync.Mutex
}

// NewFileStore creates a store at path. An empty path resolves to ~/.gsotw/access.toml.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		path = filepath.Join(home, ".gsotw", "access.toml")
	}
	return &FileStore{Path: path}, nil
}

func (f *FileStore) read() (map[string]string, error) {
	flags := map[string]string{}
	if _, err := toml.DecodeFile(f.Path, &flags); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return flags, nil
		}
		return nil, fmt.Errorf("failed to read flag file: %w", err)
	}
	return flags, nil
}

func (f *FileStore) Get(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	flags, err := f.read()
	if err != nil {
		return "", err
	}
	return flags[key], nil
}

func (f *FileStore) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	flags, err := f.read()
	if err != nil {
		return err
	}
	flags[key] = value

	if err := os.MkdirAll(filepath.Dir(f.Path), 0700); err != nil {
		return fmt.Errorf("failed to create flag directory: %w", err)
	}

	file, err := os.OpenFile(f.Path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open flag file: %w", err)
	}
	defer file.Close()

	if err := toml.NewEncoder(file).Encode(flags); err != nil {
		return fmt.Errorf("failed to write flag file: %w", err)
	}
	return nil
}
