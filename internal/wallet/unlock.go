package wallet

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// KeyCache holds keys unlocked by `wallet unlock` so later commands can sign
// without touching the keychain again. The file is readable by the current
// user only and is deleted by `wallet lock`.
type KeyCache struct {
	path string
	mu   sync.Mutex
}

// NewKeyCache returns a cache stored at path.
func NewKeyCache(path string) *KeyCache {
	return &KeyCache{path: path}
}

// DefaultKeyCache returns the per-user cache in the OS cache directory.
//
//	macOS:   ~/Library/Caches/w3auction/session.json
//	Linux:   ~/.cache/w3auction/session.json
//	Windows: %LocalAppData%\w3auction\session.json
func DefaultKeyCache() *KeyCache {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return NewKeyCache(filepath.Join(dir, keychainService, "session.json"))
}

// Get returns a cached key for ref.
func (c *KeyCache) Get(ref string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.read()[ref]
	return v, ok
}

// Put caches keys, merging them into the file in one write.
func (c *KeyCache) Put(keys map[string]string) error {
	if len(keys) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.read()
	for ref, k := range keys {
		m[ref] = k
	}
	return c.write(m)
}

// Remove evicts one key.
func (c *KeyCache) Remove(ref string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.read()
	if _, ok := m[ref]; !ok {
		return nil
	}
	delete(m, ref)
	return c.write(m)
}

// Unlocked reports whether the wallet named name has a cached key.
func (c *KeyCache) Unlocked(name string) bool {
	_, ok := c.Get(keyRef(name))
	return ok
}

// Active reports whether any key is cached.
func (c *KeyCache) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.read()) > 0
}

// Clear removes all cached keys.
func (c *KeyCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := os.Remove(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Over returns a backend that answers Retrieve from the cache first and
// falls back to ks. Store and Delete go to ks; Delete also evicts the cache.
func (c *KeyCache) Over(ks KeystoreBackend) KeystoreBackend {
	return &cachedKeystore{cache: c, next: ks}
}

// read returns an empty map (never nil) on any error.
func (c *KeyCache) read() map[string]string {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return make(map[string]string)
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil || m == nil {
		return make(map[string]string)
	}
	return m
}

func (c *KeyCache) write(m map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0o600)
}

type cachedKeystore struct {
	cache *KeyCache
	next  KeystoreBackend
}

func (k *cachedKeystore) Store(name, hexKey string) (string, error) {
	return k.next.Store(name, hexKey)
}

func (k *cachedKeystore) Retrieve(ref string) (string, error) {
	if v, ok := k.cache.Get(ref); ok {
		return v, nil
	}
	return k.next.Retrieve(ref)
}

func (k *cachedKeystore) Delete(ref string) error {
	if err := k.cache.Remove(ref); err != nil {
		return err
	}
	return k.next.Delete(ref)
}
