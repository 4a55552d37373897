package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// Cache persists the current Identity between CLI invocations, so one-shot
// commands can reuse a sign-in. Writes go to a temp file first, then an
// atomic rename.
type Cache struct {
	mu       sync.RWMutex
	filePath string
}

func NewCache(dataDir string) (*Cache, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}
	return &Cache{filePath: filepath.Join(dataDir, "session.json")}, nil
}

// Load returns the cached identity, or nil when none is cached.
func (c *Cache) Load() (*Identity, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	file, err := os.Open(c.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var ident Identity
	if err := json.NewDecoder(file).Decode(&ident); err != nil {
		return nil, err
	}
	if ident.UID == "" {
		return nil, nil
	}
	return &ident, nil
}

func (c *Cache) Save(ident *Identity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tempPath := c.filePath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(ident); err != nil {
		file.Close()
		os.Remove(tempPath)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}
	return os.Rename(tempPath, c.filePath)
}

// Clear removes the cached identity; a missing file is fine.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.Remove(c.filePath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
