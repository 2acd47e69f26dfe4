package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

// Keys remembered across runs.
const (
	KeyLastProvider = "lastProvider"
	KeyLastModel    = "lastModel"
)

// Prefs is a small persistent key-value store.
type Prefs interface {
	Get(key string) string
	Set(key, value string) error
}

// MemoryPrefs keeps values for the life of the process.
type MemoryPrefs struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryPrefs returns an empty store.
func NewMemoryPrefs() *MemoryPrefs {
	return &MemoryPrefs{values: make(map[string]string)}
}

func (p *MemoryPrefs) Get(key string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.values[key]
}

func (p *MemoryPrefs) Set(key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = value
	return nil
}

// FilePrefs stores values in a TOML file, rewritten on every Set.
type FilePrefs struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

// OpenFilePrefs loads path. A missing file yields an empty store.
func OpenFilePrefs(path string) (*FilePrefs, error) {
	p := &FilePrefs{path: path, values: make(map[string]string)}
	if _, err := toml.DecodeFile(path, &p.values); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return p, nil
		}
		return nil, fmt.Errorf("failed to decode prefs file: %w", err)
	}
	return p, nil
}

func (p *FilePrefs) Get(key string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.values[key]
}

func (p *FilePrefs) Set(key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.values[key] == value {
		return nil
	}
	p.values[key] = value
	return p.save()
}

func (p *FilePrefs) save() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return fmt.Errorf("failed to create prefs directory: %w", err)
	}

	tmp := p.path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create prefs file: %w", err)
	}

	if err := toml.NewEncoder(file).Encode(p.values); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode prefs: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write prefs: %w", err)
	}
	return os.Rename(tmp, p.path)
}
