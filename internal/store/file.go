package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// File keeps all keys in a single JSON object on disk. Other processes may
// write the same file; a changed mtime or size makes the next call reload it.
type File struct {
	mu   sync.Mutex
	path string
	data map[string]string

	mod  time.Time
	size int64
}

func OpenFile(path string) (*File, error) {
	f := &File{path: path, data: make(map[string]string)}
	if err := f.reload(); err != nil {
		return nil, err
	}
	return f, nil
}

// DefaultPath returns sosai/store.json under the user config dir.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "sosai-store.json"
	}
	return filepath.Join(dir, "sosai", "store.json")
}

func (f *File) Get(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.reload(); err != nil {
		return "", err
	}
	v, ok := f.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (f *File) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.reload(); err != nil {
		return err
	}
	f.data[key] = value
	return f.save()
}

func (f *File) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.reload(); err != nil {
		return err
	}
	if _, ok := f.data[key]; !ok {
		return nil
	}
	delete(f.data, key)
	return f.save()
}

// reload re-reads the file when it changed on disk since the last read.
// Must be called with mu held.
func (f *File) reload() error {
	info, err := os.Stat(f.path)
	if os.IsNotExist(err) {
		if !f.mod.IsZero() || f.size != 0 {
			f.data = make(map[string]string)
			f.mod, f.size = time.Time{}, 0
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat store: %w", err)
	}
	if info.ModTime().Equal(f.mod) && info.Size() == f.size {
		return nil
	}

	raw, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("read store: %w", err)
	}
	data := make(map[string]string)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("decode store %s: %w", f.path, err)
		}
	}
	f.data = data
	f.mod, f.size = info.ModTime(), info.Size()
	return nil
}

// save must be called with mu held.
func (f *File) save() error {
	raw, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	if info, err := os.Stat(f.path); err == nil {
		f.mod, f.size = info.ModTime(), info.Size()
	}
	return nil
}
