package account

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v2"
)

// FileStore keeps accounts in a yaml file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

type accountsFile struct {
	Accounts []Account `yaml:"accounts"`
}

// NewFileStore creates a store backed by path. The file is created lazily.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Accounts returns the accounts in file order. A missing file means no accounts.
func (s *FileStore) Accounts(ctx context.Context) ([]Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.load()
	if err != nil {
		return nil, err
	}
	return f.Accounts, nil
}

// Add appends an account, or replaces the one with the same name.
func (s *FileStore) Add(a Account) error {
	if a.Name == "" {
		return fmt.Errorf("account name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.load()
	if err != nil {
		return err
	}
	for i := range f.Accounts {
		if f.Accounts[i].Name == a.Name {
			f.Accounts[i] = a
			return s.save(f)
		}
	}
	f.Accounts = append(f.Accounts, a)
	return s.save(f)
}

// Remove deletes the named account. Removing an unknown account is a no-op.
func (s *FileStore) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.load()
	if err != nil {
		return err
	}
	kept := f.Accounts[:0]
	for _, a := range f.Accounts {
		if a.Name != name {
			kept = append(kept, a)
		}
	}
	f.Accounts = kept
	return s.save(f)
}

func (s *FileStore) load() (*accountsFile, error) {
	var f accountsFile
	if err := readYAML(s.path, &f); err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	return &f, nil
}

func (s *FileStore) save(f *accountsFile) error {
	if err := writeYAML(s.path, f); err != nil {
		return fmt.Errorf("save accounts: %w", err)
	}
	return nil
}

// FilePreferences keeps string preferences in a yaml file.
type FilePreferences struct {
	path string
	mu   sync.Mutex
}

// NewFilePreferences creates a preference store backed by path.
func NewFilePreferences(path string) *FilePreferences {
	return &FilePreferences{path: path}
}

// GetString returns the value for key. Read errors are treated as absent.
func (p *FilePreferences) GetString(key string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	values := map[string]string{}
	if err := readYAML(p.path, &values); err != nil {
		return "", false
	}
	v, ok := values[key]
	return v, ok
}

// SetString stores value under key.
func (p *FilePreferences) SetString(key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	values := map[string]string{}
	if err := readYAML(p.path, &values); err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}
	values[key] = value
	if err := writeYAML(p.path, values); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

func readYAML(path string, out interface{}) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}

// writeYAML writes atomically (temp file then rename).
func writeYAML(path string, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
