package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"hmf-id-generator/internal/identity"
)

// FileConfig configures the JSON mapping file backend.
type FileConfig struct {
	Path string `yaml:"path"`
}

// fileData is the JSON structure for persistence
type fileData struct {
	Entries []record `json:"entries"`
	Updated string   `json:"updated"`
	Note    string   `json:"note"`
}

// FileStore keeps the Output in a single JSON file. Saves write a temporary
// file next to the target and rename it into place.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by cfg.Path.
func NewFileStore(cfg FileConfig) (*FileStore, error) {
	if cfg.Path == "" {
		return nil, errors.New("file store: path is required")
	}
	return &FileStore{path: cfg.Path}, nil
}

// Path returns the mapping file location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(ctx context.Context) (*identity.Output, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return identity.EmptyOutput(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read mapping file: %w", err)
	}

	var fd fileData
	if err := json.Unmarshal(data, &fd); err != nil {
		return nil, fmt.Errorf("could not parse mapping file %s: %w", s.path, err)
	}
	return fromRecords(fd.Entries)
}

func (s *FileStore) Save(ctx context.Context, out *identity.Output) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("could not create mapping directory: %w", err)
	}

	data, err := json.MarshalIndent(fileData{
		Entries: toRecords(out),
		Updated: time.Now().Format(time.RFC3339),
		Note:    "digest is HMAC-SHA256(secret, canonical source id); keep this file inside the secure environment",
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal mapping data: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("could not create temporary mapping file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("could not write mapping file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("could not sync mapping file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("could not close mapping file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("could not replace mapping file: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}
