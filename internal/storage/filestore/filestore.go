// Package filestore is a storage.Backend that keeps one JSON document per
// profile on disk, so a cart survives restarts of the storefront process.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type Backend struct {
	path string
	mu   sync.Mutex
}

// New returns a backend writing to <dir>/<profile>.json. The directory is
// created on first write.
func New(dir, profile string) (*Backend, error) {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		return nil, errors.New("filestore: profile is required")
	}
	if strings.ContainsAny(profile, `/\`) {
		return nil, fmt.Errorf("filestore: invalid profile %q", profile)
	}
	return &Backend{path: filepath.Join(dir, profile+".json")}, nil
}

func (b *Backend) Path() string { return b.path }

func (b *Backend) Available() bool { return b != nil }

func (b *Backend) Get(_ context.Context, key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	doc, err := b.read()
	if err != nil {
		return "", false, err
	}
	value, ok := doc[key]
	return value, ok, nil
}

func (b *Backend) Set(_ context.Context, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	doc, err := b.read()
	if err != nil {
		// An unreadable document would otherwise block every future write.
		doc = map[string]string{}
	}
	doc[key] = value
	return b.write(doc)
}

func (b *Backend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	doc, err := b.read()
	if err != nil {
		doc = map[string]string{}
	}
	if _, ok := doc[key]; !ok && err == nil {
		return nil
	}
	delete(doc, key)
	return b.write(doc)
}

func (b *Backend) read() (map[string]string, error) {
	raw, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("filestore: read %s: %w", b.path, err)
	}

	doc := map[string]string{}
	if len(raw) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("filestore: decode %s: %w", b.path, err)
	}
	return doc, nil
}

// write replaces the document atomically via a temp file and rename.
func (b *Backend) write(doc map[string]string) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("filestore: encode: %w", err)
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("filestore: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("filestore: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("filestore: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("filestore: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("filestore: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return fmt.Errorf("filestore: rename: %w", err)
	}
	return nil
}
