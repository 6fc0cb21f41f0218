// Package file stores verdoc snapshots as files in a directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Persist implements verdoc.Persist with one file per snapshot.
type Persist struct {
	basepath string
}

// Load reads the snapshot stored under name.
func (p Persist) Load(ctx context.Context, name string) ([]byte, error) {
	path, err := p.path(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// Store writes the snapshot under name unless a file by that name exists
// already. Snapshots are named by their content, so an existing file
// already holds the same bytes. The bytes land under a temporary name
// first, so a reader never sees a partial snapshot.
func (p Persist) Store(ctx context.Context, name string, b []byte) error {
	path, err := p.path(name)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	tmp, err := os.CreateTemp(p.basepath, "."+name+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (p Persist) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid snapshot name %q", name)
	}
	return filepath.Join(p.basepath, name), nil
}

// NewPersistForPath returns a Persist that keeps snapshots in the
// directory at the given path, creating it if needed.
//
//	p, err := NewPersistForPath("/var/db/orders")
//	blob, err := p.Load(ctx, root.Link)
func NewPersistForPath(path string) (Persist, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return Persist{}, err
	}
	return Persist{path}, nil
}
