package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/radium-io/atelier-assets/errors"
	"github.com/radium-io/atelier-assets/types"
)

// FileStore persists Meta as JSON sidecar files next to each source, at the
// source path plus a ".meta" suffix. Writes go through a temp file and rename
// so a crash mid-write never leaves a truncated sidecar.
type FileStore struct {
	root string
}

// NewFileStore creates a sidecar store. Paths passed to Load/Save/Delete are
// resolved relative to root; an empty root uses them as given.
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

func (s *FileStore) metaPath(path string) string {
	if s.root != "" {
		path = filepath.Join(s.root, path)
	}
	return types.MetaPath(path)
}

// Load implements MetaStore.
func (s *FileStore) Load(_ context.Context, path string) (Meta, bool, error) {
	data, err := os.ReadFile(s.metaPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return Meta{}, false, nil
		}
		return Meta{}, false, errors.WrapTransient(err, "FileStore", "Load", "sidecar read")
	}

	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return Meta{}, false, errors.WrapInvalid(err, "FileStore", "Load", "sidecar decode")
	}
	return meta, true, nil
}

// Save implements MetaStore.
func (s *FileStore) Save(_ context.Context, path string, meta Meta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return errors.WrapInvalid(err, "FileStore", "Save", "sidecar encode")
	}

	target := s.metaPath(path)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.WrapTransient(err, "FileStore", "Save", "sidecar directory create")
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".meta-*")
	if err != nil {
		return errors.WrapTransient(err, "FileStore", "Save", "sidecar temp create")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.WrapTransient(err, "FileStore", "Save", "sidecar write")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.WrapTransient(err, "FileStore", "Save", "sidecar close")
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return errors.WrapTransient(err, "FileStore", "Save", "sidecar rename")
	}
	return nil
}

// Delete implements MetaStore.
func (s *FileStore) Delete(_ context.Context, path string) error {
	if err := os.Remove(s.metaPath(path)); err != nil && !os.IsNotExist(err) {
		return errors.WrapTransient(err, "FileStore", "Delete", "sidecar remove")
	}
	return nil
}
