package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/banshee-data/navgrid/internal/fsutil"
	"github.com/banshee-data/navgrid/internal/occmap"
)

// RecordFileName is the record file inside a scene folder.
const RecordFileName = "BEV_occupancy_map.gob.gz"

// FileStore writes each record as a gob+gzip blob at
// <folder>/<scene>/BEV_occupancy_map.gob.gz, next to the semantic map.
type FileStore struct {
	fs     fsutil.FileSystem
	folder string
}

// NewFileStore returns a FileStore rooted at folder.
func NewFileStore(fsys fsutil.FileSystem, folder string) *FileStore {
	return &FileStore{fs: fsys, folder: folder}
}

// Path returns the record path for scene.
func (s *FileStore) Path(scene string) string {
	return filepath.Join(s.folder, scene, RecordFileName)
}

func (s *FileStore) Save(ctx context.Context, r *occmap.Record) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid record: %w", err)
	}
	blob, err := occmap.Encode(r)
	if err != nil {
		return err
	}
	path := s.Path(r.Scene)
	if err := s.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create scene dir: %w", err)
	}
	if err := s.fs.WriteFile(path, blob, 0644); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	diagf("wrote %d byte record for scene %q to %s", len(blob), r.Scene, path)
	return nil
}

func (s *FileStore) Load(ctx context.Context, scene string) (*occmap.Record, error) {
	blob, err := s.fs.ReadFile(s.Path(scene))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: scene %q", ErrNotFound, scene)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	return occmap.Decode(blob)
}
