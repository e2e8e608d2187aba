// Package store persists occupancy records keyed by scene.
package store

import (
	"context"
	"errors"

	"github.com/banshee-data/navgrid/internal/occmap"
)

// ErrNotFound is returned when no record exists for a scene.
var ErrNotFound = errors.New("occupancy record not found")

// Store saves and loads one record per scene. Save overwrites silently.
type Store interface {
	Save(ctx context.Context, r *occmap.Record) error
	Load(ctx context.Context, scene string) (*occmap.Record, error)
}

// Multi fans a Save out to several stores in order. Load reads from the first.
type Multi []Store

func (m Multi) Save(ctx context.Context, r *occmap.Record) error {
	for _, s := range m {
		if err := s.Save(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) Load(ctx context.Context, scene string) (*occmap.Record, error) {
	if len(m) == 0 {
		return nil, ErrNotFound
	}
	return m[0].Load(ctx, scene)
}
