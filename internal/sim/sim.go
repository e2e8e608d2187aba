// Package sim is the boundary to the external simulator that answers
// navigability queries. Nothing in navgrid computes navigability locally.
package sim

import (
	"context"
	"errors"
	"fmt"
)

// Vec3 is a simulator world position. Y is up.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%.4f, %.4f, %.4f)", v.X, v.Y, v.Z)
}

// Simulator is the collaborator contract: a scene is loaded on Reset,
// queried point by point, and released on Close.
type Simulator interface {
	Reset(ctx context.Context) error
	IsNavigable(ctx context.Context, p Vec3) (bool, error)
	Close() error
}

// Opener acquires a simulator instance.
type Opener func(ctx context.Context) (Simulator, error)

// Run opens a simulator, resets it, and hands it to fn. Close is called
// exactly once on every path out of Run once open has succeeded, including
// reset failures, fn errors and panics. A close error is joined with the
// error fn returned.
func Run(ctx context.Context, open Opener, fn func(ctx context.Context, s Simulator) error) (err error) {
	s, err := open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open simulator: %w", err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			opsf("simulator close failed: %v", cerr)
			err = errors.Join(err, fmt.Errorf("failed to close simulator: %w", cerr))
			return
		}
		diagf("simulator closed")
	}()

	if err := s.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset simulator: %w", err)
	}
	diagf("simulator reset")

	return fn(ctx, s)
}
