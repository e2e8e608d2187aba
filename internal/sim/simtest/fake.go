// Package simtest provides an in-memory simulator for tests.
package simtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/banshee-data/navgrid/internal/sim"
)

// Fake is a scripted sim.Simulator. Navigable decides each query; it defaults
// to always false. Counters record how the simulator was driven.
type Fake struct {
	mu sync.Mutex

	Navigable func(p sim.Vec3) bool

	ResetErr error
	CloseErr error
	// FailAfter makes the query with this 1-based number fail. Zero disables it.
	FailAfter int

	Resets  int
	Closes  int
	Queries int
	Points  []sim.Vec3
	Record  bool
}

// AlwaysNavigable reports every point as navigable.
func AlwaysNavigable(sim.Vec3) bool { return true }

// NeverNavigable reports every point as blocked.
func NeverNavigable(sim.Vec3) bool { return false }

func (f *Fake) Reset(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Resets++
	return f.ResetErr
}

func (f *Fake) IsNavigable(ctx context.Context, p sim.Vec3) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Queries++
	if f.Record {
		f.Points = append(f.Points, p)
	}
	if f.FailAfter > 0 && f.Queries == f.FailAfter {
		return false, fmt.Errorf("fake simulator failure at query %d", f.Queries)
	}
	if f.Navigable == nil {
		return false, nil
	}
	return f.Navigable(p), nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closes++
	return f.CloseErr
}

// Opener returns a sim.Opener that always hands out f.
func (f *Fake) Opener() sim.Opener {
	return func(ctx context.Context) (sim.Simulator, error) { return f, nil }
}
