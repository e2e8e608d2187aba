// Command navgrid samples a simulator's navigability oracle over a world
// lattice and writes the occupancy map aligned to a scene's semantic map.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/navgrid/internal/fsutil"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{
		fsys:   fsutil.OSFileSystem{},
		opener: httpOpener,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	if err := a.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		stop()
		os.Exit(1)
	}
}
