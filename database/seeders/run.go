// Package seeders provides a registry of seed functions. Seeders write
// through repo.Store so the same set runs against SQL, Mongo and memory.
//
// Define a seeder in any file in this package:
//
//	func init() {
//	    seeders.Register("foods", SeedFoods)
//	}
//
// Then run it with: feastly seed
package seeders

import (
	"context"
	"fmt"
	"io"
	"sync"

	repo "github.com/feastly/feastly/app/repositories"
)

type SeederFunc func(ctx context.Context, store repo.Store) error

type seederEntry struct {
	name string
	fn   SeederFunc
}

var (
	mu      sync.Mutex
	entries []seederEntry
)

// Register adds a seeder to the global registry. Call it from init().
func Register(name string, fn SeederFunc) {
	mu.Lock()
	defer mu.Unlock()
	entries = append(entries, seederEntry{name: name, fn: fn})
}

// RunAll executes every registered seeder in registration order and stops
// on the first error.
func RunAll(ctx context.Context, store repo.Store, out io.Writer) error {
	mu.Lock()
	current := make([]seederEntry, len(entries))
	copy(current, entries)
	mu.Unlock()

	if len(current) == 0 {
		fmt.Fprintln(out, "  (no seeders registered)")
		return nil
	}

	for _, e := range current {
		fmt.Fprintf(out, "  • Running seeder: %s … ", e.name)
		if err := e.fn(ctx, store); err != nil {
			fmt.Fprintln(out, "FAILED")
			return fmt.Errorf("seeder %q: %w", e.name, err)
		}
		fmt.Fprintln(out, "done")
	}
	return nil
}
