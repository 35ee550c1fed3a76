// Package catalog holds the process-wide mapping between event type names
// and their durable integer ids.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrInconsistentMapping is returned when a resolver hands back ids that do
// not form a one-to-one mapping over the configured names.
var ErrInconsistentMapping = errors.New("inconsistent event type mapping")

// ResolveFunc looks up, creating where absent, the durable id of every name.
// It runs at most once successfully per Catalog.
type ResolveFunc func(ctx context.Context, names []string) (map[string]int64, error)

// Catalog is the fixed list of event type names a process works with and,
// once resolved, their ids. It is safe for concurrent use.
type Catalog struct {
	names []string

	mu       sync.RWMutex
	resolved bool
	byName   map[string]int64
	byID     map[int64]string
}

// New returns an unresolved catalog over names. Empty entries are dropped and
// duplicates collapse to their first occurrence.
func New(names []string) *Catalog {
	return &Catalog{names: Dedupe(names)}
}

// FromPages flattens the display pages into a single catalog.
func FromPages(pages [][]string) *Catalog {
	var all []string
	for _, page := range pages {
		all = append(all, page...)
	}
	return New(all)
}

// Dedupe removes empty names and repeats, keeping first-seen order. Names
// are kept byte for byte: they are the keys callers query with.
func Dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Names returns a copy of the configured names in order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

func (c *Catalog) Resolved() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resolved
}

// Resolve populates the mapping using fn unless it is already populated.
// Concurrent callers block until the first finishes; fn is never run twice
// for one catalog once it has succeeded. A failed attempt leaves the
// catalog unresolved so the next call retries.
func (c *Catalog) Resolve(ctx context.Context, fn ResolveFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.resolved {
		return nil
	}

	ids, err := fn(ctx, c.Names())
	if err != nil {
		return err
	}

	byName := make(map[string]int64, len(c.names))
	byID := make(map[int64]string, len(c.names))
	for _, name := range c.names {
		id, ok := ids[name]
		if !ok {
			return fmt.Errorf("%w: no id for %q", ErrInconsistentMapping, name)
		}
		if id <= 0 {
			return fmt.Errorf("%w: %q has invalid id %d", ErrInconsistentMapping, name, id)
		}
		if other, dup := byID[id]; dup {
			return fmt.Errorf("%w: %q and %q share id %d", ErrInconsistentMapping, other, name, id)
		}
		byName[name] = id
		byID[id] = name
	}

	c.byName = byName
	c.byID = byID
	c.resolved = true
	return nil
}

// ID returns the id for name. ok is false when the catalog is unresolved or
// name is not part of it.
func (c *Catalog) ID(name string) (id int64, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok = c.byName[name]
	return id, ok
}

// Name is the inverse of ID.
func (c *Catalog) Name(id int64) (name string, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok = c.byID[id]
	return name, ok
}
