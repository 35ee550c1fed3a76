package store

import (
	"fmt"
	"time"
)

// IDLookup resolves a catalog name to its id.
type IDLookup func(name string) (int64, bool)

// RequestedIDs validates names against the catalog and returns the id of
// each distinct name.
func RequestedIDs(lookup IDLookup, names []string) (map[string]int64, error) {
	out := make(map[string]int64, len(names))
	for _, name := range names {
		id, ok := lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, name)
		}
		out[name] = id
	}
	return out, nil
}

// ProjectLast picks the requested names out of a per-type aggregate. Names
// with no entry map to nil.
func ProjectLast(requested map[string]int64, latest map[int64]time.Time, loc *time.Location) map[string]*time.Time {
	out := make(map[string]*time.Time, len(requested))
	for name, id := range requested {
		t, ok := latest[id]
		if !ok {
			out[name] = nil
			continue
		}
		local := t.In(loc)
		out[name] = &local
	}
	return out
}

// ProjectCounts picks the requested names out of a per-type count. Names
// with no entry map to 0.
func ProjectCounts(requested map[string]int64, counts map[int64]int) map[string]int {
	out := make(map[string]int, len(requested))
	for name, id := range requested {
		out[name] = counts[id]
	}
	return out
}

// Now truncates the clock reading to whole seconds in UTC, the precision
// occurrences are stored with.
func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now().UTC().Truncate(time.Second)
	}
	return c().UTC().Truncate(time.Second)
}
