package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/BrandonDHaskell/tracker/internal/tracker/catalog"
	"github.com/BrandonDHaskell/tracker/internal/tracker/store"
)

// Backing is the in-memory stand-in for a database file. It outlives the
// Stores built on it, so a second Store (with a fresh catalog) over the same
// Backing behaves like a process restart.
type Backing struct {
	mu     sync.RWMutex
	types  []string // id-1 -> name
	events []row

	failOpen error
}

type row struct {
	typeID int64
	at     time.Time
}

func NewBacking() *Backing {
	return &Backing{}
}

type Store struct {
	backing *Backing
	catalog *catalog.Catalog
	clock   store.Clock
	loc     *time.Location
}

func New(b *Backing, cat *catalog.Catalog, clock store.Clock, loc *time.Location) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{backing: b, catalog: cat, clock: clock, loc: loc}
}

func (s *Store) Open(ctx context.Context) (store.Session, error) {
	s.backing.mu.RLock()
	failErr := s.backing.failOpen
	s.backing.mu.RUnlock()
	if failErr != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrStorageUnavailable, failErr)
	}

	if err := s.catalog.Resolve(ctx, s.backing.resolve); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrSchemaInconsistency, err)
	}
	return &Session{store: s}, nil
}

// SetFailOpen makes subsequent Opens fail with err (nil to clear).
func (b *Backing) SetFailOpen(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failOpen = err
}

func (b *Backing) resolve(_ context.Context, names []string) (map[string]int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make(map[string]int64, len(names))
	for _, name := range names {
		id := int64(0)
		for i, existing := range b.types {
			if existing == name {
				id = int64(i + 1)
				break
			}
		}
		if id == 0 {
			b.types = append(b.types, name)
			id = int64(len(b.types))
		}
		ids[name] = id
	}
	return ids, nil
}

type Session struct {
	store  *Store
	closed bool
}

func (sess *Session) Close() error {
	sess.closed = true
	return nil
}

func (sess *Session) InsertEvent(_ context.Context, name string) error {
	if sess.closed {
		return store.ErrSessionClosed
	}
	id, ok := sess.store.catalog.ID(name)
	if !ok {
		return fmt.Errorf("InsertEvent: %w: %q", store.ErrUnknownEventType, name)
	}

	b := sess.store.backing
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, row{typeID: id, at: sess.store.clock.Now()})
	return nil
}

func (sess *Session) LastOccurrences(_ context.Context, names []string) (map[string]*time.Time, error) {
	if sess.closed {
		return nil, store.ErrSessionClosed
	}
	requested, err := store.RequestedIDs(sess.store.catalog.ID, names)
	if err != nil {
		return nil, fmt.Errorf("LastOccurrences: %w", err)
	}

	b := sess.store.backing
	b.mu.RLock()
	latest := make(map[int64]time.Time)
	for _, r := range b.events {
		if cur, ok := latest[r.typeID]; !ok || r.at.After(cur) {
			latest[r.typeID] = r.at
		}
	}
	b.mu.RUnlock()

	return store.ProjectLast(requested, latest, sess.store.loc), nil
}

func (sess *Session) NumInLast24Hours(_ context.Context, names []string) (map[string]int, error) {
	if sess.closed {
		return nil, store.ErrSessionClosed
	}
	requested, err := store.RequestedIDs(sess.store.catalog.ID, names)
	if err != nil {
		return nil, fmt.Errorf("NumInLast24Hours: %w", err)
	}

	now := sess.store.clock.Now()
	from := now.Add(-store.Window)

	b := sess.store.backing
	b.mu.RLock()
	counts := make(map[int64]int)
	for _, r := range b.events {
		if r.at.After(from) && !r.at.After(now) {
			counts[r.typeID]++
		}
	}
	b.mu.RUnlock()

	return store.ProjectCounts(requested, counts), nil
}

func (sess *Session) Occurrences(_ context.Context) ([]store.Occurrence, error) {
	if sess.closed {
		return nil, store.ErrSessionClosed
	}

	b := sess.store.backing
	b.mu.RLock()
	out := make([]store.Occurrence, 0, len(b.events))
	for _, r := range b.events {
		name, _ := sess.store.catalog.Name(r.typeID)
		out = append(out, store.Occurrence{TypeID: r.typeID, Name: name, OccurredAt: r.at})
	}
	b.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}
