// Package storetest runs the behaviour every store.Store implementation must
// share against a concrete backend.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/tracker/internal/tracker/catalog"
	"github.com/BrandonDHaskell/tracker/internal/tracker/store"
)

// Backend builds a Store over one durable location. Calling it again with a
// fresh catalog stands in for a process restart. Stores must report
// LastOccurrences in UTC.
type Backend func(cat *catalog.Catalog, clock store.Clock) store.Store

// Clock is a settable store.Clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var (
	base  = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	names = []string{"Fed Cat", "Fed Baby", "Pee"}
)

// Run executes the suite. newBackend is called once per subtest.
func Run(t *testing.T, newBackend func(t *testing.T) Backend) {
	tests := []struct {
		name string
		fn   func(t *testing.T, b Backend)
	}{
		{"CatalogStableAcrossSessions", testCatalogStableAcrossSessions},
		{"CatalogStableAcrossRestart", testCatalogStableAcrossRestart},
		{"AbsentVersusZero", testAbsentVersusZero},
		{"InsertThenQuery", testInsertThenQuery},
		{"WindowBoundary", testWindowBoundary},
		{"RequestedNameCompleteness", testRequestedNameCompleteness},
		{"UnrelatedTypeIsolation", testUnrelatedTypeIsolation},
		{"UnknownEventType", testUnknownEventType},
		{"SessionReleasedOnError", testSessionReleasedOnError},
		{"SessionReleasedOnPanic", testSessionReleasedOnPanic},
		{"ClosedSessionRejectsWork", testClosedSessionRejectsWork},
		{"OccurrencesOldestFirst", testOccurrencesOldestFirst},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newBackend(t))
		})
	}
}

func ids(t *testing.T, cat *catalog.Catalog) map[string]int64 {
	t.Helper()
	out := make(map[string]int64)
	for _, n := range cat.Names() {
		id, ok := cat.ID(n)
		require.True(t, ok, "name %q unresolved", n)
		out[n] = id
	}
	return out
}

func with(t *testing.T, st store.Store, fn func(store.Session)) {
	t.Helper()
	require.NoError(t, store.WithSession(context.Background(), st, func(s store.Session) error {
		fn(s)
		return nil
	}))
}

func testCatalogStableAcrossSessions(t *testing.T, b Backend) {
	cat := catalog.New(names)
	st := b(cat, NewClock(base).Now)

	with(t, st, func(store.Session) {})
	first := ids(t, cat)

	with(t, st, func(store.Session) {})
	assert.Equal(t, first, ids(t, cat))
}

func testCatalogStableAcrossRestart(t *testing.T, b Backend) {
	cat := catalog.New(names)
	with(t, b(cat, NewClock(base).Now), func(store.Session) {})
	first := ids(t, cat)

	// Same catalog in a different order, plus a new name.
	restarted := catalog.New([]string{"Poo", "Pee", "Fed Baby", "Fed Cat"})
	with(t, b(restarted, NewClock(base).Now), func(store.Session) {})
	second := ids(t, restarted)

	for name, id := range first {
		assert.Equal(t, id, second[name], "id for %q changed across restart", name)
	}
	for name, id := range first {
		assert.NotEqual(t, id, second["Poo"], "new type reused the id of %q", name)
	}
}

func testAbsentVersusZero(t *testing.T, b Backend) {
	st := b(catalog.New(names), NewClock(base).Now)

	with(t, st, func(s store.Session) {
		last, err := s.LastOccurrences(context.Background(), []string{"Fed Cat"})
		require.NoError(t, err)
		require.Contains(t, last, "Fed Cat")
		assert.Nil(t, last["Fed Cat"])

		counts, err := s.NumInLast24Hours(context.Background(), []string{"Fed Cat"})
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"Fed Cat": 0}, counts)
	})
}

func testInsertThenQuery(t *testing.T, b Backend) {
	clock := NewClock(base.Add(250 * time.Millisecond))
	st := b(catalog.New(names), clock.Now)
	ctx := context.Background()

	with(t, st, func(s store.Session) {
		require.NoError(t, s.InsertEvent(ctx, "Fed Cat"))
	})

	with(t, st, func(s store.Session) {
		last, err := s.LastOccurrences(ctx, []string{"Fed Cat"})
		require.NoError(t, err)
		require.NotNil(t, last["Fed Cat"])
		assert.True(t, base.Equal(*last["Fed Cat"]), "got %v want %v", *last["Fed Cat"], base)

		counts, err := s.NumInLast24Hours(ctx, []string{"Fed Cat"})
		require.NoError(t, err)
		assert.Equal(t, 1, counts["Fed Cat"])
	})

	clock.Set(base.Add(store.Window - time.Second))
	with(t, st, func(s store.Session) {
		counts, err := s.NumInLast24Hours(ctx, []string{"Fed Cat"})
		require.NoError(t, err)
		assert.Equal(t, 1, counts["Fed Cat"])
	})

	clock.Set(base.Add(store.Window))
	with(t, st, func(s store.Session) {
		counts, err := s.NumInLast24Hours(ctx, []string{"Fed Cat"})
		require.NoError(t, err)
		assert.Equal(t, 0, counts["Fed Cat"])

		last, err := s.LastOccurrences(ctx, []string{"Fed Cat"})
		require.NoError(t, err)
		require.NotNil(t, last["Fed Cat"], "last occurrence is not windowed")
	})
}

func testWindowBoundary(t *testing.T, b Backend) {
	clock := NewClock(base)
	st := b(catalog.New(names), clock.Now)
	ctx := context.Background()

	clock.Set(base.Add(-(24*time.Hour + time.Minute)))
	with(t, st, func(s store.Session) { require.NoError(t, s.InsertEvent(ctx, "Pee")) })

	clock.Set(base.Add(-(23*time.Hour + 59*time.Minute)))
	with(t, st, func(s store.Session) { require.NoError(t, s.InsertEvent(ctx, "Pee")) })

	clock.Set(base)
	with(t, st, func(s store.Session) {
		counts, err := s.NumInLast24Hours(ctx, []string{"Pee"})
		require.NoError(t, err)
		assert.Equal(t, 1, counts["Pee"])

		last, err := s.LastOccurrences(ctx, []string{"Pee"})
		require.NoError(t, err)
		require.NotNil(t, last["Pee"])
		assert.True(t, base.Add(-(23*time.Hour+59*time.Minute)).Equal(*last["Pee"]))
	})
}

func testRequestedNameCompleteness(t *testing.T, b Backend) {
	st := b(catalog.New(names), NewClock(base).Now)
	ctx := context.Background()

	with(t, st, func(s store.Session) {
		require.NoError(t, s.InsertEvent(ctx, "Pee"))
		require.NoError(t, s.InsertEvent(ctx, "Fed Cat"))

		requested := []string{"Fed Baby", "Pee", "Pee"}

		last, err := s.LastOccurrences(ctx, requested)
		require.NoError(t, err)
		assert.Len(t, last, 2)
		assert.Contains(t, last, "Fed Baby")
		assert.Contains(t, last, "Pee")
		assert.NotContains(t, last, "Fed Cat")

		counts, err := s.NumInLast24Hours(ctx, requested)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"Fed Baby": 0, "Pee": 1}, counts)

		empty, err := s.NumInLast24Hours(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})
}

func testUnrelatedTypeIsolation(t *testing.T, b Backend) {
	clock := NewClock(base)
	st := b(catalog.New(names), clock.Now)
	ctx := context.Background()

	with(t, st, func(s store.Session) { require.NoError(t, s.InsertEvent(ctx, "Fed Baby")) })

	var before map[string]*time.Time
	with(t, st, func(s store.Session) {
		var err error
		before, err = s.LastOccurrences(ctx, []string{"Fed Baby"})
		require.NoError(t, err)
	})

	clock.Advance(time.Hour)
	with(t, st, func(s store.Session) {
		for i := 0; i < 3; i++ {
			require.NoError(t, s.InsertEvent(ctx, "Fed Cat"))
		}
	})

	with(t, st, func(s store.Session) {
		after, err := s.LastOccurrences(ctx, []string{"Fed Baby"})
		require.NoError(t, err)
		require.NotNil(t, after["Fed Baby"])
		assert.True(t, before["Fed Baby"].Equal(*after["Fed Baby"]))

		counts, err := s.NumInLast24Hours(ctx, []string{"Fed Baby", "Fed Cat"})
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"Fed Baby": 1, "Fed Cat": 3}, counts)
	})
}

func testUnknownEventType(t *testing.T, b Backend) {
	st := b(catalog.New(names), NewClock(base).Now)
	ctx := context.Background()

	with(t, st, func(s store.Session) {
		assert.ErrorIs(t, s.InsertEvent(ctx, "Walked Dog"), store.ErrUnknownEventType)

		_, err := s.LastOccurrences(ctx, []string{"Pee", "Walked Dog"})
		assert.ErrorIs(t, err, store.ErrUnknownEventType)

		_, err = s.NumInLast24Hours(ctx, []string{"Walked Dog"})
		assert.ErrorIs(t, err, store.ErrUnknownEventType)

		all, err := s.Occurrences(ctx)
		require.NoError(t, err)
		assert.Empty(t, all, "rejected insert must not be recorded")
	})
}

func testSessionReleasedOnError(t *testing.T, b Backend) {
	st := b(catalog.New(names), NewClock(base).Now)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithSession(ctx, st, func(s store.Session) error {
		require.NoError(t, s.InsertEvent(ctx, "Pee"))
		return boom
	})
	require.ErrorIs(t, err, boom)

	with(t, st, func(s store.Session) {
		counts, err := s.NumInLast24Hours(ctx, []string{"Pee"})
		require.NoError(t, err)
		assert.Equal(t, 1, counts["Pee"], "committed insert survives a failing unit of work")
	})
}

func testSessionReleasedOnPanic(t *testing.T, b Backend) {
	st := b(catalog.New(names), NewClock(base).Now)
	ctx := context.Background()

	var leaked store.Session
	func() {
		defer func() { _ = recover() }()
		_ = store.WithSession(ctx, st, func(s store.Session) error {
			leaked = s
			panic("unit of work blew up")
		})
	}()

	require.NotNil(t, leaked)
	assert.ErrorIs(t, leaked.InsertEvent(ctx, "Pee"), store.ErrSessionClosed)
	with(t, st, func(store.Session) {})
}

func testClosedSessionRejectsWork(t *testing.T, b Backend) {
	st := b(catalog.New(names), NewClock(base).Now)
	ctx := context.Background()

	s, err := st.Open(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "second close is a no-op")

	assert.ErrorIs(t, s.InsertEvent(ctx, "Pee"), store.ErrSessionClosed)
	_, err = s.LastOccurrences(ctx, []string{"Pee"})
	assert.ErrorIs(t, err, store.ErrSessionClosed)
	_, err = s.NumInLast24Hours(ctx, []string{"Pee"})
	assert.ErrorIs(t, err, store.ErrSessionClosed)
	_, err = s.Occurrences(ctx)
	assert.ErrorIs(t, err, store.ErrSessionClosed)
}

func testOccurrencesOldestFirst(t *testing.T, b Backend) {
	clock := NewClock(base)
	cat := catalog.New(names)
	st := b(cat, clock.Now)
	ctx := context.Background()

	with(t, st, func(s store.Session) {
		require.NoError(t, s.InsertEvent(ctx, "Pee"))
		clock.Advance(time.Minute)
		require.NoError(t, s.InsertEvent(ctx, "Fed Cat"))
	})

	with(t, st, func(s store.Session) {
		all, err := s.Occurrences(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)

		peeID, _ := cat.ID("Pee")
		assert.Equal(t, peeID, all[0].TypeID)
		assert.Equal(t, "Pee", all[0].Name)
		assert.True(t, base.Equal(all[0].OccurredAt))
		assert.Equal(t, "Fed Cat", all[1].Name)
		assert.True(t, base.Add(time.Minute).Equal(all[1].OccurredAt))
	})
}
