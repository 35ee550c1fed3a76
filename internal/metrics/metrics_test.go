package metrics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/tracker/internal/tracker/catalog"
	"github.com/BrandonDHaskell/tracker/internal/tracker/store"
	"github.com/BrandonDHaskell/tracker/internal/tracker/store/memory"
)

func newInstrumented(t *testing.T) (*Recorder, *memory.Backing, store.Store) {
	t.Helper()
	rec := NewRecorder()
	b := memory.NewBacking()
	st := memory.New(b, catalog.New([]string{"Pee", "Poo"}), nil, time.UTC)
	return rec, b, rec.Instrument(st)
}

func TestInstrument_CountsSessionsAndEvents(t *testing.T) {
	rec, _, st := newInstrumented(t)
	ctx := context.Background()

	require.NoError(t, store.WithSession(ctx, st, func(sess store.Session) error {
		if err := sess.InsertEvent(ctx, "Pee"); err != nil {
			return err
		}
		if err := sess.InsertEvent(ctx, "Pee"); err != nil {
			return err
		}
		_, err := sess.NumInLast24Hours(ctx, []string{"Pee", "Poo"})
		return err
	}))

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.SessionsOpened))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.EventsRecorded.WithLabelValues("Pee")))
	assert.Equal(t, 0.0, testutil.ToFloat64(rec.EventsRecorded.WithLabelValues("Poo")))
	assert.Equal(t, 0, testutil.CollectAndCount(rec.StoreErrors))
	assert.Equal(t, 4, testutil.CollectAndCount(rec.OpDuration), "open, insert, count, close")
}

func TestInstrument_CountsErrors(t *testing.T) {
	rec, b, st := newInstrumented(t)
	ctx := context.Background()

	err := store.WithSession(ctx, st, func(sess store.Session) error {
		return sess.InsertEvent(ctx, "Sleep start")
	})
	require.ErrorIs(t, err, store.ErrUnknownEventType)
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.StoreErrors.WithLabelValues(opInsert)))
	assert.Equal(t, 0.0, testutil.ToFloat64(rec.EventsRecorded.WithLabelValues("Sleep start")))

	b.SetFailOpen(errors.New("disk gone"))
	_, err = st.Open(ctx)
	require.ErrorIs(t, err, store.ErrStorageUnavailable)
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.StoreErrors.WithLabelValues(opOpen)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.SessionsOpened))
}

func TestRecorder_WriteTextfile(t *testing.T) {
	rec := NewRecorder()
	rec.SessionsOpened.Add(3)
	rec.EventsRecorded.WithLabelValues("Fed Cat").Inc()

	path := filepath.Join(t.TempDir(), "tracker.prom")
	require.NoError(t, rec.WriteTextfile(path))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), "tracker_sessions_opened_total 3")
	assert.Contains(t, string(body), `tracker_events_recorded_total{event="Fed Cat"} 1`)
}

func TestFlusher_WritesOnStop(t *testing.T) {
	rec := NewRecorder()
	path := filepath.Join(t.TempDir(), "tracker.prom")
	f := NewFlusher(rec, path, time.Hour, zerolog.Nop())

	f.Start(context.Background())
	rec.SessionsOpened.Inc()
	f.Stop()
	f.Stop()

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), "tracker_sessions_opened_total 1")
}

func TestFlusher_WritesOnInterval(t *testing.T) {
	rec := NewRecorder()
	path := filepath.Join(t.TempDir(), "tracker.prom")
	f := NewFlusher(rec, path, 10*time.Millisecond, zerolog.Nop())

	f.Start(context.Background())
	defer f.Stop()

	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, time.Second, 5*time.Millisecond)
}

func TestFlusher_DisabledWithoutPath(t *testing.T) {
	f := NewFlusher(NewRecorder(), "", time.Minute, zerolog.Nop())
	f.Start(context.Background())
	// Stop returns immediately.
	f.Stop()
}
