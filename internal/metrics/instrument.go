package metrics

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/tracker/internal/tracker/store"
)

const (
	opOpen        = "open"
	opInsert      = "insert_event"
	opLast        = "last_occurrences"
	opCount       = "num_in_last_24_hours"
	opOccurrences = "occurrences"
	opClose       = "close"
)

// Instrument wraps st so every session operation is timed and counted.
func (r *Recorder) Instrument(st store.Store) store.Store {
	return &instrumentedStore{next: st, rec: r}
}

type instrumentedStore struct {
	next store.Store
	rec  *Recorder
}

func (s *instrumentedStore) Open(ctx context.Context) (store.Session, error) {
	var sess store.Session
	err := s.rec.observe(opOpen, func() error {
		var err error
		sess, err = s.next.Open(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.rec.SessionsOpened.Inc()
	return &instrumentedSession{next: sess, rec: s.rec}, nil
}

func (r *Recorder) observe(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	r.OpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		r.StoreErrors.WithLabelValues(op).Inc()
	}
	return err
}

type instrumentedSession struct {
	next store.Session
	rec  *Recorder
}

func (s *instrumentedSession) InsertEvent(ctx context.Context, name string) error {
	err := s.rec.observe(opInsert, func() error {
		return s.next.InsertEvent(ctx, name)
	})
	if err == nil {
		s.rec.EventsRecorded.WithLabelValues(name).Inc()
	}
	return err
}

func (s *instrumentedSession) LastOccurrences(ctx context.Context, names []string) (out map[string]*time.Time, err error) {
	err = s.rec.observe(opLast, func() error {
		out, err = s.next.LastOccurrences(ctx, names)
		return err
	})
	return out, err
}

func (s *instrumentedSession) NumInLast24Hours(ctx context.Context, names []string) (out map[string]int, err error) {
	err = s.rec.observe(opCount, func() error {
		out, err = s.next.NumInLast24Hours(ctx, names)
		return err
	})
	return out, err
}

func (s *instrumentedSession) Occurrences(ctx context.Context) (out []store.Occurrence, err error) {
	err = s.rec.observe(opOccurrences, func() error {
		out, err = s.next.Occurrences(ctx)
		return err
	})
	return out, err
}

func (s *instrumentedSession) Close() error {
	return s.rec.observe(opClose, s.next.Close)
}
