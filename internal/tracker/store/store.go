package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrStorageUnavailable: the backing store could not be opened.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrSchemaInconsistency: tables or the type catalog are missing or
	// malformed after setup. Not repaired automatically.
	ErrSchemaInconsistency = errors.New("schema inconsistency")

	// ErrUnknownEventType marks a caller bug: the name is not in the
	// resolved catalog.
	ErrUnknownEventType = errors.New("unknown event type")

	// ErrSessionClosed is returned by any operation on a closed session.
	ErrSessionClosed = errors.New("session closed")
)

// Window is the trailing interval NumInLast24Hours counts over.
const Window = 24 * time.Hour

// Clock supplies the store-side "now". Occurrence timestamps and the
// counting window both come from it.
type Clock func() time.Time

// Occurrence is one recorded event.
type Occurrence struct {
	TypeID     int64
	Name       string // empty if TypeID is outside this process's catalog
	OccurredAt time.Time
}

// Store hands out sessions. Each session owns its own handle on the
// backing storage; the first Open in a process also prepares the schema and
// resolves the event catalog.
type Store interface {
	Open(ctx context.Context) (Session, error)
}

// Session is a bounded unit of work. Close must be called exactly once the
// work is done, on every path; use WithSession where possible.
type Session interface {
	// InsertEvent appends an occurrence of name stamped with the store clock
	// and commits it before returning.
	InsertEvent(ctx context.Context, name string) error

	// LastOccurrences maps every requested name to its latest occurrence, in
	// the store's display location, or nil if it never occurred.
	LastOccurrences(ctx context.Context, names []string) (map[string]*time.Time, error)

	// NumInLast24Hours maps every requested name to the number of
	// occurrences in (now-24h, now].
	NumInLast24Hours(ctx context.Context, names []string) (map[string]int, error)

	// Occurrences lists every stored occurrence, oldest first.
	Occurrences(ctx context.Context) ([]Occurrence, error)

	Close() error
}

// WithSession opens a session, runs fn, and closes the session whatever fn
// does, including panicking. A close error is returned only when fn
// succeeded.
func WithSession(ctx context.Context, st Store, fn func(Session) error) (err error) {
	sess, err := st.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(sess)
}
