package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/tracker/internal/db"
	"github.com/BrandonDHaskell/tracker/internal/tracker/store"
)

type Session struct {
	id     string
	store  *Store
	db     *sql.DB
	writer *dbpkg.Worker
	opened time.Time
}

// Close releases the handle. Calling it again is a no-op.
func (sess *Session) Close() error {
	if sess.db == nil {
		return nil
	}
	sess.writer.Close()
	err := sess.db.Close()
	sess.db = nil
	sess.writer = nil

	sess.store.logger.Debug().
		Str("session", sess.id).
		Dur("held", time.Since(sess.opened)).
		Msg("session closed")

	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

func (sess *Session) InsertEvent(ctx context.Context, name string) error {
	if sess.db == nil {
		return store.ErrSessionClosed
	}
	id, ok := sess.store.catalog.ID(name)
	if !ok {
		return fmt.Errorf("InsertEvent: %w: %q", store.ErrUnknownEventType, name)
	}
	at := sess.store.clock.Now()

	return sess.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, queryInsertEvent, id, at.Format(timeLayout)); err != nil {
			return fmt.Errorf("InsertEvent insert: %w", err)
		}
		return nil
	})
}

func (sess *Session) LastOccurrences(ctx context.Context, names []string) (map[string]*time.Time, error) {
	if sess.db == nil {
		return nil, store.ErrSessionClosed
	}
	requested, err := store.RequestedIDs(sess.store.catalog.ID, names)
	if err != nil {
		return nil, fmt.Errorf("LastOccurrences: %w", err)
	}

	rows, err := sess.db.QueryContext(ctx, queryLastByType)
	if err != nil {
		return nil, fmt.Errorf("LastOccurrences query: %w", err)
	}
	defer rows.Close()

	latest := make(map[int64]time.Time)
	for rows.Next() {
		var typeID int64
		var raw any
		if err := rows.Scan(&typeID, &raw); err != nil {
			return nil, fmt.Errorf("LastOccurrences scan: %w", err)
		}
		t, err := parseStoredTime(raw)
		if err != nil {
			return nil, fmt.Errorf("LastOccurrences type %d: %w", typeID, err)
		}
		latest[typeID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("LastOccurrences rows: %w", err)
	}

	return store.ProjectLast(requested, latest, sess.store.loc), nil
}

func (sess *Session) NumInLast24Hours(ctx context.Context, names []string) (map[string]int, error) {
	if sess.db == nil {
		return nil, store.ErrSessionClosed
	}
	requested, err := store.RequestedIDs(sess.store.catalog.ID, names)
	if err != nil {
		return nil, fmt.Errorf("NumInLast24Hours: %w", err)
	}

	now := sess.store.clock.Now()
	from := now.Add(-store.Window)

	rows, err := sess.db.QueryContext(ctx, queryCountByTypeInRange,
		from.Format(timeLayout), now.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("NumInLast24Hours query: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var typeID int64
		var n int
		if err := rows.Scan(&typeID, &n); err != nil {
			return nil, fmt.Errorf("NumInLast24Hours scan: %w", err)
		}
		counts[typeID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("NumInLast24Hours rows: %w", err)
	}

	return store.ProjectCounts(requested, counts), nil
}

func (sess *Session) Occurrences(ctx context.Context) ([]store.Occurrence, error) {
	if sess.db == nil {
		return nil, store.ErrSessionClosed
	}

	rows, err := sess.db.QueryContext(ctx, queryAllEvents)
	if err != nil {
		return nil, fmt.Errorf("Occurrences query: %w", err)
	}
	defer rows.Close()

	var out []store.Occurrence
	for rows.Next() {
		var typeID int64
		var raw any
		if err := rows.Scan(&typeID, &raw); err != nil {
			return nil, fmt.Errorf("Occurrences scan: %w", err)
		}
		t, err := parseStoredTime(raw)
		if err != nil {
			return nil, fmt.Errorf("Occurrences type %d: %w", typeID, err)
		}
		name, _ := sess.store.catalog.Name(typeID)
		out = append(out, store.Occurrence{TypeID: typeID, Name: name, OccurredAt: t})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Occurrences rows: %w", err)
	}
	return out, nil
}

// parseStoredTime accepts the driver's representation of a time column:
// text for aggregates, and possibly an already-parsed time.Time for the
// declared TIMESTAMP column.
func parseStoredTime(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		return parseTimeText(v)
	case []byte:
		return parseTimeText(string(v))
	default:
		return time.Time{}, fmt.Errorf("unexpected time value %T", raw)
	}
}

func parseTimeText(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(timeLayout, s, time.UTC); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unparseable time %q", s)
}
