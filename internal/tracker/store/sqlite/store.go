package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	dbpkg "github.com/BrandonDHaskell/tracker/internal/db"
	"github.com/BrandonDHaskell/tracker/internal/tracker/catalog"
	"github.com/BrandonDHaskell/tracker/internal/tracker/store"
)

// Store opens a fresh SQLite handle per session. The device can sit idle for
// hours between presses, so nothing is held open between sessions.
type Store struct {
	path    string
	catalog *catalog.Catalog
	clock   store.Clock
	loc     *time.Location
	logger  zerolog.Logger
	openDB  func(ctx context.Context) (*sql.DB, error)
}

type Option func(*Store)

// WithClock replaces the wall clock used for timestamps and the 24h window.
func WithClock(c store.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithLocation sets the zone LastOccurrences reports in. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithOpener replaces how a session obtains its *sql.DB.
func WithOpener(fn func(ctx context.Context) (*sql.DB, error)) Option {
	return func(s *Store) { s.openDB = fn }
}

func New(path string, cat *catalog.Catalog, opts ...Option) *Store {
	s := &Store{
		path:    path,
		catalog: cat,
		loc:     time.Local,
		logger:  zerolog.Nop(),
	}
	s.openDB = func(ctx context.Context) (*sql.DB, error) {
		return dbpkg.Open(ctx, dbpkg.Config{Path: s.path})
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Open(ctx context.Context) (store.Session, error) {
	conn, err := s.openDB(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrStorageUnavailable, err)
	}

	sess := &Session{
		id:     uuid.NewString(),
		store:  s,
		db:     conn,
		writer: dbpkg.NewWorker(conn),
		opened: time.Now(),
	}

	if err := s.catalog.Resolve(ctx, sess.setup); err != nil {
		_ = sess.Close()
		if errors.Is(err, catalog.ErrInconsistentMapping) {
			return nil, fmt.Errorf("%w: %w", store.ErrSchemaInconsistency, err)
		}
		return nil, err
	}

	s.logger.Debug().Str("session", sess.id).Str("path", s.path).Msg("session opened")
	return sess, nil
}

// setup runs once per process, from inside the first Open: migrate, verify
// the tables, then resolve every catalog name to its rowid.
func (sess *Session) setup(ctx context.Context, names []string) (map[string]int64, error) {
	logger := sess.store.logger

	if err := dbpkg.Migrate(ctx, sess.db, logger); err != nil {
		return nil, fmt.Errorf("%w: migrate: %w", store.ErrStorageUnavailable, err)
	}

	missing, err := dbpkg.MissingTables(ctx, sess.db)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing tables %v", store.ErrSchemaInconsistency, missing)
	}

	ids := make(map[string]int64, len(names))
	created := 0
	err = sess.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		for _, name := range names {
			id, err := lookupType(ctx, tx, name)
			if errors.Is(err, sql.ErrNoRows) {
				if _, err := tx.ExecContext(ctx, queryInsertType, name); err != nil {
					return fmt.Errorf("resolve event type %q insert: %w", name, err)
				}
				created++
				id, err = lookupType(ctx, tx, name)
			}
			if err != nil {
				return fmt.Errorf("resolve event type %q: %w", name, err)
			}
			ids[name] = id
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Int("types", len(ids)).Int("created", created).Msg("event catalog resolved")
	return ids, nil
}

func lookupType(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, querySelectTypeID, name).Scan(&id)
	return id, err
}
