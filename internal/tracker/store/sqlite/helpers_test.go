package sqlite_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/BrandonDHaskell/tracker/internal/tracker/catalog"
	"github.com/BrandonDHaskell/tracker/internal/tracker/store"
	sqlitestore "github.com/BrandonDHaskell/tracker/internal/tracker/store/sqlite"
)

// tempDBPath returns a database file path in a per-test directory. Sessions
// reopen the file, so an in-memory database would not survive Close.
func tempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "data", "tracker.sqlite")
}

// newTestStore returns a store over path reporting times in UTC.
func newTestStore(path string, cat *catalog.Catalog, clock store.Clock) *sqlitestore.Store {
	return sqlitestore.New(path, cat,
		sqlitestore.WithClock(clock),
		sqlitestore.WithLocation(time.UTC),
	)
}
