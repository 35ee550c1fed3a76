package db_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/tracker/internal/db"
)

func newWorkerDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(context.Background(), db.Config{Path: openTempDB(t)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	_, err = conn.Exec(`CREATE TABLE t (v INTEGER NOT NULL)`)
	require.NoError(t, err)
	return conn
}

func count(t *testing.T, conn *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n))
	return n
}

func TestWorker_CommitsOnSuccess(t *testing.T) {
	conn := newWorkerDB(t)
	w := db.NewWorker(conn)
	defer w.Close()

	err := w.Do(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO t (v) VALUES (1)`)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count(t, conn))
}

func TestWorker_RollsBackOnError(t *testing.T) {
	conn := newWorkerDB(t)
	w := db.NewWorker(conn)
	defer w.Close()

	boom := errors.New("boom")
	err := w.Do(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO t (v) VALUES (1)`); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, count(t, conn))
}

func TestWorker_DoAfterClose(t *testing.T) {
	conn := newWorkerDB(t)
	w := db.NewWorker(conn)
	w.Close()
	w.Close()

	err := w.Do(context.Background(), func(context.Context, *sql.Tx) error { return nil })
	assert.ErrorIs(t, err, db.ErrWorkerClosed)
}
