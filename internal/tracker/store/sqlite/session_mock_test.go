package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/tracker/internal/tracker/catalog"
	"github.com/BrandonDHaskell/tracker/internal/tracker/store"
)

var mockNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

// openMockSession returns a session over sqlmock with a catalog resolved to
// Pee=1, Poo=2, so Open goes straight to the handle.
func openMockSession(t *testing.T) (store.Session, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)

	cat := catalog.New([]string{"Pee", "Poo"})
	require.NoError(t, cat.Resolve(context.Background(), func(context.Context, []string) (map[string]int64, error) {
		return map[string]int64{"Pee": 1, "Poo": 2}, nil
	}))

	st := New("unused", cat,
		WithClock(func() time.Time { return mockNow }),
		WithLocation(time.UTC),
		WithOpener(func(context.Context) (*sql.DB, error) { return conn, nil }),
	)

	sess, err := st.Open(context.Background())
	require.NoError(t, err)
	return sess, mock
}

func TestSession_InsertEvent_PropagatesExecError(t *testing.T) {
	sess, mock := openMockSession(t)
	diskErr := errors.New("disk I/O error")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(queryInsertEvent)).
		WithArgs(int64(1), "2026-10-15 12:00:00").
		WillReturnError(diskErr)
	mock.ExpectRollback()
	mock.ExpectClose()

	err := sess.InsertEvent(context.Background(), "Pee")
	require.ErrorIs(t, err, diskErr)

	require.NoError(t, sess.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSession_InsertEvent_CommitsEachCall(t *testing.T) {
	sess, mock := openMockSession(t)

	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(queryInsertEvent)).
			WithArgs(int64(2), "2026-10-15 12:00:00").
			WillReturnResult(sqlmock.NewResult(int64(i+1), 1))
		mock.ExpectCommit()
	}
	mock.ExpectClose()

	require.NoError(t, sess.InsertEvent(context.Background(), "Poo"))
	require.NoError(t, sess.InsertEvent(context.Background(), "Poo"))

	require.NoError(t, sess.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSession_InsertEvent_UnknownNameNeverTouchesStorage(t *testing.T) {
	sess, mock := openMockSession(t)
	mock.ExpectClose()

	err := sess.InsertEvent(context.Background(), "Sleep start")
	require.ErrorIs(t, err, store.ErrUnknownEventType)

	require.NoError(t, sess.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSession_LastOccurrences_PropagatesQueryError(t *testing.T) {
	sess, mock := openMockSession(t)
	queryErr := errors.New("database disk image is malformed")

	mock.ExpectQuery(regexp.QuoteMeta(queryLastByType)).WillReturnError(queryErr)
	mock.ExpectClose()

	_, err := sess.LastOccurrences(context.Background(), []string{"Pee"})
	require.ErrorIs(t, err, queryErr)

	require.NoError(t, sess.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSession_LastOccurrences_ProjectsGroupedScan(t *testing.T) {
	sess, mock := openMockSession(t)

	mock.ExpectQuery(regexp.QuoteMeta(queryLastByType)).
		WillReturnRows(sqlmock.NewRows([]string{"type", "latest"}).
			AddRow(int64(1), "2026-10-15 09:15:00").
			AddRow(int64(7), "2026-10-15 11:00:00"))
	mock.ExpectClose()

	last, err := sess.LastOccurrences(context.Background(), []string{"Pee", "Poo"})
	require.NoError(t, err)
	require.Len(t, last, 2)
	require.NotNil(t, last["Pee"])
	assert.True(t, time.Date(2026, 10, 15, 9, 15, 0, 0, time.UTC).Equal(*last["Pee"]))
	assert.Nil(t, last["Poo"])

	require.NoError(t, sess.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSession_LastOccurrences_RejectsUnparseableTime(t *testing.T) {
	sess, mock := openMockSession(t)

	mock.ExpectQuery(regexp.QuoteMeta(queryLastByType)).
		WillReturnRows(sqlmock.NewRows([]string{"type", "latest"}).AddRow(int64(1), "yesterday"))
	mock.ExpectClose()

	_, err := sess.LastOccurrences(context.Background(), []string{"Pee"})
	require.Error(t, err)

	require.NoError(t, sess.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSession_NumInLast24Hours_UsesTrailingWindow(t *testing.T) {
	sess, mock := openMockSession(t)

	mock.ExpectQuery(regexp.QuoteMeta(queryCountByTypeInRange)).
		WithArgs("2026-10-14 12:00:00", "2026-10-15 12:00:00").
		WillReturnRows(sqlmock.NewRows([]string{"type", "count"}).
			AddRow(int64(2), 4).
			AddRow(int64(9), 1))
	mock.ExpectClose()

	counts, err := sess.NumInLast24Hours(context.Background(), []string{"Pee", "Poo"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Pee": 0, "Poo": 4}, counts)

	require.NoError(t, sess.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSession_NumInLast24Hours_PropagatesRowError(t *testing.T) {
	sess, mock := openMockSession(t)
	rowErr := errors.New("interrupted")

	mock.ExpectQuery(regexp.QuoteMeta(queryCountByTypeInRange)).
		WillReturnRows(sqlmock.NewRows([]string{"type", "count"}).
			AddRow(int64(1), 1).
			RowError(0, rowErr))
	mock.ExpectClose()

	_, err := sess.NumInLast24Hours(context.Background(), []string{"Pee"})
	require.ErrorIs(t, err, rowErr)

	require.NoError(t, sess.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Open_OpenerFailure(t *testing.T) {
	cat := catalog.New([]string{"Pee"})
	st := New("unused", cat, WithOpener(func(context.Context) (*sql.DB, error) {
		return nil, errors.New("permission denied")
	}))

	_, err := st.Open(context.Background())
	require.ErrorIs(t, err, store.ErrStorageUnavailable)
}

func TestSession_Close_ReportsHandleError(t *testing.T) {
	sess, mock := openMockSession(t)
	mock.ExpectClose().WillReturnError(errors.New("close failed"))

	require.Error(t, sess.Close())
	require.NoError(t, sess.Close(), "handle already released")
	require.NoError(t, mock.ExpectationsWereMet())
}
