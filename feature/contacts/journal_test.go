package contacts

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"

	"klaviyo-sync/core/database"
	"klaviyo-sync/core/reconcile"
)

func newMockJournal(t *testing.T) (*Journal, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := database.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}))
	require.NoError(t, err)
	return NewJournal(db, "run-1"), mock
}

func TestJournal_Record(t *testing.T) {
	j, mock := newMockJournal(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `sync_results`")).
		WithArgs("run-1", "contacts", "a@x.com", "p1", "update", true, false, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := j.Record(context.Background(), "contacts", reconcile.Result{
		RecordKey: "a@x.com",
		ProfileID: "p1",
		Action:    reconcile.ActionUpdate,
		State:     reconcile.StateDone,
		Success:   true,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournal_RecordFailure(t *testing.T) {
	j, mock := newMockJournal(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `sync_results`")).
		WillReturnError(errors.New("table is read only"))
	mock.ExpectRollback()

	err := j.Record(context.Background(), "contacts", reconcile.Result{RecordKey: "a@x.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a@x.com")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournal_Nil(t *testing.T) {
	var j *Journal
	assert.NoError(t, j.Migrate())
	assert.NoError(t, j.Record(context.Background(), "contacts", reconcile.Result{}))
	assert.Equal(t, "", j.RunID())
}

func TestResultError(t *testing.T) {
	assert.Equal(t, "", resultError(reconcile.Result{}))
	assert.Equal(t, "boom", resultError(reconcile.Result{Err: errors.New("boom")}))
	assert.Equal(t, "subscription: late", resultError(reconcile.Result{SubscriptionErr: errors.New("late")}))
}
