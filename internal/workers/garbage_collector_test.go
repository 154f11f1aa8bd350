package workers

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockWorker(t *testing.T) (*GarbageCollectorWorker, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)

	return &GarbageCollectorWorker{
		DB:                  gormDB,
		UnverifiedDeviceTTL: 30 * time.Minute,
		RunInterval:         time.Minute,
	}, mock
}

func TestGarbageCollector(t *testing.T) {
	t.Run("should delete expired challenges", func(t *testing.T) {
		worker, mock := newMockWorker(t)
		expired := []string{uuid.NewString(), uuid.NewString()}

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id" FROM "challenges" WHERE expires_at < $1 LIMIT $2`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(expired[0]).AddRow(expired[1]))
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "challenges" WHERE id IN ($1,$2)`)).
			WithArgs(expired[0], expired[1]).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		count, err := worker.cleanupExpiredChallenges(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 2, count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("should skip the delete when nothing expired", func(t *testing.T) {
		worker, mock := newMockWorker(t)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id" FROM "challenges"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		count, err := worker.cleanupExpiredChallenges(context.Background())

		require.NoError(t, err)
		assert.Zero(t, count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("should delete stale unverified devices only", func(t *testing.T) {
		worker, mock := newMockWorker(t)
		stale := uuid.NewString()

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id" FROM "mfa_devices" WHERE is_verified = $1 AND created_at < $2 LIMIT $3`)).
			WithArgs(false, sqlmock.AnyArg(), GCBatchSize).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(stale))
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "mfa_devices" WHERE id IN ($1)`)).
			WithArgs(stale).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		count, err := worker.cleanupUnverifiedDevices(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRunWorkerCycle(t *testing.T) {
	t.Run("should keep running tasks after a failure", func(t *testing.T) {
		var ran []string
		tasks := []WorkerTask{
			{Name: "first", Fn: func(context.Context) (int, error) {
				ran = append(ran, "first")
				return 0, errors.New("database unavailable")
			}},
			{Name: "second", Fn: func(context.Context) (int, error) {
				ran = append(ran, "second")
				return 3, nil
			}},
		}

		total := runWorkerCycle(context.Background(), "test", tasks)

		assert.Equal(t, 3, total)
		assert.Equal(t, []string{"first", "second"}, ran)
	})

	t.Run("should stop when the context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		called := false
		counts := executeTasks(ctx, []WorkerTask{{Name: "noop", Fn: func(context.Context) (int, error) {
			called = true
			return 1, nil
		}}})

		assert.False(t, called)
		assert.Equal(t, []int{0}, counts)
	})

	t.Run("should return when the context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})

		go func() {
			StartPeriodicWorker(ctx, "test", time.Hour, nil)
			close(done)
		}()
		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("worker did not stop")
		}
	})
}
