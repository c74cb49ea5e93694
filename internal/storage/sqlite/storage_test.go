package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shiftlog/internal/common"
	"github.com/ternarybob/shiftlog/internal/interfaces"
	"github.com/ternarybob/shiftlog/internal/models"
)

// setupTestDB creates a test database that is closed when the test ends
func setupTestDB(t *testing.T) *SQLiteDB {
	t.Helper()

	config := &common.SQLiteConfig{
		Path:          filepath.Join(t.TempDir(), "test.db"),
		BusyTimeoutMS: 5000,
	}
	retry := common.RetryConfig{MaxRetries: 20, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}

	db, err := NewSQLiteDB(arbor.NewLogger(), config, retry)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteDB_MigrationsAreIdempotent(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, db.migrate())

	var count int
	require.NoError(t, db.DB().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestTimerStorage_ApplyTransition(t *testing.T) {
	storage := NewTimerStorage(setupTestDB(t), arbor.NewLogger())
	ctx := context.Background()
	at := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	record, created, err := storage.ApplyTransition(ctx, "user-1", func(current *models.TimerRecord) (*models.TimerRecord, error) {
		assert.Nil(t, current)
		return &models.TimerRecord{IsWorking: false, PausedAt: &at, CreatedAt: at, UpdatedAt: at}, nil
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "user-1", record.SubjectID)

	later := at.Add(time.Hour)
	_, created, err = storage.ApplyTransition(ctx, "user-1", func(current *models.TimerRecord) (*models.TimerRecord, error) {
		require.NotNil(t, current)
		current.IsWorking = true
		current.PausedAt = nil
		current.UpdatedAt = later
		return current, nil
	})
	require.NoError(t, err)
	assert.False(t, created)

	stored, err := storage.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, stored.IsWorking)
	assert.Nil(t, stored.PausedAt)
	assert.True(t, stored.CreatedAt.Equal(at))
	assert.True(t, stored.UpdatedAt.Equal(later))

	working, err := storage.ListWorking(ctx)
	require.NoError(t, err)
	require.Len(t, working, 1)
	assert.Equal(t, "user-1", working[0].SubjectID)
}

func TestTimerStorage_RejectedTransitionWritesNothing(t *testing.T) {
	storage := NewTimerStorage(setupTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	_, _, err := storage.ApplyTransition(ctx, "user-1", func(current *models.TimerRecord) (*models.TimerRecord, error) {
		return nil, fmt.Errorf("%w: nope", interfaces.ErrInvalidTransition)
	})
	assert.ErrorIs(t, err, interfaces.ErrInvalidTransition)

	_, err = storage.Get(ctx, "user-1")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestTimeLogStorage_RoundTripAndConcurrency(t *testing.T) {
	storage := NewTimeLogStorage(setupTestDB(t), arbor.NewLogger())
	ctx := context.Background()
	at := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	_, created, err := storage.ApplyTransition(ctx, "project-1", func(current *models.TimeLog) (*models.TimeLog, error) {
		return &models.TimeLog{
			MemberID:  "member-1",
			Task:      "sorting donations",
			Status:    models.TimeLogStatusOngoing,
			Intervals: []models.Interval{{StartTime: at}},
			CreatedAt: at,
			UpdatedAt: at,
		}, nil
	})
	require.NoError(t, err)
	assert.True(t, created)

	log, err := storage.Get(ctx, "project-1")
	require.NoError(t, err)
	assert.Equal(t, "sorting donations", log.Task)
	require.Len(t, log.Intervals, 1)
	assert.True(t, log.Intervals[0].IsOpen())

	const workers = 6
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := storage.ApplyTransition(ctx, "project-1", func(current *models.TimeLog) (*models.TimeLog, error) {
				current.TotalElapsedMs += 1000
				start := at
				end := at.Add(time.Second)
				current.Intervals = append([]models.Interval{{StartTime: start, EndTime: &end, DurationMs: 1000}}, current.Intervals...)
				return current, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	log, err = storage.Get(ctx, "project-1")
	require.NoError(t, err)
	require.NoError(t, log.Validate())
	assert.Len(t, log.Intervals, workers+1)
	assert.Equal(t, int64(workers*1000), log.TotalElapsedMs)

	logs, err := storage.ListByMember(ctx, "member-1")
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestTrackingEventStorage_ListBySubject(t *testing.T) {
	storage := NewTrackingEventStorage(setupTestDB(t), arbor.NewLogger())
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 105; i++ {
		require.NoError(t, storage.Append(ctx, &models.TrackingEvent{
			ID:        fmt.Sprintf("evt_%03d", i),
			SubjectID: "user-1",
			EventType: models.TrackingEventResumed,
			Timestamp: base.Add(time.Duration(i) * time.Second),
			CreatedAt: base,
		}))
	}

	events, err := storage.ListBySubject(ctx, "user-1", 100)
	require.NoError(t, err)
	require.Len(t, events, 100)
	assert.Equal(t, "evt_104", events[0].ID)
	assert.Equal(t, "evt_005", events[99].ID)

	events, err = storage.ListBySubject(ctx, "user-2", 100)
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)

	assert.Error(t, storage.Append(ctx, &models.TrackingEvent{ID: "evt_000", SubjectID: "user-1", Timestamp: base, CreatedAt: base}))
}

func TestTimerStorage_ConcurrentPauseResumeSerialize(t *testing.T) {
	storage := NewTimerStorage(setupTestDB(t), arbor.NewLogger())
	ctx := context.Background()
	at := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	// Worker i pauses when even and resumes when odd; UpdatedAt identifies the writer
	submitted := func(i int) *models.TimerRecord {
		stamp := at.Add(time.Duration(i) * time.Minute)
		if i%2 == 0 {
			return &models.TimerRecord{SubjectID: "user-1", IsWorking: false, PausedAt: &stamp, UpdatedAt: stamp}
		}
		return &models.TimerRecord{SubjectID: "user-1", IsWorking: true, UpdatedAt: stamp}
	}

	const workers = 12
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, wasCreated, err := storage.ApplyTransition(ctx, "user-1", func(current *models.TimerRecord) (*models.TimerRecord, error) {
				next := submitted(i)
				next.CreatedAt = next.UpdatedAt
				if current != nil {
					assert.NoError(t, current.Validate())
					next.CreatedAt = current.CreatedAt
				}
				return next, nil
			})
			assert.NoError(t, err)

			mu.Lock()
			defer mu.Unlock()
			if wasCreated {
				created++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, created, "exactly one writer may observe the missing record")

	stored, err := storage.Get(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, stored.Validate())
	if stored.IsWorking {
		assert.Nil(t, stored.PausedAt)
	}

	winner := int(stored.UpdatedAt.Sub(at) / time.Minute)
	require.True(t, winner >= 0 && winner < workers, "final record comes from a submitted transition")
	want := submitted(winner)
	assert.Equal(t, want.IsWorking, stored.IsWorking)
	if want.PausedAt != nil {
		require.NotNil(t, stored.PausedAt)
		assert.True(t, want.PausedAt.Equal(*stored.PausedAt))
	} else {
		assert.Nil(t, stored.PausedAt)
	}
}
