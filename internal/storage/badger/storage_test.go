package badger

import (
	"context"
	"errors"
	"fmt"
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

func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()

	config := &common.BadgerConfig{Path: t.TempDir()}
	retry := common.RetryConfig{MaxRetries: 200, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	db, err := NewBadgerDB(arbor.NewLogger(), config, retry)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func pausedTimer(subjectID string, at time.Time) *models.TimerRecord {
	return &models.TimerRecord{SubjectID: subjectID, IsWorking: false, PausedAt: &at, CreatedAt: at, UpdatedAt: at}
}

func TestTimerStorage_ApplyTransitionCreatesThenUpdates(t *testing.T) {
	storage := NewTimerStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()
	at := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	record, created, err := storage.ApplyTransition(ctx, "user-1", func(current *models.TimerRecord) (*models.TimerRecord, error) {
		assert.Nil(t, current)
		return pausedTimer("user-1", at), nil
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, record.IsWorking)

	record, created, err = storage.ApplyTransition(ctx, "user-1", func(current *models.TimerRecord) (*models.TimerRecord, error) {
		require.NotNil(t, current)
		assert.True(t, current.PausedAt.Equal(at))
		current.IsWorking = true
		current.PausedAt = nil
		return current, nil
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, record.IsWorking)
	assert.Nil(t, record.PausedAt)

	stored, err := storage.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, stored.IsWorking)
	assert.True(t, stored.CreatedAt.Equal(at))
}

func TestTimerStorage_TransitionErrorLeavesStateUntouched(t *testing.T) {
	storage := NewTimerStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	_, _, err := storage.ApplyTransition(ctx, "user-1", func(current *models.TimerRecord) (*models.TimerRecord, error) {
		return nil, fmt.Errorf("%w: already working", interfaces.ErrInvalidTransition)
	})
	assert.ErrorIs(t, err, interfaces.ErrInvalidTransition)

	_, err = storage.Get(ctx, "user-1")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestTimerStorage_GetMissing(t *testing.T) {
	storage := NewTimerStorage(newTestDB(t), arbor.NewLogger())

	_, err := storage.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestTimerStorage_ConcurrentTransitionsSerialize(t *testing.T) {
	storage := NewTimerStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()
	at := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	const workers = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		failed  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pausedAt := at.Add(time.Duration(i) * time.Minute)
			_, wasCreated, err := storage.ApplyTransition(ctx, "user-1", func(current *models.TimerRecord) (*models.TimerRecord, error) {
				next := pausedTimer("user-1", pausedAt)
				if current != nil {
					next.CreatedAt = current.CreatedAt
				}
				return next, nil
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.ErrorIs(t, err, interfaces.ErrWriteConflict)
				failed++
				return
			}
			if wasCreated {
				created++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, created, "exactly one writer may observe the missing record")
	assert.Less(t, failed, workers)

	stored, err := storage.Get(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, stored.Validate())
	assert.False(t, stored.IsWorking)
	require.NotNil(t, stored.PausedAt)
	assert.False(t, stored.PausedAt.Before(at))
	assert.False(t, stored.PausedAt.After(at.Add((workers-1)*time.Minute)))
}

func TestTimerStorage_ListWorking(t *testing.T) {
	storage := NewTimerStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()
	at := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	for _, id := range []string{"a", "b", "c"} {
		id := id
		_, _, err := storage.ApplyTransition(ctx, id, func(current *models.TimerRecord) (*models.TimerRecord, error) {
			if id == "b" {
				return pausedTimer(id, at), nil
			}
			return &models.TimerRecord{SubjectID: id, IsWorking: true, CreatedAt: at, UpdatedAt: at}, nil
		})
		require.NoError(t, err)
	}

	working, err := storage.ListWorking(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(working))
	for _, record := range working {
		ids = append(ids, record.SubjectID)
	}
	assert.ElementsMatch(t, []string{"a", "c"}, ids)
}

func TestTimeLogStorage_ConcurrentAppendsKeepEveryInterval(t *testing.T) {
	storage := NewTimeLogStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()
	at := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	_, created, err := storage.ApplyTransition(ctx, "project-1", func(current *models.TimeLog) (*models.TimeLog, error) {
		return &models.TimeLog{ID: "project-1", MemberID: "member-1", Status: models.TimeLogStatusPaused, CreatedAt: at, UpdatedAt: at}, nil
	})
	require.NoError(t, err)
	assert.True(t, created)

	const workers = 8
	var wg sync.WaitGroup
	var committed int
	var mu sync.Mutex
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := at.Add(time.Duration(i) * time.Hour)
			end := start.Add(time.Minute)
			_, _, err := storage.ApplyTransition(ctx, "project-1", func(current *models.TimeLog) (*models.TimeLog, error) {
				current.Intervals = append(current.Intervals, models.Interval{StartTime: start, EndTime: &end, DurationMs: 60000})
				current.TotalElapsedMs += 60000
				return current, nil
			})
			if err == nil {
				mu.Lock()
				committed++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	log, err := storage.Get(ctx, "project-1")
	require.NoError(t, err)
	require.NoError(t, log.Validate())
	assert.Len(t, log.Intervals, committed)
	assert.Equal(t, int64(committed)*60000, log.TotalElapsedMs)
}

func TestTimeLogStorage_ListByMember(t *testing.T) {
	storage := NewTimeLogStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()
	at := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	for i, parent := range []string{"p1", "p2", "p3"} {
		member := "member-1"
		if parent == "p2" {
			member = "member-2"
		}
		updated := at.Add(time.Duration(i) * time.Hour)
		_, _, err := storage.ApplyTransition(ctx, parent, func(current *models.TimeLog) (*models.TimeLog, error) {
			return &models.TimeLog{MemberID: member, Status: models.TimeLogStatusPaused, CreatedAt: at, UpdatedAt: updated}, nil
		})
		require.NoError(t, err)
	}

	logs, err := storage.ListByMember(ctx, "member-1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "p3", logs[0].ID)
	assert.Equal(t, "p1", logs[1].ID)
}

func TestTrackingEventStorage_NewestFirstWithLimit(t *testing.T) {
	storage := NewTrackingEventStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		event := &models.TrackingEvent{
			ID:        fmt.Sprintf("evt_%d", i),
			SubjectID: "user-1",
			EventType: models.TrackingEventPaused,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			CreatedAt: base,
		}
		require.NoError(t, storage.Append(ctx, event))
	}
	require.NoError(t, storage.Append(ctx, &models.TrackingEvent{
		ID: "evt_other", SubjectID: "user-2", EventType: models.TrackingEventResumed, Timestamp: base, CreatedAt: base,
	}))

	events, err := storage.ListBySubject(ctx, "user-1", 3)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "evt_4", events[0].ID)
	assert.Equal(t, "evt_3", events[1].ID)
	assert.Equal(t, "evt_2", events[2].ID)

	events, err = storage.ListBySubject(ctx, "nobody", 3)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestTrackingEventStorage_AppendIsImmutable(t *testing.T) {
	storage := NewTrackingEventStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()
	event := &models.TrackingEvent{ID: "evt_1", SubjectID: "user-1", EventType: models.TrackingEventPaused, Timestamp: time.Now()}

	require.NoError(t, storage.Append(ctx, event))
	assert.Error(t, storage.Append(ctx, event))

	err := storage.Append(ctx, &models.TrackingEvent{SubjectID: "user-1"})
	assert.True(t, errors.Is(err, interfaces.ErrValidation))
}

func TestBadgerDB_CancelledContextIsAmbiguous(t *testing.T) {
	storage := NewTimerStorage(newTestDB(t), arbor.NewLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := storage.ApplyTransition(ctx, "user-1", func(current *models.TimerRecord) (*models.TimerRecord, error) {
		return pausedTimer("user-1", time.Now()), nil
	})
	assert.ErrorIs(t, err, interfaces.ErrPersistenceAmbiguous)
}

func TestBadgerDB_ExhaustedConflictIsWriteConflict(t *testing.T) {
	db, err := NewBadgerDB(arbor.NewLogger(), &common.BadgerConfig{InMemory: true}, common.RetryConfig{MaxRetries: 0})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	storage := NewTimerStorage(db, arbor.NewLogger())
	ctx := context.Background()
	at := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	_, _, err = storage.ApplyTransition(ctx, "user-1", func(current *models.TimerRecord) (*models.TimerRecord, error) {
		return pausedTimer("user-1", at), nil
	})
	require.NoError(t, err)

	// A competing write lands between this transaction's read and its commit
	_, _, err = storage.ApplyTransition(ctx, "user-1", func(current *models.TimerRecord) (*models.TimerRecord, error) {
		_, _, competing := storage.ApplyTransition(ctx, "user-1", func(*models.TimerRecord) (*models.TimerRecord, error) {
			return &models.TimerRecord{SubjectID: "user-1", IsWorking: true, CreatedAt: at, UpdatedAt: at}, nil
		})
		assert.NoError(t, competing)
		return pausedTimer("user-1", at.Add(time.Hour)), nil
	})
	assert.ErrorIs(t, err, interfaces.ErrWriteConflict)
	assert.NotErrorIs(t, err, interfaces.ErrPersistenceAmbiguous)

	stored, err := storage.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, stored.IsWorking, "the rejected commit wrote nothing")
}
