package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shiftlog/internal/interfaces"
	"github.com/ternarybob/shiftlog/internal/models"
)

// TimeLogStorage implements the TimeLogStorage interface for SQLite
type TimeLogStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewTimeLogStorage creates a new TimeLogStorage instance
func NewTimeLogStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.TimeLogStorage {
	return &TimeLogStorage{
		db:     db,
		logger: logger,
	}
}

const timeLogColumns = `id, member_id, task, status, intervals, total_elapsed_ms, created_at, updated_at, completed_at`

// ApplyTransition reads, transforms and upserts the time log in one transaction
func (s *TimeLogStorage) ApplyTransition(ctx context.Context, parentID string, fn interfaces.TimeLogTransition) (*models.TimeLog, bool, error) {
	var (
		result  *models.TimeLog
		created bool
	)

	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		current, err := s.load(ctx, tx, parentID)
		if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
			return err
		}

		next, err := fn(current.Clone())
		if err != nil {
			return err
		}
		if next == nil {
			return fmt.Errorf("%w: transition for time log %s produced no record", interfaces.ErrValidation, parentID)
		}
		next.ID = parentID

		intervals := next.Intervals
		if intervals == nil {
			intervals = []models.Interval{}
		}
		intervalsJSON, err := json.Marshal(intervals)
		if err != nil {
			return fmt.Errorf("failed to marshal intervals: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO time_logs (`+timeLogColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				member_id = excluded.member_id,
				task = excluded.task,
				status = excluded.status,
				intervals = excluded.intervals,
				total_elapsed_ms = excluded.total_elapsed_ms,
				updated_at = excluded.updated_at,
				completed_at = excluded.completed_at`,
			parentID, next.MemberID, next.Task, string(next.Status), string(intervalsJSON), next.TotalElapsedMs,
			toNanos(next.CreatedAt), toNanos(next.UpdatedAt), nullableNanos(next.CompletedAt))
		if err != nil {
			return fmt.Errorf("failed to write time log %s: %w", parentID, err)
		}

		result = next
		created = current == nil
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	s.logger.Debug().
		Str("parent_id", parentID).
		Str("status", string(result.Status)).
		Int("intervals", len(result.Intervals)).
		Bool("created", created).
		Msg("Time log transition committed")

	return result.Clone(), created, nil
}

// Get returns the time log stored under parentID
func (s *TimeLogStorage) Get(ctx context.Context, parentID string) (*models.TimeLog, error) {
	return s.load(ctx, s.db.DB(), parentID)
}

// ListByMember returns a member's time logs, most recently updated first
func (s *TimeLogStorage) ListByMember(ctx context.Context, memberID string) ([]*models.TimeLog, error) {
	rows, err := s.db.DB().QueryContext(ctx,
		`SELECT `+timeLogColumns+` FROM time_logs WHERE member_id = ? ORDER BY updated_at DESC`, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list time logs for member %s: %w", memberID, err)
	}
	defer rows.Close()

	var logs []*models.TimeLog
	for rows.Next() {
		log, err := scanTimeLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

func (s *TimeLogStorage) load(ctx context.Context, q queryer, parentID string) (*models.TimeLog, error) {
	row := q.QueryRowContext(ctx, `SELECT `+timeLogColumns+` FROM time_logs WHERE id = ?`, parentID)
	log, err := scanTimeLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: time log %s", interfaces.ErrNotFound, parentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get time log %s: %w", parentID, err)
	}
	return log, nil
}

func scanTimeLog(row scanner) (*models.TimeLog, error) {
	var (
		log           models.TimeLog
		status        string
		intervalsJSON string
		createdAt     int64
		updatedAt     int64
		completedAt   sql.NullInt64
	)
	if err := row.Scan(&log.ID, &log.MemberID, &log.Task, &status, &intervalsJSON, &log.TotalElapsedMs,
		&createdAt, &updatedAt, &completedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(intervalsJSON), &log.Intervals); err != nil {
		return nil, fmt.Errorf("failed to decode intervals of time log %s: %w", log.ID, err)
	}
	log.Status = models.TimeLogStatus(status)
	log.CreatedAt = fromNanos(createdAt)
	log.UpdatedAt = fromNanos(updatedAt)
	log.CompletedAt = timeFromNullable(completedAt)
	return &log, nil
}
