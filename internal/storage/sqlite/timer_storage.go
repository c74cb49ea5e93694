package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shiftlog/internal/interfaces"
	"github.com/ternarybob/shiftlog/internal/models"
)

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// TimerStorage implements the TimerStorage interface for SQLite
type TimerStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewTimerStorage creates a new TimerStorage instance
func NewTimerStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.TimerStorage {
	return &TimerStorage{
		db:     db,
		logger: logger,
	}
}

const timerColumns = `subject_id, is_working, paused_at, created_at, updated_at`

// ApplyTransition reads, transforms and upserts the subject's timer in one transaction
func (s *TimerStorage) ApplyTransition(ctx context.Context, subjectID string, fn interfaces.TimerTransition) (*models.TimerRecord, bool, error) {
	var (
		result  *models.TimerRecord
		created bool
	)

	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		current, err := s.load(ctx, tx, subjectID)
		if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
			return err
		}

		next, err := fn(current.Clone())
		if err != nil {
			return err
		}
		if next == nil {
			return fmt.Errorf("%w: transition for timer %s produced no record", interfaces.ErrValidation, subjectID)
		}
		next.SubjectID = subjectID

		_, err = tx.ExecContext(ctx, `
			INSERT INTO timers (`+timerColumns+`)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(subject_id) DO UPDATE SET
				is_working = excluded.is_working,
				paused_at = excluded.paused_at,
				updated_at = excluded.updated_at`,
			subjectID, next.IsWorking, nullableNanos(next.PausedAt), toNanos(next.CreatedAt), toNanos(next.UpdatedAt))
		if err != nil {
			return fmt.Errorf("failed to write timer %s: %w", subjectID, err)
		}

		result = next
		created = current == nil
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	s.logger.Debug().
		Str("subject_id", subjectID).
		Bool("is_working", result.IsWorking).
		Bool("created", created).
		Msg("Timer transition committed")

	return result.Clone(), created, nil
}

// Get returns the subject's timer record
func (s *TimerStorage) Get(ctx context.Context, subjectID string) (*models.TimerRecord, error) {
	return s.load(ctx, s.db.DB(), subjectID)
}

// ListWorking returns every running timer, least recently updated first
func (s *TimerStorage) ListWorking(ctx context.Context) ([]*models.TimerRecord, error) {
	rows, err := s.db.DB().QueryContext(ctx,
		`SELECT `+timerColumns+` FROM timers WHERE is_working = 1 ORDER BY updated_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list working timers: %w", err)
	}
	defer rows.Close()

	var records []*models.TimerRecord
	for rows.Next() {
		record, err := scanTimer(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *TimerStorage) load(ctx context.Context, q queryer, subjectID string) (*models.TimerRecord, error) {
	row := q.QueryRowContext(ctx, `SELECT `+timerColumns+` FROM timers WHERE subject_id = ?`, subjectID)
	record, err := scanTimer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: timer %s", interfaces.ErrNotFound, subjectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get timer %s: %w", subjectID, err)
	}
	return record, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTimer(row scanner) (*models.TimerRecord, error) {
	var (
		record    models.TimerRecord
		pausedAt  sql.NullInt64
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&record.SubjectID, &record.IsWorking, &pausedAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	record.PausedAt = timeFromNullable(pausedAt)
	record.CreatedAt = fromNanos(createdAt)
	record.UpdatedAt = fromNanos(updatedAt)
	return &record, nil
}
