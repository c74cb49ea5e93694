package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shiftlog/internal/interfaces"
	"github.com/ternarybob/shiftlog/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// TimerStorage implements the TimerStorage interface for Badger
type TimerStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewTimerStorage creates a new TimerStorage instance
func NewTimerStorage(db *BadgerDB, logger arbor.ILogger) interfaces.TimerStorage {
	return &TimerStorage{
		db:     db,
		logger: logger,
	}
}

// ApplyTransition reads the subject's record, applies fn and upserts the result
// in one transaction.
func (s *TimerStorage) ApplyTransition(ctx context.Context, subjectID string, fn interfaces.TimerTransition) (*models.TimerRecord, bool, error) {
	var (
		result  *models.TimerRecord
		created bool
	)

	err := s.db.update(ctx, func(txn *badger.Txn) error {
		var stored models.TimerRecord
		var current *models.TimerRecord

		err := s.db.Store().TxGet(txn, subjectID, &stored)
		switch {
		case err == nil:
			current = &stored
		case errors.Is(err, badgerhold.ErrNotFound):
			current = nil
		default:
			return fmt.Errorf("failed to read timer %s: %w", subjectID, err)
		}

		next, err := fn(current.Clone())
		if err != nil {
			return err
		}
		if next == nil {
			return fmt.Errorf("%w: transition for timer %s produced no record", interfaces.ErrValidation, subjectID)
		}
		next.SubjectID = subjectID

		if err := s.db.Store().TxUpsert(txn, subjectID, next); err != nil {
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
	var record models.TimerRecord
	err := s.db.Store().Get(subjectID, &record)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, fmt.Errorf("%w: timer %s", interfaces.ErrNotFound, subjectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get timer %s: %w", subjectID, err)
	}
	return &record, nil
}

// ListWorking returns every timer that is currently running
func (s *TimerStorage) ListWorking(ctx context.Context) ([]*models.TimerRecord, error) {
	var records []models.TimerRecord
	if err := s.db.Store().Find(&records, badgerhold.Where("IsWorking").Eq(true).SortBy("UpdatedAt")); err != nil {
		return nil, fmt.Errorf("failed to list working timers: %w", err)
	}

	result := make([]*models.TimerRecord, len(records))
	for i := range records {
		result[i] = &records[i]
	}
	return result, nil
}
