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

// TimeLogStorage implements the TimeLogStorage interface for Badger
type TimeLogStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewTimeLogStorage creates a new TimeLogStorage instance
func NewTimeLogStorage(db *BadgerDB, logger arbor.ILogger) interfaces.TimeLogStorage {
	return &TimeLogStorage{
		db:     db,
		logger: logger,
	}
}

// ApplyTransition reads the time log, applies fn and upserts the result in one
// transaction, so concurrent interval updates never lose an interval.
func (s *TimeLogStorage) ApplyTransition(ctx context.Context, parentID string, fn interfaces.TimeLogTransition) (*models.TimeLog, bool, error) {
	var (
		result  *models.TimeLog
		created bool
	)

	err := s.db.update(ctx, func(txn *badger.Txn) error {
		var stored models.TimeLog
		var current *models.TimeLog

		err := s.db.Store().TxGet(txn, parentID, &stored)
		switch {
		case err == nil:
			current = &stored
		case errors.Is(err, badgerhold.ErrNotFound):
			current = nil
		default:
			return fmt.Errorf("failed to read time log %s: %w", parentID, err)
		}

		next, err := fn(current.Clone())
		if err != nil {
			return err
		}
		if next == nil {
			return fmt.Errorf("%w: transition for time log %s produced no record", interfaces.ErrValidation, parentID)
		}
		next.ID = parentID

		if err := s.db.Store().TxUpsert(txn, parentID, next); err != nil {
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
	var log models.TimeLog
	err := s.db.Store().Get(parentID, &log)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, fmt.Errorf("%w: time log %s", interfaces.ErrNotFound, parentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get time log %s: %w", parentID, err)
	}
	return &log, nil
}

// ListByMember returns a member's time logs, most recently updated first
func (s *TimeLogStorage) ListByMember(ctx context.Context, memberID string) ([]*models.TimeLog, error) {
	var logs []models.TimeLog
	query := badgerhold.Where("MemberID").Eq(memberID).Index("MemberID").SortBy("UpdatedAt").Reverse()
	if err := s.db.Store().Find(&logs, query); err != nil {
		return nil, fmt.Errorf("failed to list time logs for member %s: %w", memberID, err)
	}

	result := make([]*models.TimeLog, len(logs))
	for i := range logs {
		result[i] = &logs[i]
	}
	return result, nil
}
