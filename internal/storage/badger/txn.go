package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/shiftlog/internal/common"
	"github.com/ternarybob/shiftlog/internal/interfaces"
)

// update runs fn inside a single read-write transaction. Badger detects
// concurrent writers to the same keys at commit time and rejects the loser with
// ErrConflict; the whole transaction (read included) is then re-run.
//
// Errors returned by fn are passed through untouched and nothing is written.
// A conflict that outlasts the retry budget is ErrWriteConflict, since a
// rejected commit writes nothing. Any other commit failure is
// ErrPersistenceAmbiguous.
func (b *BadgerDB) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrPersistenceAmbiguous, err)
	}

	var fnErr error
	err := common.Retry(ctx, b.retry, isConflict, func() error {
		fnErr = nil
		return b.store.Badger().Update(func(txn *badger.Txn) error {
			if err := fn(txn); err != nil {
				fnErr = err
				return err
			}
			return nil
		})
	})

	if err == nil {
		return nil
	}
	if fnErr != nil {
		return fnErr
	}

	if isConflict(err) {
		b.logger.Warn().Err(err).Int("max_retries", b.retry.MaxRetries).Msg("Write conflict persisted after retries")
		return fmt.Errorf("%w: %v", interfaces.ErrWriteConflict, err)
	}

	b.logger.Error().Err(err).Msg("Badger transaction commit failed")
	return fmt.Errorf("%w: %v", interfaces.ErrPersistenceAmbiguous, err)
}

func isConflict(err error) bool {
	return errors.Is(err, badger.ErrConflict)
}
