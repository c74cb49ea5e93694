package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/shiftlog/internal/common"
	"github.com/ternarybob/shiftlog/internal/interfaces"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// withTx runs fn inside one immediate transaction, retrying the whole
// transaction while the driver reports lock contention. Errors from fn are
// returned unchanged and nothing is written; only driver errors are
// classified. Contention that outlasts the retry budget is ErrWriteConflict
// since a busy BEGIN or COMMIT writes nothing. Other begin or commit failures
// are ErrPersistenceAmbiguous.
func (s *SQLiteDB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrPersistenceAmbiguous, err)
	}

	var fnErr error
	err := common.Retry(ctx, s.retry, isTransientSQLiteErr, func() error {
		fnErr = nil
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

		if err := fn(tx); err != nil {
			// Lock contention inside fn is retried like any other
			if isTransientSQLiteErr(err) {
				return err
			}
			fnErr = err
			return err
		}
		return tx.Commit()
	})

	if err == nil {
		return nil
	}
	if fnErr != nil {
		return fnErr
	}
	if isTransientSQLiteErr(err) {
		s.logger.Warn().Err(err).Int("max_retries", s.retry.MaxRetries).Msg("SQLite lock contention persisted after retries")
		return fmt.Errorf("%w: %v", interfaces.ErrWriteConflict, err)
	}

	s.logger.Error().Err(err).Msg("SQLite transaction did not complete")
	return fmt.Errorf("%w: %v", interfaces.ErrPersistenceAmbiguous, err)
}

// isTransientSQLiteErr reports whether err carries a driver result code for
// lock contention (SQLITE_BUSY, SQLITE_LOCKED and their extended codes) or a
// short read during a WAL checkpoint. Error text is never inspected.
func isTransientSQLiteErr(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	switch code & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return code == sqlite3.SQLITE_IOERR_SHORT_READ
}

func toNanos(t time.Time) int64 {
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func nullableNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func timeFromNullable(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
}
