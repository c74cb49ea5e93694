package interfaces

import "errors"

// Error taxonomy shared by the storage backends, the services and the HTTP layer.
// Wrap with fmt.Errorf("%w: ...") and match with errors.Is.
var (
	// ErrValidation is returned for malformed input. Never retried automatically.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when no record exists for a subject or parent.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a transition is not legal from the
	// current state. Stored state is left unchanged.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrPersistenceAmbiguous is returned when the store cannot confirm whether
	// the write committed. Callers must re-read state before any retry.
	ErrPersistenceAmbiguous = errors.New("persistence outcome unknown")

	// ErrWriteConflict is returned when competing writers kept the transaction
	// from committing within the retry budget. Nothing was written, so the
	// request is safe to retry.
	ErrWriteConflict = errors.New("write conflict")

	// ErrForbidden is returned when the caller may not access the subject.
	ErrForbidden = errors.New("forbidden")
)
