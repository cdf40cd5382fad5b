package schedule

import "errors"

var (
	// ErrValidation marks malformed or past-dated input. Never retried.
	ErrValidation = errors.New("invalid schedule")
	ErrNotFound   = errors.New("job not found")
	// ErrPersistence means the change is live in memory but the store file
	// was not written.
	ErrPersistence = errors.New("job store write failed")
	// ErrTrigger means the job was kept with status error and no trigger.
	ErrTrigger = errors.New("trigger construction failed")
)

// IsWarning reports whether err only signals a failed store write, so the
// operation itself succeeded.
func IsWarning(err error) bool {
	return err != nil &&
		errors.Is(err, ErrPersistence) &&
		!errors.Is(err, ErrValidation) &&
		!errors.Is(err, ErrNotFound) &&
		!errors.Is(err, ErrTrigger)
}
