package contracts

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors, matched with errors.Is
var (
	ErrValidation        = errors.New("validation failed")
	ErrSourceUnavailable = errors.New("chart source unavailable")
	ErrPersistence       = errors.New("persistence failure")
	ErrOpenContestExists = fmt.Errorf("%w: an open contest already exists", ErrPersistence)
	ErrNoOpenContest     = errors.New("no open contest")
	ErrContestNotFound   = errors.New("contest not found")
	ErrUnknownPrediction = errors.New("unknown prediction type")
	ErrSnapshotNotCached = errors.New("snapshot not cached")
	ErrEmptyChart        = errors.New("chart payload has no songs")
	ErrNotPublished      = errors.New("chart week not published yet")
)

// ValidationError rejects a submission with a user-facing reason
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrValidation) match
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a ValidationError
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// SourceError a snapshot fetch failure for one (chart, date)
type SourceError struct {
	ChartID string
	Date    time.Time
	Err     error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("fetch %s@%s: %v", e.ChartID, e.Date.Format("2006-01-02"), e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrSourceUnavailable) match
func (e *SourceError) Is(target error) bool {
	return target == ErrSourceUnavailable
}

// PersistenceError a storage failure that aborts the unit of work
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrPersistence) match
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// Persistence wraps err as a PersistenceError; nil stays nil
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}
