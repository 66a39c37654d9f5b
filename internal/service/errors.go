package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/google/uuid"
	"github.com/reviewdesk/review-engine/internal/store"
)

type ErrResourceNotFound struct {
	error
}

func NewErrResourceNotFound(id any, resourceType string) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("%s %v not found", resourceType, id)}
}

func NewErrQuestionNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "question")
}

func NewErrAnswerNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "answer")
}

func NewErrReviewerNotFound(id string) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "reviewer")
}

func NewErrSubmissionNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "submission")
}

func NewErrRerouteNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "reroute")
}

func NewErrQueueIndexOutOfRange(index, size int) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("queue position %d not found (queue size %d)", index, size)}
}

// ErrMissingSubmissionState is returned when a queue operation targets a
// question that was never allocated.
type ErrMissingSubmissionState struct {
	error
}

func NewErrMissingSubmissionState(questionID uuid.UUID) *ErrMissingSubmissionState {
	return &ErrMissingSubmissionState{fmt.Errorf("question %s has no submission state", questionID)}
}

type ErrInvalidState struct {
	error
}

func NewErrInvalidState(format string, args ...any) *ErrInvalidState {
	return &ErrInvalidState{fmt.Errorf(format, args...)}
}

type ErrConflict struct {
	error
}

func NewErrConflict(resourceType string, id uuid.UUID) *ErrConflict {
	return &ErrConflict{fmt.Errorf("%s %s was modified concurrently", resourceType, id)}
}

type ErrUnavailable struct {
	error
}

func NewErrUnavailable(err error) *ErrUnavailable {
	return &ErrUnavailable{fmt.Errorf("store unavailable: %w", err)}
}

func (e *ErrUnavailable) Unwrap() error {
	return errors.Unwrap(e.error)
}

// IsNotFound is true for both a missing resource and a missing submission state.
func IsNotFound(err error) bool {
	var notFound *ErrResourceNotFound
	var missing *ErrMissingSubmissionState
	return errors.As(err, &notFound) || errors.As(err, &missing)
}

// classify maps connectivity failures to ErrUnavailable and leaves the rest untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var (
		unavailable *ErrUnavailable
		netErr      net.Error
	)
	switch {
	case errors.As(err, &unavailable):
		return err
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr):
		return NewErrUnavailable(err)
	}
	return err
}

// storeErr translates a store error for the given resource.
func storeErr(err error, notFound error, resourceType string, id uuid.UUID) error {
	switch {
	case errors.Is(err, store.ErrRecordNotFound):
		return notFound
	case errors.Is(err, store.ErrStaleVersion):
		return NewErrConflict(resourceType, id)
	}
	return classify(err)
}
