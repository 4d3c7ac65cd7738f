package utils

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrDatabaseError       = errors.New("database error")
	ErrAccountNotFound     = errors.New("account not found")
	ErrEmailAlreadyExists  = errors.New("email already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrPlanNotFound        = errors.New("journey plan not found")
	ErrStopNotFound        = errors.New("stop not found")
	ErrActionNotFound      = errors.New("action not found")
	ErrStopFloor           = errors.New("a journey keeps at least two stops")
	ErrPlanNotDraft        = errors.New("journey plan is no longer a draft")
	ErrPlanFinalizing      = errors.New("journey plan is being finalized")
	ErrForbiddenPlanAccess = errors.New("journey plan belongs to another requester")
	ErrUnknownActionType   = errors.New("unknown action type")
)

// ValidationError reports every finalize precondition violation at once,
// naming the offending stops so the user can fix the plan and retry.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("journey plan is not ready to finalize: %s", strings.Join(e.Problems, "; "))
}
