package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/goroute-booking/internal/transit"
)

// ErrSubmitting is returned when a submission is already in flight. It is
// the disabled-button convention expressed as an error, not a lock.
var ErrSubmitting = errors.New("submission already in progress")

// ValidationError is a required field that blocks a step locally. No
// network call is made when one is returned.
type ValidationError struct {
	Field string
	Msg   string
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("%s is required", e.Field)
	}
	return "validation error"
}

// FailureKind is the user-facing class of an error
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureValidation
	FailureNetwork
	FailureOther
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureValidation:
		return "validation"
	case FailureNetwork:
		return "network"
	default:
		return "other"
	}
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

// IsNetworkFailure reports failed or timed out transit calls
func IsNetworkFailure(err error) bool {
	if err == nil {
		return false
	}
	return transit.IsRequestError(err) || errors.Is(err, context.DeadlineExceeded)
}

// Classify maps err onto the failure taxonomy shown to riders
func Classify(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case IsValidation(err):
		return FailureValidation
	case IsNetworkFailure(err):
		return FailureNetwork
	default:
		return FailureOther
	}
}
