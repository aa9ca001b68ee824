package classroom

import (
	"errors"
	"fmt"
)

var (
	ErrSeatTaken    = errors.New("seat already taken")
	ErrInvalidSeat  = errors.New("invalid seat")
	ErrNotSeated    = errors.New("not seated")
	ErrNoRoomState  = errors.New("room state not received yet")
	ErrRelayGone    = errors.New("relay unavailable")
	ErrMicDisabled  = errors.New("microphone unavailable")
	ErrSessionEnded = errors.New("session ended")
)

// SessionError carries the failing operation alongside the cause.
type SessionError struct {
	Op      string
	Err     error
	Details string
}

func (e *SessionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *SessionError {
	return &SessionError{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *SessionError {
	return &SessionError{Op: op, Err: err, Details: details}
}
