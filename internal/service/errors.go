package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested group or record does not
	// exist, or when the caller may not learn whether it exists.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller is authenticated but not
	// allowed to perform the operation (not a member, not the payer, etc.).
	ErrForbidden = errors.New("forbidden")

	// ErrUnsettledBalance is returned when a member tries to leave a group
	// while their balance is non-zero.
	ErrUnsettledBalance = errors.New("balance must be settled before leaving")

	// ErrAlreadyMember is returned when a user joins a group they are
	// already an active member of.
	ErrAlreadyMember = errors.New("already a member of this group")
)

// ValidationError reports invalid request input. The message is safe to
// return to the client.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// validationf builds a ValidationError from a format string.
func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
