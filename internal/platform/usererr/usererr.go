// Package usererr marks errors whose message can be shown to the user as a flash
// message next to the form that caused them.
package usererr

import "errors"

// Error wraps an error that the user can correct by changing their input.
type Error struct {
	Err error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// New returns a user-facing error with message msg.
func New(msg string) error {
	return &Error{Err: errors.New(msg)}
}

// Wrap marks err as user-facing. Wrap(nil) is nil.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var ue *Error
	if errors.As(err, &ue) {
		return err
	}
	return &Error{Err: err}
}

// Message returns the user-facing message carried by err, if any.
func Message(err error) (string, bool) {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Error(), true
	}
	return "", false
}
