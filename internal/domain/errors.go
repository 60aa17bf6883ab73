package domain

import (
	"errors"
	"fmt"
)

type ErrorClass string

const (
	ProbeTimeout          ErrorClass = "ProbeTimeout"
	ProbeConnectionError  ErrorClass = "ProbeConnectionError"
	ProbeHTTPError        ErrorClass = "ProbeHTTPError"
	PersistenceWriteError ErrorClass = "PersistenceWriteError"
	NotificationSendError ErrorClass = "NotificationSendError"
)

// Error carries a taxonomy class alongside the underlying failure.
type Error struct {
	Class    ErrorClass
	TargetID TargetID
	Err      error
}

func (e *Error) Error() string {
	if e.TargetID == "" {
		return fmt.Sprintf("%s: %v", e.Class, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Class, e.TargetID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func Wrap(class ErrorClass, id TargetID, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Class: class, TargetID: id, Err: err}
}

// ClassOf returns the class of the first *Error in err's chain, or "".
func ClassOf(err error) ErrorClass {
	var de *Error
	if errors.As(err, &de) {
		return de.Class
	}
	return ""
}
