// Package failure classifies the errors that end a command so that the
// top-level dispatcher can render them and pick an exit status in one place.
package failure

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	// the remote service answered with a non-success status
	KindRemoteRejection
	// the user gave input that cannot be used
	KindValidation
	// the network or stream broke
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindRemoteRejection:
		return "remote-rejection"
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	default:
		return "internal"
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}

func RemoteRejection(message string) error {
	return &Error{Kind: KindRemoteRejection, Message: message}
}

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Transport(message string, err error) error {
	return &Error{Kind: KindTransport, Message: message, Err: err}
}

// KindOf returns the kind of the first failure.Error in the chain,
// KindInternal if there is none.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return KindInternal
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
