package inspect

import (
	"errors"
	"fmt"
)

// NotFoundError reports that the engine has no object with the given name.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no such %s: %s", e.Kind, e.Name)
}

// DecodeError reports an inspect payload that could not be decoded.
type DecodeError struct {
	Kind string
	Name string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s inspect output for %s: %v", e.Kind, e.Name, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsDecodeError checks if an error is a DecodeError.
func IsDecodeError(err error) bool {
	var target *DecodeError
	return errors.As(err, &target)
}
