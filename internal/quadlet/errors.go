package quadlet

import (
	"errors"
	"fmt"
	"strings"
)

// MappingError reports a structurally malformed input field that cannot be
// represented as a directive. Field names the offending input, for example
// "mounts[2].destination".
type MappingError struct {
	Field  string
	Reason string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("cannot map %s: %s", e.Field, e.Reason)
}

// IsMappingError checks if an error is, or wraps, a MappingError.
func IsMappingError(err error) bool {
	var merr *MappingError
	return errors.As(err, &merr)
}

// MappingErrors aggregates every MappingError found while generating one
// unit. Errors keep the order in which the template visited the fields.
type MappingErrors []*MappingError

func (e MappingErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	msgs := make([]string, 0, len(e))
	for _, m := range e {
		msgs = append(msgs, m.Error())
	}
	return fmt.Sprintf("%d mapping errors: %s", len(e), strings.Join(msgs, "; "))
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (e MappingErrors) Unwrap() []error {
	errs := make([]error, 0, len(e))
	for _, m := range e {
		errs = append(errs, m)
	}
	return errs
}

// MappingErrorsOf returns the individual mapping errors carried by err.
func MappingErrorsOf(err error) []*MappingError {
	var agg MappingErrors
	if errors.As(err, &agg) {
		return agg
	}
	var single *MappingError
	if errors.As(err, &single) {
		return []*MappingError{single}
	}
	return nil
}

// UnsupportedKindError reports a resource kind outside the supported set.
type UnsupportedKindError struct {
	Kind string
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("unsupported resource kind %q", e.Kind)
}

// IsUnsupportedKindError checks if an error is an UnsupportedKindError.
func IsUnsupportedKindError(err error) bool {
	var kerr *UnsupportedKindError
	return errors.As(err, &kerr)
}

// collector accumulates mapping errors so that every extractor and emitter
// runs before generation fails.
type collector struct {
	errs MappingErrors
}

func (c *collector) add(field, format string, args ...any) {
	c.errs = append(c.errs, &MappingError{Field: field, Reason: fmt.Sprintf(format, args...)})
}

func (c *collector) merge(err error) {
	if err == nil {
		return
	}
	if ms := MappingErrorsOf(err); ms != nil {
		c.errs = append(c.errs, ms...)
		return
	}
	c.errs = append(c.errs, &MappingError{Field: "input", Reason: err.Error()})
}

func (c *collector) err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return c.errs
}
