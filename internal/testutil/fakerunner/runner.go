// Package fakerunner provides a fake implementation of execx.Runner for testing.
package fakerunner

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Runner is a fake implementation of execx.Runner for testing. It is safe
// for concurrent use.
type Runner struct {
	mu      sync.Mutex
	outputs map[string][]byte
	errors  map[string]error
	calls   []Call
}

// Call represents a captured command execution call.
type Call struct {
	Name string
	Args []string
}

// New creates a new fake runner.
func New() *Runner {
	return &Runner{
		outputs: make(map[string][]byte),
		errors:  make(map[string]error),
		calls:   []Call{},
	}
}

// SetOutput sets the output for a specific command.
func (r *Runner) SetOutput(name string, args []string, output []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outputs[r.makeKey(name, args)] = output
}

// SetError sets the error for a specific command.
func (r *Runner) SetError(name string, args []string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors[r.makeKey(name, args)] = err
}

// CombinedOutput implements execx.Runner.
func (r *Runner) CombinedOutput(_ context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Name: name, Args: args})

	key := r.makeKey(name, args)

	if err, exists := r.errors[key]; exists {
		return nil, err
	}

	if output, exists := r.outputs[key]; exists {
		return output, nil
	}

	return []byte{}, nil
}

// Output implements execx.Runner. Outputs and errors are shared with
// CombinedOutput.
func (r *Runner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return r.CombinedOutput(ctx, name, args...)
}

// GetCalls returns all captured command calls.
func (r *Runner) GetCalls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// CallCount returns how many times the command ran.
func (r *Runner) CallCount(name string, args ...string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := r.makeKey(name, args)
	n := 0
	for _, c := range r.calls {
		if r.makeKey(c.Name, c.Args) == key {
			n++
		}
	}
	return n
}

// Reset clears all stored outputs, errors, and calls.
func (r *Runner) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outputs = make(map[string][]byte)
	r.errors = make(map[string]error)
	r.calls = []Call{}
}

func (r *Runner) makeKey(name string, args []string) string {
	return fmt.Sprintf("%s %s", name, strings.Join(args, " "))
}
