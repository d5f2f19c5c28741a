package agents

import (
	"fmt"

	goerrors "github.com/go-errors/errors"
)

// StageError reports which agent failed, with the stack captured at the failure.
type StageError struct {
	Agent string
	Err   error
	Stack []byte
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Agent, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func (e *StageError) StackTrace() []byte {
	return e.Stack
}

func newStageError(agent string, err error) *StageError {
	var stack []byte
	if stackErr, ok := err.(*goerrors.Error); ok {
		stack = stackErr.Stack()
	} else {
		stack = goerrors.Wrap(err, 2).Stack()
	}

	return &StageError{Agent: agent, Err: err, Stack: stack}
}
