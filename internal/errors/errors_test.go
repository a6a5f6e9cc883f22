package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"operation in progress", &OperationInProgressError{State: "rebase"}, ErrOperationInProgress},
		{"validation", &ValidationError{Errors: []string{"bad"}}, ErrInvalidInput},
		{"input helper", NewInputError("branch name %q is invalid", "a b"), ErrInvalidInput},
		{"reference", &ReferenceNotFoundError{Name: "origin/main"}, ErrReferenceNotFound},
		{"transport", &TransportError{Op: "push", Remote: "origin", Err: New("auth failed")}, ErrTransport},
		{"invariant", &InvariantError{Detail: "x"}, ErrInvariant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.True(t, Is(wrapped, tt.target))
		})
	}
}

func TestGitCommandErrorMessage(t *testing.T) {
	t.Parallel()

	err := &GitCommandError{Args: []string{"merge", "--ff-only"}, Stderr: "fatal: not possible", Err: New("exit status 128")}
	assert.Equal(t, "git merge --ff-only: exit status 128: fatal: not possible", err.Error())

	var target *GitCommandError
	assert.True(t, As(fmt.Errorf("pull: %w", err), &target))
	assert.Equal(t, "fatal: not possible", target.Stderr)
}

func TestValidationErrorJoinsMessages(t *testing.T) {
	t.Parallel()

	err := &ValidationError{Errors: []string{"one", "two"}}
	assert.Equal(t, "one; two", err.Error())
	assert.Equal(t, ErrInvalidInput.Error(), (&ValidationError{}).Error())
}

func TestOperationInProgressMessage(t *testing.T) {
	t.Parallel()

	err := &OperationInProgressError{State: "merge"}
	assert.Contains(t, err.Error(), "merge is already in progress")
}
