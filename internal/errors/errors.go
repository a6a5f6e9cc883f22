// Package errors holds the error taxonomy shared by every graft command.
// Callers match on the sentinels with errors.Is and on the typed errors with errors.As.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Input errors, rejected before the repository is touched.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrPathNotFound   = errors.New("path does not exist")
	ErrNotARepository = errors.New("not a git repository")
	ErrBareRepository = errors.New("bare repositories are not supported")
)

// Precondition errors, rejected before any mutation.
var (
	ErrDirtyWorkingTree      = errors.New("you have uncommitted changes; commit or stash first")
	ErrOperationInProgress   = errors.New("another operation is in progress")
	ErrNoOperationInProgress = errors.New("no operation in progress")
	ErrReferenceNotFound     = errors.New("reference not found")
	ErrUnbornHead            = errors.New("repository has no commits yet")
	ErrDetachedHead          = errors.New("HEAD is detached")
	ErrNothingToStash        = errors.New("no local changes to save")
	ErrNothingToCommit       = errors.New("nothing staged to commit")
)

// Fatal errors.
var (
	ErrTransport = errors.New("transport error")
	ErrInvariant = errors.New("repository is in an inconsistent state")
)

// Is reports whether any error in err's tree matches target. It forwards to the
// standard library so callers only import one errors package.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As forwards to the standard library errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// New forwards to the standard library errors.New.
func New(text string) error {
	return errors.New(text)
}

// GitCommandError is a failed invocation of the git executable.
type GitCommandError struct {
	Args     []string
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

func (e *GitCommandError) Error() string {
	msg := "git " + strings.Join(e.Args, " ")
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %v: %s", msg, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *GitCommandError) Unwrap() error {
	return e.Err
}

// OperationInProgressError reports the store operation blocking a new mutating command.
type OperationInProgressError struct {
	State string
}

func (e *OperationInProgressError) Error() string {
	return fmt.Sprintf("a %s is already in progress; finish or abort it first", e.State)
}

// Is returns true if the target error is ErrOperationInProgress
func (e *OperationInProgressError) Is(target error) bool {
	return target == ErrOperationInProgress
}

// ValidationError carries one message per violated rule.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return ErrInvalidInput.Error()
	}
	return strings.Join(e.Errors, "; ")
}

// Is returns true if the target error is ErrInvalidInput
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewInputError formats an input error that matches ErrInvalidInput.
func NewInputError(format string, args ...any) error {
	return &ValidationError{Errors: []string{fmt.Sprintf(format, args...)}}
}

// ReferenceNotFoundError names the ref that failed to resolve.
type ReferenceNotFoundError struct {
	Name string
}

func (e *ReferenceNotFoundError) Error() string {
	return fmt.Sprintf("reference not found: %s", e.Name)
}

// Is returns true if the target error is ErrReferenceNotFound
func (e *ReferenceNotFoundError) Is(target error) bool {
	return target == ErrReferenceNotFound
}

// TransportError is a network or credential failure talking to a remote.
// The underlying message is kept verbatim.
type TransportError struct {
	Op     string
	Remote string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Remote, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is returns true if the target error is ErrTransport
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// InvariantError is raised when the store reports a state the engine cannot
// reconcile. Cleanup records whether best-effort cleanup succeeded.
type InvariantError struct {
	Detail  string
	Cleanup error
}

func (e *InvariantError) Error() string {
	if e.Cleanup != nil {
		return fmt.Sprintf("%s: %s (cleanup failed: %v)", ErrInvariant, e.Detail, e.Cleanup)
	}
	return fmt.Sprintf("%s: %s", ErrInvariant, e.Detail)
}

// Is returns true if the target error is ErrInvariant
func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariant
}
