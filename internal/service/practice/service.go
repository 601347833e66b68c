package practice

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Reply is a delivery-ready message payload for the learner. The transport
// layer sends Text verbatim; the coordinator never returns an empty reply.
type Reply struct {
	Text string `json:"text"`
}

// Response is a learner's answer to their pending task: plain text, or a
// voice note to transcribe before evaluation. When VoiceAudio is set, Text
// is ignored.
type Response struct {
	Text          string
	VoiceAudio    []byte
	VoiceMIMEType string
}

// PracticeService is the task lifecycle coordinator. It drives the full
// request/response cycle behind the conversational commands: selecting a
// task type, picking a novel objective, generating content, and evaluating
// the learner's answer against the parameters snapshotted at issue time.
//
// Entry points return a delivery-ready Reply for every interaction,
// including failures: a non-nil error reports what went wrong for logging,
// never instead of a reply the transport can send.
type PracticeService interface {
	// HandleCommand processes one bot command (without the leading slash)
	// and its raw argument string.
	//
	// Side effects depend on the command: /task issues a pending TaskRecord
	// and records the objective in history atomically, /skip abandons the
	// open task, /difficulty and /language update the profile. Any command
	// first settles an over-window pending task as Abandoned(timeout).
	//
	// Unauthorized learners receive a closed-door reply and cause no state
	// change at all.
	HandleCommand(ctx context.Context, learnerID, command, args string) (*Reply, error)

	// HandleMessage processes a non-command message as the answer to the
	// learner's pending task, resolving which task that is. Learners without
	// an open task get a hint to request one.
	HandleMessage(ctx context.Context, learnerID string, response Response) (*Reply, error)

	// HandleResponse evaluates a response against a specific task record.
	// The record must be the learner's own and still pending; an over-window
	// record is settled as Abandoned(timeout) instead of evaluated. On
	// evaluation failure the record stays pending so the learner can retry.
	HandleResponse(ctx context.Context, learnerID string, taskID uuid.UUID, response Response) (*Reply, error)
}

// Common error types for PracticeService
var (
	// ErrNoPendingTask indicates the learner has no open task to answer or skip.
	ErrNoPendingTask = errors.New("no pending task")

	// ErrTaskNotFound indicates the task record does not exist.
	ErrTaskNotFound = errors.New("task not found")

	// ErrNotTaskOwner indicates the task record belongs to another learner.
	ErrNotTaskOwner = errors.New("unauthorized access: task not owned by learner")

	// ErrTaskResolved indicates the task record already left the pending
	// state; whichever writer got there first owns the outcome.
	ErrTaskResolved = errors.New("task already completed or abandoned")
)

// ServiceError wraps errors from the practice service with additional
// context. This allows consumers to differentiate between different types of
// service errors using errors.As instead of string matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "handle_command", "handle_response")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewHandleCommandError returns a new ServiceError for the handle_command operation.
func NewHandleCommandError(message string, err error) *ServiceError {
	return &ServiceError{
		Operation: "handle_command",
		Message:   message,
		Err:       err,
	}
}

// NewHandleResponseError returns a new ServiceError for the handle_response operation.
func NewHandleResponseError(message string, err error) *ServiceError {
	return &ServiceError{
		Operation: "handle_response",
		Message:   message,
		Err:       err,
	}
}
