// Package assistant talks to the external assistant service and relays run events
package assistant

import (
	"context"
)

// EventType run lifecycle event, named after the assistant service's stream events
type EventType string

const (
	EventRunCreated        EventType = "thread.run.created"
	EventRunQueued         EventType = "thread.run.queued"
	EventRunInProgress     EventType = "thread.run.in_progress"
	EventRunRequiresAction EventType = "thread.run.requires_action"
	EventRunCancelling     EventType = "thread.run.cancelling"
	EventRunCompleted      EventType = "thread.run.completed"
	EventRunFailed         EventType = "thread.run.failed"
	EventRunCancelled      EventType = "thread.run.cancelled"
	EventRunExpired        EventType = "thread.run.expired"
	EventRunIncomplete     EventType = "thread.run.incomplete"
	EventError             EventType = "error"
)

// Run statuses reported by the assistant service
const (
	RunStatusQueued         = "queued"
	RunStatusInProgress     = "in_progress"
	RunStatusRequiresAction = "requires_action"
	RunStatusCancelling     = "cancelling"
	RunStatusCompleted      = "completed"
	RunStatusFailed         = "failed"
	RunStatusCancelled      = "cancelled"
	RunStatusExpired        = "expired"
	RunStatusIncomplete     = "incomplete"
)

// EventForStatus maps a run status to its event type
func EventForStatus(status string) EventType {
	return EventType("thread.run." + status)
}

// StopsStream reports whether no more events follow status on the same stream
func StopsStream(status string) bool {
	switch status {
	case RunStatusRequiresAction, RunStatusCompleted, RunStatusFailed,
		RunStatusCancelled, RunStatusExpired, RunStatusIncomplete:
		return true
	}
	return false
}

// ToolCall a function the run asks us to execute
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

type ToolOutput struct {
	ToolCallID string
	Output     string
}

// Run snapshot of a run at the time of an event
type Run struct {
	ID        string
	ThreadID  string
	Status    string
	ToolCalls []ToolCall
	LastError string
}

type RunEvent struct {
	Type EventType
	Run  Run
	Err  error
}

// RunStream is closed after a terminal or requires_action event, an error event, or cancellation
type RunStream <-chan RunEvent

type RunOptions struct {
	Instructions string
}

// Client external assistant service
type Client interface {
	CreateThread(ctx context.Context) (string, error)
	DeleteThread(ctx context.Context, threadID string) error
	CreateMessage(ctx context.Context, threadID, content string) (string, error)
	CreateRun(ctx context.Context, threadID string, opts RunOptions) (RunStream, error)
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (RunStream, error)
	// LatestReply text of the assistant messages produced by runID
	LatestReply(ctx context.Context, threadID, runID string) (string, error)
}
