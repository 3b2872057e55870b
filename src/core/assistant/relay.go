package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"abby-ai-server/src/core/metrics"
	"abby-ai-server/src/core/utils"

	"golang.org/x/sync/errgroup"
)

// StatusRecorder persists the effect of run events on the local message and thread
type StatusRecorder interface {
	RunStarted(ctx context.Context, run Run) error
	RunWaiting(ctx context.Context, run Run) error
	ToolsProcessing(ctx context.Context, run Run) error
	RecordToolCall(ctx context.Context, run Run, call ToolCall, output string, callErr error) error
	RunCompleted(ctx context.Context, run Run, reply string) error
	// RunAborted releases the message after a failed, cancelled, expired or errored run
	RunAborted(ctx context.Context, run Run, reason string) error
}

// RelayDeps collaborators shared by a relay and every child relay it starts
type RelayDeps struct {
	Client   Client
	Tools    *ToolRegistry
	Recorder StatusRecorder
	Logger   *utils.Logger
	Metrics  *metrics.Metrics
}

// EventRelay consumes one run stream and reacts to each event
type EventRelay struct {
	deps    RelayDeps
	current Run
	started bool
	final   string
}

func NewEventRelay(deps RelayDeps) *EventRelay {
	return &EventRelay{deps: deps}
}

// Relay blocks until events is drained or ctx ends and returns the final run status.
// "error" is returned when the stream broke, "timeout" when ctx expired first.
func (r *EventRelay) Relay(ctx context.Context, events RunStream) string {
	for {
		select {
		case <-ctx.Done():
			r.abort(ctx, "timeout", fmt.Sprintf("run stopped: %v", ctx.Err()))
			return r.final
		case ev, ok := <-events:
			if !ok {
				if r.final == "" {
					if ctx.Err() != nil {
						r.abort(ctx, "timeout", fmt.Sprintf("run stopped: %v", ctx.Err()))
					} else {
						r.abort(ctx, "error", "event stream closed before the run finished")
					}
				}
				return r.final
			}
			r.OnEvent(ctx, ev)
			if r.final != "" {
				return r.final
			}
		}
	}
}

// OnEvent dispatches a single event
func (r *EventRelay) OnEvent(ctx context.Context, ev RunEvent) {
	if ev.Run.ID != "" {
		r.current = ev.Run
	}
	logger := r.deps.Logger

	switch ev.Type {
	case EventRunCreated, EventRunQueued, EventRunInProgress:
		if r.started {
			return
		}
		r.started = true
		if err := r.deps.Recorder.RunStarted(ctx, r.current); err != nil {
			logger.Error("record run start %s: %v", r.current.ID, err)
		}

	case EventRunRequiresAction:
		if err := r.deps.Recorder.RunWaiting(ctx, r.current); err != nil {
			logger.Error("record run waiting %s: %v", r.current.ID, err)
		}
		r.final = r.handleRequiresAction(ctx, r.current)

	case EventRunCompleted:
		reply, err := r.deps.Client.LatestReply(ctx, r.current.ThreadID, r.current.ID)
		if err != nil {
			logger.Error("fetch reply of run %s: %v", r.current.ID, err)
		}
		if err := r.deps.Recorder.RunCompleted(ctx, r.current, reply); err != nil {
			logger.Error("record run completion %s: %v", r.current.ID, err)
		}
		r.final = RunStatusCompleted

	case EventRunFailed, EventRunCancelled, EventRunExpired, EventRunIncomplete:
		reason := r.current.LastError
		if reason == "" {
			reason = string(ev.Type)
		}
		r.abort(ctx, r.current.Status, reason)

	case EventRunCancelling:
		logger.Warn("run %s is being cancelled", r.current.ID)

	case EventError:
		reason := "unknown stream error"
		if ev.Err != nil {
			reason = ev.Err.Error()
		}
		r.abort(ctx, "error", reason)

	default:
		logger.Debug("ignoring run event %s", ev.Type)
	}
}

// handleRequiresAction executes the requested tools, submits their outputs
// and follows the resumed run with a child relay
func (r *EventRelay) handleRequiresAction(ctx context.Context, run Run) string {
	if err := r.deps.Recorder.ToolsProcessing(ctx, run); err != nil {
		r.deps.Logger.Error("record tools processing %s: %v", run.ID, err)
	}

	outputs := r.executeTools(ctx, run)

	stream, err := r.deps.Client.SubmitToolOutputs(ctx, run.ThreadID, run.ID, outputs)
	if err != nil {
		r.abort(ctx, "error", err.Error())
		return r.final
	}
	return r.child().Relay(ctx, stream)
}

func (r *EventRelay) executeTools(ctx context.Context, run Run) []ToolOutput {
	outputs := make([]ToolOutput, len(run.ToolCalls))
	callErrs := make([]error, len(run.ToolCalls))

	var g errgroup.Group
	for i, call := range run.ToolCalls {
		g.Go(func() error {
			out, err := r.deps.Tools.Invoke(ctx, call.Name, call.Arguments)
			if err != nil {
				callErrs[i] = err
				out = ErrorOutput(err)
			}
			outputs[i] = ToolOutput{ToolCallID: call.ID, Output: out}
			return nil
		})
	}
	_ = g.Wait()

	for i, call := range run.ToolCalls {
		callErr := callErrs[i]
		switch {
		case errors.Is(callErr, ErrUnknownTool):
			r.deps.Logger.Warn("run %s asked for unknown tool %s", run.ID, call.Name)
		case callErr != nil:
			r.deps.Logger.Error("tool %s failed: %v", call.Name, callErr)
		default:
			r.deps.Logger.Info("tool %s answered run %s", call.Name, run.ID)
		}
		r.deps.Metrics.RecordToolCall(call.Name, callErr == nil)
		if err := r.deps.Recorder.RecordToolCall(ctx, run, call, outputs[i].Output, callErr); err != nil {
			r.deps.Logger.Error("record tool call %s: %v", call.ID, err)
		}
	}
	return outputs
}

// child relay for the stream resumed after tool outputs
func (r *EventRelay) child() *EventRelay {
	return &EventRelay{deps: r.deps, current: r.current}
}

func (r *EventRelay) abort(ctx context.Context, status, reason string) {
	r.final = status
	r.deps.Logger.Error("run %s on thread %s ended with %s: %s", r.current.ID, r.current.ThreadID, status, reason)

	// ctx may already be cancelled; the release must still be written
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.deps.Recorder.RunAborted(writeCtx, r.current, reason); err != nil {
		r.deps.Logger.Error("record run abort %s: %v", r.current.ID, err)
	}
}
