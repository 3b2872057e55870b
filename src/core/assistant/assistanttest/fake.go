// Package assistanttest provides an in-memory assistant.Client for tests
package assistanttest

import (
	"context"
	"errors"
	"sync"

	"abby-ai-server/src/core/assistant"

	"github.com/google/uuid"
)

// FakeClient scripted assistant service.
// A run first asks for ToolCalls (if any) and completes after outputs are submitted.
type FakeClient struct {
	mu sync.Mutex

	Reply     string
	ToolCalls []assistant.ToolCall
	// FinalStatus overrides the terminal status, e.g. "failed"
	FinalStatus string

	CreateThreadErr  error
	CreateMessageErr error
	CreateRunErr     error

	Threads          map[string][]string
	DeletedThreads   []string
	Runs             []string
	SubmittedOutputs [][]assistant.ToolOutput
	Instructions     []string
}

func NewFakeClient(reply string) *FakeClient {
	return &FakeClient{Reply: reply, Threads: make(map[string][]string)}
}

func (f *FakeClient) CreateThread(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateThreadErr != nil {
		return "", f.CreateThreadErr
	}
	id := "thread_" + uuid.NewString()
	f.Threads[id] = nil
	return id, nil
}

func (f *FakeClient) DeleteThread(ctx context.Context, threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Threads[threadID]; !ok {
		return errors.New("no such thread")
	}
	delete(f.Threads, threadID)
	f.DeletedThreads = append(f.DeletedThreads, threadID)
	return nil
}

func (f *FakeClient) CreateMessage(ctx context.Context, threadID, content string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateMessageErr != nil {
		return "", f.CreateMessageErr
	}
	f.Threads[threadID] = append(f.Threads[threadID], content)
	return "msg_" + uuid.NewString(), nil
}

func (f *FakeClient) CreateRun(ctx context.Context, threadID string, opts assistant.RunOptions) (assistant.RunStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateRunErr != nil {
		return nil, f.CreateRunErr
	}
	runID := "run_" + uuid.NewString()
	f.Runs = append(f.Runs, runID)
	f.Instructions = append(f.Instructions, opts.Instructions)

	run := assistant.Run{ID: runID, ThreadID: threadID}
	events := []assistant.RunEvent{
		event(run, assistant.RunStatusQueued, assistant.EventRunCreated),
		event(run, assistant.RunStatusInProgress, assistant.EventRunInProgress),
	}
	if len(f.ToolCalls) > 0 {
		paused := run
		paused.ToolCalls = append([]assistant.ToolCall(nil), f.ToolCalls...)
		events = append(events, event(paused, assistant.RunStatusRequiresAction, assistant.EventRunRequiresAction))
	} else {
		events = append(events, f.finish(run))
	}
	return stream(events), nil
}

func (f *FakeClient) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []assistant.ToolOutput) (assistant.RunStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SubmittedOutputs = append(f.SubmittedOutputs, outputs)

	run := assistant.Run{ID: runID, ThreadID: threadID}
	return stream([]assistant.RunEvent{
		event(run, assistant.RunStatusQueued, assistant.EventRunQueued),
		event(run, assistant.RunStatusInProgress, assistant.EventRunInProgress),
		f.finish(run),
	}), nil
}

func (f *FakeClient) LatestReply(ctx context.Context, threadID, runID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Reply, nil
}

func (f *FakeClient) finish(run assistant.Run) assistant.RunEvent {
	status := f.FinalStatus
	if status == "" {
		status = assistant.RunStatusCompleted
	}
	if status != assistant.RunStatusCompleted {
		run.LastError = "scripted " + status
	}
	return event(run, status, assistant.EventForStatus(status))
}

func event(run assistant.Run, status string, typ assistant.EventType) assistant.RunEvent {
	run.Status = status
	return assistant.RunEvent{Type: typ, Run: run}
}

func stream(events []assistant.RunEvent) assistant.RunStream {
	ch := make(chan assistant.RunEvent, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return ch
}
