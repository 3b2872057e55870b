package assistant_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"abby-ai-server/src/core/assistant"
	"abby-ai-server/src/core/assistant/assistanttest"
	"abby-ai-server/src/core/utils"
)

type recordedCall struct {
	name   string
	output string
	err    error
}

type fakeRecorder struct {
	mu        sync.Mutex
	steps     []string
	reply     string
	toolCalls []recordedCall
	reason    string
}

func (f *fakeRecorder) step(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps = append(f.steps, s)
}

func (f *fakeRecorder) RunStarted(ctx context.Context, run assistant.Run) error {
	f.step("running")
	return nil
}

func (f *fakeRecorder) RunWaiting(ctx context.Context, run assistant.Run) error {
	f.step("waiting")
	return nil
}

func (f *fakeRecorder) ToolsProcessing(ctx context.Context, run assistant.Run) error {
	f.step("processing")
	return nil
}

func (f *fakeRecorder) RecordToolCall(ctx context.Context, run assistant.Run, call assistant.ToolCall, output string, callErr error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toolCalls = append(f.toolCalls, recordedCall{name: call.Name, output: output, err: callErr})
	return nil
}

func (f *fakeRecorder) RunCompleted(ctx context.Context, run assistant.Run, reply string) error {
	f.step("done")
	f.mu.Lock()
	f.reply = reply
	f.mu.Unlock()
	return nil
}

func (f *fakeRecorder) RunAborted(ctx context.Context, run assistant.Run, reason string) error {
	f.step("aborted")
	f.mu.Lock()
	f.reason = reason
	f.mu.Unlock()
	return nil
}

func newRelay(client assistant.Client, tools *assistant.ToolRegistry, rec *fakeRecorder) *assistant.EventRelay {
	return assistant.NewEventRelay(assistant.RelayDeps{
		Client:   client,
		Tools:    tools,
		Recorder: rec,
		Logger:   utils.NewNopLogger(),
	})
}

func TestRelayCompletesRun(t *testing.T) {
	client := assistanttest.NewFakeClient("안녕하세요, 애비예요.")
	rec := &fakeRecorder{}
	ctx := context.Background()

	stream, err := client.CreateRun(ctx, "thread_1", assistant.RunOptions{})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	status := newRelay(client, assistant.NewToolRegistry(), rec).Relay(ctx, stream)

	if status != assistant.RunStatusCompleted {
		t.Fatalf("expected completed, got %q", status)
	}
	if got := strings.Join(rec.steps, ","); got != "running,done" {
		t.Fatalf("unexpected steps %s", got)
	}
	if rec.reply != "안녕하세요, 애비예요." {
		t.Fatalf("unexpected reply %q", rec.reply)
	}
}

func TestRelayExecutesToolsAndFollowsChildStream(t *testing.T) {
	client := assistanttest.NewFakeClient("오늘은 맑아요.")
	client.ToolCalls = []assistant.ToolCall{
		{ID: "call_1", Name: "getUltraSrtFcst", Arguments: `{"nx":60,"ny":127}`},
		{ID: "call_2", Name: "notRegistered", Arguments: `{}`},
	}

	tools := assistant.NewToolRegistry()
	tools.Register("getUltraSrtFcst", func(ctx context.Context, args json.RawMessage) (any, error) {
		return map[string]string{"하늘": "맑음"}, nil
	})

	rec := &fakeRecorder{}
	ctx := context.Background()
	stream, _ := client.CreateRun(ctx, "thread_1", assistant.RunOptions{})
	status := newRelay(client, tools, rec).Relay(ctx, stream)

	if status != assistant.RunStatusCompleted {
		t.Fatalf("expected completed, got %q", status)
	}
	if got := strings.Join(rec.steps, ","); got != "running,waiting,processing,running,done" {
		t.Fatalf("unexpected steps %s", got)
	}
	if rec.reply != "오늘은 맑아요." {
		t.Fatalf("reply not persisted by child relay: %q", rec.reply)
	}

	if len(client.SubmittedOutputs) != 1 {
		t.Fatalf("expected one submission, got %d", len(client.SubmittedOutputs))
	}
	outputs := client.SubmittedOutputs[0]
	if len(outputs) != 2 {
		t.Fatalf("expected 2 outputs, got %d", len(outputs))
	}
	if outputs[0].ToolCallID != "call_1" || outputs[0].Output != `{"하늘":"맑음"}` {
		t.Fatalf("unexpected first output %+v", outputs[0])
	}
	if outputs[1].ToolCallID != "call_2" || !strings.Contains(outputs[1].Output, `"error"`) {
		t.Fatalf("unknown tool should yield an error output, got %+v", outputs[1])
	}

	if len(rec.toolCalls) != 2 {
		t.Fatalf("expected 2 recorded tool calls, got %d", len(rec.toolCalls))
	}
	if !errors.Is(rec.toolCalls[1].err, assistant.ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool recorded, got %v", rec.toolCalls[1].err)
	}
}

func TestRelayFailedRunReleasesMessage(t *testing.T) {
	client := assistanttest.NewFakeClient("")
	client.FinalStatus = assistant.RunStatusFailed
	rec := &fakeRecorder{}
	ctx := context.Background()

	stream, _ := client.CreateRun(ctx, "thread_1", assistant.RunOptions{})
	status := newRelay(client, assistant.NewToolRegistry(), rec).Relay(ctx, stream)

	if status != assistant.RunStatusFailed {
		t.Fatalf("expected failed, got %q", status)
	}
	if got := strings.Join(rec.steps, ","); got != "running,aborted" {
		t.Fatalf("unexpected steps %s", got)
	}
	if rec.reason != "scripted failed" {
		t.Fatalf("unexpected reason %q", rec.reason)
	}
}

func TestRelayErrorEvent(t *testing.T) {
	events := make(chan assistant.RunEvent, 2)
	events <- assistant.RunEvent{Type: assistant.EventRunCreated, Run: assistant.Run{ID: "run_1", ThreadID: "t", Status: "queued"}}
	events <- assistant.RunEvent{Type: assistant.EventError, Err: errors.New("connection reset")}
	close(events)

	rec := &fakeRecorder{}
	status := newRelay(assistanttest.NewFakeClient(""), assistant.NewToolRegistry(), rec).Relay(context.Background(), events)

	if status != "error" {
		t.Fatalf("expected error, got %q", status)
	}
	if rec.reason != "connection reset" {
		t.Fatalf("unexpected reason %q", rec.reason)
	}
}

func TestRelayTimeout(t *testing.T) {
	events := make(chan assistant.RunEvent)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	rec := &fakeRecorder{}
	status := newRelay(assistanttest.NewFakeClient(""), assistant.NewToolRegistry(), rec).Relay(ctx, events)

	if status != "timeout" {
		t.Fatalf("expected timeout, got %q", status)
	}
	if got := strings.Join(rec.steps, ","); got != "aborted" {
		t.Fatalf("unexpected steps %s", got)
	}
}

func TestEventForStatus(t *testing.T) {
	if got := assistant.EventForStatus(assistant.RunStatusRequiresAction); got != assistant.EventRunRequiresAction {
		t.Fatalf("unexpected event %s", got)
	}
	if assistant.StopsStream(assistant.RunStatusInProgress) {
		t.Fatal("in_progress must not stop the stream")
	}
	if !assistant.StopsStream(assistant.RunStatusExpired) {
		t.Fatal("expired must stop the stream")
	}
}
