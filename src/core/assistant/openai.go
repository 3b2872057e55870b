package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"abby-ai-server/src/configs"
	"abby-ai-server/src/core/utils"

	"github.com/sashabaranov/go-openai"
)

const replyPageSize = 20

// OpenAIClient Client backed by the OpenAI Assistants API.
// Runs are followed by polling, one event per status change.
type OpenAIClient struct {
	client       *openai.Client
	assistantID  string
	pollInterval time.Duration
	logger       *utils.Logger
}

func NewOpenAIClient(cfg configs.AssistantConfig, pollInterval time.Duration, logger *utils.Logger) *OpenAIClient {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &OpenAIClient{
		client:       openai.NewClientWithConfig(oc),
		assistantID:  cfg.AssistantID,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

func (c *OpenAIClient) CreateThread(ctx context.Context) (string, error) {
	thread, err := c.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return thread.ID, nil
}

func (c *OpenAIClient) DeleteThread(ctx context.Context, threadID string) error {
	if _, err := c.client.DeleteThread(ctx, threadID); err != nil {
		return fmt.Errorf("delete thread %s: %w", threadID, err)
	}
	return nil
}

func (c *OpenAIClient) CreateMessage(ctx context.Context, threadID, content string) (string, error) {
	msg, err := c.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    "user",
		Content: content,
	})
	if err != nil {
		return "", fmt.Errorf("create message on %s: %w", threadID, err)
	}
	return msg.ID, nil
}

func (c *OpenAIClient) CreateRun(ctx context.Context, threadID string, opts RunOptions) (RunStream, error) {
	run, err := c.client.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID:  c.assistantID,
		Instructions: opts.Instructions,
	})
	if err != nil {
		return nil, fmt.Errorf("create run on %s: %w", threadID, err)
	}

	events := make(chan RunEvent, 8)
	go func() {
		defer close(events)
		if !send(ctx, events, RunEvent{Type: EventRunCreated, Run: toRun(run)}) {
			return
		}
		c.follow(ctx, run, events)
	}()
	return events, nil
}

func (c *OpenAIClient) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (RunStream, error) {
	req := openai.SubmitToolOutputsRequest{
		ToolOutputs: make([]openai.ToolOutput, 0, len(outputs)),
	}
	for _, o := range outputs {
		req.ToolOutputs = append(req.ToolOutputs, openai.ToolOutput{
			ToolCallID: o.ToolCallID,
			Output:     o.Output,
		})
	}

	run, err := c.client.SubmitToolOutputs(ctx, threadID, runID, req)
	if err != nil {
		return nil, fmt.Errorf("submit tool outputs for %s: %w", runID, err)
	}

	events := make(chan RunEvent, 8)
	go func() {
		defer close(events)
		c.follow(ctx, run, events)
	}()
	return events, nil
}

// follow emits the current status and polls until the run pauses or ends
func (c *OpenAIClient) follow(ctx context.Context, run openai.Run, events chan<- RunEvent) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	var last openai.RunStatus
	for {
		if run.Status != last {
			last = run.Status
			c.logger.Debug("run %s on %s: %s", run.ID, run.ThreadID, run.Status)
			if !send(ctx, events, RunEvent{Type: EventForStatus(string(run.Status)), Run: toRun(run)}) {
				return
			}
		}
		if StopsStream(string(run.Status)) {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		next, err := c.client.RetrieveRun(ctx, run.ThreadID, run.ID)
		if err != nil {
			send(ctx, events, RunEvent{Type: EventError, Run: toRun(run), Err: fmt.Errorf("retrieve run %s: %w", run.ID, err)})
			return
		}
		run = next
	}
}

func (c *OpenAIClient) LatestReply(ctx context.Context, threadID, runID string) (string, error) {
	limit := replyPageSize
	order := "desc"
	list, err := c.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, &runID)
	if err != nil {
		return "", fmt.Errorf("list messages of %s: %w", threadID, err)
	}

	// newest first; collect then reverse into reading order
	var parts []string
	for _, m := range list.Messages {
		if m.Role != "assistant" {
			continue
		}
		var sb strings.Builder
		for _, content := range m.Content {
			if content.Text != nil {
				sb.WriteString(content.Text.Value)
			}
		}
		if sb.Len() > 0 {
			parts = append(parts, sb.String())
		}
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "\n"), nil
}

func send(ctx context.Context, events chan<- RunEvent, ev RunEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func toRun(run openai.Run) Run {
	r := Run{
		ID:       run.ID,
		ThreadID: run.ThreadID,
		Status:   string(run.Status),
	}
	if run.RequiredAction != nil && run.RequiredAction.SubmitToolOutputs != nil {
		for _, tc := range run.RequiredAction.SubmitToolOutputs.ToolCalls {
			r.ToolCalls = append(r.ToolCalls, ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
	}
	if run.LastError != nil {
		r.LastError = run.LastError.Message
	}
	return r
}
