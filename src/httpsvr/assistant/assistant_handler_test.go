package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"abby-ai-server/src/configs"
	"abby-ai-server/src/configs/database"
	coreassistant "abby-ai-server/src/core/assistant"
	"abby-ai-server/src/core/assistant/assistanttest"
	"abby-ai-server/src/core/lock"
	"abby-ai-server/src/core/utils"
	"abby-ai-server/src/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type testEnv struct {
	engine   *gin.Engine
	db       *gorm.DB
	client   *assistanttest.FakeClient
	threads  ThreadService
	messages MessageService
}

func setupTest(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := utils.NewNopLogger()
	db, err := database.InitDB(configs.DBConfig{
		Dialect: "sqlite",
		DSN:     filepath.Join(t.TempDir(), "test.db"),
	}, logger)
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	client := assistanttest.NewFakeClient("안녕하세요! 애비예요.")
	tools := coreassistant.NewToolRegistry()
	tools.Register("getUltraSrtFcst", func(ctx context.Context, args json.RawMessage) (any, error) {
		return map[string]string{"하늘상태": "맑음"}, nil
	})

	threads := NewThreadService(db, client, logger)
	messages := NewMessageService(db, threads, client, tools, lock.NewLocalLocker(), logger, nil, MessageServiceOptions{
		Instructions: configs.DefaultInstructions,
		RunTimeout:   5 * time.Second,
	})

	engine := gin.New()
	NewAssistantHandler(threads, messages, logger).RegisterRoutes(engine.Group("/api"))
	return &testEnv{engine: engine, db: db, client: client, threads: threads, messages: messages}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func (e *testEnv) messagesOf(t *testing.T, threadID string) []models.AssistantMessage {
	t.Helper()
	var msgs []models.AssistantMessage
	if err := e.db.Where("thread_id = ?", threadID).Order("message_id ASC").Find(&msgs).Error; err != nil {
		t.Fatalf("query messages: %v", err)
	}
	return msgs
}

func TestAddMessageRunsAssistant(t *testing.T) {
	env := setupTest(t)

	w := env.do(t, http.MethodPost, "/api/assistant/message/42", models.AddMessageRequest{Content: "hello"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp models.AddMessageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "Message created and executed" || resp.Message != "hello" {
		t.Fatalf("unexpected response %+v", resp)
	}

	var threads []models.AssistantThread
	env.db.Where("user_id = ?", 42).Find(&threads)
	if len(threads) != 1 {
		t.Fatalf("expected exactly one thread, got %d", len(threads))
	}
	thread := threads[0]
	if thread.RunState != models.RunStateDone || thread.RunID == "" {
		t.Fatalf("unexpected thread state %+v", thread)
	}
	if got := env.client.Threads[thread.ThreadID]; len(got) != 1 || got[0] != "hello" {
		t.Fatalf("message not submitted to the assistant: %v", got)
	}
	if env.client.Instructions[0] != configs.DefaultInstructions {
		t.Fatal("run must carry the configured instructions")
	}

	msgs := env.messagesOf(t, thread.ThreadID)
	if len(msgs) != 2 {
		t.Fatalf("expected user message and reply, got %d", len(msgs))
	}
	if msgs[0].SenderType != models.SenderUser || msgs[0].StatusType != models.MessageStatusDone || msgs[0].Content != "hello" {
		t.Fatalf("unexpected user message %+v", msgs[0])
	}
	if msgs[1].SenderType != models.SenderAssistant || msgs[1].Content != "안녕하세요! 애비예요." {
		t.Fatalf("unexpected reply %+v", msgs[1])
	}
}

func TestAddMessageValidation(t *testing.T) {
	env := setupTest(t)

	w := env.do(t, http.MethodPost, "/api/assistant/message/42", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without content, got %d", w.Code)
	}
	w = env.do(t, http.MethodPost, "/api/assistant/message/abc", models.AddMessageRequest{Content: "hi"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad user id, got %d", w.Code)
	}
}

func TestAddMessageWhileInProgress(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()

	thread, err := env.threads.ResolveThread(ctx, 7)
	if err != nil {
		t.Fatalf("resolve thread: %v", err)
	}
	pending := &models.AssistantMessage{
		ThreadID:   thread.ThreadID,
		SenderType: models.SenderUser,
		StatusType: models.MessageStatusRunning,
		Content:    "first",
		CreatedAt:  time.Now(),
	}
	if err := env.db.Create(pending).Error; err != nil {
		t.Fatalf("create pending: %v", err)
	}

	w := env.do(t, http.MethodPost, "/api/assistant/message/7", models.AddMessageRequest{Content: "second"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if msgs := env.messagesOf(t, thread.ThreadID); len(msgs) != 1 {
		t.Fatalf("rejected message must not be stored, got %d rows", len(msgs))
	}
	if len(env.client.Runs) != 0 {
		t.Fatal("no run may start while a message is in progress")
	}
}

// heldClient delivers the first event of a run, then waits for hold before the rest
type heldClient struct {
	*assistanttest.FakeClient
	started chan struct{}
	hold    chan struct{}
}

func (c *heldClient) CreateRun(ctx context.Context, threadID string, opts coreassistant.RunOptions) (coreassistant.RunStream, error) {
	inner, err := c.FakeClient.CreateRun(ctx, threadID, opts)
	if err != nil {
		return nil, err
	}
	out := make(chan coreassistant.RunEvent)
	go func() {
		defer close(out)
		first := true
		for ev := range inner {
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
			if first {
				first = false
				close(c.started)
				<-c.hold
			}
		}
	}()
	return out, nil
}

func TestConcurrentMessagesOnOneThread(t *testing.T) {
	env := setupTest(t)
	logger := utils.NewNopLogger()
	client := &heldClient{
		FakeClient: env.client,
		started:    make(chan struct{}),
		hold:       make(chan struct{}),
	}
	threads := NewThreadService(env.db, client, logger)
	messages := NewMessageService(env.db, threads, client, coreassistant.NewToolRegistry(), lock.NewLocalLocker(), logger, nil, MessageServiceOptions{
		RunTimeout: 5 * time.Second,
	})
	ctx := context.Background()

	firstErr := make(chan error, 1)
	go func() {
		_, err := messages.AddAndRunMessage(ctx, 21, "first")
		firstErr <- err
	}()

	select {
	case <-client.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first run never started")
	}

	if _, err := messages.AddAndRunMessage(ctx, 21, "second"); !errors.Is(err, ErrMessageInProgress) {
		t.Fatalf("expected ErrMessageInProgress while the first run is live, got %v", err)
	}

	close(client.hold)
	if err := <-firstErr; err != nil {
		t.Fatalf("first message: %v", err)
	}

	var thread models.AssistantThread
	if err := env.db.Where("user_id = ?", 21).First(&thread).Error; err != nil {
		t.Fatalf("thread: %v", err)
	}
	var userRows int64
	env.db.Model(&models.AssistantMessage{}).
		Where("thread_id = ? AND sender_type = ?", thread.ThreadID, models.SenderUser).
		Count(&userRows)
	if userRows != 1 {
		t.Fatalf("expected exactly one user message, got %d", userRows)
	}
	if len(env.client.Runs) != 1 {
		t.Fatalf("expected one run, got %d", len(env.client.Runs))
	}
}

func TestStaleInProgressMessageIsReleased(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()

	thread, _ := env.threads.ResolveThread(ctx, 7)
	stale := &models.AssistantMessage{
		ThreadID:   thread.ThreadID,
		SenderType: models.SenderUser,
		StatusType: models.MessageStatusWaiting,
		Content:    "old",
		CreatedAt:  time.Now().Add(-time.Hour),
	}
	env.db.Create(stale)

	w := env.do(t, http.MethodPost, "/api/assistant/message/7", models.AddMessageRequest{Content: "new"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var reloaded models.AssistantMessage
	env.db.First(&reloaded, stale.MessageID)
	if reloaded.StatusType != models.MessageStatusDone {
		t.Fatalf("stale message should be released, got %s", reloaded.StatusType)
	}
}

func TestSentMessageDoesNotBlock(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()

	thread, _ := env.threads.ResolveThread(ctx, 8)
	env.db.Create(&models.AssistantMessage{
		ThreadID:   thread.ThreadID,
		SenderType: models.SenderUser,
		StatusType: models.MessageStatusSent,
		Content:    "sent only",
		CreatedAt:  time.Now(),
	})

	w := env.do(t, http.MethodPost, "/api/assistant/message/8", models.AddMessageRequest{Content: "next"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAddMessageWithToolCall(t *testing.T) {
	env := setupTest(t)
	env.client.ToolCalls = []coreassistant.ToolCall{
		{ID: "call_1", Name: "getUltraSrtFcst", Arguments: `{"nx":60,"ny":127}`},
	}

	w := env.do(t, http.MethodPost, "/api/assistant/message/42", models.AddMessageRequest{Content: "오늘 날씨 어때?"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var calls []models.AssistantToolCall
	env.db.Find(&calls)
	if len(calls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(calls))
	}
	if calls[0].FunctionName != "getUltraSrtFcst" || calls[0].Error != "" {
		t.Fatalf("unexpected tool call %+v", calls[0])
	}
	var output map[string]string
	if err := json.Unmarshal(calls[0].Output, &output); err != nil || output["하늘상태"] != "맑음" {
		t.Fatalf("unexpected tool output %s (%v)", calls[0].Output, err)
	}
	if len(env.client.SubmittedOutputs) != 1 {
		t.Fatal("tool outputs were not submitted")
	}

	var thread models.AssistantThread
	env.db.Where("user_id = ?", 42).First(&thread)
	msgs := env.messagesOf(t, thread.ThreadID)
	if msgs[0].StatusType != models.MessageStatusDone {
		t.Fatalf("user message should be done, got %s", msgs[0].StatusType)
	}
}

func TestFailedRunReleasesGate(t *testing.T) {
	env := setupTest(t)
	env.client.FinalStatus = coreassistant.RunStatusFailed

	w := env.do(t, http.MethodPost, "/api/assistant/message/5", models.AddMessageRequest{Content: "first"})
	if w.Code != http.StatusOK {
		t.Fatalf("run failures are not surfaced, expected 200, got %d", w.Code)
	}

	env.client.FinalStatus = ""
	w = env.do(t, http.MethodPost, "/api/assistant/message/5", models.AddMessageRequest{Content: "second"})
	if w.Code != http.StatusOK {
		t.Fatalf("gate should be released after a failed run, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateRunFailure(t *testing.T) {
	env := setupTest(t)
	env.client.CreateRunErr = errors.New("assistant unavailable")

	w := env.do(t, http.MethodPost, "/api/assistant/message/5", models.AddMessageRequest{Content: "hi"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}

	var thread models.AssistantThread
	env.db.Where("user_id = ?", 5).First(&thread)
	msgs := env.messagesOf(t, thread.ThreadID)
	if len(msgs) != 1 || msgs[0].StatusType != models.MessageStatusDone {
		t.Fatalf("message must be released after a failed start, got %+v", msgs)
	}
}

func TestGetMessages(t *testing.T) {
	env := setupTest(t)

	w := env.do(t, http.MethodGet, "/api/assistant/messages/99", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without thread, got %d", w.Code)
	}

	ctx := context.Background()
	if _, err := env.threads.CreateThread(ctx, 99); err != nil {
		t.Fatalf("create thread: %v", err)
	}
	w = env.do(t, http.MethodGet, "/api/assistant/messages/99", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for empty thread, got %d", w.Code)
	}

	for _, content := range []string{"one", "two"} {
		if _, err := env.messages.AddAndRunMessage(ctx, 99, content); err != nil {
			t.Fatalf("add message: %v", err)
		}
	}

	w = env.do(t, http.MethodGet, "/api/assistant/messages/99", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Data []models.AssistantMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(resp.Data))
	}
	if resp.Data[0].Content != "one" || resp.Data[2].Content != "two" {
		t.Fatalf("messages out of order: %+v", resp.Data)
	}

	w = env.do(t, http.MethodGet, "/api/assistant/messages/99?page=2&page_size=3", nil)
	resp.Data = nil
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].SenderType != models.SenderAssistant {
		t.Fatalf("unexpected second page %+v", resp.Data)
	}
}

func TestCreateThreadCreatesOneRow(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()

	created, err := env.threads.CreateThread(ctx, 11)
	if err != nil {
		t.Fatalf("create thread: %v", err)
	}
	if created.RunState != models.RunStateCreated {
		t.Fatalf("expected run_state created, got %s", created.RunState)
	}

	resolved, err := env.threads.ResolveThread(ctx, 11)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.ThreadID != created.ThreadID {
		t.Fatalf("resolve must return the existing thread")
	}

	var count int64
	env.db.Model(&models.AssistantThread{}).Where("user_id = ?", 11).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 thread row, got %d", count)
	}

	// a second binding for the same user is rejected and the external thread cleaned up
	if _, err := env.threads.CreateThread(ctx, 11); err == nil {
		t.Fatal("expected unique violation for a second thread")
	}
	if len(env.client.DeletedThreads) != 1 {
		t.Fatalf("orphaned external thread not deleted: %v", env.client.DeletedThreads)
	}
}

func TestThreadsEndpoints(t *testing.T) {
	env := setupTest(t)

	w := env.do(t, http.MethodGet, "/api/assistant/threads/3", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/assistant/message/3", models.AddMessageRequest{Content: "hello"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/api/assistant/threads/3", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Data []models.AssistantThread `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 1 {
		t.Fatalf("expected 1 thread, got %d", len(resp.Data))
	}
	threadID := resp.Data[0].ThreadID

	w = env.do(t, http.MethodDelete, "/api/assistant/threads/3", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if msgs := env.messagesOf(t, threadID); len(msgs) != 0 {
		t.Fatalf("messages of a deleted thread must be removed, got %d", len(msgs))
	}
	if len(env.client.DeletedThreads) != 1 || env.client.DeletedThreads[0] != threadID {
		t.Fatalf("external thread not deleted: %v", env.client.DeletedThreads)
	}

	w = env.do(t, http.MethodDelete, "/api/assistant/threads/3", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", w.Code)
	}
}
