package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	coreassistant "abby-ai-server/src/core/assistant"
	"abby-ai-server/src/core/lock"
	"abby-ai-server/src/core/metrics"
	"abby-ai-server/src/core/utils"
	"abby-ai-server/src/models"

	"gorm.io/gorm"
)

var (
	ErrMessagesNotFound  = errors.New("no messages found")
	ErrMessageInProgress = errors.New("a message is already in progress")
)

// MessageService sends user messages through the assistant and lists the conversation
type MessageService interface {
	// AddAndRunMessage blocks until the run ends or times out
	AddAndRunMessage(ctx context.Context, userID uint, content string) (*models.AssistantMessage, error)
	GetMessages(ctx context.Context, userID uint, page utils.PageParams) ([]models.AssistantMessage, error)
}

// MessageServiceOptions run tuning
type MessageServiceOptions struct {
	Instructions string
	RunTimeout   time.Duration
	// LockTTL defaults to RunTimeout plus a margin
	LockTTL time.Duration
}

type DefaultMessageService struct {
	db      *gorm.DB
	threads ThreadService
	client  coreassistant.Client
	tools   *coreassistant.ToolRegistry
	locker  lock.Locker
	logger  *utils.Logger
	metrics *metrics.Metrics
	opts    MessageServiceOptions
	now     func() time.Time
}

func NewMessageService(
	db *gorm.DB,
	threads ThreadService,
	client coreassistant.Client,
	tools *coreassistant.ToolRegistry,
	locker lock.Locker,
	logger *utils.Logger,
	m *metrics.Metrics,
	opts MessageServiceOptions,
) MessageService {
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = 2 * time.Minute
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = opts.RunTimeout + 30*time.Second
	}
	return &DefaultMessageService{
		db:      db,
		threads: threads,
		client:  client,
		tools:   tools,
		locker:  locker,
		logger:  logger,
		metrics: m,
		opts:    opts,
		now:     time.Now,
	}
}

func threadLockKey(threadID string) string {
	return "assistant:thread:" + threadID
}

func (s *DefaultMessageService) AddAndRunMessage(ctx context.Context, userID uint, content string) (*models.AssistantMessage, error) {
	thread, err := s.threads.ResolveThread(ctx, userID)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.TryLock(ctx, threadLockKey(thread.ThreadID), s.opts.LockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrLockHeld) {
			s.metrics.RecordGateRejection()
			return nil, ErrMessageInProgress
		}
		return nil, fmt.Errorf("lock thread %s: %w", thread.ThreadID, err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("release lock of thread %s: %v", thread.ThreadID, err)
		}
	}()

	if err := s.checkGate(ctx, thread.ThreadID); err != nil {
		return nil, err
	}

	if _, err := s.client.CreateMessage(ctx, thread.ThreadID, content); err != nil {
		return nil, fmt.Errorf("submit message to thread %s: %w", thread.ThreadID, err)
	}

	msg := &models.AssistantMessage{
		ThreadID:   thread.ThreadID,
		SenderType: models.SenderUser,
		StatusType: models.MessageStatusSent,
		Content:    content,
		CreatedAt:  s.now(),
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}

	if err := s.run(ctx, thread.ThreadID, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// checkGate rejects a new message while the latest one still has a live run.
// A message older than the lock TTL cannot have a live run and is released instead.
func (s *DefaultMessageService) checkGate(ctx context.Context, threadID string) error {
	var latest models.AssistantMessage
	err := s.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at DESC, message_id DESC").
		First(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("query latest message of %s: %w", threadID, err)
	}
	if !latest.InProgress() {
		return nil
	}

	if s.now().Sub(latest.CreatedAt) < s.opts.LockTTL {
		s.metrics.RecordGateRejection()
		return ErrMessageInProgress
	}

	s.logger.Warn("message %d on %s stuck in %s, releasing", latest.MessageID, threadID, latest.StatusType)
	return s.db.WithContext(ctx).Model(&latest).Update("status_type", models.MessageStatusDone).Error
}

// run starts a run for msg and relays its events until it ends.
// Only a failure to start the run is returned; later failures are logged by the relay.
func (s *DefaultMessageService) run(ctx context.Context, threadID string, msg *models.AssistantMessage) error {
	runCtx, cancel := context.WithTimeout(ctx, s.opts.RunTimeout)
	defer cancel()

	started := s.now()
	logger := s.logger.With("thread_id", threadID, "message_id", msg.MessageID)
	relay := coreassistant.NewEventRelay(coreassistant.RelayDeps{
		Client:   s.client,
		Tools:    s.tools,
		Recorder: newRunRecorder(s.db, threadID, msg.MessageID),
		Logger:   logger,
		Metrics:  s.metrics,
	})

	stream, err := s.client.CreateRun(runCtx, threadID, coreassistant.RunOptions{Instructions: s.opts.Instructions})
	if err != nil {
		logger.Error("start run on %s: %v", threadID, err)
		// nothing will release the message otherwise
		if err := s.db.WithContext(context.WithoutCancel(ctx)).Model(msg).Update("status_type", models.MessageStatusDone).Error; err != nil {
			s.logger.Error("release message %d: %v", msg.MessageID, err)
		}
		s.metrics.RecordRun("error", s.now().Sub(started))
		return fmt.Errorf("start run on %s: %w", threadID, err)
	}

	status := relay.Relay(runCtx, stream)
	s.metrics.RecordRun(status, s.now().Sub(started))
	logger.Info("run finished: %s", status)
	return nil
}

func (s *DefaultMessageService) GetMessages(ctx context.Context, userID uint, page utils.PageParams) ([]models.AssistantMessage, error) {
	var thread models.AssistantThread
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&thread).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrThreadNotFound
		}
		return nil, fmt.Errorf("query thread of user %d: %w", userID, err)
	}

	query := s.db.WithContext(ctx).
		Where("thread_id = ?", thread.ThreadID).
		Order("created_at ASC, message_id ASC")
	if page.Enabled() {
		query = query.Offset(page.Offset()).Limit(page.PageSize)
	}

	var messages []models.AssistantMessage
	if err := query.Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("query messages of %s: %w", thread.ThreadID, err)
	}
	if len(messages) == 0 {
		return nil, ErrMessagesNotFound
	}
	return messages, nil
}
