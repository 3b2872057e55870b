package assistant

import (
	"context"
	"errors"
	"fmt"

	coreassistant "abby-ai-server/src/core/assistant"
	"abby-ai-server/src/core/utils"
	"abby-ai-server/src/models"

	"gorm.io/gorm"
)

var ErrThreadNotFound = errors.New("thread not found")

// ThreadService user <-> assistant thread bindings
type ThreadService interface {
	CreateThread(ctx context.Context, userID uint) (*models.AssistantThread, error)
	// ResolveThread returns the user's thread, creating it on first use
	ResolveThread(ctx context.Context, userID uint) (*models.AssistantThread, error)
	GetThreads(ctx context.Context, userID uint) ([]models.AssistantThread, error)
	DeleteThread(ctx context.Context, userID uint) error
}

type DefaultThreadService struct {
	db     *gorm.DB
	client coreassistant.Client
	logger *utils.Logger
}

func NewThreadService(db *gorm.DB, client coreassistant.Client, logger *utils.Logger) ThreadService {
	return &DefaultThreadService{
		db:     db,
		client: client,
		logger: logger,
	}
}

func (s *DefaultThreadService) CreateThread(ctx context.Context, userID uint) (*models.AssistantThread, error) {
	externalID, err := s.client.CreateThread(ctx)
	if err != nil {
		return nil, fmt.Errorf("create assistant thread for user %d: %w", userID, err)
	}

	thread := &models.AssistantThread{
		UserID:   userID,
		ThreadID: externalID,
		RunState: models.RunStateCreated,
	}
	if err := s.db.WithContext(ctx).Create(thread).Error; err != nil {
		// the external thread would otherwise be orphaned
		if delErr := s.client.DeleteThread(context.WithoutCancel(ctx), externalID); delErr != nil {
			s.logger.Warn("cleanup of thread %s failed: %v", externalID, delErr)
		}
		return nil, fmt.Errorf("save thread of user %d: %w", userID, err)
	}

	s.logger.Info("thread %s created for user %d", externalID, userID)
	return thread, nil
}

func (s *DefaultThreadService) findThread(ctx context.Context, userID uint) (*models.AssistantThread, error) {
	var thread models.AssistantThread
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&thread).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrThreadNotFound
		}
		return nil, fmt.Errorf("query thread of user %d: %w", userID, err)
	}
	return &thread, nil
}

func (s *DefaultThreadService) ResolveThread(ctx context.Context, userID uint) (*models.AssistantThread, error) {
	thread, err := s.findThread(ctx, userID)
	if err == nil {
		return thread, nil
	}
	if !errors.Is(err, ErrThreadNotFound) {
		return nil, err
	}

	thread, err = s.CreateThread(ctx, userID)
	if err == nil {
		return thread, nil
	}
	// a concurrent request may have won the unique index
	if existing, findErr := s.findThread(ctx, userID); findErr == nil {
		return existing, nil
	}
	return nil, err
}

func (s *DefaultThreadService) GetThreads(ctx context.Context, userID uint) ([]models.AssistantThread, error) {
	var threads []models.AssistantThread
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC").Find(&threads).Error; err != nil {
		return nil, fmt.Errorf("query threads of user %d: %w", userID, err)
	}
	if len(threads) == 0 {
		return nil, ErrThreadNotFound
	}
	return threads, nil
}

// DeleteThread drops the binding with its messages and tool calls, then the external thread
func (s *DefaultThreadService) DeleteThread(ctx context.Context, userID uint) error {
	var externalID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var thread models.AssistantThread
		if err := tx.Where("user_id = ?", userID).First(&thread).Error; err != nil {
			return err
		}
		externalID = thread.ThreadID

		if err := tx.Where("thread_id = ?", thread.ThreadID).Delete(&models.AssistantToolCall{}).Error; err != nil {
			return err
		}
		if err := tx.Where("thread_id = ?", thread.ThreadID).Delete(&models.AssistantMessage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&thread).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrThreadNotFound
		}
		return fmt.Errorf("delete thread of user %d: %w", userID, err)
	}

	if err := s.client.DeleteThread(ctx, externalID); err != nil {
		s.logger.Warn("delete external thread %s: %v", externalID, err)
	}
	s.logger.Info("thread %s of user %d deleted", externalID, userID)
	return nil
}
