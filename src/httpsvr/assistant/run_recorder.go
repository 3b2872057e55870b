package assistant

import (
	"context"
	"encoding/json"
	"time"

	coreassistant "abby-ai-server/src/core/assistant"
	"abby-ai-server/src/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// runRecorder writes run progress of one user message to the database
type runRecorder struct {
	db        *gorm.DB
	threadID  string
	messageID uint
	now       func() time.Time
}

func newRunRecorder(db *gorm.DB, threadID string, messageID uint) *runRecorder {
	return &runRecorder{db: db, threadID: threadID, messageID: messageID, now: time.Now}
}

// advance sets the message status and thread run state together
func (r *runRecorder) advance(ctx context.Context, runID, status string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.advanceTx(tx, runID, status)
	})
}

func (r *runRecorder) advanceTx(tx *gorm.DB, runID, status string) error {
	msgUpdates := map[string]interface{}{"status_type": status}
	threadUpdates := map[string]interface{}{"run_state": status}
	if runID != "" {
		msgUpdates["run_id"] = runID
		threadUpdates["run_id"] = runID
	}

	if err := tx.Model(&models.AssistantMessage{}).
		Where("message_id = ?", r.messageID).
		Updates(msgUpdates).Error; err != nil {
		return err
	}
	return tx.Model(&models.AssistantThread{}).
		Where("thread_id = ?", r.threadID).
		Updates(threadUpdates).Error
}

func (r *runRecorder) RunStarted(ctx context.Context, run coreassistant.Run) error {
	return r.advance(ctx, run.ID, models.MessageStatusRunning)
}

func (r *runRecorder) RunWaiting(ctx context.Context, run coreassistant.Run) error {
	return r.advance(ctx, run.ID, models.MessageStatusWaiting)
}

func (r *runRecorder) ToolsProcessing(ctx context.Context, run coreassistant.Run) error {
	return r.advance(ctx, run.ID, models.MessageStatusProcessing)
}

func (r *runRecorder) RecordToolCall(ctx context.Context, run coreassistant.Run, call coreassistant.ToolCall, output string, callErr error) error {
	record := &models.AssistantToolCall{
		ThreadID:     r.threadID,
		RunID:        run.ID,
		MessageID:    r.messageID,
		ToolCallID:   call.ID,
		FunctionName: call.Name,
		Arguments:    jsonColumn(call.Arguments),
		Output:       jsonColumn(output),
	}
	if callErr != nil {
		record.Error = callErr.Error()
	}
	return r.db.WithContext(ctx).Create(record).Error
}

// RunCompleted releases the message and stores the reply in one transaction
func (r *runRecorder) RunCompleted(ctx context.Context, run coreassistant.Run, reply string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.advanceTx(tx, run.ID, models.MessageStatusDone); err != nil {
			return err
		}
		if reply == "" {
			return nil
		}
		return tx.Create(&models.AssistantMessage{
			ThreadID:   r.threadID,
			SenderType: models.SenderAssistant,
			StatusType: models.MessageStatusDone,
			Content:    reply,
			RunID:      run.ID,
			CreatedAt:  r.now(),
		}).Error
	})
}

func (r *runRecorder) RunAborted(ctx context.Context, run coreassistant.Run, reason string) error {
	return r.advance(ctx, run.ID, models.MessageStatusDone)
}

// jsonColumn stores valid JSON as is and anything else as a JSON string
func jsonColumn(s string) datatypes.JSON {
	if s != "" && json.Valid([]byte(s)) {
		return datatypes.JSON(s)
	}
	data, _ := json.Marshal(s)
	return datatypes.JSON(data)
}
