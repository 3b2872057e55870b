package models

import (
	"time"

	"gorm.io/datatypes"
)

// Run state of a thread
const (
	RunStateCreated    = "created"
	RunStateRunning    = "running"
	RunStateProcessing = "processing"
	RunStateWaiting    = "waiting"
	RunStateDone       = "done"
)

// Message status
const (
	MessageStatusSent       = "sent"
	MessageStatusRunning    = "running"
	MessageStatusProcessing = "processing"
	MessageStatusWaiting    = "waiting"
	MessageStatusDone       = "done"
)

const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// AssistantThread binds a user to one conversation thread of the assistant service
type AssistantThread struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	ThreadID  string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"thread_id"`
	RunState  string    `gorm:"type:varchar(20);not null;default:'created'" json:"run_state"`
	RunID     string    `gorm:"type:varchar(64)" json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AssistantThread) TableName() string { return "assistant_threads" }

// AssistantMessage one chat message, user or assistant
type AssistantMessage struct {
	MessageID  uint      `gorm:"primaryKey;autoIncrement" json:"message_id"`
	ThreadID   string    `gorm:"type:varchar(64);not null;index" json:"thread_id"`
	SenderType string    `gorm:"type:varchar(20);not null" json:"sender_type"`
	StatusType string    `gorm:"type:varchar(20);not null;default:'sent'" json:"status_type"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	RunID      string    `gorm:"type:varchar(64)" json:"run_id,omitempty"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (AssistantMessage) TableName() string { return "assistant_messages" }

// InProgress reports whether a run is still attached to the message
func (m *AssistantMessage) InProgress() bool {
	switch m.StatusType {
	case MessageStatusRunning, MessageStatusProcessing, MessageStatusWaiting:
		return true
	}
	return false
}

// AssistantToolCall a local function invoked on behalf of a run
type AssistantToolCall struct {
	ID           uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	ThreadID     string         `gorm:"type:varchar(64);not null;index" json:"thread_id"`
	RunID        string         `gorm:"type:varchar(64);not null" json:"run_id"`
	MessageID    uint           `gorm:"not null;index" json:"message_id"`
	ToolCallID   string         `gorm:"type:varchar(64);not null" json:"tool_call_id"`
	FunctionName string         `gorm:"type:varchar(64);not null" json:"function_name"`
	Arguments    datatypes.JSON `json:"arguments"`
	Output       datatypes.JSON `json:"output"`
	Error        string         `gorm:"type:text" json:"error,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

func (AssistantToolCall) TableName() string { return "assistant_tool_calls" }

type AddMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// AddMessageResponse body of a completed message round trip
type AddMessageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
