package assistant

import (
	"errors"
	"net/http"
	"strconv"

	"abby-ai-server/src/core/utils"
	"abby-ai-server/src/models"

	"github.com/gin-gonic/gin"
)

const messageExecutedStatus = "Message created and executed"

// AssistantHandler assistant router
type AssistantHandler struct {
	threadService  ThreadService
	messageService MessageService
	logger         *utils.Logger
}

func NewAssistantHandler(threads ThreadService, messages MessageService, logger *utils.Logger) *AssistantHandler {
	return &AssistantHandler{
		threadService:  threads,
		messageService: messages,
		logger:         logger,
	}
}

// RegisterRoutes mounts /assistant
func (h *AssistantHandler) RegisterRoutes(apiGroup *gin.RouterGroup) {
	assistantGroup := apiGroup.Group("/assistant")
	{
		assistantGroup.GET("/threads/:user_id", h.GetThreads)
		assistantGroup.DELETE("/threads/:user_id", h.DeleteThread)
		assistantGroup.POST("/message/:user_id", h.AddMessage)
		assistantGroup.GET("/messages/:user_id", h.GetMessages)
	}
}

// GetThreads
// @Summary Threads of a user
// @Tags assistant
// @Produce json
// @Param user_id path int true "user id"
// @Success 200 {object} utils.UnifiedResponse{data=[]models.AssistantThread}
// @Failure 404 {object} utils.UnifiedResponse
// @Failure 500 {object} utils.UnifiedResponse
// @Router /api/assistant/threads/{user_id} [get]
func (h *AssistantHandler) GetThreads(c *gin.Context) {
	userID, ok := h.parseUserID(c)
	if !ok {
		return
	}

	threads, err := h.threadService.GetThreads(c.Request.Context(), userID)
	if err != nil {
		h.respondServiceError(c, "Failed to get threads", err)
		return
	}
	utils.Success(c, threads)
}

// DeleteThread
// @Summary Delete the thread of a user
// @Description Removes the thread with its messages, locally and at the assistant service
// @Tags assistant
// @Produce json
// @Param user_id path int true "user id"
// @Success 200 {object} utils.UnifiedResponse
// @Failure 404 {object} utils.UnifiedResponse
// @Failure 500 {object} utils.UnifiedResponse
// @Router /api/assistant/threads/{user_id} [delete]
func (h *AssistantHandler) DeleteThread(c *gin.Context) {
	userID, ok := h.parseUserID(c)
	if !ok {
		return
	}

	if err := h.threadService.DeleteThread(c.Request.Context(), userID); err != nil {
		h.respondServiceError(c, "Failed to delete thread", err)
		return
	}
	utils.SuccessWithMessage(c, "Thread deleted successfully", nil)
}

// AddMessage
// @Summary Send a message to Abby
// @Description Stores the message, runs the assistant and waits for the reply
// @Tags assistant
// @Accept json
// @Produce json
// @Param user_id path int true "user id"
// @Param message body models.AddMessageRequest true "message"
// @Success 200 {object} models.AddMessageResponse
// @Failure 400 {object} utils.UnifiedResponse "invalid body or a message already in progress"
// @Failure 500 {object} utils.UnifiedResponse
// @Router /api/assistant/message/{user_id} [post]
func (h *AssistantHandler) AddMessage(c *gin.Context) {
	userID, ok := h.parseUserID(c)
	if !ok {
		return
	}

	var req models.AddMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	msg, err := h.messageService.AddAndRunMessage(c.Request.Context(), userID, req.Content)
	if err != nil {
		h.respondServiceError(c, "Failed to run message", err)
		return
	}

	c.JSON(http.StatusOK, models.AddMessageResponse{
		Status:  messageExecutedStatus,
		Message: msg.Content,
	})
}

// GetMessages
// @Summary Conversation of a user
// @Description Messages in creation order; page and page_size are optional
// @Tags assistant
// @Produce json
// @Param user_id path int true "user id"
// @Param page query int false "page (1-based)"
// @Param page_size query int false "page size, max 200"
// @Success 200 {object} utils.UnifiedResponse{data=[]models.AssistantMessage}
// @Failure 404 {object} utils.UnifiedResponse
// @Failure 500 {object} utils.UnifiedResponse
// @Router /api/assistant/messages/{user_id} [get]
func (h *AssistantHandler) GetMessages(c *gin.Context) {
	userID, ok := h.parseUserID(c)
	if !ok {
		return
	}

	page := utils.ParsePageParams(c, 1, 0, 200)
	messages, err := h.messageService.GetMessages(c.Request.Context(), userID, page)
	if err != nil {
		h.respondServiceError(c, "Failed to get messages", err)
		return
	}
	utils.Success(c, messages)
}

func (h *AssistantHandler) parseUserID(c *gin.Context) (uint, bool) {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid user id", err)
		return 0, false
	}
	return uint(userID), true
}

func (h *AssistantHandler) respondServiceError(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, ErrThreadNotFound):
		h.respondError(c, http.StatusNotFound, "Thread not found", err)
	case errors.Is(err, ErrMessagesNotFound):
		h.respondError(c, http.StatusNotFound, "No messages found", err)
	case errors.Is(err, ErrMessageInProgress):
		h.respondError(c, http.StatusBadRequest, "A message is already in progress", err)
	default:
		h.respondError(c, http.StatusInternalServerError, message, err)
	}
}

func (h *AssistantHandler) respondError(c *gin.Context, statusCode int, message string, err error) {
	if err != nil {
		h.logger.Error("%s: %v", message, err)
	} else {
		h.logger.Error("%s", message)
	}
	utils.ErrorWithDetail(c, statusCode, message, err)
}
