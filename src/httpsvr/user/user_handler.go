package user

import (
	"errors"
	"net/http"
	"strconv"

	"abby-ai-server/src/core/auth"
	"abby-ai-server/src/core/middleware"
	"abby-ai-server/src/core/utils"
	"abby-ai-server/src/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// UserHandler user router
type UserHandler struct {
	userService UserService
	authToken   *auth.AuthToken
	logger      *utils.Logger
}

func NewUserHandler(db *gorm.DB, authToken *auth.AuthToken, threads ThreadRemover, logger *utils.Logger) *UserHandler {
	return &UserHandler{
		userService: NewUserService(db, threads, logger),
		authToken:   authToken,
		logger:      logger,
	}
}

// RegisterRoutes mounts /users
func (h *UserHandler) RegisterRoutes(apiGroup *gin.RouterGroup) {
	userGroup := apiGroup.Group("/users")
	{
		userGroup.POST("/register", h.Register)
		userGroup.POST("/login", h.Login)
		userGroup.GET("/dev/search/:user_id", h.SearchUser)
	}

	meGroup := userGroup.Group("/me").Use(middleware.JWTUserAuth(h.authToken, h.logger))
	{
		meGroup.GET("", h.GetSelf)
		meGroup.PUT("", h.UpdateSelf)
		meGroup.DELETE("", h.DeleteSelf)
		meGroup.POST("/password", h.ResetPassword)
		meGroup.GET("/location", h.GetLocation)
		meGroup.PUT("/location", h.UpdateLocation)
		meGroup.GET("/ai_profile", h.GetAIProfile)
		meGroup.PUT("/ai_profile", h.UpdateAIProfile)
	}
}

// Register creates an account
// @Summary Register
// @Description Create a user account with email and password
// @Tags users
// @Accept json
// @Produce json
// @Param user body models.RegisterRequest true "account"
// @Success 201 {object} utils.UnifiedResponse{data=models.User}
// @Failure 400 {object} utils.UnifiedResponse
// @Failure 409 {object} utils.UnifiedResponse
// @Failure 500 {object} utils.UnifiedResponse
// @Router /api/users/register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req)
	if err != nil {
		h.respondServiceError(c, "Registration failed", err)
		return
	}

	c.JSON(http.StatusCreated, utils.UnifiedResponse{
		Code:    http.StatusCreated,
		Success: true,
		Message: "User registered",
		Data:    user,
	})
}

// Login issues a bearer token
// @Summary Login
// @Description Exchange email and password for a bearer token
// @Tags users
// @Accept json
// @Produce json
// @Param credentials body models.LoginRequest true "credentials"
// @Success 200 {object} utils.UnifiedResponse{data=models.LoginResponse}
// @Failure 400 {object} utils.UnifiedResponse
// @Failure 401 {object} utils.UnifiedResponse
// @Router /api/users/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	user, err := h.userService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondServiceError(c, "Login failed", err)
		return
	}

	token, err := h.authToken.GenerateToken(user.ID)
	if err != nil {
		h.respondError(c, http.StatusInternalServerError, "Failed to issue token", err)
		return
	}
	h.respondSuccess(c, models.LoginResponse{Token: token, User: user})
}

// SearchUser developer lookup by id
// @Summary Search user
// @Description Look up any user by id (developer endpoint)
// @Tags users
// @Produce json
// @Param user_id path int true "user id"
// @Success 200 {object} utils.UnifiedResponse{data=models.User}
// @Failure 400 {object} utils.UnifiedResponse
// @Failure 404 {object} utils.UnifiedResponse
// @Failure 500 {object} utils.UnifiedResponse
// @Router /api/users/dev/search/{user_id} [get]
func (h *UserHandler) SearchUser(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid user id", err)
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), uint(userID))
	if err != nil {
		h.respondServiceError(c, "Failed to get user", err)
		return
	}
	h.respondSuccess(c, user)
}

// GetSelf
// @Summary Current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} utils.UnifiedResponse{data=models.User}
// @Failure 401 {object} utils.UnifiedResponse
// @Failure 404 {object} utils.UnifiedResponse
// @Router /api/users/me [get]
func (h *UserHandler) GetSelf(c *gin.Context) {
	user, err := h.userService.GetUser(c.Request.Context(), h.getUserID(c))
	if err != nil {
		h.respondServiceError(c, "Failed to get user", err)
		return
	}
	h.respondSuccess(c, user)
}

// UpdateSelf
// @Summary Update current user
// @Description Fields that are missing, null or empty are left unchanged
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param user body models.UpdateUserRequest true "fields to change"
// @Success 200 {object} utils.UnifiedResponse{data=models.User}
// @Failure 400 {object} utils.UnifiedResponse
// @Failure 404 {object} utils.UnifiedResponse
// @Failure 500 {object} utils.UnifiedResponse
// @Router /api/users/me [put]
func (h *UserHandler) UpdateSelf(c *gin.Context) {
	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), h.getUserID(c), req)
	if err != nil {
		h.respondServiceError(c, "Failed to update user", err)
		return
	}
	h.respondSuccess(c, user)
}

// DeleteSelf
// @Summary Delete current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} utils.UnifiedResponse
// @Failure 404 {object} utils.UnifiedResponse
// @Failure 500 {object} utils.UnifiedResponse
// @Router /api/users/me [delete]
func (h *UserHandler) DeleteSelf(c *gin.Context) {
	userID := h.getUserID(c)
	if err := h.userService.DeleteUser(c.Request.Context(), userID); err != nil {
		h.respondServiceError(c, "Failed to delete user", err)
		return
	}
	utils.SuccessWithMessage(c, "User deleted successfully", nil)
}

// ResetPassword
// @Summary Reset password
// @Description Overwrite the password of the current user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param new_password query string false "new password"
// @Param body body models.ResetPasswordRequest false "new password"
// @Success 200 {object} utils.UnifiedResponse
// @Failure 400 {object} utils.UnifiedResponse
// @Failure 404 {object} utils.UnifiedResponse
// @Router /api/users/me/password [post]
func (h *UserHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := h.bindBodyOrQuery(c, &req); err != nil {
		h.respondError(c, http.StatusBadRequest, "new_password is required", err)
		return
	}

	if err := h.userService.ResetPassword(c.Request.Context(), h.getUserID(c), req.NewPassword); err != nil {
		h.respondServiceError(c, "Failed to reset password", err)
		return
	}
	utils.SuccessWithMessage(c, "Password updated successfully", nil)
}

// GetLocation
// @Summary Current user location
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} utils.UnifiedResponse{data=models.LocationResponse}
// @Failure 404 {object} utils.UnifiedResponse
// @Router /api/users/me/location [get]
func (h *UserHandler) GetLocation(c *gin.Context) {
	location, err := h.userService.GetLocation(c.Request.Context(), h.getUserID(c))
	if err != nil {
		h.respondServiceError(c, "Failed to get location", err)
		return
	}
	h.respondSuccess(c, location)
}

// UpdateLocation
// @Summary Update current user location
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param latitude query number false "latitude"
// @Param longitude query number false "longitude"
// @Param body body models.LocationRequest false "location"
// @Success 200 {object} utils.UnifiedResponse{data=models.LocationResponse}
// @Failure 400 {object} utils.UnifiedResponse
// @Failure 404 {object} utils.UnifiedResponse
// @Router /api/users/me/location [put]
func (h *UserHandler) UpdateLocation(c *gin.Context) {
	var req models.LocationRequest
	if err := h.bindBodyOrQuery(c, &req); err != nil {
		h.respondError(c, http.StatusBadRequest, "latitude and longitude are required", err)
		return
	}

	location, err := h.userService.UpdateLocation(c.Request.Context(), h.getUserID(c), *req.Latitude, *req.Longitude)
	if err != nil {
		h.respondServiceError(c, "Failed to update location", err)
		return
	}
	utils.SuccessWithMessage(c, "Location updated successfully", location)
}

// GetAIProfile
// @Summary Current user AI profile image
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} utils.UnifiedResponse{data=models.AIProfileResponse}
// @Failure 404 {object} utils.UnifiedResponse
// @Router /api/users/me/ai_profile [get]
func (h *UserHandler) GetAIProfile(c *gin.Context) {
	profile, err := h.userService.GetAIProfile(c.Request.Context(), h.getUserID(c))
	if err != nil {
		h.respondServiceError(c, "Failed to get AI profile", err)
		return
	}
	h.respondSuccess(c, models.AIProfileResponse{AIProfile: profile})
}

// UpdateAIProfile
// @Summary Update current user AI profile image
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param image_num query int false "image number" default(0)
// @Param body body models.AIProfileRequest false "image number"
// @Success 200 {object} utils.UnifiedResponse{data=models.AIProfileResponse}
// @Failure 400 {object} utils.UnifiedResponse
// @Failure 404 {object} utils.UnifiedResponse
// @Router /api/users/me/ai_profile [put]
func (h *UserHandler) UpdateAIProfile(c *gin.Context) {
	var req models.AIProfileRequest
	if err := h.bindBodyOrQuery(c, &req); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid image_num", err)
		return
	}

	if err := h.userService.UpdateAIProfile(c.Request.Context(), h.getUserID(c), req.ImageNum); err != nil {
		h.respondServiceError(c, "Failed to update AI profile", err)
		return
	}
	utils.SuccessWithMessage(c, "AI profile updated successfully", models.AIProfileResponse{AIProfile: req.ImageNum})
}

// bindBodyOrQuery JSON body when sent as JSON, query parameters otherwise
func (h *UserHandler) bindBodyOrQuery(c *gin.Context, obj interface{}) error {
	if c.ContentType() == gin.MIMEJSON {
		return c.ShouldBindJSON(obj)
	}
	return c.ShouldBindQuery(obj)
}

func (h *UserHandler) getUserID(c *gin.Context) uint {
	if userID, exists := c.Get("user_id"); exists {
		if uid, ok := userID.(uint); ok {
			return uid
		}
	}
	h.logger.Error("user_id missing from request context")
	return 0
}

func (h *UserHandler) respondSuccess(c *gin.Context, data interface{}) {
	utils.Success(c, data)
}

// respondServiceError maps service errors to status codes
func (h *UserHandler) respondServiceError(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, ErrUserNotFound):
		h.respondError(c, http.StatusNotFound, "User not found", err)
	case errors.Is(err, ErrInvalidPhone):
		h.respondError(c, http.StatusBadRequest, "Invalid phone number", err)
	case errors.Is(err, ErrInvalidEmail):
		h.respondError(c, http.StatusBadRequest, "Invalid email", err)
	case errors.Is(err, ErrEmailTaken):
		h.respondError(c, http.StatusConflict, "Email already registered", err)
	case errors.Is(err, ErrInvalidCredentials):
		h.respondError(c, http.StatusUnauthorized, "Invalid email or password", err)
	default:
		h.respondError(c, http.StatusInternalServerError, message, err)
	}
}

func (h *UserHandler) respondError(c *gin.Context, statusCode int, message string, err error) {
	if err != nil {
		h.logger.Error("%s: %v", message, err)
	} else {
		h.logger.Error("%s", message)
	}
	utils.ErrorWithDetail(c, statusCode, message, err)
}
