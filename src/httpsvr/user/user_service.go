package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"abby-ai-server/src/core/auth"
	"abby-ai-server/src/core/utils"
	"abby-ai-server/src/core/validate"
	"abby-ai-server/src/models"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidPhone       = errors.New("invalid phone number")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// UserService user management
type UserService interface {
	GetUser(ctx context.Context, userID uint) (*models.User, error)
	UpdateUser(ctx context.Context, userID uint, req models.UpdateUserRequest) (*models.User, error)
	DeleteUser(ctx context.Context, userID uint) error
	ResetPassword(ctx context.Context, userID uint, newPassword string) error

	GetLocation(ctx context.Context, userID uint) (*models.LocationResponse, error)
	UpdateLocation(ctx context.Context, userID uint, latitude, longitude float64) (*models.LocationResponse, error)

	GetAIProfile(ctx context.Context, userID uint) (int, error)
	UpdateAIProfile(ctx context.Context, userID uint, imageNum int) error

	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
}

// ThreadRemover deletes a thread at the external assistant service
type ThreadRemover interface {
	DeleteThread(ctx context.Context, threadID string) error
}

type DefaultUserService struct {
	db      *gorm.DB
	threads ThreadRemover
	logger  *utils.Logger
	now     func() time.Time
}

// NewUserService threads may be nil, then external threads of deleted users are left in place
func NewUserService(db *gorm.DB, threads ThreadRemover, logger *utils.Logger) UserService {
	return &DefaultUserService{
		db:      db,
		threads: threads,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *DefaultUserService) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("query user %d: %w", userID, err)
	}
	return &user, nil
}

// present reports whether an optional field carries a new value
func present(v *string) (string, bool) {
	if v == nil {
		return "", false
	}
	s := strings.TrimSpace(*v)
	return s, s != ""
}

// UpdateUser changes only the fields that are set and non-empty
func (s *DefaultUserService) UpdateUser(ctx context.Context, userID uint, req models.UpdateUserRequest) (*models.User, error) {
	updates := map[string]interface{}{}
	if name, ok := present(req.UserRealName); ok {
		updates["user_real_name"] = name
	}
	if phone, ok := present(req.PhoneNumber); ok {
		if !validate.IsValidPhone(phone) {
			return nil, ErrInvalidPhone
		}
		updates["phone_number"] = phone
	}
	if email, ok := present(req.Email); ok {
		if !validate.IsValidEmail(email) {
			return nil, ErrInvalidEmail
		}
		updates["email"] = email
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, userID).Error; err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if email, ok := updates["email"]; ok && email != user.Email {
			var count int64
			if err := tx.Model(&models.User{}).Where("email = ? AND id <> ?", email, userID).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return ErrEmailTaken
			}
		}
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&user, userID).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, ErrEmailTaken):
			return nil, err
		}
		return nil, fmt.Errorf("user update failed: %w", err)
	}

	s.logger.Info("user %d updated fields %d", userID, len(updates))
	return &user, nil
}

// DeleteUser removes the user with its assistant threads, messages and tool calls
func (s *DefaultUserService) DeleteUser(ctx context.Context, userID uint) error {
	var threadIDs []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.AssistantThread{}).Where("user_id = ?", userID).Pluck("thread_id", &threadIDs).Error; err != nil {
			return err
		}
		if len(threadIDs) > 0 {
			if err := tx.Where("thread_id IN ?", threadIDs).Delete(&models.AssistantToolCall{}).Error; err != nil {
				return err
			}
			if err := tx.Where("thread_id IN ?", threadIDs).Delete(&models.AssistantMessage{}).Error; err != nil {
				return err
			}
			if err := tx.Where("user_id = ?", userID).Delete(&models.AssistantThread{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user %d: %w", userID, err)
	}

	if s.threads != nil {
		for _, threadID := range threadIDs {
			if err := s.threads.DeleteThread(ctx, threadID); err != nil {
				s.logger.Warn("delete external thread %s of user %d: %v", threadID, userID, err)
			}
		}
	}
	s.logger.Info("user %d deleted with %d thread(s)", userID, len(threadIDs))
	return nil
}

// ResetPassword overwrites the password hash without checking the old password
func (s *DefaultUserService) ResetPassword(ctx context.Context, userID uint, newPassword string) error {
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("password_hash", hash)
	if result.Error != nil {
		return fmt.Errorf("reset password of user %d: %w", userID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *DefaultUserService) GetLocation(ctx context.Context, userID uint) (*models.LocationResponse, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.LocationResponse{
		Latitude:           user.Latitude,
		Longitude:          user.Longitude,
		LastUpdateLocation: user.LastUpdateLocation,
	}, nil
}

func (s *DefaultUserService) UpdateLocation(ctx context.Context, userID uint, latitude, longitude float64) (*models.LocationResponse, error) {
	now := s.now().UTC()
	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"latitude":             latitude,
		"longitude":            longitude,
		"last_update_location": now,
	})
	if result.Error != nil {
		return nil, fmt.Errorf("update location of user %d: %w", userID, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}
	return &models.LocationResponse{
		Latitude:           &latitude,
		Longitude:          &longitude,
		LastUpdateLocation: &now,
	}, nil
}

func (s *DefaultUserService) GetAIProfile(ctx context.Context, userID uint) (int, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.AIProfile, nil
}

func (s *DefaultUserService) UpdateAIProfile(ctx context.Context, userID uint, imageNum int) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("ai_profile", imageNum)
	if result.Error != nil {
		return fmt.Errorf("update ai profile of user %d: %w", userID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *DefaultUserService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	email := strings.TrimSpace(req.Email)
	if !validate.IsValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	phone := strings.TrimSpace(req.PhoneNumber)
	if phone != "" && !validate.IsValidPhone(phone) {
		return nil, ErrInvalidPhone
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		UserRealName: strings.TrimSpace(req.UserRealName),
		PhoneNumber:  phone,
		Email:        email,
		PasswordHash: hash,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrEmailTaken
		}
		return tx.Create(user).Error
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("register user: %w", err)
	}

	s.logger.Info("user %d registered", user.ID)
	return user, nil
}

func (s *DefaultUserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", strings.TrimSpace(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}
