package models

import (
	"time"
)

// User app account of a senior
type User struct {
	ID                 uint       `gorm:"primaryKey;autoIncrement" json:"user_id"`
	UserRealName       string     `gorm:"type:varchar(64)" json:"user_real_name"`
	PhoneNumber        string     `gorm:"type:varchar(32)" json:"phone_number"`
	Email              string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash       string     `gorm:"type:varchar(255);not null" json:"-"`
	Latitude           *float64   `json:"latitude"`
	Longitude          *float64   `json:"longitude"`
	LastUpdateLocation *time.Time `json:"last_update_location"`
	AIProfile          int        `gorm:"not null;default:0" json:"ai_profile"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// UpdateUserRequest nil or empty fields are left unchanged
type UpdateUserRequest struct {
	UserRealName *string `json:"user_real_name"`
	PhoneNumber  *string `json:"phone_number"`
	Email        *string `json:"email"`
}

type RegisterRequest struct {
	UserRealName string `json:"user_real_name" binding:"required"`
	PhoneNumber  string `json:"phone_number"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=4"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" form:"new_password" binding:"required"`
}

type LocationRequest struct {
	Latitude  *float64 `json:"latitude" form:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" form:"longitude" binding:"required"`
}

type LocationResponse struct {
	Latitude           *float64   `json:"latitude"`
	Longitude          *float64   `json:"longitude"`
	LastUpdateLocation *time.Time `json:"last_update_location"`
}

type AIProfileRequest struct {
	ImageNum int `json:"image_num" form:"image_num"`
}

type AIProfileResponse struct {
	AIProfile int `json:"profile_number"`
}
