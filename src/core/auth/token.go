package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// UserClaims claims carried by a user token
type UserClaims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

type AuthToken struct {
	secretKey []byte
	issuer    string
	expiry    time.Duration
}

func NewAuthToken(secretKey, issuer string, expiry time.Duration) (*AuthToken, error) {
	if secretKey == "" {
		return nil, errors.New("secret key cannot be empty")
	}
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &AuthToken{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		expiry:    expiry,
	}, nil
}

// GenerateToken signs an HS256 token for userID with the configured expiry
func (at *AuthToken) GenerateToken(userID uint) (string, error) {
	return at.GenerateTokenWithExpiry(userID, at.expiry)
}

func (at *AuthToken) GenerateTokenWithExpiry(userID uint, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := UserClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    at.issuer,
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(at.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// VerifyToken checks signature, expiry and issuer and returns the user id
func (at *AuthToken) VerifyToken(tokenString string) (uint, error) {
	if at == nil || at.secretKey == nil {
		return 0, errors.New("auth token is not initialized")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if at.issuer != "" {
		opts = append(opts, jwt.WithIssuer(at.issuer))
	}

	claims := &UserClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return at.secretKey, nil
	}, opts...)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == 0 {
		return 0, ErrInvalidToken
	}
	return claims.UserID, nil
}
