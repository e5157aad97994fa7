package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthService issues and validates tokens for the control-plane API. There is
// a single configured operator identity; tenant-facing auth lives upstream.
type AuthService struct {
	jwtSecret  []byte
	jwtExpiry  time.Duration
	adminEmail string
	adminHash  string
}

func NewAuthService(secret, adminEmail, adminPasswordHash string, expiryHours int) *AuthService {
	return &AuthService{
		jwtSecret:  []byte(secret),
		jwtExpiry:  time.Duration(expiryHours) * time.Hour,
		adminEmail: adminEmail,
		adminHash:  adminPasswordHash,
	}
}

// Login verifies the operator credentials and returns a signed JWT.
func (s *AuthService) Login(email, password string) (string, error) {
	if email != s.adminEmail {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(s.adminHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": email,
		"role":  "admin",
		"exp":   time.Now().Add(s.jwtExpiry).Unix(),
		"iat":   time.Now().Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken validates a JWT and returns its claims.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Verifying signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
