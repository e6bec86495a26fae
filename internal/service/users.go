package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	apperrors "safeletstays/internal/errors"
	"safeletstays/internal/logger"
	"safeletstays/internal/models"
	"safeletstays/internal/validation"
)

type UserService struct {
	users userStore
	auth  authCache // nil when Redis is unavailable
}

func NewUserService(users userStore, auth authCache) *UserService {
	return &UserService{
		users: users,
		auth:  auth,
	}
}

// Signup создает аккаунт вместе с профилем. Профиль существует для каждого
// аккаунта с момента регистрации, отдельного шага создания у него нет.
func (s *UserService) Signup(ctx context.Context, req *models.SignupRequest) (*models.SignupResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !validation.ValidEmail(email) {
		return nil, apperrors.NewValidation("email", "must be a valid email address")
	}
	if len(req.Password) < 8 {
		return nil, apperrors.NewValidation("password", "must be at least 8 characters")
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil {
		return nil, apperrors.NewValidation("email", "is already registered")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: HashPassword(req.Password),
		FirstName:    strings.TrimSpace(req.FirstName),
		Surname:      strings.TrimSpace(req.Surname),
		IsActive:     true,
	}
	profile := &models.Profile{
		PhoneNumber:    strings.TrimSpace(req.PhoneNumber),
		BookingPurpose: strings.TrimSpace(req.BookingPurpose),
		CompanyName:    strings.TrimSpace(req.CompanyName),
		CompanyAddress: strings.TrimSpace(req.CompanyAddress),
	}

	if err := s.users.CreateWithProfile(ctx, user, profile); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if s.auth != nil {
		if err := s.auth.SetUserAuth(ctx, user.Email, user.PasswordHash, user.ID); err != nil {
			// Аутентификация сработает через БД, кеш догонит при первом логине
			logger.WithContext(ctx).Error("Failed to warm auth cache",
				"error", err,
				"user_id", user.ID)
		}
	}

	return &models.SignupResponse{
		ID:    user.ID,
		Email: user.Email,
	}, nil
}

// GetProfile возвращает профиль пользователя
func (s *UserService) GetProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if profile == nil {
		return nil, apperrors.ErrNotFound
	}
	return profile, nil
}

// UpdateProfile обновляет контактные и платежные данные профиля
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, profile *models.Profile) (*models.Profile, error) {
	existing, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if existing == nil {
		return nil, apperrors.ErrNotFound
	}

	profile.ID = existing.ID
	profile.UserID = userID
	if err := s.users.UpdateProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return profile, nil
}

// HashPassword возвращает SHA-256 хеш пароля в hex
func HashPassword(password string) string {
	hash := sha256.Sum256([]byte(password))
	return hex.EncodeToString(hash[:])
}
