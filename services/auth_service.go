package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arenaforge/esports-platform/models"
	"github.com/arenaforge/esports-platform/repositories"
	"github.com/arenaforge/esports-platform/utils"
	"github.com/golang-jwt/jwt/v4"
)

const (
	minPasswordLen = 8
	tokenLifetime  = 24 * time.Hour
)

type RegisterInput struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Nickname  *string `json:"nickname,omitempty"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthService registers users and issues signed JWTs. Every new user gets
// a wallet row so money operations never race against first use.
type AuthService struct {
	userRepo   repositories.UserRepository
	walletRepo repositories.WalletRepository
	jwtSecret  []byte
}

func NewAuthService(userRepo repositories.UserRepository, walletRepo repositories.WalletRepository, jwtSecret string) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		walletRepo: walletRepo,
		jwtSecret:  []byte(jwtSecret),
	}
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, string, error) {
	if input.Email == "" || input.FirstName == "" {
		return nil, "", fmt.Errorf("%w: first name and email are required", ErrValidationFailed)
	}
	if len(input.Password) < minPasswordLen {
		return nil, "", ErrPasswordTooShort
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Nickname:     input.Nickname,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         models.RolePlayer,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrUserEmailConflict) {
			return nil, "", ErrUserEmailConflict
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.walletRepo.EnsureExists(ctx, nil, user.ID); err != nil {
		return nil, "", fmt.Errorf("failed to create wallet for user %d: %w", user.ID, err)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}

	user.PasswordHash = ""
	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*models.User, string, error) {
	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to find user by email: %w", err)
	}

	if !utils.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}

	user.PasswordHash = ""
	return user, token, nil
}

func (s *AuthService) issueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"role":    string(user.Role),
		"iat":     now.Unix(),
		"exp":     now.Add(tokenLifetime).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *AuthService) GetUser(ctx context.Context, id int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}
