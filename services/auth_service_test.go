package services

import (
	"context"
	"errors"
	"testing"

	"github.com/arenaforge/esports-platform/models"
	"github.com/golang-jwt/jwt/v4"
)

const testJWTSecret = "test-secret"

func newTestAuthService(t *testing.T) (*AuthService, *memUserRepo, *memWalletRepo) {
	t.Helper()
	userRepo := newMemUserRepo()
	walletRepo := newMemWalletRepo()
	return NewAuthService(userRepo, walletRepo, testJWTSecret), userRepo, walletRepo
}

func registerInput() RegisterInput {
	return RegisterInput{
		FirstName: "Priya",
		LastName:  "Sharma",
		Email:     "priya@example.com",
		Password:  "correct horse battery",
	}
}

func TestRegisterIssuesTokenAndWallet(t *testing.T) {
	svc, _, walletRepo := newTestAuthService(t)
	ctx := context.Background()

	user, token, err := svc.Register(ctx, registerInput())
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.Role != models.RolePlayer {
		t.Errorf("role = %s, want player", user.Role)
	}
	if user.PasswordHash != "" {
		t.Error("password hash leaked in the response")
	}

	// The wallet exists before the first money operation.
	if _, err := walletRepo.GetByUserID(ctx, nil, user.ID); err != nil {
		t.Errorf("expected a wallet for the new user: %v", err)
	}

	parsed, err := jwt.Parse(token, func(tok *jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("issued token does not verify: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if int(claims["user_id"].(float64)) != user.ID {
		t.Errorf("token user_id = %v, want %d", claims["user_id"], user.ID)
	}
	if claims["role"] != string(models.RolePlayer) {
		t.Errorf("token role = %v, want player", claims["role"])
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	short := registerInput()
	short.Password = "short"
	if _, _, err := svc.Register(ctx, short); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("expected ErrPasswordTooShort, got %v", err)
	}

	noEmail := registerInput()
	noEmail.Email = ""
	if _, _, err := svc.Register(ctx, noEmail); !errors.Is(err, ErrValidationFailed) {
		t.Errorf("expected ErrValidationFailed, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, registerInput()); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if _, _, err := svc.Register(ctx, registerInput()); !errors.Is(err, ErrUserEmailConflict) {
		t.Fatalf("expected ErrUserEmailConflict, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	input := registerInput()
	if _, _, err := svc.Register(ctx, input); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	user, token, err := svc.Login(ctx, LoginInput{Email: input.Email, Password: input.Password})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token == "" {
		t.Error("expected a token on login")
	}
	if user.PasswordHash != "" {
		t.Error("password hash leaked in the response")
	}

	// Wrong password and unknown email produce the same error.
	if _, _, err := svc.Login(ctx, LoginInput{Email: input.Email, Password: "wrong password"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for a wrong password, got %v", err)
	}
	if _, _, err := svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: input.Password}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for an unknown email, got %v", err)
	}
}
