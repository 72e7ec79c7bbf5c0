package auth

import (
	"context"
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	domain "github.com/example/taskboard/domain/user"
)

// setupTestService wires a Service over an in-memory SQLite database.
func setupTestService(t *testing.T) *Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&domain.User{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return NewService(
		NewUserRepository(db),
		NewPasswordHasher(),
		NewJWTManager(testJWTConfig()),
	)
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	t.Run("valid registration issues tokens", func(t *testing.T) {
		user, tokens, err := svc.Register(ctx, "alice", "alice@example.com", "secret123")
		if err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		if user.ID == "" {
			t.Error("expected a generated user id")
		}
		if user.PasswordHash == "secret123" {
			t.Error("password stored in plain text")
		}
		if tokens.AccessToken == "" || tokens.RefreshToken == "" {
			t.Error("expected a full token pair")
		}
		if tokens.TokenType != "Bearer" {
			t.Errorf("expected Bearer token type, got %q", tokens.TokenType)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, _, err := svc.Register(ctx, "alice2", "alice@example.com", "secret123")
		if !errors.Is(err, ErrUserExists) {
			t.Errorf("expected ErrUserExists, got %v", err)
		}
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, _, err := svc.Register(ctx, "alice", "other@example.com", "secret123")
		if !errors.Is(err, ErrUserExists) {
			t.Errorf("expected ErrUserExists, got %v", err)
		}
	})

	t.Run("input validation", func(t *testing.T) {
		cases := []struct {
			name     string
			username string
			email    string
			password string
			want     error
		}{
			{"short username", "ab", "x@example.com", "secret123", ErrInvalidUsername},
			{"long username", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "x@example.com", "secret123", ErrInvalidUsername},
			{"bad email", "charlie", "not-an-email", "secret123", ErrInvalidEmail},
			{"short password", "charlie", "charlie@example.com", "12345", ErrWeakPassword},
		}

		for _, tt := range cases {
			t.Run(tt.name, func(t *testing.T) {
				_, _, err := svc.Register(ctx, tt.username, tt.email, tt.password)
				if !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	if _, _, err := svc.Register(ctx, "dave", "dave@example.com", "secret123"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	t.Run("correct credentials", func(t *testing.T) {
		user, tokens, err := svc.Login(ctx, "dave@example.com", "secret123")
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if user.Username != "dave" {
			t.Errorf("expected dave, got %q", user.Username)
		}
		if tokens.AccessToken == "" {
			t.Error("expected an access token")
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "dave@example.com", "wrong")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "ghost@example.com", "secret123")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestService_RefreshTokens(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	_, tokens, err := svc.Register(ctx, "erin", "erin@example.com", "secret123")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	t.Run("valid refresh token", func(t *testing.T) {
		fresh, err := svc.RefreshTokens(ctx, tokens.RefreshToken)
		if err != nil {
			t.Fatalf("RefreshTokens() error = %v", err)
		}
		if fresh.AccessToken == "" || fresh.RefreshToken == "" {
			t.Error("expected a full token pair")
		}
	})

	t.Run("access token is not accepted", func(t *testing.T) {
		if _, err := svc.RefreshTokens(ctx, tokens.AccessToken); err == nil {
			t.Error("RefreshTokens() should reject an access token")
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		if _, err := svc.RefreshTokens(ctx, "garbage"); err == nil {
			t.Error("RefreshTokens() should reject a malformed token")
		}
	})
}

func TestService_ValidateToken(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	user, tokens, err := svc.Register(ctx, "frank", "frank@example.com", "secret123")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	claims, err := svc.ValidateToken(ctx, tokens.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("claims.UserID = %q, want %q", claims.UserID, user.ID)
	}
	if claims.Username != "frank" {
		t.Errorf("claims.Username = %q, want frank", claims.Username)
	}
}

func TestService_ListUsers_AscendingByID(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	seed := []struct{ username, email string }{
		{"grace", "grace@example.com"},
		{"heidi", "heidi@example.com"},
		{"ivan", "ivan@example.com"},
	}
	for _, s := range seed {
		if _, _, err := svc.Register(ctx, s.username, s.email, "secret123"); err != nil {
			t.Fatalf("Register(%q) error = %v", s.username, err)
		}
	}

	users, err := svc.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(users))
	}
	for i := 1; i < len(users); i++ {
		if users[i-1].ID >= users[i].ID {
			t.Errorf("directory not in ascending id order: %q before %q", users[i-1].ID, users[i].ID)
		}
	}
}
