package auth

import (
	"testing"
	"time"
)

func testJWTConfig() JWTConfig {
	return JWTConfig{
		SecretKey:            "test-secret-key",
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: 7 * 24 * time.Hour,
		Issuer:               "test-issuer",
	}
}

func TestJWTManager_GenerateAndValidateAccessToken(t *testing.T) {
	manager := NewJWTManager(testJWTConfig())

	userID := "user-123"
	username := "alice"

	token, err := manager.GenerateAccessToken(userID, username)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	if token == "" {
		t.Error("GenerateAccessToken() returned empty token")
	}

	claims, err := manager.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken() error = %v", err)
	}

	if claims.UserID != userID {
		t.Errorf("claims.UserID = %v, want %v", claims.UserID, userID)
	}
	if claims.Username != username {
		t.Errorf("claims.Username = %v, want %v", claims.Username, username)
	}
	if claims.TokenType != "access" {
		t.Errorf("claims.TokenType = %v, want %v", claims.TokenType, "access")
	}
	if claims.Issuer != "test-issuer" {
		t.Errorf("claims.Issuer = %v, want %v", claims.Issuer, "test-issuer")
	}
}

func TestJWTManager_GenerateAndValidateRefreshToken(t *testing.T) {
	manager := NewJWTManager(testJWTConfig())

	token, err := manager.GenerateRefreshToken("user-456", "bob")
	if err != nil {
		t.Fatalf("GenerateRefreshToken() error = %v", err)
	}
	if token == "" {
		t.Error("GenerateRefreshToken() returned empty token")
	}

	claims, err := manager.ValidateRefreshToken(token)
	if err != nil {
		t.Fatalf("ValidateRefreshToken() error = %v", err)
	}

	if claims.UserID != "user-456" {
		t.Errorf("claims.UserID = %v, want %v", claims.UserID, "user-456")
	}
	if claims.TokenType != "refresh" {
		t.Errorf("claims.TokenType = %v, want %v", claims.TokenType, "refresh")
	}
}

func TestJWTManager_AccessTokenCannotBeUsedAsRefresh(t *testing.T) {
	manager := NewJWTManager(testJWTConfig())

	accessToken, err := manager.GenerateAccessToken("user-123", "alice")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	_, err = manager.ValidateRefreshToken(accessToken)
	if err == nil {
		t.Error("ValidateRefreshToken() should reject access token")
	}
	if err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestJWTManager_RefreshTokenCannotBeUsedAsAccess(t *testing.T) {
	manager := NewJWTManager(testJWTConfig())

	refreshToken, err := manager.GenerateRefreshToken("user-123", "alice")
	if err != nil {
		t.Fatalf("GenerateRefreshToken() error = %v", err)
	}

	_, err = manager.ValidateAccessToken(refreshToken)
	if err == nil {
		t.Error("ValidateAccessToken() should reject refresh token")
	}
	if err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestJWTManager_InvalidToken(t *testing.T) {
	manager := NewJWTManager(testJWTConfig())

	tests := []struct {
		name  string
		token string
	}{
		{
			name:  "empty token",
			token: "",
		},
		{
			name:  "random string",
			token: "not.a.valid.token",
		},
		{
			name:  "malformed jwt",
			token: "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manager.ValidateToken(tt.token)
			if err == nil {
				t.Error("ValidateToken() should return error for invalid token")
			}
		})
	}
}

func TestJWTManager_WrongSecretKey(t *testing.T) {
	config1 := testJWTConfig()
	config2 := testJWTConfig()
	config2.SecretKey = "a-different-secret-key"

	manager1 := NewJWTManager(config1)
	manager2 := NewJWTManager(config2)

	token, err := manager1.GenerateAccessToken("user-123", "alice")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	_, err = manager2.ValidateToken(token)
	if err == nil {
		t.Error("ValidateToken() should fail with different secret key")
	}
}

func TestJWTManager_ExpiredToken(t *testing.T) {
	config := testJWTConfig()
	config.AccessTokenDuration = 1 * time.Millisecond
	manager := NewJWTManager(config)

	token, err := manager.GenerateAccessToken("user-123", "alice")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	_, err = manager.ValidateToken(token)
	if err == nil {
		t.Error("ValidateToken() should fail for expired token")
	}
	if err != ErrExpiredToken {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestJWTManager_AccessTokenDuration(t *testing.T) {
	config := testJWTConfig()
	config.AccessTokenDuration = 30 * time.Minute
	manager := NewJWTManager(config)

	expected := int64(30 * 60)
	if got := manager.AccessTokenDuration(); got != expected {
		t.Errorf("AccessTokenDuration() = %v, want %v", got, expected)
	}
}
