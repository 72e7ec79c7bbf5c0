package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	auditdomain "github.com/example/taskboard/domain/audit"
	domain "github.com/example/taskboard/domain/user"
	"github.com/example/taskboard/modules/audit"
)

// Module provides the identity provider and the read-only user directory.
type Module struct {
	db        *gorm.DB
	service   *Service
	auditPort audit.AuditPort
	dbPath    string
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.ServiceProviderModule = (*Module)(nil)
var _ mono.DependentModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new auth Module.
func NewModule() *Module {
	dbPath := os.Getenv("TASKBOARD_DB_PATH")
	if dbPath == "" {
		dbPath = "taskboard.db"
	}
	return &Module{dbPath: dbPath}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "auth"
}

// Dependencies returns the list of module dependencies.
func (m *Module) Dependencies() []string {
	return []string{"audit"}
}

// SetDependencyServiceContainer receives dependency service containers.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "audit" {
		m.auditPort = audit.NewAuditAdapter(container)
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	services := map[string]func() error{
		"register": func() error {
			return helper.RegisterTypedRequestReplyService(
				container, "register", json.Unmarshal, json.Marshal, m.register,
			)
		},
		"login": func() error {
			return helper.RegisterTypedRequestReplyService(
				container, "login", json.Unmarshal, json.Marshal, m.login,
			)
		},
		"refresh-token": func() error {
			return helper.RegisterTypedRequestReplyService(
				container, "refresh-token", json.Unmarshal, json.Marshal, m.refresh,
			)
		},
		"validate-token": func() error {
			return helper.RegisterTypedRequestReplyService(
				container, "validate-token", json.Unmarshal, json.Marshal, m.validateToken,
			)
		},
		"get-user": func() error {
			return helper.RegisterTypedRequestReplyService(
				container, "get-user", json.Unmarshal, json.Marshal, m.getUser,
			)
		},
		"list-users": func() error {
			return helper.RegisterTypedRequestReplyService(
				container, "list-users", json.Unmarshal, json.Marshal, m.listUsers,
			)
		},
	}

	for name, register := range services {
		if err := register(); err != nil {
			return fmt.Errorf("failed to register %s service: %w", name, err)
		}
	}

	log.Printf("[auth] Registered services: register, login, refresh-token, validate-token, get-user, list-users")
	return nil
}

// register handles the register service request.
func (m *Module) register(ctx context.Context, req RegisterRequest, _ *mono.Msg) (RegisterResponse, error) {
	user, tokens, err := m.service.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		return RegisterResponse{}, err
	}

	// Registration is a committed mutation; record it. Best-effort only:
	// the account already exists, so a log failure must not undo it.
	if m.auditPort != nil {
		if err := m.auditPort.Record(ctx, user.ID, auditdomain.ActionCreate, auditdomain.ResourceUser, user.ID,
			user.CreatedAt, auditdomain.Details{"username": user.Username, "email": user.Email},
		); err != nil {
			log.Printf("[auth] Warning: failed to record registration for user %s: %v", user.ID, err)
		}
	}

	return RegisterResponse{
		User:   toUserInfo(user),
		Tokens: toTokens(tokens),
	}, nil
}

// login handles the login service request.
func (m *Module) login(ctx context.Context, req LoginRequest, _ *mono.Msg) (LoginResponse, error) {
	user, tokens, err := m.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		return LoginResponse{}, err
	}
	return LoginResponse{
		User:   toUserInfo(user),
		Tokens: toTokens(tokens),
	}, nil
}

// refresh handles the refresh-token service request.
func (m *Module) refresh(ctx context.Context, req RefreshRequest, _ *mono.Msg) (RefreshResponse, error) {
	tokens, err := m.service.RefreshTokens(ctx, req.RefreshToken)
	if err != nil {
		return RefreshResponse{}, err
	}
	return RefreshResponse{Tokens: toTokens(tokens)}, nil
}

// validateToken handles the validate-token service request.
func (m *Module) validateToken(ctx context.Context, req ValidateTokenRequest, _ *mono.Msg) (ValidateTokenResponse, error) {
	claims, err := m.service.ValidateToken(ctx, req.Token)
	if err != nil {
		return ValidateTokenResponse{Valid: false, Error: err.Error()}, nil
	}
	return ValidateTokenResponse{
		Valid:    true,
		UserID:   claims.UserID,
		Username: claims.Username,
	}, nil
}

// getUser handles the get-user service request.
func (m *Module) getUser(ctx context.Context, req GetUserRequest, _ *mono.Msg) (GetUserResponse, error) {
	user, err := m.service.GetUser(ctx, req.UserID)
	if err != nil {
		return GetUserResponse{Found: false}, nil
	}
	info := toUserInfo(user)
	return GetUserResponse{User: &info, Found: true}, nil
}

// listUsers handles the list-users service request.
func (m *Module) listUsers(ctx context.Context, _ ListUsersRequest, _ *mono.Msg) (ListUsersResponse, error) {
	users, err := m.service.ListUsers(ctx)
	if err != nil {
		return ListUsersResponse{}, err
	}
	resp := ListUsersResponse{
		Users: make([]UserInfo, 0, len(users)),
		Total: len(users),
	}
	for _, u := range users {
		resp.Users = append(resp.Users, toUserInfo(u))
	}
	return resp, nil
}

// Start opens the database, runs migrations and wires the service.
func (m *Module) Start(_ context.Context) error {
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "true" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := db.AutoMigrate(&domain.User{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	repo := NewUserRepository(db)
	hasher := NewPasswordHasher()
	jwtManager := NewJWTManager(LoadJWTConfig())
	m.service = NewService(repo, hasher, jwtManager)

	log.Printf("[auth] Module started (database: %s)", m.dbPath)
	return nil
}

// Stop closes the database connection.
func (m *Module) Stop(_ context.Context) error {
	if m.db != nil {
		sqlDB, err := m.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
	log.Println("[auth] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{Healthy: false, Message: "database not initialized"}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("failed to get database connection: %v", err)}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("database ping failed: %v", err)}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{"database": m.dbPath},
	}
}

func toUserInfo(u *domain.User) UserInfo {
	return UserInfo{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

func toTokens(t *domain.TokenPair) Tokens {
	return Tokens{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresIn:    t.ExpiresIn,
		TokenType:    t.TokenType,
	}
}
