package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	domain "github.com/example/taskboard/domain/user"
)

// UserPort defines the interface other modules use to reach the identity
// provider and the user directory. Directory reads are strictly read-only.
type UserPort interface {
	ValidateToken(ctx context.Context, token string) (*domain.Claims, error)
	GetUser(ctx context.Context, userID string) (*UserInfo, error)
	ListUsers(ctx context.Context) ([]UserInfo, error)
}

// userAdapter wraps ServiceContainer for type-safe cross-module communication.
type userAdapter struct {
	container mono.ServiceContainer
}

// NewUserAdapter creates a new adapter for auth services.
// container is the ServiceContainer from the auth module received via
// SetDependencyServiceContainer.
func NewUserAdapter(container mono.ServiceContainer) UserPort {
	if container == nil {
		panic("auth adapter requires non-nil ServiceContainer")
	}
	return &userAdapter{container: container}
}

// ValidateToken verifies an access token via the validate-token service.
func (a *userAdapter) ValidateToken(ctx context.Context, token string) (*domain.Claims, error) {
	req := ValidateTokenRequest{Token: token}
	var resp ValidateTokenResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"validate-token",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("validate-token service call failed: %w", err)
	}
	if !resp.Valid {
		return nil, errors.New(resp.Error)
	}
	return &domain.Claims{UserID: resp.UserID, Username: resp.Username}, nil
}

// GetUser retrieves one user via the get-user service.
func (a *userAdapter) GetUser(ctx context.Context, userID string) (*UserInfo, error) {
	req := GetUserRequest{UserID: userID}
	var resp GetUserResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"get-user",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("get-user service call failed: %w", err)
	}
	if !resp.Found {
		return nil, ErrUserNotFound
	}
	return resp.User, nil
}

// ListUsers retrieves the full population via the list-users service.
// Results come back in ascending id order.
func (a *userAdapter) ListUsers(ctx context.Context) ([]UserInfo, error) {
	req := ListUsersRequest{}
	var resp ListUsersResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"list-users",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("list-users service call failed: %w", err)
	}
	return resp.Users, nil
}
