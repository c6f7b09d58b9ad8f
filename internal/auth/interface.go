package auth

import (
	"context"

	"github.com/zfogg/huddle/internal/dto"
	"github.com/zfogg/huddle/internal/models"
)

// ServiceInterface defines the contract the HTTP layer and the websocket
// endpoint depend on.
type ServiceInterface interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)

	// ParseToken verifies a bearer token and returns the user id it was issued for
	ParseToken(tokenString string) (string, error)
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)
