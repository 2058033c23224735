package client

import (
	"context"

	"github.com/dmitrijs2005/chantube/internal/client/models"
)

type Client interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.Account, error)
	Login(ctx context.Context, identifier string, password []byte) (*models.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
	CurrentUser(ctx context.Context, accessToken string) (*models.Account, error)
	Ping(ctx context.Context) error
}
