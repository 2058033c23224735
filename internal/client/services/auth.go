// Package services contains application services for the chantube CLI.
// This file defines the authentication service: register, login, token
// refresh, logout and the "who am I" lookup, with the session token pair
// held in memory for the lifetime of the process.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/chantube/internal/client/client"
	"github.com/dmitrijs2005/chantube/internal/client/models"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Register: create an account; does not log in.
//   - Login: authenticate and keep the returned token pair.
//   - Refresh: rotate the held pair using the refresh token.
//   - Logout: revoke server-side and forget the pair.
//   - WhoAmI: fetch the current account, refreshing once on 401.
//   - Ping: check server liveness.
type AuthService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.Account, error)
	Login(ctx context.Context, identifier string, password []byte) (*models.Account, error)
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) (*models.Account, error)
	Ping(ctx context.Context) error
	LoggedIn() bool
}

type authService struct {
	client client.Client

	mu     sync.Mutex
	tokens *models.TokenPair
	user   *models.Account
}

// NewAuthService constructs an AuthService bound to the given API client.
func NewAuthService(c client.Client) AuthService {
	return &authService{client: c}
}

func (a *authService) session() (*models.TokenPair, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.tokens == nil {
		return nil, client.ErrNotLoggedIn
	}
	t := *a.tokens
	return &t, nil
}

func (a *authService) setSession(t *models.TokenPair, u *models.Account) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tokens = t
	if u != nil {
		a.user = u
	}
}

func (a *authService) clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tokens = nil
	a.user = nil
}

func (a *authService) LoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tokens != nil
}

func (a *authService) Register(ctx context.Context, req *models.RegisterRequest) (*models.Account, error) {
	acc, err := a.client.Register(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("register error: %w", err)
	}
	return acc, nil
}

func (a *authService) Login(ctx context.Context, identifier string, password []byte) (*models.Account, error) {
	res, err := a.client.Login(ctx, identifier, password)
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}
	tokens := res.Tokens()
	a.setSession(&tokens, res.User)
	return res.User, nil
}

// Refresh replaces the held pair. A rejected refresh token ends the session.
func (a *authService) Refresh(ctx context.Context) error {
	t, err := a.session()
	if err != nil {
		return err
	}

	pair, err := a.client.Refresh(ctx, t.RefreshToken)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			a.clear()
		}
		return fmt.Errorf("refresh error: %w", err)
	}
	a.setSession(pair, nil)
	return nil
}

// Logout forgets the session even when the server call fails.
func (a *authService) Logout(ctx context.Context) error {
	t, err := a.session()
	if err != nil {
		return err
	}
	defer a.clear()

	if err := a.client.Logout(ctx, t.AccessToken); err != nil {
		return fmt.Errorf("logout error: %w", err)
	}
	return nil
}

func (a *authService) WhoAmI(ctx context.Context) (*models.Account, error) {
	t, err := a.session()
	if err != nil {
		return nil, err
	}

	acc, err := a.client.CurrentUser(ctx, t.AccessToken)
	if errors.Is(err, client.ErrUnauthorized) {
		if rerr := a.Refresh(ctx); rerr != nil {
			return nil, rerr
		}
		t, err = a.session()
		if err != nil {
			return nil, err
		}
		acc, err = a.client.CurrentUser(ctx, t.AccessToken)
	}
	if err != nil {
		return nil, fmt.Errorf("current user error: %w", err)
	}

	a.setSession(t, acc)
	return acc, nil
}

// Ping proxies a liveness check to the underlying client.
func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}
