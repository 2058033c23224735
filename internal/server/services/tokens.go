package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/chantube/internal/common"
	"github.com/dmitrijs2005/chantube/internal/logging"
	"github.com/dmitrijs2005/chantube/internal/server/auth"
	"github.com/dmitrijs2005/chantube/internal/server/config"
	"github.com/dmitrijs2005/chantube/internal/server/metrics"
	"github.com/dmitrijs2005/chantube/internal/server/models"
	"github.com/dmitrijs2005/chantube/internal/server/repositories/repomanager"
)

const tokenGenerationFailed = "something went wrong while generating tokens"

// TokenIssuer mints access/refresh pairs and rotates refresh tokens. Each
// account holds at most one live refresh token, stored on the account row;
// a presented token is accepted only if it equals the stored one.
type TokenIssuer struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	log                          logging.Logger
	accessSecret                 []byte
	refreshSecret                []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

func NewTokenIssuer(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) *TokenIssuer {
	return &TokenIssuer{
		db:                           db,
		repomanager:                  m,
		log:                          log,
		accessSecret:                 []byte(cfg.AccessTokenSecret),
		refreshSecret:                []byte(cfg.RefreshTokenSecret),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// Mint signs a new pair for accountID and replaces the stored refresh token.
func (s *TokenIssuer) Mint(ctx context.Context, accountID string) (*models.TokenPair, error) {
	repo := s.repomanager.Accounts(s.db)

	acc, err := repo.FindByID(ctx, accountID)
	if err != nil {
		s.log.Error(ctx, "mint: account lookup failed", "account_id", accountID, "error", err)
		return nil, common.Internal(tokenGenerationFailed, err)
	}

	access, err := auth.GenerateAccessToken(auth.AccessPayload{
		AccountID: acc.ID,
		Username:  acc.Username,
		Email:     acc.Email,
		FullName:  acc.FullName,
	}, s.accessSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.Internal(tokenGenerationFailed, err)
	}

	refresh, err := auth.GenerateRefreshToken(acc.ID, s.refreshSecret, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, common.Internal(tokenGenerationFailed, err)
	}

	if err := repo.SetRefreshToken(ctx, acc.ID, refresh); err != nil {
		s.log.Error(ctx, "mint: storing refresh token failed", "account_id", acc.ID, "error", err)
		return nil, common.Internal(tokenGenerationFailed, err)
	}

	return &models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Rotate exchanges a live refresh token for a new pair. The presented token
// is superseded on success.
func (s *TokenIssuer) Rotate(ctx context.Context, presented string) (*models.TokenPair, error) {
	pair, err := s.rotate(ctx, presented)
	metrics.TokenRefreshTotal.WithLabelValues(metrics.Status(err)).Inc()
	return pair, err
}

func (s *TokenIssuer) rotate(ctx context.Context, presented string) (*models.TokenPair, error) {
	if presented == "" {
		return nil, common.Unauthorized("unauthorized request")
	}

	accountID, err := auth.ParseRefreshToken(presented, s.refreshSecret)
	if err != nil {
		return nil, common.Unauthorized("invalid token").WithCause(err)
	}

	acc, err := s.repomanager.Accounts(s.db).FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Unauthorized("invalid token").WithCause(err)
		}
		s.log.Error(ctx, "rotate: account lookup failed", "account_id", accountID, "error", err)
		return nil, common.Internal("internal server error", err)
	}

	if acc.RefreshToken == "" || acc.RefreshToken != presented {
		s.log.Warn(ctx, "refresh token reuse rejected", "account_id", acc.ID)
		return nil, common.Unauthorized("token expired or already used")
	}

	return s.Mint(ctx, acc.ID)
}

// Revoke clears the stored refresh token. Revoking an already cleared or
// missing account is not an error.
func (s *TokenIssuer) Revoke(ctx context.Context, accountID string) error {
	err := s.repomanager.Accounts(s.db).SetRefreshToken(ctx, accountID, "")
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		s.log.Error(ctx, "revoke failed", "account_id", accountID, "error", err)
		return common.Internal("internal server error", err)
	}
	return nil
}
