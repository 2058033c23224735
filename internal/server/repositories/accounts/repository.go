// Package accounts is the account store. Usernames and emails are unique;
// violations come back as common.ErrorConflict and missing rows as
// common.ErrorNotFound.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/chantube/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
	// FindByIdentifier matches identifier against username or email,
	// preferring an email match.
	FindByIdentifier(ctx context.Context, identifier string) (*models.Account, error)
	// FindByUsernameOrEmail matches either value against either column.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.Account, error)
	// SetRefreshToken overwrites the stored token only. An empty token clears it.
	SetRefreshToken(ctx context.Context, id string, token string) error
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	UpdateDetails(ctx context.Context, id string, fullName, email string) (*models.Account, error)
	UpdateAvatar(ctx context.Context, id string, url string) (*models.Account, error)
	UpdateCoverImage(ctx context.Context, id string, url string) (*models.Account, error)
}
