// Package services contains server-side business logic: credential checks,
// session token issuance and rotation, account management and channel
// subscriptions. Every failure returned to callers is a *common.APIError.
package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/chantube/internal/common"
	"github.com/dmitrijs2005/chantube/internal/cryptox"
	"github.com/dmitrijs2005/chantube/internal/logging"
	"github.com/dmitrijs2005/chantube/internal/server/models"
	"github.com/dmitrijs2005/chantube/internal/server/repositories/repomanager"
)

// CredentialVerifier authenticates an identifier/password pair. It never
// writes.
type CredentialVerifier struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewCredentialVerifier(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger) *CredentialVerifier {
	return &CredentialVerifier{db: db, repomanager: m, log: log}
}

// Verify looks the account up by username or email and checks password
// against the stored hash. The returned account has credentials withheld.
func (v *CredentialVerifier) Verify(ctx context.Context, identifier, password string) (*models.Account, error) {
	identifier = common.NormalizeIdentifier(identifier)
	if identifier == "" {
		return nil, common.BadRequest("username or email is required")
	}

	acc, err := v.repomanager.Accounts(v.db).FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound("user does not exist")
		}
		v.log.Error(ctx, "account lookup failed", "error", err)
		return nil, common.Internal("internal server error", err)
	}

	if err := cryptox.ComparePassword(acc.Password, password); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return nil, common.Unauthorized("invalid credentials")
		}
		v.log.Error(ctx, "stored password hash unreadable", "account_id", acc.ID, "error", err)
		return nil, common.Internal("internal server error", err)
	}

	return acc.Public(), nil
}
