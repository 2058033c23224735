package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/chantube/internal/dbx"
	"github.com/dmitrijs2005/chantube/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/chantube/internal/server/repositories/subscriptions"
)

// RepositoryManager hands out repositories bound to a *sql.DB or *sql.Tx so
// services can compose them inside dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Subscriptions(db dbx.DBTX) subscriptions.Repository
}
