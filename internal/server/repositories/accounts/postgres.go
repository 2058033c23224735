package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/chantube/internal/common"
	"github.com/dmitrijs2005/chantube/internal/dbx"
	"github.com/dmitrijs2005/chantube/internal/server/models"
)

const accountColumns = `id, username, email, full_name, password, avatar, cover_image, refresh_token, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		a            models.Account
		coverImage   sql.NullString
		refreshToken sql.NullString
	)
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.FullName, &a.Password, &a.Avatar,
		&coverImage, &refreshToken, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	a.CoverImage = coverImage.String
	a.RefreshToken = refreshToken.String
	return &a, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (username, email, full_name, password, avatar, cover_image)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		account.Username, account.Email, account.FullName, account.Password,
		account.Avatar, nullable(account.CoverImage),
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`
	return scanAccount(r.db.QueryRowContext(ctx, query, username))
}

func (r *PostgresRepository) FindByIdentifier(ctx context.Context, identifier string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1 OR email = $1 ORDER BY email = $1 DESC LIMIT 1`
	return scanAccount(r.db.QueryRowContext(ctx, query, identifier))
}

func (r *PostgresRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username IN ($1, $2) OR email IN ($1, $2) LIMIT 1`
	return scanAccount(r.db.QueryRowContext(ctx, query, username, email))
}

func (r *PostgresRepository) SetRefreshToken(ctx context.Context, id string, token string) error {
	query :=
		`UPDATE accounts SET refresh_token = $2, updated_at = now()
		 WHERE id = $1
		 `
	return r.execOne(ctx, query, id, nullable(token))
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	query :=
		`UPDATE accounts SET password = $2, updated_at = now()
		 WHERE id = $1
		 `
	return r.execOne(ctx, query, id, passwordHash)
}

func (r *PostgresRepository) UpdateDetails(ctx context.Context, id string, fullName, email string) (*models.Account, error) {
	query :=
		`UPDATE accounts SET full_name = $2, email = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + accountColumns

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, id, fullName, email))
	if err != nil && dbx.IsUniqueViolation(err) {
		return nil, common.ErrorConflict
	}
	return a, err
}

func (r *PostgresRepository) UpdateAvatar(ctx context.Context, id string, url string) (*models.Account, error) {
	query :=
		`UPDATE accounts SET avatar = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + accountColumns
	return scanAccount(r.db.QueryRowContext(ctx, query, id, url))
}

func (r *PostgresRepository) UpdateCoverImage(ctx context.Context, id string, url string) (*models.Account, error) {
	query :=
		`UPDATE accounts SET cover_image = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + accountColumns
	return scanAccount(r.db.QueryRowContext(ctx, query, id, nullable(url)))
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
