package subscriptions

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/chantube/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, subscriberID, channelID string) error {
	query :=
		`INSERT INTO subscriptions (subscriber_id, channel_id)
		 VALUES ($1, $2)
		 ON CONFLICT (subscriber_id, channel_id) DO NOTHING
		 `
	if _, err := r.db.ExecContext(ctx, query, subscriberID, channelID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, subscriberID, channelID string) error {
	query :=
		`DELETE FROM subscriptions
		 WHERE subscriber_id = $1 AND channel_id = $2
		 `
	if _, err := r.db.ExecContext(ctx, query, subscriberID, channelID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CountSubscribers(ctx context.Context, channelID string) (int64, error) {
	return r.count(ctx, `SELECT count(*) FROM subscriptions WHERE channel_id = $1`, channelID)
}

func (r *PostgresRepository) CountSubscribedTo(ctx context.Context, subscriberID string) (int64, error) {
	return r.count(ctx, `SELECT count(*) FROM subscriptions WHERE subscriber_id = $1`, subscriberID)
}

func (r *PostgresRepository) Exists(ctx context.Context, subscriberID, channelID string) (bool, error) {
	query :=
		`SELECT EXISTS (
			SELECT 1 FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2
		 )`
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, subscriberID, channelID).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *PostgresRepository) count(ctx context.Context, query string, id string) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
