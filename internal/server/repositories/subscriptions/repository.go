// Package subscriptions stores subscriber to channel links. A channel is an
// account, so both sides are account ids.
package subscriptions

import "context"

type Repository interface {
	// Create is idempotent: an existing link is left as is.
	Create(ctx context.Context, subscriberID, channelID string) error
	Delete(ctx context.Context, subscriberID, channelID string) error
	CountSubscribers(ctx context.Context, channelID string) (int64, error)
	CountSubscribedTo(ctx context.Context, subscriberID string) (int64, error)
	Exists(ctx context.Context, subscriberID, channelID string) (bool, error)
}
