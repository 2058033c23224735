package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/chantube/internal/common"
	"github.com/dmitrijs2005/chantube/internal/logging"
	"github.com/dmitrijs2005/chantube/internal/server/models"
	"github.com/dmitrijs2005/chantube/internal/server/repositories/repomanager"
)

// ChannelService manages subscriptions between accounts. Every account is
// also a channel, addressed by its username.
type ChannelService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewChannelService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger) *ChannelService {
	return &ChannelService{db: db, repomanager: m, log: log}
}

func (s *ChannelService) channel(ctx context.Context, username string) (*models.Account, error) {
	username = common.NormalizeIdentifier(username)
	if username == "" {
		return nil, common.BadRequest("username is missing")
	}
	acc, err := s.repomanager.Accounts(s.db).FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound("channel does not exist")
		}
		s.log.Error(ctx, "channel lookup failed", "username", username, "error", err)
		return nil, common.Internal("internal server error", err)
	}
	return acc, nil
}

// Subscribe is idempotent.
func (s *ChannelService) Subscribe(ctx context.Context, subscriberID, channelUsername string) error {
	ch, err := s.channel(ctx, channelUsername)
	if err != nil {
		return err
	}
	if ch.ID == subscriberID {
		return common.BadRequest("cannot subscribe to your own channel")
	}
	if err := s.repomanager.Subscriptions(s.db).Create(ctx, subscriberID, ch.ID); err != nil {
		s.log.Error(ctx, "subscribe failed", "channel_id", ch.ID, "error", err)
		return common.Internal("internal server error", err)
	}
	return nil
}

func (s *ChannelService) Unsubscribe(ctx context.Context, subscriberID, channelUsername string) error {
	ch, err := s.channel(ctx, channelUsername)
	if err != nil {
		return err
	}
	if err := s.repomanager.Subscriptions(s.db).Delete(ctx, subscriberID, ch.ID); err != nil {
		s.log.Error(ctx, "unsubscribe failed", "channel_id", ch.ID, "error", err)
		return common.Internal("internal server error", err)
	}
	return nil
}

// Profile builds the channel page for viewerID. An empty viewerID is an
// anonymous viewer.
func (s *ChannelService) Profile(ctx context.Context, viewerID, channelUsername string) (*models.ChannelProfile, error) {
	ch, err := s.channel(ctx, channelUsername)
	if err != nil {
		return nil, err
	}

	subs := s.repomanager.Subscriptions(s.db)
	p := &models.ChannelProfile{
		ID:         ch.ID,
		Username:   ch.Username,
		FullName:   ch.FullName,
		Avatar:     ch.Avatar,
		CoverImage: ch.CoverImage,
	}

	if p.SubscribersCount, err = subs.CountSubscribers(ctx, ch.ID); err != nil {
		return nil, common.Internal("internal server error", err)
	}
	if p.SubscribedToCount, err = subs.CountSubscribedTo(ctx, ch.ID); err != nil {
		return nil, common.Internal("internal server error", err)
	}
	if viewerID != "" {
		if p.IsSubscribed, err = subs.Exists(ctx, viewerID, ch.ID); err != nil {
			return nil, common.Internal("internal server error", err)
		}
	}
	return p, nil
}
