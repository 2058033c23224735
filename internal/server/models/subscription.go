package models

import "time"

// Subscription links a subscriber account to the channel (account) it follows.
type Subscription struct {
	SubscriberID string
	ChannelID    string
	CreatedAt    time.Time
}

// ChannelProfile is the public view of an account as a channel.
type ChannelProfile struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	FullName          string `json:"fullName"`
	Avatar            string `json:"avatar"`
	CoverImage        string `json:"coverImage"`
	SubscribersCount  int64  `json:"subscribersCount"`
	SubscribedToCount int64  `json:"channelsSubscribedToCount"`
	IsSubscribed      bool   `json:"isSubscribed"`
}
