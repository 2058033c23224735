// Package models defines the client-side view of API payloads.
package models

import "time"

// Account is the public account profile returned by the API.
type Account struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullName"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"coverImage"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TokenPair is an access/refresh token pair issued on login or refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LoginResult is the payload of a successful login.
type LoginResult struct {
	User         *Account `json:"user"`
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
}

// Tokens returns the pair carried by r.
func (r *LoginResult) Tokens() TokenPair {
	return TokenPair{AccessToken: r.AccessToken, RefreshToken: r.RefreshToken}
}

// RegisterRequest carries the registration form. AvatarPath is required by
// the server; CoverImagePath is optional.
type RegisterRequest struct {
	FullName       string
	Email          string
	Username       string
	Password       []byte
	AvatarPath     string
	CoverImagePath string
}
