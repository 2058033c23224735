// Package models defines server-side data models persisted in the database.
package models

import "time"

// Account is one registered user. Password holds the bcrypt hash and
// RefreshToken the single live refresh token; neither is ever serialized.
type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	Password     string    `json:"-"`
	Avatar       string    `json:"avatar"`
	CoverImage   string    `json:"coverImage"`
	RefreshToken string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Public returns a copy with the credential fields withheld.
func (a *Account) Public() *Account {
	if a == nil {
		return nil
	}
	p := *a
	p.Password = ""
	p.RefreshToken = ""
	return &p
}
