package models

// TokenPair bundles a short-lived access token and a long-lived refresh
// token. Only the refresh value is persisted, inline on the Account.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
