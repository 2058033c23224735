// Package cryptox wraps the password hashing primitive used for account
// credentials.
package cryptox

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch is returned when a plaintext does not match a hash.
var ErrPasswordMismatch = errors.New("password mismatch")

// ErrPasswordTooLong is returned for passwords over MaxPasswordLength bytes.
var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

// MaxPasswordLength is the longest password bcrypt accepts, in bytes.
const MaxPasswordLength = 72

// DefaultCost is the bcrypt work factor used for new hashes.
const DefaultCost = bcrypt.DefaultCost

// HashPassword returns a salted bcrypt hash of password.
func HashPassword(password string) (string, error) {
	return HashPasswordWithCost(password, DefaultCost)
}

// HashPasswordWithCost is HashPassword with an explicit work factor. Tests use
// bcrypt.MinCost to stay fast.
func HashPasswordWithCost(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ComparePassword checks password against hash. A mismatch yields
// ErrPasswordMismatch; malformed hashes yield the underlying bcrypt error.
func ComparePassword(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}
