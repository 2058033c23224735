package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotLoggedIn  = errors.New("not logged in")
)

// ServerError is a non-2xx reply carrying the server's message.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 replies.
func (e *ServerError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}
