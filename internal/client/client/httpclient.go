package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/chantube/internal/client/models"
	"github.com/dmitrijs2005/chantube/internal/common"
	"github.com/dmitrijs2005/chantube/internal/netx"
)

const apiPrefix = "/api/v1/users"

// HTTPClient talks to the account API. It is safe for concurrent use.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient returns a client for the API rooted at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader, contentType, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if accessToken != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		if resp.StatusCode >= 400 {
			return &ServerError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 400 {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &ServerError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

func (c *HTTPClient) postJSON(ctx context.Context, path string, in any, accessToken string, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(b), "application/json", accessToken, out)
}

func (c *HTTPClient) Register(ctx context.Context, r *models.RegisterRequest) (*models.Account, error) {
	body, contentType, err := netx.MultipartBody(
		map[string]string{
			"fullName": r.FullName,
			"email":    r.Email,
			"username": r.Username,
			"password": string(r.Password),
		},
		map[string]string{
			"avatar":     r.AvatarPath,
			"coverImage": r.CoverImagePath,
		},
	)
	if err != nil {
		return nil, err
	}

	var acc models.Account
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/register", body, contentType, "", &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

// Login sends identifier as the email when it contains '@', otherwise as the
// username.
func (c *HTTPClient) Login(ctx context.Context, identifier string, password []byte) (*models.LoginResult, error) {
	in := map[string]string{"password": string(password)}
	if strings.Contains(identifier, "@") {
		in["email"] = identifier
	} else {
		in["username"] = identifier
	}

	var res models.LoginResult
	if err := c.postJSON(ctx, apiPrefix+"/login", in, "", &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	var pair models.TokenPair
	in := map[string]string{"refreshToken": refreshToken}
	if err := c.postJSON(ctx, apiPrefix+"/refresh-token", in, "", &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

func (c *HTTPClient) Logout(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, apiPrefix+"/logout", nil, "", accessToken, nil)
}

func (c *HTTPClient) CurrentUser(ctx context.Context, accessToken string) (*models.Account, error) {
	var acc models.Account
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/current-user", nil, "", accessToken, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, "", "", nil)
}
