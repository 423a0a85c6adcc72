package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/fleetstock/internal/config"
)

// Client exposes the email/password operations of an Identity Toolkit
// compatible provider.
type Client interface {
	SignIn(ctx context.Context, email, password string) (*AuthResponse, error)
	SignUp(ctx context.Context, email, password string) (*AuthResponse, error)
	Lookup(ctx context.Context, idToken string) (*Account, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
}

// NewClient builds an identity client from configuration.
func NewClient(cfg config.IdentityConfig) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetQueryParam("key", cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	return &APIClient{httpClient: restyClient}
}

// AuthResponse is returned by sign-in and sign-up.
type AuthResponse struct {
	IDToken      string `json:"idToken"`
	Email        string `json:"email"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
}

// TTL parses ExpiresIn (seconds), defaulting to one hour.
func (r AuthResponse) TTL() time.Duration {
	secs, err := strconv.Atoi(r.ExpiresIn)
	if err != nil || secs <= 0 {
		return time.Hour
	}
	return time.Duration(secs) * time.Second
}

// Account is one user record from accounts:lookup.
type Account struct {
	LocalID string `json:"localId"`
	Email   string `json:"email"`
}

type lookupResponse struct {
	Users []Account `json:"users"`
}

// APIError is the provider's error payload. Message carries codes such as
// EMAIL_NOT_FOUND or INVALID_PASSWORD.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("identity api error: code=%d, message=%s", e.Status, e.Message)
}

// Code returns the leading provider code, without the optional " : detail" suffix.
func (e *APIError) Code() string {
	code, _, _ := strings.Cut(e.Message, " ")
	return code
}

type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ErrNoAccount is returned by Lookup when the token resolves to no user.
var ErrNoAccount = errors.New("identity token matched no account")

// SignIn exchanges email and password for an id token.
func (c *APIClient) SignIn(ctx context.Context, email, password string) (*AuthResponse, error) {
	return c.authenticate(ctx, "/accounts:signInWithPassword", email, password)
}

// SignUp creates the account and returns its first id token.
func (c *APIClient) SignUp(ctx context.Context, email, password string) (*AuthResponse, error) {
	return c.authenticate(ctx, "/accounts:signUp", email, password)
}

// Lookup resolves an id token to its account.
func (c *APIClient) Lookup(ctx context.Context, idToken string) (*Account, error) {
	result := new(lookupResponse)
	if err := c.post(ctx, "/accounts:lookup", map[string]any{"idToken": idToken}, result); err != nil {
		return nil, err
	}
	if len(result.Users) == 0 {
		return nil, ErrNoAccount
	}
	return &result.Users[0], nil
}

func (c *APIClient) authenticate(ctx context.Context, path, email, password string) (*AuthResponse, error) {
	payload := map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}

	result := new(AuthResponse)
	if err := c.post(ctx, path, payload, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *APIClient) post(ctx context.Context, path string, payload, result any) error {
	apiErr := new(apiErrorBody)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(result).
		SetError(apiErr).
		Post(path)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return &APIError{Status: resp.StatusCode(), Message: apiErr.Error.Message}
	}
	return nil
}
