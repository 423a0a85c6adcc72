// Package auth is the process-wide session gate. It is built once at start
// up; handlers only ask it who the caller is.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/fleetstock/internal/domain/models"
	"github.com/mamadbah2/fleetstock/internal/events"
	"github.com/mamadbah2/fleetstock/pkg/clients/identity"
)

const (
	minPasswordLength = 6
	lookupTTL         = 10 * time.Minute
	// tokenLifetime is the longest an identity token stays valid at the
	// provider; a revocation must outlive it.
	tokenLifetime = time.Hour
)

// StateChange is delivered to subscribers on every sign-in and sign-out.
type StateChange struct {
	User     models.User `json:"user"`
	SignedIn bool        `json:"signedIn"`
}

// Gate signs users in and out and resolves tokens to users.
type Gate struct {
	provider  identity.Client
	store     SessionStore
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time

	mu     sync.RWMutex
	subs   map[int]func(StateChange)
	nextID int
}

// NewGate wires the gate.
func NewGate(provider identity.Client, store SessionStore, publisher events.Publisher, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	if store == nil {
		store = NewMemoryStore()
	}
	return &Gate{
		provider:  provider,
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		subs:      make(map[int]func(StateChange)),
	}
}

// SignIn authenticates with email and password.
func (g *Gate) SignIn(ctx context.Context, creds models.Credentials) (models.Session, error) {
	if err := validateCredentials(creds); err != nil {
		return models.Session{}, err
	}
	resp, err := g.provider.SignIn(ctx, strings.TrimSpace(creds.Email), creds.Password)
	if err != nil {
		return models.Session{}, mapProviderError(err)
	}
	return g.open(ctx, resp)
}

// SignUp creates an account and signs it in.
func (g *Gate) SignUp(ctx context.Context, creds models.Credentials) (models.Session, error) {
	if err := validateCredentials(creds); err != nil {
		return models.Session{}, err
	}
	resp, err := g.provider.SignUp(ctx, strings.TrimSpace(creds.Email), creds.Password)
	if err != nil {
		return models.Session{}, mapProviderError(err)
	}
	return g.open(ctx, resp)
}

// SignOut forgets the session and revokes the token, so a later provider
// lookup cannot bring it back. Unknown tokens are not an error.
func (g *Gate) SignOut(ctx context.Context, token string) error {
	session, ok, err := g.store.Get(ctx, token)
	if err != nil {
		return err
	}
	if token != "" {
		until := g.now().Add(tokenLifetime)
		if session.ExpiresAt.After(until) {
			until = session.ExpiresAt
		}
		if err := g.store.Revoke(ctx, token, until); err != nil {
			return err
		}
	}
	if err := g.store.Delete(ctx, token); err != nil {
		return err
	}
	if ok {
		g.logger.Info("user signed out", zap.String("email", session.User.Email))
		g.notify(ctx, StateChange{User: session.User, SignedIn: false})
	}
	return nil
}

// Authenticate resolves a token to its user, asking the provider when the
// token is not cached.
func (g *Gate) Authenticate(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, fmt.Errorf("%w: missing token", models.ErrUnauthorized)
	}

	revoked, err := g.store.Revoked(ctx, token)
	if err != nil {
		return models.User{}, fmt.Errorf("check token revocation: %w", err)
	}
	if revoked {
		return models.User{}, fmt.Errorf("%w: signed out", models.ErrUnauthorized)
	}

	session, ok, err := g.store.Get(ctx, token)
	if err != nil {
		g.logger.Warn("session store lookup failed", zap.Error(err))
	}
	if ok {
		if !session.Expired(g.now()) {
			return session.User, nil
		}
		_ = g.store.Delete(ctx, token)
		return models.User{}, fmt.Errorf("%w: session expired", models.ErrUnauthorized)
	}

	acct, err := g.provider.Lookup(ctx, token)
	if err != nil {
		return models.User{}, mapProviderError(err)
	}

	user := models.User{ID: acct.LocalID, Email: acct.Email}
	if err := g.store.Save(ctx, models.Session{Token: token, User: user, ExpiresAt: g.now().Add(lookupTTL)}); err != nil {
		g.logger.Warn("failed to cache session", zap.Error(err))
	}
	return user, nil
}

// Subscribe registers fn for auth state changes and returns its cancel func.
func (g *Gate) Subscribe(fn func(StateChange)) func() {
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.subs[id] = fn
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		delete(g.subs, id)
		g.mu.Unlock()
	}
}

func (g *Gate) open(ctx context.Context, resp *identity.AuthResponse) (models.Session, error) {
	session := models.Session{
		Token:     resp.IDToken,
		User:      models.User{ID: resp.LocalID, Email: resp.Email},
		ExpiresAt: g.now().Add(resp.TTL()),
	}
	if err := g.store.Save(ctx, session); err != nil {
		return models.Session{}, fmt.Errorf("save session: %w", err)
	}

	g.logger.Info("user signed in", zap.String("email", session.User.Email))
	g.notify(ctx, StateChange{User: session.User, SignedIn: true})
	return session, nil
}

func (g *Gate) notify(ctx context.Context, change StateChange) {
	g.mu.RLock()
	subs := make([]func(StateChange), 0, len(g.subs))
	for _, fn := range g.subs {
		subs = append(subs, fn)
	}
	g.mu.RUnlock()

	for _, fn := range subs {
		fn(change)
	}

	t := events.SignedOut
	if change.SignedIn {
		t = events.SignedIn
	}
	if err := g.publisher.Publish(ctx, events.New(t, change.User)); err != nil {
		g.logger.Warn("auth change not published", zap.Error(err))
	}
}

func validateCredentials(creds models.Credentials) error {
	email := strings.TrimSpace(creds.Email)
	if email == "" || creds.Password == "" {
		return models.NewValidationError("email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return models.NewValidationError("email address is malformed")
	}
	if len(creds.Password) < minPasswordLength {
		return models.NewValidationError(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	return nil
}

func mapProviderError(err error) error {
	if errors.Is(err, identity.ErrNoAccount) {
		return fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}

	var apiErr *identity.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	switch apiErr.Code() {
	case "EMAIL_EXISTS":
		return models.NewValidationError("an account with this email already exists")
	case "WEAK_PASSWORD", "INVALID_EMAIL", "MISSING_PASSWORD", "MISSING_EMAIL":
		return models.NewValidationError(strings.ToLower(apiErr.Code()))
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED",
		"INVALID_ID_TOKEN", "TOKEN_EXPIRED", "USER_NOT_FOUND":
		return fmt.Errorf("%w: %s", models.ErrUnauthorized, apiErr.Code())
	default:
		return err
	}
}
