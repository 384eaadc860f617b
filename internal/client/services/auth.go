// Package services contains the session-level operations of the caterauth
// client that are not part of a multi-step flow: password login, logout
// and refreshing the cached principal.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/catermarket/caterauth/internal/client/credentials"
	"github.com/catermarket/caterauth/internal/client/flows"
	"github.com/catermarket/caterauth/internal/client/identity"
	"github.com/catermarket/caterauth/internal/client/models"
	"github.com/catermarket/caterauth/internal/logging"
)

var ErrUnsupportedRole = errors.New("role cannot log in from this client")

const loginFallback = "We couldn't log you in. Please try again."

// AuthService defines session operations for the CLI.
//
// Contract:
//   - Login: validate, authenticate for role, commit the session.
//   - Logout: tell the server when possible, then always clear locally.
//   - RefreshPrincipal: replace the cached principal with the server's view.
//
// Failures that reach the user are returned as *flows.Error.
type AuthService interface {
	Login(ctx context.Context, role models.Role, identifier, password string) error
	Logout(ctx context.Context) error
	RefreshPrincipal(ctx context.Context) (*models.Principal, error)
	IsAuthenticated() bool
	Principal() *models.Principal
	Role() models.Role
	Close() error
}

// Store is the part of the credential store AuthService uses.
type Store interface {
	Begin() credentials.Ticket
	Commit(ctx context.Context, t credentials.Ticket, sess *models.Session) error
	Clear(ctx context.Context)
	Session() *models.Session
	Principal() *models.Principal
	Role() models.Role
	IsAuthenticated() bool
	UpdatePrincipal(ctx context.Context, p *models.Principal) error
}

type authService struct {
	api    identity.Client
	store  Store
	logger logging.Logger
}

// NewAuthService binds the Identity API client to the credential store.
func NewAuthService(api identity.Client, store Store, logger logging.Logger) AuthService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &authService{api: api, store: store, logger: logger}
}

// Login authenticates and commits the returned session. The ticket is taken
// before the call so a logout that lands meanwhile wins.
func (a *authService) Login(ctx context.Context, role models.Role, identifier, password string) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedRole, role)
	}
	if verr := flows.ValidateLogin(identifier, password); verr != nil {
		return verr
	}

	ticket := a.store.Begin()
	tokens, err := a.api.Login(ctx, role, identity.LoginRequest{Identifier: identifier, Password: password})
	if err != nil {
		return flows.Classify(err, loginFallback, false)
	}

	if err := a.store.Commit(ctx, ticket, tokens.Session(role)); err != nil {
		a.logger.Error(ctx, "session commit failed", "error", err)
		return &flows.Error{Kind: flows.KindUnknown, Message: "We couldn't save your session. Please try again.", Err: err}
	}
	a.logger.Info(ctx, "logged in", "role", string(role))
	return nil
}

// Logout ends the session. The server call is best effort; local
// credentials are cleared regardless of its outcome.
func (a *authService) Logout(ctx context.Context) error {
	sess := a.store.Session()
	if sess == nil {
		a.store.Clear(ctx)
		return nil
	}

	err := a.api.Logout(ctx, sess.Role, identity.LogoutRequest{RefreshToken: sess.RefreshToken})
	if err != nil {
		a.logger.Warn(ctx, "server logout failed", "error", err)
	}
	a.store.Clear(ctx)
	a.logger.Info(ctx, "logged out", "role", string(sess.Role))
	return nil
}

func (a *authService) RefreshPrincipal(ctx context.Context) (*models.Principal, error) {
	if !a.store.IsAuthenticated() {
		return nil, credentials.ErrNoSession
	}
	p, err := a.api.Me(ctx)
	if err != nil {
		return nil, flows.Classify(err, "We couldn't load your profile.", false)
	}
	if err := a.store.UpdatePrincipal(ctx, p); err != nil {
		return nil, fmt.Errorf("update principal: %w", err)
	}
	return p, nil
}

func (a *authService) IsAuthenticated() bool { return a.store.IsAuthenticated() }

func (a *authService) Principal() *models.Principal { return a.store.Principal() }

func (a *authService) Role() models.Role { return a.store.Role() }

func (a *authService) Close() error { return a.api.Close() }
