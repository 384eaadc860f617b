// Package guard attaches the current credential to every outgoing Identity
// API call and turns an authorization failure into a forced logout.
//
// The guard never refreshes tokens. A rejected credential ends the session:
// the store is cleared and the user is sent to the login page of their last
// role, once per rejected credential however many calls fail with it.
package guard

import (
	"context"
	"sync"

	"github.com/catermarket/caterauth/internal/client/models"
	"github.com/catermarket/caterauth/internal/logging"
)

// DefaultLoginRoute is used for roles without a configured login route.
const DefaultLoginRoute = "/login"

// AdminLoginRoute is where a rejected admin session is sent. Admins have no
// self-service flow in this client, but their sessions share the backends.
const AdminLoginRoute = "/admin/login"

// Store is the part of the credential store the guard needs.
type Store interface {
	Read() (string, bool)
	Role() models.Role
	Clear(ctx context.Context)
}

type Navigator interface {
	Navigate(ctx context.Context, route string)
}

type NavigatorFunc func(ctx context.Context, route string)

func (f NavigatorFunc) Navigate(ctx context.Context, route string) { f(ctx, route) }

type Option func(*Guard)

func WithLoginRoute(role models.Role, route string) Option {
	return func(g *Guard) { g.routes[role] = route }
}

func WithLogger(l logging.Logger) Option {
	return func(g *Guard) { g.logger = l }
}

type Guard struct {
	store  Store
	nav    Navigator
	routes map[models.Role]string
	logger logging.Logger

	mu sync.Mutex
}

func New(store Store, nav Navigator, opts ...Option) *Guard {
	g := &Guard{
		store:  store,
		nav:    nav,
		routes: make(map[models.Role]string),
		logger: logging.Discard(),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// LoginRoute is where a user of role is sent after a forced logout.
func (g *Guard) LoginRoute(role models.Role) string {
	if r, ok := g.routes[role]; ok {
		return r
	}
	return DefaultLoginRoute
}

// HandleUnauthorized reacts to a call rejected while carrying tokenUsed. It
// clears the session and navigates only when tokenUsed is still the current
// credential, and reports whether it did.
func (g *Guard) HandleUnauthorized(ctx context.Context, tokenUsed string) bool {
	if tokenUsed == "" {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	current, ok := g.store.Read()
	if !ok || current != tokenUsed {
		return false
	}

	role := g.store.Role()
	g.logger.Warn(ctx, "credential rejected, ending session", "role", role)
	g.store.Clear(ctx)
	g.nav.Navigate(ctx, g.LoginRoute(role))
	return true
}
