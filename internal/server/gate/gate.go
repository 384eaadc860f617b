// Package gate is the server-side request middleware that consumes the
// session cookies written by the client credential store. It keeps visitors
// without a session out of protected areas and keeps signed-in visitors
// away from the login and signup pages.
package gate

import (
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/catermarket/caterauth/internal/common"
	"github.com/catermarket/caterauth/internal/logging"
)

// Rule describes the protected area of one role.
type Rule struct {
	Role       string
	Prefix     string
	LoginRoute string
	HomeRoute  string
	// AuthPages are reachable without a session; signed-in visitors are sent
	// home instead.
	AuthPages []string
}

func authPages(role string) []string {
	base := "/" + role
	return []string{
		base + "/login",
		base + "/signup",
		base + "/verify-otp",
		base + "/forgot-password",
		base + "/reset-password",
	}
}

// DefaultRules protects /customer, /vendor and /admin.
func DefaultRules() []Rule {
	return []Rule{
		{Role: "customer", Prefix: "/customer", LoginRoute: "/customer/login", HomeRoute: "/", AuthPages: authPages("customer")},
		{Role: "vendor", Prefix: "/vendor", LoginRoute: "/vendor/login", HomeRoute: "/vendor/business-registration", AuthPages: authPages("vendor")},
		{Role: "admin", Prefix: "/admin", LoginRoute: "/admin/login", HomeRoute: "/admin", AuthPages: []string{"/admin/login"}},
	}
}

type Option func(*gate)

// WithClock sets the clock used to spot expired access tokens.
func WithClock(now func() time.Time) Option {
	return func(g *gate) { g.now = now }
}

type gate struct {
	rules  []Rule
	byRole map[string]Rule
	pages  map[string]struct{}
	logger logging.Logger
	now    func() time.Time
}

// New returns the gate middleware for rules.
func New(rules []Rule, logger logging.Logger, opts ...Option) fiber.Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	g := &gate{
		rules:  rules,
		byRole: make(map[string]Rule, len(rules)),
		pages:  make(map[string]struct{}),
		logger: logger,
		now:    time.Now,
	}
	for _, r := range rules {
		g.byRole[r.Role] = r
		for _, p := range r.AuthPages {
			g.pages[p] = struct{}{}
		}
	}
	for _, o := range opts {
		o(g)
	}
	return g.handle
}

func (g *gate) handle(c *fiber.Ctx) error {
	path := strings.TrimRight(c.Path(), "/")
	if path == "" {
		path = "/"
	}
	session, signedIn := g.session(c)

	if _, ok := g.pages[path]; ok {
		if signedIn {
			return g.redirect(c, session.HomeRoute, "signed-in visitor on auth page")
		}
		return c.Next()
	}

	rule, ok := g.protecting(path)
	if !ok {
		return c.Next()
	}
	if !signedIn {
		return g.redirect(c, rule.LoginRoute+"?next="+url.QueryEscape(c.OriginalURL()), "no session")
	}
	if session.Role != rule.Role {
		return g.redirect(c, session.HomeRoute, "wrong role")
	}
	return c.Next()
}

// session returns the rule of the role in the cookies when they hold a
// usable access token.
func (g *gate) session(c *fiber.Ctx) (Rule, bool) {
	token := c.Cookies(common.AccessTokenKey)
	if token == "" || g.expired(token) {
		return Rule{}, false
	}
	r, ok := g.byRole[c.Cookies(common.RoleKey)]
	return r, ok
}

// expired reports whether token is a JWT whose exp has passed. The gate
// cannot verify signatures; opaque tokens count as live.
func (g *gate) expired(token string) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.Time.After(g.now())
}

func (g *gate) protecting(path string) (Rule, bool) {
	for _, r := range g.rules {
		if path == r.Prefix || strings.HasPrefix(path, r.Prefix+"/") {
			return r, true
		}
	}
	return Rule{}, false
}

func (g *gate) redirect(c *fiber.Ctx, to, reason string) error {
	g.logger.Debug(c.UserContext(), "gate redirect", "path", c.Path(), "to", to, "reason", reason)
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Redirect(to, fiber.StatusFound)
}
