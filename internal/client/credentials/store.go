// Package credentials is the single owner of session persistence.
//
// A Store writes every session to two backends: the page-scoped store read
// by client code and the cookie store read by the site's request middleware.
// Both hold the same session or both are empty. Readers get a cached
// snapshot and never wait for I/O.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/catermarket/caterauth/internal/client/events"
	"github.com/catermarket/caterauth/internal/client/models"
	"github.com/catermarket/caterauth/internal/client/repositories/cookies"
	"github.com/catermarket/caterauth/internal/client/repositories/metadata"
	"github.com/catermarket/caterauth/internal/common"
	"github.com/catermarket/caterauth/internal/logging"
)

const (
	DefaultAccessTTL  = 24 * time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

var (
	// ErrStaleCommit is returned for a commit whose ticket predates the last
	// clear or the last applied commit.
	ErrStaleCommit = errors.New("stale session commit")
	ErrNoSession   = errors.New("no session")
)

var (
	pageKeys   = []string{common.AccessTokenKey, common.RefreshTokenKey, common.RoleKey, common.PrincipalKey}
	cookieKeys = []string{common.AccessTokenKey, common.RefreshTokenKey, common.RoleKey}
)

// Publisher receives an event after every commit and clear. *events.Bus
// implements it.
type Publisher interface {
	Publish(ctx context.Context, ev events.Event)
}

// Ticket orders session-producing operations. Take one with Begin before
// the network call whose result will be committed.
type Ticket uint64

type Option func(*Store)

func WithPublisher(p Publisher) Option {
	return func(s *Store) { s.publisher = p }
}

func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithTTLs sets the lifetime of the short (access token, role) and long
// (refresh token) cookies. Zero keeps the default.
func WithTTLs(access, refresh time.Duration) Option {
	return func(s *Store) {
		if access > 0 {
			s.accessTTL = access
		}
		if refresh > 0 {
			s.refreshTTL = refresh
		}
	}
}

type snapshot struct {
	session *models.Session
}

type Store struct {
	page    metadata.Repository
	cookies cookies.Repository

	publisher  Publisher
	logger     logging.Logger
	now        func() time.Time
	accessTTL  time.Duration
	refreshTTL time.Duration

	seq  atomic.Uint64
	snap atomic.Pointer[snapshot]

	// mu serialises writers and Sync. Readers only load snap.
	mu        sync.Mutex
	tombstone uint64
	applied   uint64
	diverged  int
}

// New builds a Store over the two backends and loads the current session.
// A session present in only one backend is not exposed.
func New(ctx context.Context, page metadata.Repository, jar cookies.Repository, opts ...Option) (*Store, error) {
	s := &Store{
		page:       page,
		cookies:    jar,
		logger:     logging.Discard(),
		now:        time.Now,
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
	}
	for _, o := range opts {
		o(s)
	}

	sess, _, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	s.snap.Store(&snapshot{session: sess})
	return s, nil
}

// Begin hands out the next ticket.
func (s *Store) Begin() Ticket {
	return Ticket(s.seq.Add(1))
}

// Commit writes sess to both backends. If the cookie write fails the page
// store is restored to what it held before, and the error is returned.
func (s *Store) Commit(ctx context.Context, t Ticket, sess *models.Session) error {
	return s.CommitIf(ctx, t, sess, nil)
}

// CommitIf is Commit with a precondition. live is called under the store's
// write lock right before the write; when it reports false nothing is
// written and ErrStaleCommit is returned. live must not call back into
// the store.
func (s *Store) CommitIf(ctx context.Context, t Ticket, sess *models.Session, live func() bool) error {
	if sess == nil || sess.AccessToken == "" {
		return fmt.Errorf("%w: session without access token", common.ErrorInvalidInput)
	}

	s.mu.Lock()
	if uint64(t) < s.tombstone || uint64(t) < s.applied {
		s.mu.Unlock()
		return ErrStaleCommit
	}
	if live != nil && !live() {
		s.mu.Unlock()
		return ErrStaleCommit
	}

	if err := s.write(ctx, sess); err != nil {
		s.mu.Unlock()
		return err
	}
	s.applied = uint64(t)
	s.diverged = 0
	s.snap.Store(&snapshot{session: sess.Clone()})
	s.mu.Unlock()

	s.logger.Info(ctx, "session committed", "role", sess.Role, "seq", uint64(t))
	s.publish(ctx, events.KindCommitted, uint64(t))
	return nil
}

func (s *Store) write(ctx context.Context, sess *models.Session) error {
	user, err := json.Marshal(sess.Principal)
	if err != nil {
		return fmt.Errorf("encode principal: %w", err)
	}

	prev, err := s.page.GetMany(ctx, pageKeys)
	if err != nil {
		return fmt.Errorf("commit session: %w", err)
	}

	err = s.page.SetMany(ctx, map[string][]byte{
		common.AccessTokenKey:  []byte(sess.AccessToken),
		common.RefreshTokenKey: []byte(sess.RefreshToken),
		common.RoleKey:         []byte(sess.Role),
		common.PrincipalKey:    user,
	})
	if err != nil {
		return fmt.Errorf("commit session: %w", err)
	}

	if err := s.cookies.SetMany(ctx, s.sessionCookies(sess)); err != nil {
		if rbErr := s.restorePage(ctx, prev); rbErr != nil {
			s.logger.Error(ctx, "session rollback failed", "error", rbErr)
			return fmt.Errorf("commit session: %w", errors.Join(err, rbErr))
		}
		return fmt.Errorf("commit session: %w", err)
	}
	return nil
}

func (s *Store) restorePage(ctx context.Context, prev map[string][]byte) error {
	var missing []string
	for _, k := range pageKeys {
		if _, ok := prev[k]; !ok {
			missing = append(missing, k)
		}
	}
	if err := s.page.DeleteMany(ctx, missing); err != nil {
		return err
	}
	if len(prev) == 0 {
		return nil
	}
	return s.page.SetMany(ctx, prev)
}

func (s *Store) sessionCookies(sess *models.Session) []*http.Cookie {
	now := s.now()
	short := s.accessExpiry(now, sess.AccessToken)
	long := now.Add(s.refreshTTL)

	mk := func(name, value string, expires time.Time) *http.Cookie {
		return &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     common.CookiePath,
			Expires:  expires,
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
		}
	}
	return []*http.Cookie{
		mk(common.AccessTokenKey, sess.AccessToken, short),
		mk(common.RoleKey, string(sess.Role), short),
		mk(common.RefreshTokenKey, sess.RefreshToken, long),
	}
}

// accessExpiry is the configured short lifetime, cut down to the token's
// own exp claim when the token is a JWT that expires sooner.
func (s *Store) accessExpiry(now time.Time, token string) time.Time {
	expiry := now.Add(s.accessTTL)

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return expiry
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return expiry
	}
	if exp.Time.Before(expiry) {
		return exp.Time
	}
	return expiry
}

// Clear removes the session from both backends. Failures are logged, never
// returned. Every call publishes exactly one event, even when there was no
// session.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	seq := s.clearLocked(ctx)
	s.mu.Unlock()

	s.logger.Info(ctx, "session cleared", "seq", seq)
	s.publish(ctx, events.KindCleared, seq)
}

func (s *Store) clearLocked(ctx context.Context) uint64 {
	seq := s.seq.Add(1)
	s.tombstone = seq
	s.diverged = 0

	if err := s.page.DeleteMany(ctx, pageKeys); err != nil {
		s.logger.Error(ctx, "failed to clear page session", "error", err)
	}
	if err := s.cookies.DeleteMany(ctx, cookieKeys); err != nil {
		s.logger.Error(ctx, "failed to clear session cookies", "error", err)
	}
	s.snap.Store(&snapshot{})
	return seq
}

// UpdatePrincipal re-commits the current tokens with a fresh principal.
func (s *Store) UpdatePrincipal(ctx context.Context, p *models.Principal) error {
	t := s.Begin()
	sess := s.Session()
	if sess == nil {
		return ErrNoSession
	}
	if p != nil {
		cp := *p
		sess.Principal = &cp
	} else {
		sess.Principal = nil
	}
	return s.Commit(ctx, t, sess)
}

func (s *Store) publish(ctx context.Context, kind events.Kind, seq uint64) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, events.Event{Kind: kind, Seq: seq})
}
