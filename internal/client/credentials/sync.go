package credentials

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/catermarket/caterauth/internal/client/events"
	"github.com/catermarket/caterauth/internal/client/models"
	"github.com/catermarket/caterauth/internal/common"
)

// divergenceLimit is how many consecutive syncs may see the backends
// disagree before the store clears both. One disagreement can be another
// process halfway through a commit.
const divergenceLimit = 2

// Sync re-reads both backends and replaces the cached snapshot when the
// shared state differs from it. It reports whether the snapshot changed.
// When the backends keep disagreeing the session is cleared; that clear
// publishes its own event and Sync returns false.
func (s *Store) Sync(ctx context.Context) (bool, error) {
	s.mu.Lock()

	sess, diverged, err := s.load(ctx)
	if err != nil {
		s.mu.Unlock()
		return false, err
	}

	if diverged {
		s.diverged++
		if s.diverged < divergenceLimit {
			s.mu.Unlock()
			return false, nil
		}
		s.logger.Warn(ctx, "session backends disagree, clearing")
		seq := s.clearLocked(ctx)
		s.mu.Unlock()
		s.publish(ctx, events.KindCleared, seq)
		return false, nil
	}

	s.diverged = 0
	if models.Equal(s.current(), sess) {
		s.mu.Unlock()
		return false, nil
	}
	s.snap.Store(&snapshot{session: sess})
	s.mu.Unlock()

	s.logger.Debug(ctx, "session changed elsewhere", "authenticated", sess != nil)
	return true, nil
}

// load reads both backends. It returns the session both agree on, nil when
// both are empty, or diverged when they disagree.
func (s *Store) load(ctx context.Context) (*models.Session, bool, error) {
	page, err := s.page.GetMany(ctx, pageKeys)
	if err != nil {
		return nil, false, fmt.Errorf("read page session: %w", err)
	}
	jar, err := s.cookies.GetMany(ctx, cookieKeys)
	if err != nil {
		return nil, false, fmt.Errorf("read session cookies: %w", err)
	}

	if len(page) == 0 && len(jar) == 0 {
		return nil, false, nil
	}

	access := string(page[common.AccessTokenKey])
	cookie := func(name string) string {
		if c, ok := jar[name]; ok {
			return c.Value
		}
		return ""
	}
	if access == "" ||
		access != cookie(common.AccessTokenKey) ||
		string(page[common.RefreshTokenKey]) != cookie(common.RefreshTokenKey) ||
		string(page[common.RoleKey]) != cookie(common.RoleKey) {
		return nil, true, nil
	}

	sess := &models.Session{
		AccessToken:  access,
		RefreshToken: string(page[common.RefreshTokenKey]),
		Role:         models.Role(page[common.RoleKey]),
	}
	if raw := page[common.PrincipalKey]; len(raw) > 0 {
		var p *models.Principal
		if err := json.Unmarshal(raw, &p); err != nil {
			s.logger.Warn(ctx, "ignoring unreadable principal snapshot", "error", err)
		} else {
			sess.Principal = p
		}
	}
	return sess, false, nil
}
