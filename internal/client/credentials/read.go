package credentials

import "github.com/catermarket/caterauth/internal/client/models"

func (s *Store) current() *models.Session {
	if snap := s.snap.Load(); snap != nil {
		return snap.session
	}
	return nil
}

// Read returns the access token to attach to an outgoing call.
func (s *Store) Read() (string, bool) {
	sess := s.current()
	if sess == nil {
		return "", false
	}
	return sess.AccessToken, true
}

// Session returns a copy of the cached session, or nil.
func (s *Store) Session() *models.Session {
	return s.current().Clone()
}

func (s *Store) Principal() *models.Principal {
	sess := s.current()
	if sess == nil || sess.Principal == nil {
		return nil
	}
	p := *sess.Principal
	return &p
}

// Role is the role of the cached session, or RoleAnonymous.
func (s *Store) Role() models.Role {
	if sess := s.current(); sess != nil {
		return sess.Role
	}
	return models.RoleAnonymous
}

func (s *Store) IsAuthenticated() bool {
	return s.current() != nil
}
