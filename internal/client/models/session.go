package models

// Session is the credential bundle of an authenticated principal. It lives in
// both persistence backends at once or in neither.
type Session struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
	Role         Role       `json:"role"`
	Principal    *Principal `json:"user,omitempty"`
}

// Clone returns a deep copy so cached snapshots are never shared mutably.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Principal != nil {
		p := *s.Principal
		c.Principal = &p
	}
	return &c
}

// SameCredentials reports whether a and b carry the same tokens and role.
// A nil session only matches another nil session.
func SameCredentials(a, b *Session) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.AccessToken == b.AccessToken && a.RefreshToken == b.RefreshToken && a.Role == b.Role
}

// Equal reports whether a and b carry the same credentials and the same
// principal snapshot.
func Equal(a, b *Session) bool {
	if !SameCredentials(a, b) {
		return false
	}
	if a == nil {
		return true
	}
	if a.Principal == nil || b.Principal == nil {
		return a.Principal == b.Principal
	}
	return *a.Principal == *b.Principal
}
