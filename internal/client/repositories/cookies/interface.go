// Package cookies is the path-scoped, time-limited cookie backend of the
// client: the records the site's request middleware reads. Each record
// carries its own expiry and disappears once it passes.
package cookies

import (
	"context"
	"net/http"
)

// Repository stores cookies by name. Expired cookies are never returned.
// SetMany and DeleteMany are all-or-nothing.
type Repository interface {
	GetMany(ctx context.Context, names []string) (map[string]*http.Cookie, error)
	SetMany(ctx context.Context, cookies []*http.Cookie) error
	DeleteMany(ctx context.Context, names []string) error
	List(ctx context.Context) ([]*http.Cookie, error)
}
