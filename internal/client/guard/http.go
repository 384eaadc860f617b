package guard

import (
	"net/http"

	"github.com/catermarket/caterauth/internal/common"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// RoundTripper wraps next (http.DefaultTransport when nil) so that requests
// carry the bearer credential and 401 responses end the session.
func (g *Guard) RoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		token, ok := g.store.Read()
		if ok {
			req = req.Clone(req.Context())
			req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
		} else {
			token = ""
		}

		resp, err := next.RoundTrip(req)
		if err == nil && resp.StatusCode == http.StatusUnauthorized {
			g.HandleUnauthorized(req.Context(), token)
		}
		return resp, err
	})
}

// Client returns an *http.Client whose transport is guarded.
func (g *Guard) Client(base *http.Client) *http.Client {
	c := &http.Client{}
	if base != nil {
		*c = *base
	}
	c.Transport = g.RoundTripper(c.Transport)
	return c
}
