package cookies

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var _ http.CookieJar = (*Jar)(nil)

// Jar exposes a Repository as an http.CookieJar for requests to one site.
// Cookies are only written by the credential store, so SetCookies ignores
// whatever the server sends.
type Jar struct {
	repo    Repository
	site    *url.URL
	timeout time.Duration
}

// NewJar scopes repo to the host of site.
func NewJar(repo Repository, site *url.URL) *Jar {
	return &Jar{repo: repo, site: site, timeout: 2 * time.Second}
}

func (j *Jar) SetCookies(*url.URL, []*http.Cookie) {}

func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	if j.site == nil || !strings.EqualFold(u.Hostname(), j.site.Hostname()) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	all, err := j.repo.List(ctx)
	if err != nil {
		return nil
	}

	secure := u.Scheme == "https" || isLoopback(u.Hostname())
	path := u.Path
	if path == "" {
		path = "/"
	}

	var out []*http.Cookie
	for _, c := range all {
		if c.Secure && !secure {
			continue
		}
		if !pathMatch(c.Path, path) {
			continue
		}
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return out
}

func pathMatch(cookiePath, reqPath string) bool {
	if cookiePath == "" || cookiePath == "/" {
		return true
	}
	if !strings.HasPrefix(reqPath, cookiePath) {
		return false
	}
	return len(reqPath) == len(cookiePath) ||
		strings.HasSuffix(cookiePath, "/") ||
		reqPath[len(cookiePath)] == '/'
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
