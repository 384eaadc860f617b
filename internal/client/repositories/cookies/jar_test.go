package cookies

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestJar_ScopesToSite(t *testing.T) {
	repo := NewMemoryRepository()
	require.NoError(t, repo.SetMany(context.Background(), sessionCookies(time.Now())))

	jar := NewJar(repo, mustURL(t, "https://catering.example.com"))

	got := jar.Cookies(mustURL(t, "https://catering.example.com/vendor/dashboard"))
	assert.Len(t, got, 3)

	assert.Empty(t, jar.Cookies(mustURL(t, "https://evil.example.com/")))
	assert.Empty(t, jar.Cookies(mustURL(t, "http://catering.example.com/")), "secure cookies need https")
}

func TestJar_LoopbackCountsAsSecure(t *testing.T) {
	repo := NewMemoryRepository()
	require.NoError(t, repo.SetMany(context.Background(), sessionCookies(time.Now())))

	jar := NewJar(repo, mustURL(t, "http://127.0.0.1:3000"))
	assert.Len(t, jar.Cookies(mustURL(t, "http://127.0.0.1:3000/customer")), 3)
}

func TestJar_PathMatch(t *testing.T) {
	assert.True(t, pathMatch("/", "/anything"))
	assert.True(t, pathMatch("/vendor", "/vendor"))
	assert.True(t, pathMatch("/vendor", "/vendor/profile"))
	assert.False(t, pathMatch("/vendor", "/vendors"))
	assert.False(t, pathMatch("/vendor", "/customer"))
}

func TestJar_SetCookiesIgnored(t *testing.T) {
	repo := NewMemoryRepository()
	jar := NewJar(repo, mustURL(t, "http://localhost"))
	jar.SetCookies(mustURL(t, "http://localhost/"), []*http.Cookie{{Name: "x", Value: "y"}})

	all, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestJar_AttachedByHTTPClient(t *testing.T) {
	var seen []*http.Cookie
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Cookies()
	}))
	defer srv.Close()

	repo := NewMemoryRepository()
	require.NoError(t, repo.SetMany(context.Background(), sessionCookies(time.Now())))

	client := &http.Client{Jar: NewJar(repo, mustURL(t, srv.URL))}
	resp, err := client.Get(srv.URL + "/vendor")
	require.NoError(t, err)
	_ = resp.Body.Close()

	names := map[string]string{}
	for _, c := range seen {
		names[c.Name] = c.Value
	}
	assert.Equal(t, map[string]string{"accessToken": "a", "role": "vendor", "refreshToken": "r"}, names)
}
