package guard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/catermarket/caterauth/internal/client/models"
)

type fakeStore struct {
	mu     sync.Mutex
	token  string
	role   models.Role
	clears int
}

func (f *fakeStore) Read() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token, f.token != ""
}

func (f *fakeStore) Role() models.Role {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.role
}

func (f *fakeStore) Clear(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token, f.role = "", models.RoleAnonymous
	f.clears++
}

type fakeNav struct {
	mu     sync.Mutex
	routes []string
}

func (n *fakeNav) Navigate(_ context.Context, route string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, route)
}

func newGuard(token string, role models.Role) (*Guard, *fakeStore, *fakeNav) {
	store := &fakeStore{token: token, role: role}
	nav := &fakeNav{}
	g := New(store, nav,
		WithLoginRoute(models.RoleCustomer, "/customer/login"),
		WithLoginRoute(models.RoleVendor, "/vendor/login"),
	)
	return g, store, nav
}

func statusServer(t *testing.T, code int, seen *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			*seen = r.Header.Get("Authorization")
		}
		w.WriteHeader(code)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRoundTripper_AttachesBearer(t *testing.T) {
	g, store, nav := newGuard("tok-1", models.RoleVendor)
	var seen string
	srv := statusServer(t, http.StatusOK, &seen)

	resp, err := g.Client(nil).Get(srv.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "Bearer tok-1", seen)
	assert.Equal(t, 0, store.clears)
	assert.Empty(t, nav.routes)
}

func TestRoundTripper_AnonymousRequestCarriesNoCredential(t *testing.T) {
	g, store, nav := newGuard("", models.RoleAnonymous)
	var seen string
	srv := statusServer(t, http.StatusUnauthorized, &seen)

	resp, err := g.Client(nil).Get(srv.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Empty(t, seen)
	assert.Equal(t, 0, store.clears, "a call sent without a credential never forces logout")
	assert.Empty(t, nav.routes)
}

func TestRoundTripper_UnauthorizedForcesLogoutToRoleLogin(t *testing.T) {
	tests := []struct {
		role  models.Role
		route string
	}{
		{models.RoleCustomer, "/customer/login"},
		{models.RoleVendor, "/vendor/login"},
		{models.RoleAdmin, DefaultLoginRoute},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			g, store, nav := newGuard("tok", tt.role)
			srv := statusServer(t, http.StatusUnauthorized, nil)

			resp, err := g.Client(nil).Get(srv.URL + "/any/endpoint")
			require.NoError(t, err)
			_ = resp.Body.Close()

			assert.Equal(t, 1, store.clears)
			assert.Equal(t, []string{tt.route}, nav.routes)
		})
	}
}

func TestRoundTripper_ConcurrentFailuresClearOnce(t *testing.T) {
	g, store, nav := newGuard("tok", models.RoleCustomer)
	srv := statusServer(t, http.StatusUnauthorized, nil)
	client := g.Client(nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := client.Get(srv.URL)
			if err == nil {
				_ = resp.Body.Close()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.clears)
	assert.Equal(t, []string{"/customer/login"}, nav.routes)
}

func TestHandleUnauthorized_StaleCredentialIgnored(t *testing.T) {
	g, store, nav := newGuard("new-token", models.RoleVendor)

	assert.False(t, g.HandleUnauthorized(context.Background(), "old-token"))
	assert.False(t, g.HandleUnauthorized(context.Background(), ""))
	assert.Equal(t, 0, store.clears)
	assert.Empty(t, nav.routes)

	assert.True(t, g.HandleUnauthorized(context.Background(), "new-token"))
	assert.False(t, g.HandleUnauthorized(context.Background(), "new-token"))
	assert.Equal(t, 1, store.clears)
}

func TestRoundTripper_OtherErrorsLeaveSession(t *testing.T) {
	g, store, _ := newGuard("tok", models.RoleVendor)
	for _, code := range []int{http.StatusForbidden, http.StatusInternalServerError, http.StatusConflict} {
		srv := statusServer(t, code, nil)
		resp, err := g.Client(nil).Get(srv.URL)
		require.NoError(t, err)
		_ = resp.Body.Close()
	}
	assert.Equal(t, 0, store.clears)
}

func TestUnaryClientInterceptor(t *testing.T) {
	g, store, nav := newGuard("tok", models.RoleVendor)
	interceptor := g.UnaryClientInterceptor()

	var sent []string
	ok := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		md, _ := metadata.FromOutgoingContext(ctx)
		sent = md.Get("authorization")
		return nil
	}
	require.NoError(t, interceptor(context.Background(), "/svc/Me", nil, nil, nil, ok))
	assert.Equal(t, []string{"Bearer tok"}, sent)

	denied := func(context.Context, string, any, any, *grpc.ClientConn, ...grpc.CallOption) error {
		return status.Error(codes.Unauthenticated, "token expired")
	}
	err := interceptor(context.Background(), "/svc/Me", nil, nil, nil, denied)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, 1, store.clears)
	assert.Equal(t, []string{"/vendor/login"}, nav.routes)

	err = interceptor(context.Background(), "/svc/Me", nil, nil, nil, denied)
	require.Error(t, err)
	assert.Equal(t, 1, store.clears)
}

func TestUnaryClientInterceptor_KeepsExistingMetadata(t *testing.T) {
	g, _, _ := newGuard("tok", models.RoleCustomer)
	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-request-id", "abc")

	var md metadata.MD
	invoker := func(ctx context.Context, _ string, _, _ any, _ *grpc.ClientConn, _ ...grpc.CallOption) error {
		md, _ = metadata.FromOutgoingContext(ctx)
		return nil
	}
	require.NoError(t, g.UnaryClientInterceptor()(ctx, "/svc/Login", nil, nil, nil, invoker))
	assert.Equal(t, []string{"abc"}, md.Get("x-request-id"))
	assert.Equal(t, []string{"Bearer tok"}, md.Get("authorization"))
}
