package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/catermarket/caterauth/internal/client/models"
)

type fakeIdentity struct {
	lastOp  Op
	lastReq *CallRequest
	env     *Envelope
	err     error
}

func (f *fakeIdentity) Handle(_ context.Context, op Op, req *CallRequest) (*Envelope, error) {
	f.lastOp = op
	f.lastReq = req
	return f.env, f.err
}

func startGRPC(t *testing.T, srv IdentityServer, opts ...grpc.DialOption) *API {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	RegisterIdentityServer(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	dialer := grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
	tr, err := NewGRPCTransport("passthrough:///bufnet", append([]grpc.DialOption{dialer}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return New(tr)
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestGRPC_LoginRoundTrip(t *testing.T) {
	fake := &fakeIdentity{env: &Envelope{
		StatusCode: 200,
		Success:    true,
		Data:       mustJSON(t, map[string]any{"accessToken": "acc", "refreshToken": "ref"}),
	}}
	api := startGRPC(t, fake)

	tok, err := api.Login(context.Background(), models.RoleVendor, LoginRequest{Identifier: "ada@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "acc", tok.AccessToken)

	assert.Equal(t, OpLogin, fake.lastOp)
	assert.Equal(t, models.RoleVendor, fake.lastReq.Role)

	var body map[string]string
	require.NoError(t, json.Unmarshal(fake.lastReq.Payload, &body))
	assert.Equal(t, "ada@example.com", body["phoneOrEmail"])
}

func TestGRPC_EveryOperationIsRouted(t *testing.T) {
	fake := &fakeIdentity{env: &Envelope{StatusCode: 200, Success: true, Data: mustJSON(t, map[string]any{
		"accessToken": "a", "resetToken": "rt", "id": "u1",
	})}}
	api := startGRPC(t, fake)
	ctx := context.Background()

	calls := []struct {
		op  Op
		run func() error
	}{
		{OpSignup, func() error { _, err := api.Signup(ctx, models.RoleCustomer, SignupRequest{}); return err }},
		{OpVerifyOTP, func() error { _, err := api.VerifyOTP(ctx, models.RoleCustomer, VerifyOTPRequest{}); return err }},
		{OpResendOTP, func() error { _, err := api.ResendOTP(ctx, models.RoleCustomer, ResendOTPRequest{}); return err }},
		{OpForgotPassword, func() error { _, err := api.ForgotPassword(ctx, models.RoleCustomer, ForgotPasswordRequest{}); return err }},
		{OpVerifyResetOTP, func() error { _, err := api.VerifyResetOTP(ctx, models.RoleCustomer, VerifyOTPRequest{}); return err }},
		{OpResetPassword, func() error { return api.ResetPassword(ctx, models.RoleCustomer, ResetPasswordRequest{}) }},
		{OpLogout, func() error { return api.Logout(ctx, models.RoleCustomer, LogoutRequest{}) }},
		{OpMe, func() error { _, err := api.Me(ctx); return err }},
	}
	for _, c := range calls {
		require.NoError(t, c.run(), c.op)
		assert.Equal(t, c.op, fake.lastOp)
	}
}

func TestGRPC_FailedEnvelope(t *testing.T) {
	fake := &fakeIdentity{env: &Envelope{
		StatusCode: 400,
		Success:    false,
		Message:    "Invalid OTP",
		Data:       mustJSON(t, map[string]any{"attemptsLeft": 1}),
	}}
	api := startGRPC(t, fake)

	_, err := api.VerifyOTP(context.Background(), models.RoleVendor, VerifyOTPRequest{OTP: "000000"})
	require.ErrorIs(t, err, ErrRejected)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Invalid OTP", apiErr.Message)
	assert.Equal(t, 1, *apiErr.AttemptsLeft)
}

func TestGRPC_StatusMapping(t *testing.T) {
	tests := []struct {
		code codes.Code
		kind error
	}{
		{codes.Unauthenticated, ErrUnauthorized},
		{codes.PermissionDenied, ErrUnauthorized},
		{codes.AlreadyExists, ErrConflict},
		{codes.InvalidArgument, ErrRejected},
		{codes.NotFound, ErrRejected},
		{codes.Unavailable, ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			api := startGRPC(t, &fakeIdentity{err: status.Error(tt.code, "denied")})
			_, err := api.Signup(context.Background(), models.RoleCustomer, SignupRequest{})
			require.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestMapError_NonStatus(t *testing.T) {
	assert.Nil(t, mapError(nil))
	require.ErrorIs(t, mapError(errors.New("dial failed")), ErrUnavailable)
	err := mapError(status.Error(codes.Internal, "panic"))
	assert.Contains(t, err.Error(), "rpc error")
}

func TestGRPC_ServerInterceptorSeesFullMethod(t *testing.T) {
	var seen string
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(grpc.UnaryInterceptor(func(ctx context.Context, req any, info *grpc.UnaryServerInfo, h grpc.UnaryHandler) (any, error) {
		seen = info.FullMethod
		return h(ctx, req)
	}))
	RegisterIdentityServer(s, &fakeIdentity{env: &Envelope{StatusCode: 200, Success: true}})
	go func() { _ = s.Serve(lis) }()
	defer s.Stop()

	tr, err := NewGRPCTransport("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	defer tr.Close()

	require.NoError(t, New(tr).Logout(context.Background(), models.RoleVendor, LogoutRequest{RefreshToken: "r"}))
	assert.Equal(t, "/caterauth.identity.v1.Identity/Logout", seen)
}
