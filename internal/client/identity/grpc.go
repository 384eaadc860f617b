package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"github.com/catermarket/caterauth/internal/client/models"
)

// ServiceName is the gRPC service the transport calls.
const ServiceName = "caterauth.identity.v1.Identity"

// CodecName is the content-subtype of the JSON codec.
const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

var methodNames = map[Op]string{
	OpSignup:         "Signup",
	OpLogin:          "Login",
	OpVerifyOTP:      "VerifyOtp",
	OpResendOTP:      "ResendOtp",
	OpForgotPassword: "ForgotPassword",
	OpVerifyResetOTP: "VerifyResetOtp",
	OpResetPassword:  "ResetPassword",
	OpLogout:         "Logout",
	OpMe:             "Me",
}

// FullMethod is the gRPC method path of op.
func FullMethod(op Op) string {
	return "/" + ServiceName + "/" + methodNames[op]
}

var _ Transport = (*GRPCTransport)(nil)

type GRPCTransport struct {
	conn *grpc.ClientConn
}

// NewGRPCTransport connects to addr without TLS. Extra dial options (the
// session guard interceptor, a bufconn dialer) are appended.
func NewGRPCTransport(addr string, opts ...grpc.DialOption) (*GRPCTransport, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}
	conn, err := grpc.NewClient(addr, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	return &GRPCTransport{conn: conn}, nil
}

func (t *GRPCTransport) Close() error {
	return t.conn.Close()
}

func (t *GRPCTransport) Call(ctx context.Context, role models.Role, op Op, payload any) (*Envelope, error) {
	req := &CallRequest{Role: role}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", op, err)
		}
		req.Payload = raw
	}

	var env Envelope
	if err := t.conn.Invoke(ctx, FullMethod(op), req, &env); err != nil {
		return nil, mapError(err)
	}
	if err := checkEnvelope(&env, http.StatusOK); err != nil {
		return nil, err
	}
	return &env, nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return unavailable(err)
	}
	var code int
	switch st.Code() {
	case codes.Unauthenticated:
		code = http.StatusUnauthorized
	case codes.PermissionDenied:
		code = http.StatusForbidden
	case codes.AlreadyExists, codes.Aborted:
		code = http.StatusConflict
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		code = http.StatusBadRequest
	case codes.NotFound:
		code = http.StatusNotFound
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return unavailable(err)
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
	return &APIError{StatusCode: code, Message: st.Message(), kind: kindFor(code)}
}
