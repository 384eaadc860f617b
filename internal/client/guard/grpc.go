package guard

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/catermarket/caterauth/internal/common"
)

func withBearer(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AuthorizationMetadataKey, common.BearerPrefix+token)
	return metadata.NewOutgoingContext(ctx, md)
}

// UnaryClientInterceptor is RoundTripper for gRPC: the credential goes in
// the authorization metadata and codes.Unauthenticated ends the session.
func (g *Guard) UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply any,
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		token, ok := g.store.Read()
		if ok {
			ctx = withBearer(ctx, token)
		} else {
			token = ""
		}

		err := invoker(ctx, method, req, reply, cc, opts...)
		if status.Code(err) == codes.Unauthenticated {
			g.HandleUnauthorized(ctx, token)
		}
		return err
	}
}

// DialOption installs the interceptor on a client connection.
func (g *Guard) DialOption() grpc.DialOption {
	return grpc.WithChainUnaryInterceptor(g.UnaryClientInterceptor())
}
