package identity

import (
	"context"

	"google.golang.org/grpc"
)

// IdentityServer answers Identity API calls. Returning a gRPC status error
// fails the call; returning an envelope with Success false reports a
// refusal the client decodes like the HTTP one.
type IdentityServer interface {
	Handle(ctx context.Context, op Op, req *CallRequest) (*Envelope, error)
}

// RegisterIdentityServer exposes srv as the Identity gRPC service. Calls
// must use the JSON codec.
func RegisterIdentityServer(s grpc.ServiceRegistrar, srv IdentityServer) {
	desc := grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*IdentityServer)(nil),
		Metadata:    "caterauth/identity/v1",
	}
	for op, name := range methodNames {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{
			MethodName: name,
			Handler:    unaryHandler(op),
		})
	}
	s.RegisterService(&desc, srv)
}

func unaryHandler(op Op) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(CallRequest)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return srv.(IdentityServer).Handle(ctx, op, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(op)}
		handler := func(ctx context.Context, req any) (any, error) {
			return srv.(IdentityServer).Handle(ctx, op, req.(*CallRequest))
		}
		return interceptor(ctx, in, info, handler)
	}
}
