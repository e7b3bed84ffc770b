package grpc

import (
	"context"

	"github.com/kodasoftware/example-api/internal/common"
	"github.com/kodasoftware/example-api/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	identityServiceName = common.IdentityServiceName
	WhoAmIMethod        = common.WhoAmIMethod
)

// identityServer is declared by hand; its messages are protobuf well-known
// types, so no generated code is needed.
type identityServer interface {
	WhoAmI(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

var identityServiceDesc = grpc.ServiceDesc{
	ServiceName: identityServiceName,
	HandlerType: (*identityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "WhoAmI", Handler: whoAmIHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "exampleapi/v1/identity.proto",
}

func whoAmIHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(identityServer).WhoAmI(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: WhoAmIMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(identityServer).WhoAmI(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// WhoAmI echoes the identity carried by the caller's access token.
func (s *GRPCServer) WhoAmI(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing identity")
	}

	perms := make([]any, 0, len(identity.Permissions))
	for _, p := range identity.Permissions {
		perms = append(perms, string(p))
	}

	out, err := structpb.NewStruct(map[string]any{
		"id":          identity.ID,
		"email":       identity.Email,
		"permissions": perms,
	})
	if err != nil {
		s.logger.Error(ctx, "encode identity", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}
