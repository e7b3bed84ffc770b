package grpc

import (
	"context"
	"strings"

	"github.com/kodasoftware/example-api/internal/common"
	"github.com/kodasoftware/example-api/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const healthServicePrefix = "/grpc.health.v1.Health/"

// codeFor maps an error kind to the gRPC status code.
func codeFor(kind common.Kind) codes.Code {
	switch kind {
	case common.KindUserExists, common.KindAccountExists, common.KindUserAlreadyLinked:
		return codes.AlreadyExists
	case common.KindNoSuchUser, common.KindNoSuchAccount:
		return codes.NotFound
	case common.KindInvalidToken, common.KindInvalidCredentials, common.KindAccountDisabled:
		return codes.Unauthenticated
	case common.KindValidation:
		return codes.InvalidArgument
	}
	return codes.Internal
}

func toStatus(err error) error {
	return status.Error(codeFor(common.KindOf(err)), common.Message(err))
}

func tokenFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 && values[0] != "" {
		return values[0]
	}
	if values := md.Get("authorization"); len(values) > 0 {
		v := values[0]
		if len(v) > 7 && strings.EqualFold(v[:7], "bearer ") {
			return strings.TrimSpace(v[7:])
		}
	}
	return ""
}

// accessTokenInterceptor authenticates every call except health probes and
// stores the verified identity in the context.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if strings.HasPrefix(info.FullMethod, healthServicePrefix) {
		return handler(ctx, req)
	}

	accessToken := tokenFromMetadata(ctx)
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	identity, err := s.verifier.Verify(accessToken)
	if err != nil {
		s.logger.Debug(ctx, "rejected token", "method", info.FullMethod, "error", err)
		return nil, toStatus(err)
	}

	return handler(auth.WithIdentity(ctx, identity), req)
}
