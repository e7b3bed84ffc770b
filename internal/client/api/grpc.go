package api

import (
	"context"
	"errors"

	"github.com/kodasoftware/example-api/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

type identityClient struct {
	conn   *grpc.ClientConn
	parent *Client
}

func newIdentityClient(addr string, parent *Client, opts ...grpc.DialOption) (*identityClient, error) {
	ic := &identityClient{parent: parent}
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(ic.accessTokenInterceptor),
	}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	ic.conn = conn
	return ic, nil
}

func (ic *identityClient) Close() error {
	return ic.conn.Close()
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	md.Set(common.AccessTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

// accessTokenInterceptor attaches the stored access token and, when the
// server answers Unauthenticated, refreshes over HTTP and retries once.
func (ic *identityClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	token, err := ic.parent.accessToken(ctx)
	if err != nil {
		return err
	}

	err = invoker(withAccessToken(ctx, token), method, req, reply, cc, opts...)
	if status.Code(err) != codes.Unauthenticated {
		return err
	}

	if _, refreshErr := ic.parent.Refresh(ctx); refreshErr != nil {
		return err
	}
	if token, err = ic.parent.accessToken(ctx); err != nil {
		return err
	}
	return invoker(withAccessToken(ctx, token), method, req, reply, cc, opts...)
}

// WhoAmI returns the identity the server derives from the access token.
func (c *Client) WhoAmI(ctx context.Context) (map[string]any, error) {
	if c.grpc == nil {
		return nil, errors.New("grpc endpoint not configured")
	}
	out := &structpb.Struct{}
	if err := c.grpc.conn.Invoke(ctx, common.WhoAmIMethod, &emptypb.Empty{}, out); err != nil {
		switch status.Code(err) {
		case codes.Unauthenticated:
			return nil, ErrUnauthorized
		case codes.Unavailable:
			return nil, ErrUnavailable
		}
		return nil, err
	}
	return out.AsMap(), nil
}
