package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/realmd/internal/common"
	"github.com/dmitrijs2005/realmd/internal/server/accounts"
	"github.com/dmitrijs2005/realmd/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// accessTokenInterceptor guards the account admin service. Realm directory
// and health calls pass through.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !strings.HasPrefix(info.FullMethod, "/"+AccountAdminService+"/") {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 {
			accessToken = values[0]
		}
	}
	if accessToken == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	claims, err := auth.ParseToken(accessToken, s.jwtSecret)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, "token expired")
		}
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	if !accounts.IsAdminAccount(claims.Security) {
		s.logger.Warn(ctx, "admin call denied", "method", info.FullMethod, "account", claims.AccountID, "security", claims.Security.String())
		return nil, status.Error(codes.PermissionDenied, "administrator access required")
	}

	return handler(context.WithValue(ctx, claimsKey, claims), req)
}

// callerID returns the account id of the authenticated admin, or 0.
func callerID(ctx context.Context) uint32 {
	if c, ok := ctx.Value(claimsKey).(*auth.Claims); ok {
		return c.AccountID
	}
	return 0
}
