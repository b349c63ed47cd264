package service

import (
	"context"
	"crypto/subtle"
	"strings"

	"connectrpc.com/connect"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/auctionroom/go/internal/auction/apperr"
)

const authHeader = "Authorization"

// NewOperatorAuthInterceptor rejects calls that do not carry the operator
// bearer token. An empty token disables the check.
func NewOperatorAuthInterceptor(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if token == "" || req.Spec().IsClient {
				return next(ctx, req)
			}
			got := strings.TrimPrefix(req.Header().Get(authHeader), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				log.Warn().
					Str("procedure", req.Spec().Procedure).
					Str("peer", req.Peer().Addr).
					Msg("rejected unauthenticated operator command")
				return nil, apperr.ToConnect(apperr.Auth("operator token required"))
			}
			return next(ctx, req)
		}
	}
}

// NewBearerInterceptor attaches token to outgoing client calls.
func NewBearerInterceptor(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if token != "" && req.Spec().IsClient {
				req.Header().Set(authHeader, "Bearer "+token)
			}
			return next(ctx, req)
		}
	}
}
