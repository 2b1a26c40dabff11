package api

import (
	"context"
	"net"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/inkcircle/inkcircle-server/internal/errors"
	"github.com/inkcircle/inkcircle-server/internal/ratelimit"
)

type peerAddrKey struct{}

// capturePeerAddr records the connection's remote address before RealIP
// replaces it with client-supplied forwarding headers.
func capturePeerAddr(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), peerAddrKey{}, r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func peerAddr(ctx context.Context) (string, bool) {
	addr, ok := ctx.Value(peerAddrKey{}).(string)
	return addr, ok
}

// rateLimit returns a huma operation middleware that limits requests per
// peer IP. Forwarding headers are ignored, so behind a reverse proxy every
// client shares the proxy's bucket.
func (s *Server) rateLimit(name string, limiter *ratelimit.KeyedRateLimiter) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		addr, ok := peerAddr(ctx.Context())
		if !ok {
			addr = ctx.RemoteAddr()
		}
		key := clientIP(addr)
		if !limiter.Allow(key) {
			s.metrics.RateLimited(name)
			s.logger.Warn("rate limit exceeded",
				"limiter", name,
				"ip", key,
				"path", ctx.URL().Path,
			)
			_ = huma.WriteErr(s.api, ctx, http.StatusTooManyRequests, "too many requests",
				domainerrors.RateLimited("too many requests, please try again later"))
			return
		}
		next(ctx)
	}
}

// clientIP strips the port from a remote address.
func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
