package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"

	errors "github.com/frahmantamala/expense-assistant/internal"
	"github.com/frahmantamala/expense-assistant/internal/transport"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// NewRateLimiter builds an in-process limiter from a formatted rate such as "20-M".
func NewRateLimiter(formatted string) (*limiter.Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	return limiter.New(memory.NewStore(), rate), nil
}

// RateLimit limits requests per client IP, and additionally per session when the
// client presented a valid session cookie. A request must fit every bucket.
func RateLimit(limiterInstance *limiter.Limiter, lg *slog.Logger) func(http.Handler) http.Handler {
	base := transport.NewBaseHandler(lg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tightest *limiter.Context
			for _, key := range rateLimitKeys(r) {
				limitCtx, err := limiterInstance.Get(r.Context(), key)
				if err != nil {
					base.Logger.Error("failed to get rate limit context", "key", key, "error", err)
					base.WriteError(w, http.StatusInternalServerError, "internal server error")
					return
				}
				if tightest == nil || limitCtx.Reached || (!tightest.Reached && limitCtx.Remaining < tightest.Remaining) {
					tightest = &limitCtx
				}
				if limitCtx.Reached {
					base.Logger.Warn("rate limit exceeded", "key", key, "limit", limitCtx.Limit)
					break
				}
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(tightest.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(tightest.Remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(tightest.Reset, 10))

			if tightest.Reached {
				base.WriteError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitKeys never trusts a session id minted for this request, since a
// client that drops cookies would get a new one every time.
func rateLimitKeys(r *http.Request) []string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	keys := []string{"ip:" + host}

	ctx := r.Context()
	if sessionID := errors.SessionIDFromContext(ctx); sessionID != "" && errors.SessionResumed(ctx) {
		keys = append(keys, "session:"+sessionID)
	}
	return keys
}
