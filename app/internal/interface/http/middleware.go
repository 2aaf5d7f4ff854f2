package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	domuser "example.com/gallery-storefront/app/internal/domain/user"
)

type ctxKey struct{}

var (
	ctxUserKey         = ctxKey{}
	errUnauthenticated = errors.New("unauthenticated")
	errForbidden       = errors.New("forbidden")
	errRateLimited     = errors.New("too many requests, slow down")
	errInternal        = errors.New("internal server error")
)

type authUser struct {
	UserID   int64
	RoleCode domuser.RoleCode
	Email    string
	Name     string
}

func (a *API) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			respondError(w, http.StatusUnauthorized, errUnauthenticated)
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		claims, err := a.tokenSvc.ParseToken(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, errUnauthenticated)
			return
		}

		ctx := context.WithValue(r.Context(), ctxUserKey, &authUser{
			UserID:   claims.UserID,
			RoleCode: claims.RoleCode,
			Email:    claims.Email,
			Name:     claims.Name,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *API) requireRoles(roles ...domuser.RoleCode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := getAuthUser(r.Context())
			if user == nil {
				respondError(w, http.StatusUnauthorized, errUnauthenticated)
				return
			}
			for _, role := range roles {
				if user.RoleCode == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			respondError(w, http.StatusForbidden, errForbidden)
		})
	}
}

func getAuthUser(ctx context.Context) *authUser {
	val := ctx.Value(ctxUserKey)
	if user, ok := val.(*authUser); ok {
		return user
	}
	return nil
}

const (
	limiterIdleTTL  = 10 * time.Minute
	limiterSweepMin = 1024
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps one token bucket per client IP. A non-positive rate
// disables it.
type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	rate     rate.Limit
	burst    int
	log      logrus.FieldLogger
	now      func() time.Time
}

func newRateLimiter(perMinute int, log logrus.FieldLogger) *rateLimiter {
	if perMinute <= 0 {
		return &rateLimiter{log: log}
	}
	return &rateLimiter{
		limiters: make(map[string]*clientLimiter),
		rate:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		log:      log,
		now:      time.Now,
	}
}

func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if len(rl.limiters) >= limiterSweepMin {
		for k, cl := range rl.limiters {
			if now.Sub(cl.lastSeen) > limiterIdleTTL {
				delete(rl.limiters, k)
			}
		}
	}

	cl, ok := rl.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

func (rl *rateLimiter) Handler(next http.Handler) http.Handler {
	if rl.limiters == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		if !rl.allow(key) {
			rl.log.WithFields(logrus.Fields{"client": key, "path": r.URL.Path}).Warn("rate limit exceeded")
			w.Header().Set("Retry-After", "60")
			respondError(w, http.StatusTooManyRequests, errRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port; chi's RealIP has already applied proxy headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
