package handlers

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/heshammera/orderly-shop-sub002/internal/platform/httpx"
)

// submitLimiter throttles order submissions per store and client address
// inside fixed windows that reset when they expire. Quote requests are
// not limited.
type submitLimiter struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu   sync.Mutex
	seen map[string]limiterEntry
}

type limiterEntry struct {
	count int
	reset time.Time
}

func newSubmitLimiter(limit int, window time.Duration, clock func() time.Time) *submitLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &submitLimiter{
		limit:  limit,
		window: window,
		clock:  clock,
		seen:   make(map[string]limiterEntry),
	}
}

func (l *submitLimiter) allow(key string) bool {
	if l == nil {
		return true
	}
	now := l.clock()
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.seen[key]
	if !ok || now.After(entry.reset) {
		l.seen[key] = limiterEntry{count: 1, reset: now.Add(l.window)}
		l.pruneLocked(now)
		return true
	}
	if entry.count >= l.limit {
		return false
	}
	entry.count++
	l.seen[key] = entry
	return true
}

func (l *submitLimiter) pruneLocked(now time.Time) {
	for key, entry := range l.seen {
		if now.After(entry.reset) {
			delete(l.seen, key)
		}
	}
}

// middleware rejects over-limit submissions with 429.
func (l *submitLimiter) middleware(next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "storeID") + "|" + clientAddr(r)
		if !l.allow(key) {
			httpx.WriteError(w, r, http.StatusTooManyRequests, httpx.ErrorBody{
				Code:    "RATE_LIMITED",
				Message: "too many submissions, slow down",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
