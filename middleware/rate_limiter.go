package middleware

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Per-client token buckets keyed by IP. Defaults suit a polling dashboard
// client; RATE_LIMIT_RPS and RATE_LIMIT_BURST override them.
const (
	defaultRatePerSecond = 5
	defaultBurst         = 30
	clientIdleTimeout    = 3 * time.Minute
)

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	clientsMu sync.Mutex
	clients   = make(map[string]*clientBucket)
)

func limitSettings() (rate.Limit, int) {
	rps := defaultRatePerSecond
	if raw := os.Getenv("RATE_LIMIT_RPS"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			rps = n
		}
	}
	burst := defaultBurst
	if raw := os.Getenv("RATE_LIMIT_BURST"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			burst = n
		}
	}
	return rate.Limit(rps), burst
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}

func bucketFor(ip string) *rate.Limiter {
	clientsMu.Lock()
	defer clientsMu.Unlock()

	if b, ok := clients[ip]; ok {
		b.lastSeen = time.Now()
		return b.limiter
	}

	rps, burst := limitSettings()
	b := &clientBucket{limiter: rate.NewLimiter(rps, burst), lastSeen: time.Now()}
	clients[ip] = b
	return b.limiter
}

func RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !bucketFor(clientIP(r)).Allow() {
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// EvictIdleClients drops buckets that have been idle past the timeout so the
// map does not grow with every address ever seen. Run it in its own goroutine.
func EvictIdleClients() {
	for {
		time.Sleep(time.Minute)
		clientsMu.Lock()
		for ip, b := range clients {
			if time.Since(b.lastSeen) > clientIdleTimeout {
				delete(clients, ip)
			}
		}
		clientsMu.Unlock()
	}
}
