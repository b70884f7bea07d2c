package api

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"tourplan/internal/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack keeps the websocket upgrade working through the wrapper.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("hijacking not supported")
	}
	return hj.Hijack()
}

// MetricsMiddleware records request counts and latencies on the dedicated
// registry. Streaming endpoints are recorded when the client disconnects.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		status := strconv.Itoa(rec.status)
		metrics.HTTPRequests.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(time.Since(start).Seconds())
	})
}

type clientLimiter struct {
	mu      sync.Mutex
	clients map[string]*rate.Limiter
	r       rate.Limit
	burst   int
}

// NewRateLimiter caps requests per client IP. Streaming and health probes
// should be mounted outside of it.
func NewRateLimiter(perSecond float64, burst int) func(http.Handler) http.Handler {
	cl := &clientLimiter{clients: map[string]*rate.Limiter{}, r: rate.Limit(perSecond), burst: burst}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			if !cl.allow(host) {
				writeProblem(w, http.StatusTooManyRequests, "Rate limited", "slow down", r.URL.Path)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (cl *clientLimiter) allow(key string) bool {
	cl.mu.Lock()
	lim := cl.clients[key]
	if lim == nil {
		lim = rate.NewLimiter(cl.r, cl.burst)
		cl.clients[key] = lim
	}
	cl.mu.Unlock()
	return lim.Allow()
}
