package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fakhrymubarak/weather-onecall/internal/config"
	"github.com/fakhrymubarak/weather-onecall/internal/model"
	"golang.org/x/time/rate"
)

// visitor holds a token bucket and the last time it was used.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limits are expressed per minute, as in the config file.
type Limits struct {
	GlobalRate  float64
	GlobalBurst int
	ParamRate   float64
	ParamBurst  int
	IdleTimeout time.Duration
}

// LimitsFromConfig reads the rate_limiter section.
func LimitsFromConfig() Limits {
	gr, gb := config.GetGlobalRateLimiterConfig()
	pr, pb := config.GetParamRateLimiterConfig()
	return Limits{
		GlobalRate:  gr,
		GlobalBurst: gb,
		ParamRate:   pr,
		ParamBurst:  pb,
		IdleTimeout: config.GetRateLimiterCleanupTimeout(),
	}
}

// RateLimiter enforces a per-IP budget and a tighter per-IP, per-location one,
// so a client polling the same coordinate cannot hammer the upstream API.
type RateLimiter struct {
	limits Limits

	mu       sync.Mutex
	global   map[string]*visitor            // ip
	location map[string]map[string]*visitor // ip -> "lat,lon"
}

func NewRateLimiter(limits Limits) *RateLimiter {
	return &RateLimiter{
		limits:   limits,
		global:   make(map[string]*visitor),
		location: make(map[string]map[string]*visitor),
	}
}

func perMinute(n float64) rate.Limit {
	return rate.Limit(n / 60.0)
}

func (rl *RateLimiter) limiters(ip, loc string) (global, param *rate.Limiter) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := time.Now()

	g, ok := rl.global[ip]
	if !ok {
		g = &visitor{limiter: rate.NewLimiter(perMinute(rl.limits.GlobalRate), rl.limits.GlobalBurst)}
		rl.global[ip] = g
	}
	g.lastSeen = now

	byLoc, ok := rl.location[ip]
	if !ok {
		byLoc = make(map[string]*visitor)
		rl.location[ip] = byLoc
	}
	p, ok := byLoc[loc]
	if !ok {
		p = &visitor{limiter: rate.NewLimiter(perMinute(rl.limits.ParamRate), rl.limits.ParamBurst)}
		byLoc[loc] = p
	}
	p.lastSeen = now

	return g.limiter, p.limiter
}

// cleanup drops visitors idle for longer than the configured timeout.
func (rl *RateLimiter) cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, v := range rl.global {
		if now.Sub(v.lastSeen) > rl.limits.IdleTimeout {
			delete(rl.global, ip)
		}
	}
	for ip, byLoc := range rl.location {
		for loc, v := range byLoc {
			if now.Sub(v.lastSeen) > rl.limits.IdleTimeout {
				delete(byLoc, loc)
			}
		}
		if len(byLoc) == 0 {
			delete(rl.location, ip)
		}
	}
}

// StartCleanup sweeps stale visitors every interval until ctx is done.
func (rl *RateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				rl.cleanup(now)
			}
		}
	}()
}

// Reset clears all visitor state. Used primarily for testing.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.global = make(map[string]*visitor)
	rl.location = make(map[string]map[string]*visitor)
}

// getIP extracts the client's IP address from the HTTP request, considering X-Forwarded-For headers.
func getIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr // fallback
	}
	return ip
}

// getLocation keys the per-location bucket; requests naming no coordinate share one.
func getLocation(r *http.Request) string {
	q := r.URL.Query()
	lat, lon := q.Get("lat"), q.Get("lon")
	if lat == "" && lon == "" {
		return "__default__"
	}
	return lat + "," + lon
}

func tooManyRequests(w http.ResponseWriter, errMsg, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(model.Response{Error: &errMsg, Message: message})
}

// Middleware responds 429 with a JSON envelope once either budget is spent.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getIP(r)
		globalLimiter, paramLimiter := rl.limiters(ip, getLocation(r))
		if !globalLimiter.Allow() {
			config.GetLogger().Infow("Rate limit exceeded", "ip", ip, "scope", "global")
			tooManyRequests(w, "Rate limit exceeded: too many requests per user/IP", "Too Many Requests (global limit)")
			return
		}
		if !paramLimiter.Allow() {
			config.GetLogger().Infow("Rate limit exceeded", "ip", ip, "scope", "location")
			tooManyRequests(w, "Rate limit exceeded: too many requests for this location per user/IP", "Too Many Requests (per-location limit)")
			return
		}
		next.ServeHTTP(w, r)
	})
}
