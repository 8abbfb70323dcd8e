package http

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"recipeshare/internal/metrics"
)

// zapLoggerMiddleware loguea una linea por request.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// metricsMiddleware registra cada request usando la ruta declarada, no el path crudo.
func metricsMiddleware(rec metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		rec.ObserveRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en las respuestas de la API.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// IPRateLimiter limita requests por IP de cliente con un token bucket por IP.
type IPRateLimiter struct {
	rps   rate.Limit
	burst int
	ttl   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

// NewIPRateLimiter con rps <= 0 desactiva el limite.
func NewIPRateLimiter(rps float64, burst int) *IPRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &IPRateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		ttl:     10 * time.Minute,
		now:     time.Now,
		clients: map[string]*clientLimiter{},
	}
}

func (l *IPRateLimiter) limiterFor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	cl, ok := l.clients[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[ip] = cl
	}
	cl.lastAccess = now
	return cl.limiter
}

// Cleanup descarta los limitadores sin uso reciente.
func (l *IPRateLimiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	removed := 0
	for ip, cl := range l.clients {
		if now.Sub(cl.lastAccess) > l.ttl {
			delete(l.clients, ip)
			removed++
		}
	}
	return removed
}

// Run limpia periodicamente hasta que se cierre stop.
func (l *IPRateLimiter) Run(stop <-chan struct{}, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Cleanup()
		case <-stop:
			return
		}
	}
}

func (l *IPRateLimiter) Middleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || l.rps <= 0 {
			c.Next()
			return
		}
		ip := c.ClientIP()
		if !l.limiterFor(ip).Allow() {
			retry := int(math.Ceil(1.0 / float64(l.rps)))
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			logger.Warn("rate limit exceeded", zap.String("client_ip", ip))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apiError{Error: "too many requests", Code: "rate_limited"})
			return
		}
		c.Next()
	}
}
