// Package dispatch resolves inbound requests to tenants and forwards them
// through the metering pipeline: host → config → rate limit → proxy →
// headers → async usage emit.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nimbusdeck/edge/internal/models"
	"github.com/nimbusdeck/edge/internal/ratelimit"
	"github.com/nimbusdeck/edge/internal/service"
	"github.com/nimbusdeck/edge/internal/usage"
	"github.com/nimbusdeck/edge/pkg/logger"
	"go.uber.org/zap"
)

// TenantResolver resolves a routing key (slug, falling back to raw project
// id) to a tenant config.
type TenantResolver interface {
	Resolve(ctx context.Context, key string) (*models.TenantConfig, error)
}

type Dispatcher struct {
	resolver     TenantResolver
	limiter      ratelimit.Limiter
	emitter      usage.Emitter
	proxies      *proxyCache
	log          *logger.Logger
	baseDomain   string
	defaultLimit int
	hostRe       *regexp.Regexp
}

func New(resolver TenantResolver, limiter ratelimit.Limiter, emitter usage.Emitter, log *logger.Logger, baseDomain string, defaultLimit int) *Dispatcher {
	if defaultLimit <= 0 {
		defaultLimit = models.DefaultRequestsPerMinute
	}

	return &Dispatcher{
		resolver:     resolver,
		limiter:      limiter,
		emitter:      emitter,
		proxies:      newProxyCache(log),
		log:          log,
		baseDomain:   baseDomain,
		defaultLimit: defaultLimit,
		hostRe:       regexp.MustCompile(`^([a-z0-9-]+)\.` + regexp.QuoteMeta(baseDomain) + `$`),
	}
}

// Middleware routes tenant-host traffic into the dispatcher. Requests to the
// apex domain fall through to the control-plane routes.
func (d *Dispatcher) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		host := stripPort(c.Request.Host)

		if host == d.baseDomain {
			c.Next()
			return
		}

		match := d.hostRe.FindStringSubmatch(host)
		if match == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid host"})
			c.Abort()
			return
		}

		d.handle(c, match[1])
		c.Abort()
	}
}

func (d *Dispatcher) handle(c *gin.Context, slug string) {
	start := time.Now()
	ctx := c.Request.Context()

	cfg, err := d.resolver.Resolve(ctx, slug)
	if errors.Is(err, service.ErrTenantNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "tenant not found"})
		return
	}
	if err != nil {
		d.log.Error("tenant lookup failed", err, zap.String("slug", slug))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "tenant lookup failed"})
		return
	}

	if !cfg.Dispatchable() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":  "tenant is not available",
			"status": cfg.Status,
		})
		return
	}

	limit := cfg.RequestsPerMinute
	if limit <= 0 {
		limit = d.defaultLimit
	}
	dec, limitErr := d.limiter.Check(ctx, cfg.ProjectID.String(), limit)
	if limitErr != nil {
		// Fail open: the counter store being down should not take tenant
		// traffic with it. Headers still go out, filled from an optimistic
		// decision for the current window.
		d.log.Error("rate limit check failed", limitErr,
			zap.String("project_id", cfg.ProjectID.String()),
		)
		dec = ratelimit.Decision{
			Allowed:   true,
			Remaining: limit - 1,
			Reset:     time.Now().Truncate(time.Minute).Add(time.Minute),
		}
	}
	if !dec.Allowed {
		retryAfter := int(time.Until(dec.Reset).Seconds())
		if retryAfter < 0 {
			retryAfter = 0
		}

		setRateLimitHeaders(c, limit, dec)
		c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error": "rate limit exceeded",
			"limit": limit,
			"reset": dec.Reset.Unix(),
		})
		return
	}

	proxy, err := d.proxies.get(cfg.WorkerRef)
	if err != nil {
		d.log.Error("invalid worker ref", err,
			zap.String("project_id", cfg.ProjectID.String()),
			zap.String("worker_ref", cfg.WorkerRef),
		)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "backend unavailable"})
		return
	}

	setRateLimitHeaders(c, limit, dec)

	recorder := &responseRecorder{
		ResponseWriter: c.Writer,
		statusCode:     http.StatusOK,
	}
	c.Writer = recorder

	proxy.ServeHTTP(recorder, c.Request)

	dp := usage.BuildDataPoint(c.Request, usage.ResponseInfo{
		StatusCode:   recorder.statusCode,
		Header:       recorder.Header(),
		BytesWritten: recorder.bytes,
	}, cfg, time.Since(start))

	// Fire-and-forget; Emit never blocks.
	d.emitter.Emit(dp)
}

func setRateLimitHeaders(c *gin.Context, limit int, dec ratelimit.Decision) {
	c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
	c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", dec.Remaining))
	c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", dec.Reset.Unix()))
}

func stripPort(host string) string {
	if !strings.Contains(host, ":") {
		return host
	}
	h, _, err := net.SplitHostPort(host)
	if err != nil {
		return host
	}
	return h
}
