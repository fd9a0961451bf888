package security

import (
	"context"
	"time"

	"storefront/config"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// Messages returned by the per-class rate limiters
const (
	generalLimitMessage = "Too many requests from this IP, please try again later."
	strictLimitMessage  = "Too many attempts from this IP, please try again later."
	orderLimitMessage   = "Too many orders from this IP, please try again later."
)

// Pipeline is the ordered chain of request-filtering stages. Each stage
// either passes the request on or terminates with a response; once a
// stage aborts, no later stage or handler runs. The stage order is fixed:
// detection inspects raw input, so it must run before the sanitizers.
type Pipeline struct {
	cfg config.SecurityConfig

	general *RateLimiter
	strict  *RateLimiter
	order   *RateLimiter
	speed   *SpeedLimiter
}

// defaultMaxBodyBytes caps request bodies when no limit is configured
const defaultMaxBodyBytes = 100 << 10

// NewPipeline constructs the pipeline and its limiter state
func NewPipeline(cfg config.SecurityConfig) *Pipeline {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Pipeline{
		cfg:     cfg,
		general: NewRateLimiter(cfg.GeneralWindow, cfg.GeneralMax),
		strict:  NewRateLimiter(cfg.StrictWindow, cfg.StrictMax),
		order:   NewRateLimiter(cfg.OrderWindow, cfg.OrderMax),
		speed:   NewSpeedLimiter(cfg.SpeedWindow, cfg.SpeedDelayAfter, cfg.SpeedDelayStep, cfg.SpeedMaxDelay),
	}
}

// Install attaches the global stages to the engine in their fixed order
func (p *Pipeline) Install(r *gin.Engine) {
	r.Use(RequestLogger())
	r.Use(Headers())
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(BodyLimit(p.cfg.MaxBodyBytes))
	r.Use(SpeedLimit(p.speed))
	r.Use(RateLimit(p.general, "general", generalLimitMessage))
	r.Use(DetectSuspicious())
	r.Use(ParamPollutionGuard())
	r.Use(SanitizeInjection())
	r.Use(SanitizeXSS())
}

// StrictLimit guards sensitive routes such as the customer-info form.
// Only requests that end in an error status consume the budget.
func (p *Pipeline) StrictLimit() gin.HandlerFunc {
	return RateLimitFailures(p.strict, "strict", strictLimitMessage)
}

// OrderLimit guards order creation
func (p *Pipeline) OrderLimit() gin.HandlerFunc {
	return RateLimit(p.order, "order", orderLimitMessage)
}

// Allowlist guards operator routes by client IP
func (p *Pipeline) Allowlist() gin.HandlerFunc {
	return IPAllowlist(p.cfg.AdminIPs)
}

// StartSweeping evicts expired limiter buckets until ctx is cancelled
func (p *Pipeline) StartSweeping(ctx context.Context) {
	go p.general.Sweep(ctx, time.Minute)
	go p.strict.Sweep(ctx, time.Minute)
	go p.order.Sweep(ctx, time.Minute)
	go p.speed.Sweep(ctx, time.Minute)
}
