// internal/geo/ipapi.go
package geo

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"proxylens/internal/platform/cache"
	"proxylens/internal/platform/httpclient"
	"proxylens/internal/platform/logx"
	"proxylens/internal/platform/rate"
	"proxylens/internal/platform/resilience"
)

const (
	// DefaultIPAPIBase endpoint JSON gratuito de ip-api.com (solo HTTP en la cuota gratuita)
	DefaultIPAPIBase = "http://ip-api.com/json/"

	// ip-api.com admite 45 peticiones por minuto por IP de origen
	ipapiQuota  = 45
	ipapiWindow = time.Minute

	defaultCacheSize = 4096
	defaultCacheTTL  = 6 * time.Hour
)

// IPAPIOptions configura un IPAPIResolver. Los valores cero toman los defaults.
type IPAPIOptions struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
	Limiter  *rate.Limiter
	Breaker  *resilience.CircuitBreaker
	Logger   logx.Logger
}

// IPAPIResolver consulta la IP de salida en ip-api.com. Una misma instancia se
// comparte entre las sesiones de un escaneo masivo: el límite de tasa, la caché
// y el breaker valen para toda la ejecución.
type IPAPIResolver struct {
	base    string
	client  *httpclient.Client
	cache   *cache.LRU[string, string]
	breaker *resilience.CircuitBreaker
	logger  logx.Logger
}

type ipapiResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Timezone string `json:"timezone"`
}

// NewIPAPIResolver construye un resolver.
func NewIPAPIResolver(opts IPAPIOptions) *IPAPIResolver {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultIPAPIBase
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.Per(ipapiQuota, ipapiWindow)
	}
	if opts.Breaker == nil {
		opts.Breaker = resilience.NewCircuitBreaker(5, time.Minute, 1)
	}
	if opts.Logger == nil {
		opts.Logger = logx.NewSilent()
	}
	logger := opts.Logger.With("component", "geo.ipapi")

	return &IPAPIResolver{
		base: opts.BaseURL,
		client: httpclient.New(httpclient.Config{
			Timeout:    opts.Timeout,
			MaxRetries: 1,
			Limiter:    opts.Limiter,
		}, logger),
		cache:   cache.New[string, string](defaultCacheSize, opts.CacheTTL),
		breaker: opts.Breaker,
		logger:  logger,
	}
}

// LookupTimezone implementa ports.TimezoneResolver.
func (r *IPAPIResolver) LookupTimezone(ctx context.Context, ip string) (string, error) {
	if net.ParseIP(ip) == nil {
		return "", fmt.Errorf("geo: invalid ip %q", ip)
	}
	if tz, ok := r.cache.Get(ip); ok {
		return tz, nil
	}

	var out ipapiResponse
	endpoint := r.base + url.PathEscape(ip) + "?fields=status,message,timezone"
	err := r.breaker.Execute(ctx, func(ctx context.Context) error {
		return r.client.GetJSON(ctx, endpoint, &out)
	})
	if err != nil {
		return "", fmt.Errorf("geo: ip-api lookup %s: %w", ip, err)
	}
	if out.Status != "success" {
		return "", fmt.Errorf("geo: ip-api %s: %s: %w", ip, out.Message, ErrNoTimezone)
	}

	tz, err := checkZone(out.Timezone)
	if err != nil {
		return "", err
	}
	r.cache.Set(ip, tz)
	r.logger.Debug("exit ip timezone resolved", "ip", ip, "timezone", tz)
	return tz, nil
}
