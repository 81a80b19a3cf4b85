// Package httpapi exposes the analysis stream, subscriptions and health over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"CourtMonitor/internal/domain"
	"CourtMonitor/internal/locale"
	"CourtMonitor/internal/ports"
	"CourtMonitor/internal/queue"
	"CourtMonitor/internal/ratelimit"
)

// AnalysisRunner runs one query through the pipeline, streaming progress to sink.
type AnalysisRunner interface {
	RunQuery(ctx context.Context, query string, limit int, sink ports.ProgressSink) (domain.PipelineResult, error)
}

// Options tunes request handling.
type Options struct {
	DefaultCases   int
	MaxCases       int
	Heartbeat      time.Duration
	AllowedOrigins []string
	// TrustedProxies lists the CIDRs whose X-Forwarded-For is honoured.
	// Empty means clients are keyed by their socket address.
	TrustedProxies []string
}

// Deps are the collaborators behind the HTTP surface.
type Deps struct {
	Runner        AnalysisRunner
	Queue         *queue.Queue
	Limiter       *ratelimit.Limiter
	Subscriptions ports.SubscriptionRepository
	Catalog       locale.Catalog
	Logger        *slog.Logger
}

// Server is the echo application.
type Server struct {
	echo          *echo.Echo
	runner        AnalysisRunner
	queue         *queue.Queue
	limiter       *ratelimit.Limiter
	subscriptions ports.SubscriptionRepository
	catalog       locale.Catalog
	opts          Options
	logger        *slog.Logger
}

// New registers routes and middleware.
func New(deps Deps, opts Options) *Server {
	if opts.DefaultCases <= 0 {
		opts.DefaultCases = 2
	}
	if opts.MaxCases < opts.DefaultCases {
		opts.MaxCases = opts.DefaultCases
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 15 * time.Second
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		echo:          echo.New(),
		runner:        deps.Runner,
		queue:         deps.Queue,
		limiter:       deps.Limiter,
		subscriptions: deps.Subscriptions,
		catalog:       deps.Catalog,
		opts:          opts,
		logger:        logger,
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.IPExtractor = clientIPExtractor(opts.TrustedProxies, logger)

	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.Secure())
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: opts.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
	}))

	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api")
	api.POST("/court-analysis", s.handleAnalysis, s.rateLimit())
	api.POST("/subscriptions", s.handleSubscribe)
	api.GET("/unsubscribe/:token", s.handleUnsubscribe)

	return s
}

func clientIPExtractor(cidrs []string, logger *slog.Logger) echo.IPExtractor {
	var ranges []echo.TrustOption
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			logger.Warn("ignoring trusted proxy", "cidr", cidr, "error", err)
			continue
		}
		ranges = append(ranges, echo.TrustIPRange(network))
	}
	if len(ranges) == 0 {
		return echo.ExtractIPDirect()
	}
	trust := append([]echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}, ranges...)
	return echo.ExtractIPFromXFFHeader(trust...)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("http server listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	body := map[string]any{"status": "ok"}
	if s.queue != nil {
		body["queue"] = s.queue.Stats()
	}
	return c.JSON(http.StatusOK, body)
}
