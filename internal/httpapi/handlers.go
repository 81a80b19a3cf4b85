package httpapi

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"CourtMonitor/internal/domain"
	"CourtMonitor/internal/locale"
	"CourtMonitor/internal/metrics"
	"CourtMonitor/internal/ratelimit"
	"CourtMonitor/internal/stream"
)

// HeaderRetryAfterMillis carries the rate-limit wait in milliseconds.
const HeaderRetryAfterMillis = "X-Rate-Limit-Retry-After-Milliseconds"

type errorResponse struct {
	Error        string `json:"error"`
	RetryAfterMs int64  `json:"retryAfterMs,omitempty"`
}

type analysisRequest struct {
	SearchTerm    string `json:"searchTerm"`
	NumberOfCases int    `json:"numberOfCases"`
}

type subscriptionRequest struct {
	SearchTerm string `json:"searchTerm"`
	Email      string `json:"email"`
}

type subscriptionResponse struct {
	ID         int64  `json:"id"`
	SearchTerm string `json:"searchTerm"`
	Email      string `json:"email"`
}

func (s *Server) rateLimit() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if s.limiter == nil {
				return next(c)
			}
			d := s.limiter.Admit(c.RealIP())
			if d.Allowed {
				return next(c)
			}

			metrics.RecordRateLimited(d.Window)
			ms := d.RetryAfter.Milliseconds()
			if ms < 1 {
				ms = 1
			}
			h := c.Response().Header()
			h.Set(HeaderRetryAfterMillis, strconv.FormatInt(ms, 10))
			h.Set("Retry-After", strconv.FormatInt(int64(math.Ceil(d.RetryAfter.Seconds())), 10))

			msg := s.catalog.BurstLimited
			if d.Window == ratelimit.WindowSustained {
				msg = s.catalog.SustainedLimited
			}
			s.logger.Warn("request rate limited", "client", c.RealIP(), "window", d.Window, "retry_after_ms", ms)
			return c.JSON(http.StatusTooManyRequests, errorResponse{Error: msg, RetryAfterMs: ms})
		}
	}
}

// handleAnalysis opens the event stream at once, queues the run and keeps
// the connection alive until the run finishes or the client leaves.
func (s *Server) handleAnalysis(c echo.Context) error {
	var req analysisRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	term := strings.TrimSpace(req.SearchTerm)
	if term == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Search term is required"})
	}
	limit := s.caseLimit(req.NumberOfCases)

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream; charset=utf-8")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.Header().Set("X-Accel-Buffering", "no")
	resp.WriteHeader(http.StatusOK)
	resp.Flush()

	logger := s.logger.With("run_id", uuid.NewString(), "search_term", term, "client", c.RealIP())
	sink := stream.NewSSE(resp, logger)
	defer sink.Close()

	ready := make(chan struct{})
	job, err := s.queue.Enqueue("court-analysis", func(ctx context.Context) {
		<-ready
		sink.Emit(domain.ProgressEvent{Step: domain.StepStarting, Progress: domain.At(5), Message: s.catalog.Starting})
		if _, err := s.runner.RunQuery(ctx, term, limit, sink); err != nil {
			logger.Warn("analysis run failed", "error", err)
			return
		}
		logger.Info("analysis run finished")
	})
	if err != nil {
		sink.Emit(domain.ProgressEvent{Step: domain.StepError, Progress: domain.At(100), Message: s.catalog.GenericError})
		return nil
	}

	sink.Emit(domain.ProgressEvent{
		Step:     domain.StepQueued,
		Progress: domain.At(0),
		Message:  locale.Format(s.catalog.Queued, job.Position()),
	})
	close(ready)

	heartbeat := time.NewTicker(s.opts.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-job.Done():
			return nil
		case <-c.Request().Context().Done():
			logger.Info("client disconnected, run continues without a listener")
			return nil
		case <-heartbeat.C:
			sink.Comment("heartbeat")
		}
	}
}

func (s *Server) caseLimit(requested int) int {
	switch {
	case requested <= 0:
		return s.opts.DefaultCases
	case requested > s.opts.MaxCases:
		return s.opts.MaxCases
	default:
		return requested
	}
}

func (s *Server) handleSubscribe(c echo.Context) error {
	var req subscriptionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	term := strings.TrimSpace(req.SearchTerm)
	if term == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Search term is required"})
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "a valid email address is required"})
	}

	sub, err := s.subscriptions.Create(c.Request().Context(), term, addr.Address)
	if err != nil {
		s.logger.Error("create subscription", "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: s.catalog.GenericError})
	}
	s.logger.Info("subscription created", "subscription_id", sub.ID, "search_term", term)
	return c.JSON(http.StatusCreated, subscriptionResponse{ID: sub.ID, SearchTerm: sub.Query, Email: sub.Email})
}

func (s *Server) handleUnsubscribe(c echo.Context) error {
	token := c.Param("token")
	err := s.subscriptions.Deactivate(c.Request().Context(), token)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "unknown unsubscribe token"})
	case err != nil:
		s.logger.Error("deactivate subscription", "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: s.catalog.GenericError})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "unsubscribed"})
}
