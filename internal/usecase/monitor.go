package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"CourtMonitor/internal/domain"
	"CourtMonitor/internal/metrics"
	"CourtMonitor/internal/ports"
	"CourtMonitor/internal/stream"
)

// TickReport summarises one pass over the active subscriptions.
type TickReport struct {
	Checked   int
	Unchanged int
	Notified  int
	Failed    int
}

// ChangeDetector re-runs tracked queries and notifies subscribers when the
// latest filing changes.
type ChangeDetector struct {
	search   ports.SearchProvider
	repo     ports.SubscriptionRepository
	notifier ports.Notifier
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewChangeDetector wires the detector.
func NewChangeDetector(search ports.SearchProvider, repo ports.SubscriptionRepository, notifier ports.Notifier, pipeline *Pipeline, logger *slog.Logger) *ChangeDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChangeDetector{search: search, repo: repo, notifier: notifier, pipeline: pipeline, logger: logger}
}

// Tick checks every active subscription once, sharing one search session.
// Per-subscription failures are logged and counted, never returned.
func (d *ChangeDetector) Tick(ctx context.Context) (TickReport, error) {
	var report TickReport

	subs, err := d.repo.ListActive(ctx)
	if err != nil {
		return report, fmt.Errorf("list subscriptions: %w", err)
	}
	if len(subs) == 0 {
		d.logger.Info("no active subscriptions")
		return report, nil
	}

	session, err := d.search.Open(ctx)
	if err != nil {
		return report, fmt.Errorf("open search session: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			d.logger.Warn("close search session", "error", cerr)
		}
	}()

	for _, sub := range subs {
		report.Checked++
		changed, err := d.check(ctx, session, sub)
		switch {
		case err != nil:
			report.Failed++
			d.logger.Error("subscription check failed", "subscription_id", sub.ID, "query", sub.Query, "error", err)
		case changed:
			report.Notified++
		default:
			report.Unchanged++
		}
	}

	d.logger.Info("subscription tick finished",
		"checked", report.Checked, "unchanged", report.Unchanged,
		"notified", report.Notified, "failed", report.Failed)
	return report, nil
}

// check returns true when the subscriber was notified about a new filing.
func (d *ChangeDetector) check(ctx context.Context, session ports.SearchSession, sub domain.Subscription) (bool, error) {
	filings, err := session.FindLatest(ctx, sub.Query, 1)
	if err != nil {
		return false, fmt.Errorf("search: %w", err)
	}
	if len(filings) == 0 {
		d.logger.Debug("no filings for subscription", "subscription_id", sub.ID, "query", sub.Query)
		return false, nil
	}

	latest := filings[0]
	key := latest.IdentityKey()
	if key == sub.LastSeenKey {
		d.logger.Debug("latest filing unchanged", "subscription_id", sub.ID, "key", key, "court", latest.Court)
		return false, nil
	}

	d.logger.Info("new filing detected", "subscription_id", sub.ID, "query", sub.Query, "key", key, "previous", sub.LastSeenKey)

	sink := stream.NewLogSink(d.logger, "subscription_id", sub.ID)
	result, err := d.pipeline.Run(ctx, []domain.FilingInfo{latest}, sink)
	if err != nil {
		return false, fmt.Errorf("analyse filing %s: %w", key, err)
	}

	err = d.notifier.Notify(ctx, ports.Notification{
		Recipient:        sub.Email,
		Query:            sub.Query,
		Filing:           latest,
		Narrative:        result.Narrative,
		UnsubscribeToken: sub.UnsubscribeToken,
	})
	if err != nil {
		metrics.RecordNotification("error")
		return false, fmt.Errorf("notify %s: %w", sub.Email, err)
	}
	metrics.RecordNotification("success")

	if err := d.repo.UpdateLastSeen(ctx, sub.ID, key); err != nil {
		return false, fmt.Errorf("persist last seen key: %w", err)
	}
	return true, nil
}
