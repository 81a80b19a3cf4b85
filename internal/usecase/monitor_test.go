package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CourtMonitor/internal/domain"
	"CourtMonitor/internal/ports"
)

type memoryRepo struct {
	mu   sync.Mutex
	subs []domain.Subscription
}

func (r *memoryRepo) ListActive(context.Context) ([]domain.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Subscription
	for _, s := range r.subs {
		if s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memoryRepo) Create(_ context.Context, query, email string) (domain.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub := domain.Subscription{ID: int64(len(r.subs) + 1), Query: query, Email: email, Active: true}
	r.subs = append(r.subs, sub)
	return sub, nil
}

func (r *memoryRepo) UpdateLastSeen(_ context.Context, id int64, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.subs {
		if r.subs[i].ID == id {
			r.subs[i].LastSeenKey = key
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *memoryRepo) Deactivate(context.Context, string) error { return nil }

func (r *memoryRepo) lastSeen(id int64) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if s.ID == id {
			return s.LastSeenKey
		}
	}
	return ""
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []ports.Notification
	fail map[string]bool
}

func (n *recordingNotifier) Notify(_ context.Context, msg ports.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail[msg.Recipient] {
		return errors.New("mailbox unavailable")
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func TestTickNotifiesOnlyOnChange(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.session.results["stečaj"] = []domain.FilingInfo{filing("St-12/2024", "12.3.2024.", "rjesenje.pdf")}
	h.session.results["ovrha"] = []domain.FilingInfo{filing("Ovr-4/2024", "4.3.2024.", "zakljucak.pdf")}
	repo := &memoryRepo{}
	_, _ = repo.Create(context.Background(), "stečaj", "ana@example.test")
	_, _ = repo.Create(context.Background(), "ovrha", "ivo@example.test")
	notifier := &recordingNotifier{}
	detector := NewChangeDetector(h.provider, repo, notifier, h.pipeline, quietLogger())

	first, err := detector.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TickReport{Checked: 2, Notified: 2}, first)
	assert.Equal(t, "St-12/2024 - 12.3.2024.", repo.lastSeen(1))
	assert.Equal(t, "Ovr-4/2024 - 4.3.2024.", repo.lastSeen(2))
	require.Equal(t, 2, notifier.count())
	assert.Equal(t, "narrative over 1 filings", notifier.sent[0].Narrative)

	second, err := detector.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TickReport{Checked: 2, Unchanged: 2}, second)
	assert.Equal(t, 2, notifier.count(), "unchanged filings send nothing")

	assert.Equal(t, 2, h.provider.opens, "one session per tick")
	assert.Equal(t, 2, h.session.closed)
	assert.Empty(t, h.remaining(t))
}

func TestTickIsolatesSubscriptionFailures(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.session.errs["broken"] = errors.New("timeout")
	h.session.results["mailfail"] = []domain.FilingInfo{filing("R-1/2024", "1.4.2024.", "a.pdf")}
	h.session.results["healthy"] = []domain.FilingInfo{filing("R-2/2024", "2.4.2024.", "b.pdf")}
	repo := &memoryRepo{}
	_, _ = repo.Create(context.Background(), "broken", "a@example.test")
	_, _ = repo.Create(context.Background(), "mailfail", "b@example.test")
	_, _ = repo.Create(context.Background(), "healthy", "c@example.test")
	_, _ = repo.Create(context.Background(), "quiet", "d@example.test")
	notifier := &recordingNotifier{fail: map[string]bool{"b@example.test": true}}
	detector := NewChangeDetector(h.provider, repo, notifier, h.pipeline, quietLogger())

	report, err := detector.Tick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, TickReport{Checked: 4, Unchanged: 1, Notified: 1, Failed: 2}, report)
	assert.Empty(t, repo.lastSeen(2), "failed notification keeps the old key")
	assert.Equal(t, "R-2/2024 - 2.4.2024.", repo.lastSeen(3))
	require.Equal(t, 1, notifier.count())
	assert.Equal(t, "c@example.test", notifier.sent[0].Recipient)
}

func TestTickWithoutSubscriptionsOpensNoSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	detector := NewChangeDetector(h.provider, &memoryRepo{}, &recordingNotifier{}, h.pipeline, quietLogger())

	report, err := detector.Tick(context.Background())

	require.NoError(t, err)
	assert.Zero(t, report.Checked)
	assert.Zero(t, h.provider.opens)
}
