package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"CourtMonitor/internal/domain"
	"CourtMonitor/internal/ports"
)

const subscriptionsTable = "subscriptions"

var subscriptionColumns = []string{"id", "query", "email", "last_seen_key", "active", "unsubscribe_token", "created_at"}

// SubscriptionRepository persists tracked queries in Postgres or SQLite.
type SubscriptionRepository struct {
	db       *sql.DB
	driver   string
	sb       sq.StatementBuilderType
	now      func() time.Time
	newToken func() string
}

var _ ports.SubscriptionRepository = (*SubscriptionRepository)(nil)

// NewSubscriptionRepository wires a sql.DB opened with driver.
func NewSubscriptionRepository(db *sql.DB, driver string) *SubscriptionRepository {
	var format sq.PlaceholderFormat = sq.Question
	if driver == DriverPostgres {
		format = sq.Dollar
	}
	return &SubscriptionRepository{
		db:       db,
		driver:   driver,
		sb:       sq.StatementBuilder.PlaceholderFormat(format),
		now:      func() time.Time { return time.Now().UTC() },
		newToken: uuid.NewString,
	}
}

// EnsureSchema creates the subscriptions table when it is missing.
func (r *SubscriptionRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaFor(r.driver)); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// ListActive returns active subscriptions in creation order.
func (r *SubscriptionRepository) ListActive(ctx context.Context) ([]domain.Subscription, error) {
	query, args, err := r.sb.Select(subscriptionColumns...).
		From(subscriptionsTable).
		Where(sq.Eq{"active": true}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}

	var result []domain.Subscription
	for rows.Next() {
		var s domain.Subscription
		if err := rows.Scan(&s.ID, &s.Query, &s.Email, &s.LastSeenKey, &s.Active, &s.UnsubscribeToken, &s.CreatedAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		result = append(result, s)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

// Create stores an active subscription with a fresh unsubscribe token.
func (r *SubscriptionRepository) Create(ctx context.Context, query, email string) (domain.Subscription, error) {
	now := r.now()
	sub := domain.Subscription{
		Query:            query,
		Email:            email,
		Active:           true,
		UnsubscribeToken: r.newToken(),
		CreatedAt:        now,
	}

	stmt, args, err := r.sb.Insert(subscriptionsTable).
		Columns("query", "email", "last_seen_key", "active", "unsubscribe_token", "created_at", "updated_at").
		Values(sub.Query, sub.Email, "", true, sub.UnsubscribeToken, now, now).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("build insert: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, stmt, args...).Scan(&sub.ID); err != nil {
		return domain.Subscription{}, fmt.Errorf("insert subscription: %w", err)
	}
	return sub, nil
}

// UpdateLastSeen records the identity key of the latest filing seen for a subscription.
func (r *SubscriptionRepository) UpdateLastSeen(ctx context.Context, id int64, key string) error {
	return r.update(ctx, sq.Eq{"id": id}, map[string]any{"last_seen_key": key})
}

// Deactivate stops notifications for the subscription owning token.
func (r *SubscriptionRepository) Deactivate(ctx context.Context, token string) error {
	if token == "" {
		return domain.ErrNotFound
	}
	return r.update(ctx, sq.Eq{"unsubscribe_token": token}, map[string]any{"active": false})
}

func (r *SubscriptionRepository) update(ctx context.Context, where sq.Eq, set map[string]any) error {
	set["updated_at"] = r.now()
	stmt, args, err := r.sb.Update(subscriptionsTable).SetMap(set).Where(where).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
