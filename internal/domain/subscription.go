package domain

import "time"

// Subscription tracks one query on behalf of one subscriber.
type Subscription struct {
	ID               int64
	Query            string
	Email            string
	LastSeenKey      string
	Active           bool
	UnsubscribeToken string
	CreatedAt        time.Time
}
