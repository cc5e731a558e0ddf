package entity

import "time"

// ProcessedEvent is one row of the webhook idempotency ledger. At most one
// row per provider event id can ever exist; the unique constraint on
// event_id is what makes concurrent duplicate deliveries safe.
type ProcessedEvent struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	ProcessedAt time.Time `json:"processed_at"`
}

/*
Mysql Table

CREATE TABLE webhook_events (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	event_id VARCHAR(255) NOT NULL UNIQUE,
	event_type VARCHAR(100) NOT NULL,
	processed_at DATETIME NOT NULL
);
*/
