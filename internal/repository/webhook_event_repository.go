package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"ecommerce-backend/internal/entity"
)

const mysqlDuplicateEntry = 1062

// WebhookEventRepository is the idempotency ledger for provider events.
type WebhookEventRepository struct {
	db *sql.DB
}

func NewWebhookEventRepository(db *sql.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db}
}

// TryClaim attempts to record the event as processed. Exactly one concurrent
// caller gets true; every other delivery of the same event gets false. The
// insert relies on the unique constraint, not on a prior existence check,
// since check-then-insert leaves a race window between the two statements.
func (r *WebhookEventRepository) TryClaim(ctx context.Context, record *entity.ProcessedEvent) (bool, error) {
	record.ProcessedAt = time.Now().UTC()
	query := `INSERT INTO webhook_events (event_id, event_type, processed_at) VALUES (?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, record.EventID, record.EventType, record.ProcessedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// PurgeOlderThan removes ledger records past the retention window. The
// provider stops replaying events after a few days, so old claims only take
// up space.
func (r *WebhookEventRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM webhook_events WHERE processed_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}
	// sqlite (tests) reports unique violations by message
	s := err.Error()
	return strings.Contains(s, "UNIQUE") || strings.Contains(s, "unique")
}
