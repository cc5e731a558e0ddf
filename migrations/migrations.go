package migrations

import (
	"database/sql"
	"time"
)

func execWithRetry(db *sql.DB, query string, retries int) error {
	_, err := db.Exec(query)
	for i := 0; err != nil && i < retries; i++ {
		time.Sleep(1 * time.Second)
		_, err = db.Exec(query)
	}
	return err
}

// AutoMigrateUsers creates the users table if it does not exist.
func AutoMigrateUsers(db *sql.DB, retries int) error {
	query := `
		CREATE TABLE IF NOT EXISTS users (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			first_name VARCHAR(100) NOT NULL,
			last_name VARCHAR(100) NOT NULL,
			email VARCHAR(255) NOT NULL UNIQUE,
			password VARCHAR(255) NOT NULL,
			created_at DATETIME NOT NULL
		);
	`
	return execWithRetry(db, query, retries)
}

// AutoMigrateProducts creates the products table if it does not exist.
func AutoMigrateProducts(db *sql.DB, retries int) error {
	query := `
		CREATE TABLE IF NOT EXISTS products (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description TEXT NOT NULL,
			price BIGINT NOT NULL,
			currency CHAR(3) NOT NULL,
			image_url VARCHAR(1024) NOT NULL
		);
	`
	return execWithRetry(db, query, retries)
}

// AutoMigrateOrders creates the orders and order_items tables if they do not
// exist. payment_intent_id is UNIQUE: an order holds exactly one intent
// reference for its whole lifetime, and webhook handlers address orders only
// through it.
func AutoMigrateOrders(db *sql.DB, retries int) error {
	ordersQuery := `
		CREATE TABLE IF NOT EXISTS orders (
			id CHAR(36) PRIMARY KEY,
			user_id BIGINT NOT NULL,
			total_amount BIGINT NOT NULL,
			currency CHAR(3) NOT NULL,
			status VARCHAR(20) NOT NULL,
			payment_intent_id VARCHAR(255) NOT NULL UNIQUE,
			paid_at DATETIME NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`
	if err := execWithRetry(db, ordersQuery, retries); err != nil {
		return err
	}

	itemsQuery := `
		CREATE TABLE IF NOT EXISTS order_items (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			order_id CHAR(36) NOT NULL,
			product_id BIGINT NOT NULL,
			product_name VARCHAR(255) NOT NULL,
			quantity INT NOT NULL,
			unit_price BIGINT NOT NULL,
			FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE
		);
	`
	return execWithRetry(db, itemsQuery, retries)
}

// AutoMigrateWebhookEvents creates the idempotency ledger table if it does
// not exist. The UNIQUE constraint on event_id is the serialization point
// for duplicate webhook deliveries.
func AutoMigrateWebhookEvents(db *sql.DB, retries int) error {
	query := `
		CREATE TABLE IF NOT EXISTS webhook_events (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			event_id VARCHAR(255) NOT NULL UNIQUE,
			event_type VARCHAR(100) NOT NULL,
			processed_at DATETIME NOT NULL
		);
	`
	return execWithRetry(db, query, retries)
}
