package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS schedule_results (
		fingerprint VARCHAR(64) PRIMARY KEY,
		kind VARCHAR(16) NOT NULL,
		batch_id VARCHAR(64) NOT NULL,
		product_count INTEGER NOT NULL,
		successful INTEGER NOT NULL,
		errors INTEGER NOT NULL,
		total_value NUMERIC(20,2) NOT NULL,
		payload TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_schedule_results_kind ON schedule_results (kind);`,
	`CREATE TABLE IF NOT EXISTS payment_status (
		scope VARCHAR(128) NOT NULL,
		quarter_key VARCHAR(16) NOT NULL,
		paid BOOLEAN NOT NULL DEFAULT FALSE,
		paid_date VARCHAR(10),
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (scope, quarter_key)
	);`,
}

// Migrate creates the tables the service needs. Every statement is idempotent.
func Migrate(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
