package database

import (
	"context"
	"database/sql"
)

// schema is the DDL for the token store.  The unique key enforces one
// token number per (department, date, slot); the secondary index backs
// the per-queue status lookups that every engine operation starts with.
const schema = `
CREATE TABLE IF NOT EXISTS service_tokens (
    id              BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
    booking_ref     BIGINT UNSIGNED NOT NULL,
    department_ref  BIGINT UNSIGNED NOT NULL,
    service_ref     BIGINT UNSIGNED NOT NULL,
    token_date      CHAR(10)        NOT NULL,
    slot_time       VARCHAR(32)     NOT NULL,
    token_number    INT             NOT NULL,
    priority_type   ENUM('NONE','SENIOR_CITIZEN','PREGNANT_WOMEN','DIFFERENTLY_ABLED')
                                    NOT NULL DEFAULT 'NONE',
    priority_rank   INT             NOT NULL DEFAULT 0,
    status          ENUM('WAITING','SERVING','COMPLETED','SKIPPED')
                                    NOT NULL DEFAULT 'WAITING',
    completed_at    DATETIME        NULL,
    created_at      DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (id),
    UNIQUE KEY uniq_slot_token (department_ref, token_date, slot_time, token_number),
    KEY idx_queue_status (department_ref, service_ref, token_date, status)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
`

// Migrate creates the service_tokens table when it does not exist yet.
// The DDL is idempotent so running it on every startup is safe; Connect
// calls it as the last step of its bootstrap.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
