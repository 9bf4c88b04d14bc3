package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema creates the registration tables. History and payment tables are
// append-only: no code path issues UPDATE or DELETE against them; only the
// registration's cascade delete removes rows.
const Schema = `
CREATE TABLE IF NOT EXISTS registrations (
	id                   UUID PRIMARY KEY,
	competition_id       TEXT NOT NULL,
	user_id              UUID,
	competing_status     TEXT NOT NULL,
	is_competing         BOOLEAN NOT NULL DEFAULT TRUE,
	guests               INTEGER NOT NULL DEFAULT 0,
	comments             TEXT NOT NULL DEFAULT '',
	administrative_notes TEXT NOT NULL DEFAULT '',
	registered_at        TIMESTAMPTZ NOT NULL,
	roles                TEXT NOT NULL DEFAULT '[]',
	version              BIGINT NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_registrations_competition_user
	ON registrations (competition_id, user_id);

CREATE TABLE IF NOT EXISTS registration_events (
	registration_id UUID NOT NULL REFERENCES registrations (id) ON DELETE CASCADE,
	event_id        TEXT NOT NULL,
	PRIMARY KEY (registration_id, event_id)
);

CREATE TABLE IF NOT EXISTS registration_history_entries (
	id              BIGSERIAL PRIMARY KEY,
	registration_id UUID NOT NULL REFERENCES registrations (id) ON DELETE CASCADE,
	actor_type      TEXT NOT NULL,
	actor_id        TEXT NOT NULL,
	action          TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS registration_history_changes (
	id       BIGSERIAL PRIMARY KEY,
	entry_id BIGINT NOT NULL REFERENCES registration_history_entries (id) ON DELETE CASCADE,
	key      TEXT NOT NULL,
	value    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS registration_payments (
	id                         UUID PRIMARY KEY,
	registration_id            UUID NOT NULL REFERENCES registrations (id) ON DELETE CASCADE,
	amount_lowest_denomination BIGINT NOT NULL,
	currency_code              TEXT NOT NULL,
	receipt_reference          TEXT NOT NULL,
	payment_status             TEXT NOT NULL,
	refunded_payment_id        UUID,
	user_id                    UUID NOT NULL,
	created_at                 TIMESTAMPTZ NOT NULL
);
`

// Migrate applies the schema. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply registration schema: %w", err)
	}
	return nil
}
