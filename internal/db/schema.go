package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied idempotently on startup and again whenever the monitor
// observes the database coming back up. The UNIQUE constraint on
// (user_id, habit_id, date) is the only correctness-critical concurrency
// control in the system: concurrent upserts for the same key race on it and
// the loser falls back to an update.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            SERIAL PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS habits (
	id                 SERIAL PRIMARY KEY,
	user_id            INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name               TEXT NOT NULL,
	description        TEXT NOT NULL DEFAULT '',
	category           TEXT NOT NULL DEFAULT 'general',
	frequency          TEXT NOT NULL DEFAULT 'daily',
	target_value       INTEGER NOT NULL DEFAULT 1 CHECK (target_value >= 1),
	unit               TEXT NOT NULL DEFAULT '',
	color              TEXT NOT NULL DEFAULT '#2196f3',
	reminder_enabled   BOOLEAN NOT NULL DEFAULT FALSE,
	reminder_start     TEXT NOT NULL DEFAULT '',
	reminder_end       TEXT NOT NULL DEFAULT '',
	reminder_frequency TEXT NOT NULL DEFAULT 'daily',
	reminder_message   TEXT NOT NULL DEFAULT '',
	is_active          BOOLEAN NOT NULL DEFAULT TRUE,
	start_date         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_habits_user_created ON habits (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS progress (
	id           SERIAL PRIMARY KEY,
	user_id      INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	habit_id     INTEGER NOT NULL REFERENCES habits(id) ON DELETE CASCADE,
	date         DATE NOT NULL,
	value        DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (value >= 0),
	notes        TEXT NOT NULL DEFAULT '',
	completed    BOOLEAN NOT NULL DEFAULT FALSE,
	completed_at TIMESTAMPTZ,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT progress_user_habit_date_key UNIQUE (user_id, habit_id, date)
);

CREATE INDEX IF NOT EXISTS idx_progress_user_date ON progress (user_id, date DESC);
`

// EnsureSchema creates the tables and indexes if they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
