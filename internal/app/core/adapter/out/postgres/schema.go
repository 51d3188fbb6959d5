package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL UNIQUE,
	password   TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

DO $$ BEGIN
	CREATE TYPE statement_type AS ENUM ('deposit', 'withdraw', 'transfer');
EXCEPTION
	WHEN duplicate_object THEN NULL;
END $$;

CREATE TABLE IF NOT EXISTS statements (
	seq         BIGSERIAL PRIMARY KEY,
	id          UUID NOT NULL UNIQUE,
	user_id     UUID NOT NULL REFERENCES users (id),
	sender_id   UUID REFERENCES users (id),
	type        statement_type NOT NULL,
	amount      NUMERIC(20, 4) NOT NULL CHECK (amount > 0),
	description TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL,
	CHECK ((type = 'transfer') = (sender_id IS NOT NULL)),
	CHECK (sender_id IS NULL OR sender_id <> user_id)
);

CREATE INDEX IF NOT EXISTS idx_statements_user_id ON statements (user_id);
CREATE INDEX IF NOT EXISTS idx_statements_sender_id ON statements (sender_id);
`

// Migrate 建立資料表 (可重複執行)
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
