package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// The partial unique index keeps a (fecha, hora) pair unique among
// non-cancelled turnos so two racing bookings cannot both land.
const schema = `
CREATE TABLE IF NOT EXISTS personas (
	id               BIGSERIAL PRIMARY KEY,
	dni              BIGINT      NOT NULL UNIQUE,
	nombre           TEXT        NOT NULL,
	email            TEXT        NOT NULL UNIQUE,
	telefono         BIGINT      NOT NULL UNIQUE,
	fecha_nacimiento TEXT        NOT NULL DEFAULT '',
	habilitado       BOOLEAN     NOT NULL DEFAULT TRUE,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS turnos (
	id         BIGSERIAL PRIMARY KEY,
	fecha      TEXT        NOT NULL,
	hora       TEXT        NOT NULL,
	estado     TEXT        NOT NULL DEFAULT 'pendiente',
	persona_id BIGINT      NOT NULL REFERENCES personas(id) ON DELETE RESTRICT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS turnos_fecha_hora_activo
	ON turnos (fecha, hora) WHERE estado <> 'cancelado';

CREATE INDEX IF NOT EXISTS turnos_fecha_idx ON turnos (fecha);
CREATE INDEX IF NOT EXISTS turnos_persona_idx ON turnos (persona_id);
`

// Migrate applies the schema on startup. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
