package agenda

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanPersona(row pgx.Row) (*Persona, error) {
	var p Persona

	err := row.Scan(
		&p.ID,
		&p.DNI,
		&p.Nombre,
		&p.Email,
		&p.Telefono,
		&p.FechaNacimiento,
		&p.Habilitado,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPersonaNoEncontrada
		}
		return nil, err
	}

	return &p, nil
}

func scanTurno(row pgx.Row) (*Turno, error) {
	var t Turno

	err := row.Scan(
		&t.ID,
		&t.Fecha,
		&t.Hora,
		&t.Estado,
		&t.PersonaID,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTurnoNoEncontrado
		}
		return nil, err
	}

	return &t, nil
}

// mapPgError translates constraint violations into domain errors.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505": // unique_violation
		switch pgErr.ConstraintName {
		case "personas_dni_key":
			return ErrDNIRegistrado
		case "personas_email_key":
			return ErrEmailRegistrado
		case "personas_telefono_key":
			return ErrTelefonoRegistrado
		case "turnos_fecha_hora_activo":
			return ErrHorarioOcupado
		}
	case "23503": // foreign_key_violation
		if pgErr.TableName == "turnos" {
			return ErrPersonaNoEncontrada
		}
		return ErrPersonaConTurnos
	}
	return err
}

// Personas

func (r *PgRepository) ListPersonas(ctx context.Context, limit, offset int) ([]Persona, error) {
	q := `
		SELECT id, dni, nombre, email, telefono, fecha_nacimiento, habilitado, created_at, updated_at
		FROM personas
		ORDER BY id
	`
	var (
		rows pgx.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.pool.Query(ctx, q+` LIMIT $1 OFFSET $2`, limit, offset)
	} else {
		rows, err = r.pool.Query(ctx, q)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Persona
	for rows.Next() {
		p, err := scanPersona(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}

	return result, rows.Err()
}

func (r *PgRepository) GetPersonaByID(ctx context.Context, id int64) (*Persona, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, dni, nombre, email, telefono, fecha_nacimiento, habilitado, created_at, updated_at
		FROM personas
		WHERE id = $1
	`, id)
	return scanPersona(row)
}

func (r *PgRepository) GetPersonaByDNI(ctx context.Context, dni int64) (*Persona, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, dni, nombre, email, telefono, fecha_nacimiento, habilitado, created_at, updated_at
		FROM personas
		WHERE dni = $1
	`, dni)
	return scanPersona(row)
}

func (r *PgRepository) GetPersonaByEmail(ctx context.Context, email string) (*Persona, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, dni, nombre, email, telefono, fecha_nacimiento, habilitado, created_at, updated_at
		FROM personas
		WHERE email = $1
	`, email)
	return scanPersona(row)
}

func (r *PgRepository) GetPersonaByTelefono(ctx context.Context, telefono int64) (*Persona, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, dni, nombre, email, telefono, fecha_nacimiento, habilitado, created_at, updated_at
		FROM personas
		WHERE telefono = $1
	`, telefono)
	return scanPersona(row)
}

func (r *PgRepository) CreatePersona(ctx context.Context, p *Persona) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO personas (dni, nombre, email, telefono, fecha_nacimiento, habilitado, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING id, created_at, updated_at
	`, p.DNI, p.Nombre, p.Email, p.Telefono, p.FechaNacimiento, p.Habilitado)

	if err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return mapPgError(err)
	}
	return nil
}

func (r *PgRepository) UpdatePersona(ctx context.Context, p *Persona) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE personas
		SET dni = $2,
		    nombre = $3,
		    email = $4,
		    telefono = $5,
		    fecha_nacimiento = $6,
		    habilitado = $7,
		    updated_at = now()
		WHERE id = $1
	`, p.ID, p.DNI, p.Nombre, p.Email, p.Telefono, p.FechaNacimiento, p.Habilitado)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPersonaNoEncontrada
	}
	return nil
}

func (r *PgRepository) DeletePersona(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM personas WHERE id = $1`, id)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPersonaNoEncontrada
	}
	return nil
}

func (r *PgRepository) SetPersonaHabilitada(ctx context.Context, id int64, habilitada bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE personas
		SET habilitado = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, habilitada)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPersonaNoEncontrada
	}
	return nil
}

// Turnos

func (r *PgRepository) ListTurnos(ctx context.Context, limit, offset int) ([]Turno, error) {
	q := `
		SELECT id, fecha, hora, estado, persona_id, created_at, updated_at
		FROM turnos
		ORDER BY id
	`
	var (
		rows pgx.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.pool.Query(ctx, q+` LIMIT $1 OFFSET $2`, limit, offset)
	} else {
		rows, err = r.pool.Query(ctx, q)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTurnos(rows)
}

func (r *PgRepository) GetTurnoByID(ctx context.Context, id int64) (*Turno, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, fecha, hora, estado, persona_id, created_at, updated_at
		FROM turnos
		WHERE id = $1
	`, id)
	return scanTurno(row)
}

func (r *PgRepository) ListTurnosByFecha(ctx context.Context, fecha string) ([]Turno, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, fecha, hora, estado, persona_id, created_at, updated_at
		FROM turnos
		WHERE fecha = $1
		ORDER BY hora, id
	`, fecha)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTurnos(rows)
}

func (r *PgRepository) ListTurnosByPersona(ctx context.Context, personaID int64) ([]Turno, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, fecha, hora, estado, persona_id, created_at, updated_at
		FROM turnos
		WHERE persona_id = $1
		ORDER BY id
	`, personaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTurnos(rows)
}

func (r *PgRepository) CountTurnosDePersona(ctx context.Context, personaID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM turnos WHERE persona_id = $1
	`, personaID).Scan(&n)
	return n, err
}

func (r *PgRepository) CreateTurno(ctx context.Context, t *Turno) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO turnos (fecha, hora, estado, persona_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		RETURNING id, created_at, updated_at
	`, t.Fecha, t.Hora, t.Estado, t.PersonaID)

	if err := row.Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return mapPgError(err)
	}
	return nil
}

func (r *PgRepository) UpdateTurno(ctx context.Context, t *Turno) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE turnos
		SET fecha = $2,
		    hora = $3,
		    estado = $4,
		    persona_id = $5,
		    updated_at = now()
		WHERE id = $1
	`, t.ID, t.Fecha, t.Hora, t.Estado, t.PersonaID)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTurnoNoEncontrado
	}
	return nil
}

func (r *PgRepository) DeleteTurno(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM turnos WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTurnoNoEncontrado
	}
	return nil
}

// Reliability policy

func (r *PgRepository) CountCanceladosDesde(ctx context.Context, personaID int64, desdeFecha string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM turnos
		WHERE persona_id = $1
		  AND estado = $2
		  AND fecha >= $3
	`, personaID, EstadoCancelado, desdeFecha).Scan(&n)
	return n, err
}

// Reporting joins

const turnoConPersonaColumns = `
	t.id, t.fecha, t.hora, t.estado, t.persona_id, t.created_at, t.updated_at,
	p.id, p.dni, p.nombre, p.email, p.telefono, p.fecha_nacimiento, p.habilitado, p.created_at, p.updated_at
`

func (r *PgRepository) ListTurnosConPersonaByFecha(ctx context.Context, fecha string) ([]TurnoConPersona, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+turnoConPersonaColumns+`
		FROM turnos t
		JOIN personas p ON p.id = t.persona_id
		WHERE t.fecha = $1
		ORDER BY p.nombre, p.id, t.hora, t.id
	`, fecha)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTurnosConPersona(rows)
}

func (r *PgRepository) ListTurnosConPersonaByEstado(ctx context.Context, estado Estado, desde, hasta string) ([]TurnoConPersona, error) {
	q := `
		SELECT ` + turnoConPersonaColumns + `
		FROM turnos t
		JOIN personas p ON p.id = t.persona_id
		WHERE t.estado = $1
	`
	args := []any{estado}
	if desde != "" {
		args = append(args, desde)
		q += fmt.Sprintf(" AND t.fecha >= $%d", len(args))
	}
	if hasta != "" {
		args = append(args, hasta)
		q += fmt.Sprintf(" AND t.fecha <= $%d", len(args))
	}
	q += ` ORDER BY p.nombre, p.id, t.fecha, t.hora, t.id`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTurnosConPersona(rows)
}

func collectTurnos(rows pgx.Rows) ([]Turno, error) {
	var result []Turno
	for rows.Next() {
		t, err := scanTurno(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	return result, rows.Err()
}

func collectTurnosConPersona(rows pgx.Rows) ([]TurnoConPersona, error) {
	var result []TurnoConPersona
	for rows.Next() {
		var tc TurnoConPersona
		err := rows.Scan(
			&tc.ID,
			&tc.Fecha,
			&tc.Hora,
			&tc.Estado,
			&tc.PersonaID,
			&tc.CreatedAt,
			&tc.UpdatedAt,
			&tc.Persona.ID,
			&tc.Persona.DNI,
			&tc.Persona.Nombre,
			&tc.Persona.Email,
			&tc.Persona.Telefono,
			&tc.Persona.FechaNacimiento,
			&tc.Persona.Habilitado,
			&tc.Persona.CreatedAt,
			&tc.Persona.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, tc)
	}
	return result, rows.Err()
}
