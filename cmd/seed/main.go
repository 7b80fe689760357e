package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turnera/turnos-api/internal/agenda"
	"github.com/turnera/turnos-api/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(context.Background(), pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	ids, err := seedPersonas(context.Background(), pool, 200)
	if err != nil {
		log.Fatalf("seed personas: %v", err)
	}
	if err := seedTurnos(context.Background(), pool, ids, 14); err != nil {
		log.Fatalf("seed turnos: %v", err)
	}

	log.Println("seed complete")
}

func seedPersonas(ctx context.Context, pool *pgxpool.Pool, count int) ([]int64, error) {
	log.Printf("seeding %d personas", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]int64, 0, count)
	for i := 0; i < count; i++ {
		dni := int64(10_000_000 + gofakeit.Number(0, 39_999_999))
		telefono := int64(1_100_000_000 + gofakeit.Number(0, 899_999_999))
		nacimiento := gofakeit.DateRange(
			time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2007, 12, 31, 0, 0, 0, 0, time.UTC),
		).Format(agenda.FechaLayout)

		var id int64
		err := tx.QueryRow(ctx, `
			INSERT INTO personas (dni, nombre, email, telefono, fecha_nacimiento, habilitado, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, TRUE, now(), now())
			ON CONFLICT DO NOTHING
			RETURNING id
		`, dni, gofakeit.Name(), gofakeit.Email(), telefono, nacimiento).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			continue // dni/email/telefono collision, roll again
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

// seedTurnos books random slots over the coming days.
func seedTurnos(ctx context.Context, pool *pgxpool.Pool, personaIDs []int64, days int) error {
	if len(personaIDs) == 0 {
		log.Println("no personas to book for, skipping turnos")
		return nil
	}
	log.Printf("seeding turnos over %d days", days)

	estados := []agenda.Estado{
		agenda.EstadoPendiente,
		agenda.EstadoConfirmado,
		agenda.EstadoCancelado,
		agenda.EstadoAsistido,
	}
	horarios := agenda.HorariosValidos()

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	total := 0
	for d := 0; d < days; d++ {
		fecha := time.Now().AddDate(0, 0, d).Format(agenda.FechaLayout)
		for _, hora := range horarios {
			if gofakeit.Number(0, 2) == 0 {
				continue // leave some slots free
			}
			persona := personaIDs[gofakeit.Number(0, len(personaIDs)-1)]
			estado := estados[gofakeit.Number(0, len(estados)-1)]

			_, err := tx.Exec(ctx, `
				INSERT INTO turnos (fecha, hora, estado, persona_id, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
			`, fecha, hora, estado, persona)
			if err != nil {
				return err
			}
			total++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	log.Printf("seeded %d turnos", total)
	return nil
}
