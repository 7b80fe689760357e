package agenda

import (
	"context"
	"errors"
)

var (
	ErrPersonaNoEncontrada = errors.New("persona no encontrada")
	ErrTurnoNoEncontrado   = errors.New("turno no encontrado")
)

// Repository contains all DB interactions needed by the services.
type Repository interface {
	// Personas
	ListPersonas(ctx context.Context, limit, offset int) ([]Persona, error)
	GetPersonaByID(ctx context.Context, id int64) (*Persona, error)
	GetPersonaByDNI(ctx context.Context, dni int64) (*Persona, error)
	GetPersonaByEmail(ctx context.Context, email string) (*Persona, error)
	GetPersonaByTelefono(ctx context.Context, telefono int64) (*Persona, error)
	CreatePersona(ctx context.Context, p *Persona) error
	UpdatePersona(ctx context.Context, p *Persona) error
	DeletePersona(ctx context.Context, id int64) error
	SetPersonaHabilitada(ctx context.Context, id int64, habilitada bool) error

	// Turnos
	ListTurnos(ctx context.Context, limit, offset int) ([]Turno, error)
	GetTurnoByID(ctx context.Context, id int64) (*Turno, error)
	ListTurnosByFecha(ctx context.Context, fecha string) ([]Turno, error)
	ListTurnosByPersona(ctx context.Context, personaID int64) ([]Turno, error)
	CountTurnosDePersona(ctx context.Context, personaID int64) (int, error)
	CreateTurno(ctx context.Context, t *Turno) error
	UpdateTurno(ctx context.Context, t *Turno) error
	DeleteTurno(ctx context.Context, id int64) error

	// Reliability policy
	CountCanceladosDesde(ctx context.Context, personaID int64, desdeFecha string) (int, error)

	// Reporting joins. ByEstado accepts an inclusive fecha range;
	// empty bounds are unbounded. Rows come back ordered by persona
	// nombre, fecha, hora.
	ListTurnosConPersonaByFecha(ctx context.Context, fecha string) ([]TurnoConPersona, error)
	ListTurnosConPersonaByEstado(ctx context.Context, estado Estado, desde, hasta string) ([]TurnoConPersona, error)
}
