package agenda

import "time"

type Estado string

const (
	EstadoPendiente  Estado = "pendiente"
	EstadoConfirmado Estado = "confirmado"
	EstadoCancelado  Estado = "cancelado"
	EstadoAsistido   Estado = "asistido"
)

func (e Estado) Valido() bool {
	switch e {
	case EstadoPendiente, EstadoConfirmado, EstadoCancelado, EstadoAsistido:
		return true
	}
	return false
}

type Persona struct {
	ID              int64
	DNI             int64
	Nombre          string
	Email           string
	Telefono        int64
	FechaNacimiento string
	Habilitado      bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Edad returns the age in whole years as of hoy, or nil when the
// stored fecha de nacimiento is missing or unparseable.
func (p *Persona) Edad(hoy time.Time) *int {
	if p.FechaNacimiento == "" {
		return nil
	}
	nac, err := time.Parse(FechaLayout, p.FechaNacimiento)
	if err != nil {
		return nil
	}
	edad := hoy.Year() - nac.Year()
	if hoy.Month() < nac.Month() || (hoy.Month() == nac.Month() && hoy.Day() < nac.Day()) {
		edad--
	}
	return &edad
}

type Turno struct {
	ID        int64
	Fecha     string
	Hora      string
	Estado    Estado
	PersonaID int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Activo reports whether the turno still occupies its slot.
func (t *Turno) Activo() bool {
	return t.Estado != EstadoCancelado
}

// TurnoConPersona is the joined row used by listings and reports.
type TurnoConPersona struct {
	Turno
	Persona Persona
}
