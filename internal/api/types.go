package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/turnera/turnos-api/internal/agenda"
)

var errTelefonoInvalido = errors.New("telefono debe ser numérico")

// PersonaPayload is the create/update request body. Telefono stays raw
// because clients send it both quoted and unquoted; it is coerced to an
// integer, rejecting anything non-numeric.
type PersonaPayload struct {
	DNI             *int64          `json:"dni"`
	Nombre          *string         `json:"nombre"`
	Email           *string         `json:"email"`
	Telefono        json.RawMessage `json:"telefono"`
	FechaNacimiento *string         `json:"fecha_nacimiento"`
	Habilitado      *bool           `json:"habilitado"`
}

func (p *PersonaPayload) input() (agenda.PersonaInput, error) {
	telefono, err := parseTelefono(p.Telefono)
	if err != nil {
		return agenda.PersonaInput{}, err
	}
	return agenda.PersonaInput{
		DNI:             p.DNI,
		Nombre:          p.Nombre,
		Email:           p.Email,
		Telefono:        telefono,
		FechaNacimiento: p.FechaNacimiento,
		Habilitado:      p.Habilitado,
	}, nil
}

func parseTelefono(raw json.RawMessage) (*int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	s := string(bytes.Trim(raw, `"`))
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, errTelefonoInvalido
	}
	return &n, nil
}

type TurnoPayload struct {
	Fecha     *string `json:"fecha"`
	Hora      *string `json:"hora"`
	Estado    *string `json:"estado"`
	PersonaID *int64  `json:"persona_id"`
}

func (t *TurnoPayload) input() agenda.TurnoInput {
	return agenda.TurnoInput{
		Fecha:     t.Fecha,
		Hora:      t.Hora,
		Estado:    t.Estado,
		PersonaID: t.PersonaID,
	}
}

type PersonaResponse struct {
	ID              int64  `json:"id"`
	DNI             int64  `json:"dni"`
	Nombre          string `json:"nombre"`
	Email           string `json:"email"`
	Telefono        int64  `json:"telefono"`
	FechaNacimiento string `json:"fecha_nacimiento"`
	Edad            *int   `json:"edad"`
	Habilitado      bool   `json:"habilitado"`
}

func personaResponse(p *agenda.Persona) PersonaResponse {
	return PersonaResponse{
		ID:              p.ID,
		DNI:             p.DNI,
		Nombre:          p.Nombre,
		Email:           p.Email,
		Telefono:        p.Telefono,
		FechaNacimiento: p.FechaNacimiento,
		Edad:            p.Edad(time.Now()),
		Habilitado:      p.Habilitado,
	}
}

func personasResponse(personas []agenda.Persona) []PersonaResponse {
	out := make([]PersonaResponse, 0, len(personas))
	for i := range personas {
		out = append(out, personaResponse(&personas[i]))
	}
	return out
}

type TurnoResponse struct {
	ID        int64  `json:"id"`
	Fecha     string `json:"fecha"`
	Hora      string `json:"hora"`
	Estado    string `json:"estado"`
	PersonaID int64  `json:"persona_id"`
}

func turnoResponse(t *agenda.Turno) TurnoResponse {
	return TurnoResponse{
		ID:        t.ID,
		Fecha:     t.Fecha,
		Hora:      t.Hora,
		Estado:    string(t.Estado),
		PersonaID: t.PersonaID,
	}
}

func turnosResponse(turnos []agenda.Turno) []TurnoResponse {
	out := make([]TurnoResponse, 0, len(turnos))
	for i := range turnos {
		out = append(out, turnoResponse(&turnos[i]))
	}
	return out
}

type DisponibilidadResponse struct {
	Fecha    string   `json:"fecha"`
	Horarios []string `json:"horarios_disponibles"`
}

// GrupoTurnosResponse is a report group: one persona with her turnos.
type GrupoTurnosResponse struct {
	Persona PersonaResponse `json:"persona"`
	Turnos  []TurnoResponse `json:"turnos"`
}

// agruparPorPersona folds joined rows (already ordered by persona)
// into report groups.
func agruparPorPersona(rows []agenda.TurnoConPersona) []GrupoTurnosResponse {
	grupos := make([]GrupoTurnosResponse, 0)
	for i := range rows {
		row := &rows[i]
		if len(grupos) == 0 || grupos[len(grupos)-1].Persona.ID != row.Persona.ID {
			grupos = append(grupos, GrupoTurnosResponse{
				Persona: personaResponse(&row.Persona),
				Turnos:  make([]TurnoResponse, 0, 1),
			})
		}
		ultimo := &grupos[len(grupos)-1]
		ultimo.Turnos = append(ultimo.Turnos, turnoResponse(&row.Turno))
	}
	return grupos
}
