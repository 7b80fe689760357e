package report

import (
	"context"
	"fmt"
	"time"

	"github.com/turnera/turnos-api/internal/agenda"
)

// Service builds the read-only aggregations behind /reportes. Every
// method is a pure read over the repository.
type Service struct {
	repo agenda.Repository
}

func NewService(repo agenda.Repository) *Service {
	return &Service{repo: repo}
}

// TurnosPorFecha lists every turno of a date joined with its persona,
// ordered by persona nombre then hora.
func (s *Service) TurnosPorFecha(ctx context.Context, fecha string) ([]agenda.TurnoConPersona, error) {
	if _, err := time.Parse(agenda.FechaLayout, fecha); err != nil {
		return nil, agenda.ErrFechaInvalida
	}
	return s.repo.ListTurnosConPersonaByFecha(ctx, fecha)
}

// TurnosPorPersona resolves a persona by DNI and returns their turnos.
func (s *Service) TurnosPorPersona(ctx context.Context, dni int64) (*agenda.Persona, []agenda.Turno, error) {
	p, err := s.repo.GetPersonaByDNI(ctx, dni)
	if err != nil {
		return nil, nil, err
	}
	turnos, err := s.repo.ListTurnosByPersona(ctx, p.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list turnos by persona: %w", err)
	}
	return p, turnos, nil
}

// EstadoPersonas projects every persona with the habilitado flag.
func (s *Service) EstadoPersonas(ctx context.Context) ([]agenda.Persona, error) {
	return s.repo.ListPersonas(ctx, 0, 0)
}

// TurnosCancelados keeps the cancelled turnos of personas that
// accumulated at least min cancellations.
func (s *Service) TurnosCancelados(ctx context.Context, min int) ([]agenda.TurnoConPersona, error) {
	if min < 1 {
		min = 1
	}

	cancelados, err := s.repo.ListTurnosConPersonaByEstado(ctx, agenda.EstadoCancelado, "", "")
	if err != nil {
		return nil, err
	}

	porPersona := make(map[int64]int)
	for i := range cancelados {
		porPersona[cancelados[i].Persona.ID]++
	}

	result := make([]agenda.TurnoConPersona, 0)
	for i := range cancelados {
		if porPersona[cancelados[i].Persona.ID] >= min {
			result = append(result, cancelados[i])
		}
	}
	return result, nil
}

// TurnosCanceladosDelMes lists the cancelled turnos whose fecha falls
// within the current calendar month.
func (s *Service) TurnosCanceladosDelMes(ctx context.Context) ([]agenda.TurnoConPersona, error) {
	hoy := time.Now()
	primero := time.Date(hoy.Year(), hoy.Month(), 1, 0, 0, 0, 0, hoy.Location())
	ultimo := primero.AddDate(0, 1, -1)

	return s.repo.ListTurnosConPersonaByEstado(
		ctx,
		agenda.EstadoCancelado,
		primero.Format(agenda.FechaLayout),
		ultimo.Format(agenda.FechaLayout),
	)
}

// TurnosConfirmados lists the confirmed turnos inside the inclusive
// [desde, hasta] range, ordered by persona nombre, fecha, hora.
func (s *Service) TurnosConfirmados(ctx context.Context, desde, hasta string) ([]agenda.TurnoConPersona, error) {
	if _, err := time.Parse(agenda.FechaLayout, desde); err != nil {
		return nil, agenda.ErrFechaInvalida
	}
	if _, err := time.Parse(agenda.FechaLayout, hasta); err != nil {
		return nil, agenda.ErrFechaInvalida
	}
	return s.repo.ListTurnosConPersonaByEstado(ctx, agenda.EstadoConfirmado, desde, hasta)
}
