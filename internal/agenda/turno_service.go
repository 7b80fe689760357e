package agenda

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/turnera/turnos-api/internal/config"
	redisclient "github.com/turnera/turnos-api/internal/redis"
)

var (
	ErrFechaHoraRequeridas = errors.New("fecha y hora son requeridas")
	ErrFechaInvalida       = errors.New("fecha debe tener formato YYYY-MM-DD")
	ErrHoraInvalida        = errors.New("hora debe tener formato HH:MM")
	ErrHorarioInvalido     = errors.New("el horario no pertenece a la agenda")
	ErrHorarioOcupado      = errors.New("el horario ya está ocupado")
	ErrEstadoInvalido      = errors.New("estado desconocido")
	ErrPersonaInhabilitada = errors.New("la persona está inhabilitada por cancelaciones reiteradas")
	ErrTurnoNoModificable  = errors.New("un turno cancelado o asistido no admite modificaciones")
	ErrTransicionInvalida  = errors.New("transición de estado inválida")
	ErrTurnoAsistido       = errors.New("un turno asistido no puede eliminarse")
	ErrFechaBloqueada      = errors.New("la fecha está siendo reservada, reintente")
)

// TurnoInput carries the fields of a create or partial-update request.
// Nil means the field was absent from the payload.
type TurnoInput struct {
	Fecha     *string
	Hora      *string
	Estado    *string
	PersonaID *int64
}

type TurnoService struct {
	repo   Repository
	locker redisclient.Locker
	cfg    config.Config
}

func NewTurnoService(repo Repository, locker redisclient.Locker, cfg config.Config) *TurnoService {
	return &TurnoService{
		repo:   repo,
		locker: locker,
		cfg:    cfg,
	}
}

func (s *TurnoService) List(ctx context.Context, limit, offset int) ([]Turno, error) {
	if limit <= 0 {
		limit = 100 // default
	}
	if limit > 200 {
		limit = 200 // max
	}
	if offset < 0 {
		offset = 0
	}

	turnos, err := s.repo.ListTurnos(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list turnos: %w", err)
	}
	return turnos, nil
}

func (s *TurnoService) Get(ctx context.Context, id int64) (*Turno, error) {
	return s.repo.GetTurnoByID(ctx, id)
}

// Create books a slot for a persona. The availability check and the
// insert run under a per-date lock so concurrent requests for the same
// date cannot both pass the check.
func (s *TurnoService) Create(ctx context.Context, in TurnoInput) (*Turno, error) {
	if in.PersonaID == nil {
		return nil, ErrPersonaNoEncontrada
	}
	persona, err := s.repo.GetPersonaByID(ctx, *in.PersonaID)
	if err != nil {
		return nil, err
	}

	if in.Fecha == nil || in.Hora == nil || *in.Fecha == "" || *in.Hora == "" {
		return nil, ErrFechaHoraRequeridas
	}
	fecha, hora := *in.Fecha, *in.Hora
	if _, err := time.Parse(FechaLayout, fecha); err != nil {
		return nil, ErrFechaInvalida
	}
	if _, err := horaEnMinutos(hora); err != nil {
		return nil, ErrHoraInvalida
	}

	estado := EstadoPendiente
	if in.Estado != nil && *in.Estado != "" {
		estado = Estado(*in.Estado)
		if !estado.Valido() {
			return nil, ErrEstadoInvalido
		}
	}

	var created *Turno

	err = s.locker.WithFechaLock(ctx, fecha, func(lockCtx context.Context) error {
		if err := s.verificarDisponibilidad(lockCtx, fecha, hora, 0); err != nil {
			return err
		}

		if !HorarioValido(hora) {
			return ErrHorarioInvalido
		}

		if err := s.aplicarPoliticaCancelaciones(lockCtx, persona.ID); err != nil {
			return err
		}

		t := &Turno{
			Fecha:     fecha,
			Hora:      hora,
			Estado:    estado,
			PersonaID: persona.ID,
		}
		if err := s.repo.CreateTurno(lockCtx, t); err != nil {
			return err
		}

		created = t
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrFechaBloqueada
		}
		return nil, err
	}

	return created, nil
}

// verificarDisponibilidad rejects a slot only when both independent
// checks agree it is taken: the interval scan over every turno of the
// date and the exact-match lookup among non-cancelled turnos.
// excludeID skips the turno being updated, zero means none.
func (s *TurnoService) verificarDisponibilidad(ctx context.Context, fecha, hora string, excludeID int64) error {
	turnos, err := s.repo.ListTurnosByFecha(ctx, fecha)
	if err != nil {
		return fmt.Errorf("list turnos by fecha: %w", err)
	}

	ocupadoIntervalo := false
	ocupadoExacto := false
	for i := range turnos {
		t := &turnos[i]
		if t.ID == excludeID {
			continue
		}
		solapa, err := horariosSeSolapan(hora, t.Hora)
		if err != nil {
			return ErrHoraInvalida
		}
		if solapa {
			ocupadoIntervalo = true
		}
		if t.Hora == hora && t.Activo() {
			ocupadoExacto = true
		}
	}

	if ocupadoIntervalo && ocupadoExacto {
		return ErrHorarioOcupado
	}
	return nil
}

// aplicarPoliticaCancelaciones recomputes the habilitado flag from the
// persona's cancellations inside the rolling window and rejects the
// booking once the threshold is reached. The flag is persisted either
// way, so a persona whose cancellations aged out is re-enabled here.
func (s *TurnoService) aplicarPoliticaCancelaciones(ctx context.Context, personaID int64) error {
	desde := time.Now().AddDate(0, 0, -s.cfg.CancelWindowDays).Format(FechaLayout)

	n, err := s.repo.CountCanceladosDesde(ctx, personaID, desde)
	if err != nil {
		return fmt.Errorf("count cancelados: %w", err)
	}

	if n >= s.cfg.CancelThreshold {
		if err := s.repo.SetPersonaHabilitada(ctx, personaID, false); err != nil {
			return fmt.Errorf("deshabilitar persona: %w", err)
		}
		return ErrPersonaInhabilitada
	}

	if err := s.repo.SetPersonaHabilitada(ctx, personaID, true); err != nil {
		return fmt.Errorf("habilitar persona: %w", err)
	}
	return nil
}

// Update applies a partial update. Turnos already cancelled or
// attended reject any change, status included.
func (s *TurnoService) Update(ctx context.Context, id int64, in TurnoInput) (*Turno, error) {
	t, err := s.repo.GetTurnoByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Estado == EstadoCancelado || t.Estado == EstadoAsistido {
		return nil, ErrTurnoNoModificable
	}

	if in.PersonaID != nil && *in.PersonaID != t.PersonaID {
		if _, err := s.repo.GetPersonaByID(ctx, *in.PersonaID); err != nil {
			return nil, err
		}
		t.PersonaID = *in.PersonaID
	}

	fecha, hora := t.Fecha, t.Hora
	if in.Fecha != nil {
		if _, err := time.Parse(FechaLayout, *in.Fecha); err != nil {
			return nil, ErrFechaInvalida
		}
		fecha = *in.Fecha
	}
	if in.Hora != nil {
		if !HorarioValido(*in.Hora) {
			return nil, ErrHorarioInvalido
		}
		hora = *in.Hora
	}

	if in.Estado != nil {
		estado := Estado(*in.Estado)
		if !estado.Valido() {
			return nil, ErrEstadoInvalido
		}
		t.Estado = estado
	}

	if fecha == t.Fecha && hora == t.Hora {
		if err := s.repo.UpdateTurno(ctx, t); err != nil {
			return nil, err
		}
		return t, nil
	}

	// Rescheduling re-runs the availability check on the target date,
	// skipping the turno itself.
	err = s.locker.WithFechaLock(ctx, fecha, func(lockCtx context.Context) error {
		if err := s.verificarDisponibilidad(lockCtx, fecha, hora, t.ID); err != nil {
			return err
		}
		t.Fecha = fecha
		t.Hora = hora
		return s.repo.UpdateTurno(lockCtx, t)
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrFechaBloqueada
		}
		return nil, err
	}

	return t, nil
}

// Cancelar moves a turno to cancelado unless it already is, or was
// attended.
func (s *TurnoService) Cancelar(ctx context.Context, id int64) (*Turno, error) {
	t, err := s.repo.GetTurnoByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Estado == EstadoCancelado || t.Estado == EstadoAsistido {
		return nil, ErrTransicionInvalida
	}

	t.Estado = EstadoCancelado
	if err := s.repo.UpdateTurno(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Confirmar moves a turno to confirmado unless it is cancelled,
// attended, or already confirmed.
func (s *TurnoService) Confirmar(ctx context.Context, id int64) (*Turno, error) {
	t, err := s.repo.GetTurnoByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Estado == EstadoCancelado || t.Estado == EstadoAsistido || t.Estado == EstadoConfirmado {
		return nil, ErrTransicionInvalida
	}

	t.Estado = EstadoConfirmado
	if err := s.repo.UpdateTurno(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes a turno. Attended turnos are kept for history.
func (s *TurnoService) Delete(ctx context.Context, id int64) error {
	t, err := s.repo.GetTurnoByID(ctx, id)
	if err != nil {
		return err
	}
	if t.Estado == EstadoAsistido {
		return ErrTurnoAsistido
	}
	return s.repo.DeleteTurno(ctx, id)
}

// Disponibilidad returns the free slots of a date: the fixed slot set
// minus the horas of every non-cancelled turno. Pure read.
func (s *TurnoService) Disponibilidad(ctx context.Context, fecha string) ([]string, error) {
	if _, err := time.Parse(FechaLayout, fecha); err != nil {
		return nil, ErrFechaInvalida
	}

	turnos, err := s.repo.ListTurnosByFecha(ctx, fecha)
	if err != nil {
		return nil, fmt.Errorf("list turnos by fecha: %w", err)
	}

	ocupados := make(map[string]bool, len(turnos))
	for i := range turnos {
		if turnos[i].Activo() {
			ocupados[turnos[i].Hora] = true
		}
	}

	libres := make([]string, 0)
	for _, h := range HorariosValidos() {
		if !ocupados[h] {
			libres = append(libres, h)
		}
	}
	return libres, nil
}
