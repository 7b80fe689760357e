package agenda

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turnera/turnos-api/internal/config"
)

// nullLocker runs the critical section inline, no Redis involved.
type nullLocker struct{}

func (nullLocker) WithFechaLock(ctx context.Context, fecha string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func setupTurnos(t *testing.T) (*TurnoService, *MemoryRepository, *Persona) {
	t.Helper()

	repo := NewMemoryRepository()
	cfg := config.Config{CancelWindowDays: 180, CancelThreshold: 5}
	svc := NewTurnoService(repo, nullLocker{}, cfg)

	p, err := NewPersonaService(repo).Create(context.Background(), personaInput(111))
	require.NoError(t, err)

	return svc, repo, p
}

func turnoInput(personaID int64, fecha, hora string) TurnoInput {
	return TurnoInput{
		Fecha:     ptr(fecha),
		Hora:      ptr(hora),
		PersonaID: ptr(personaID),
	}
}

func TestCreateTurno(t *testing.T) {
	svc, _, p := setupTurnos(t)
	ctx := context.Background()

	creado, err := svc.Create(ctx, turnoInput(p.ID, "2025-06-10", "09:00"))
	require.NoError(t, err)
	assert.NotZero(t, creado.ID)
	assert.Equal(t, EstadoPendiente, creado.Estado)
	assert.True(t, HorarioValido(creado.Hora))

	conEstado := turnoInput(p.ID, "2025-06-10", "10:00")
	conEstado.Estado = ptr("confirmado")
	confirmado, err := svc.Create(ctx, conEstado)
	require.NoError(t, err)
	assert.Equal(t, EstadoConfirmado, confirmado.Estado)

	invalido := turnoInput(p.ID, "2025-06-10", "11:00")
	invalido.Estado = ptr("perdido")
	_, err = svc.Create(ctx, invalido)
	assert.ErrorIs(t, err, ErrEstadoInvalido)
}

func TestCreateTurnoValidaciones(t *testing.T) {
	svc, _, p := setupTurnos(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, turnoInput(9999, "2025-06-10", "09:00"))
	assert.ErrorIs(t, err, ErrPersonaNoEncontrada)

	sinHora := TurnoInput{Fecha: ptr("2025-06-10"), PersonaID: ptr(p.ID)}
	_, err = svc.Create(ctx, sinHora)
	assert.ErrorIs(t, err, ErrFechaHoraRequeridas)

	_, err = svc.Create(ctx, turnoInput(p.ID, "10/06/2025", "09:00"))
	assert.ErrorIs(t, err, ErrFechaInvalida)

	_, err = svc.Create(ctx, turnoInput(p.ID, "2025-06-10", "0900"))
	assert.ErrorIs(t, err, ErrHoraInvalida)

	// Well-formed but outside the daily schedule.
	_, err = svc.Create(ctx, turnoInput(p.ID, "2025-06-10", "08:00"))
	assert.ErrorIs(t, err, ErrHorarioInvalido)

	_, err = svc.Create(ctx, turnoInput(p.ID, "2025-06-10", "10:15"))
	assert.ErrorIs(t, err, ErrHorarioInvalido)
}

func TestCreateTurnoConflicto(t *testing.T) {
	svc, _, p := setupTurnos(t)
	ctx := context.Background()

	primero, err := svc.Create(ctx, turnoInput(p.ID, "2025-06-10", "09:00"))
	require.NoError(t, err)

	// Same slot, same date: conflict.
	_, err = svc.Create(ctx, turnoInput(p.ID, "2025-06-10", "09:00"))
	assert.ErrorIs(t, err, ErrHorarioOcupado)

	// Same slot, another date: fine.
	_, err = svc.Create(ctx, turnoInput(p.ID, "2025-06-11", "09:00"))
	assert.NoError(t, err)

	// Cancelling frees the slot again.
	_, err = svc.Cancelar(ctx, primero.ID)
	require.NoError(t, err)

	libres, err := svc.Disponibilidad(ctx, "2025-06-10")
	require.NoError(t, err)
	assert.Contains(t, libres, "09:00")

	_, err = svc.Create(ctx, turnoInput(p.ID, "2025-06-10", "09:00"))
	assert.NoError(t, err)
}

func TestDisponibilidadCubreLaAgenda(t *testing.T) {
	svc, repo, p := setupTurnos(t)
	ctx := context.Background()

	fecha := "2025-06-10"
	estados := []Estado{EstadoPendiente, EstadoConfirmado, EstadoCancelado, EstadoAsistido}
	for i, hora := range []string{"09:00", "10:30", "12:00", "15:30"} {
		turno := &Turno{Fecha: fecha, Hora: hora, Estado: estados[i], PersonaID: p.ID}
		require.NoError(t, repo.CreateTurno(ctx, turno))
	}

	libres, err := svc.Disponibilidad(ctx, fecha)
	require.NoError(t, err)

	// Cancelled turnos do not occupy their slot.
	ocupados := 3
	assert.Len(t, libres, len(HorariosValidos())-ocupados)
	assert.Contains(t, libres, "12:00")
	assert.NotContains(t, libres, "09:00")

	_, err = svc.Disponibilidad(ctx, "pronto")
	assert.ErrorIs(t, err, ErrFechaInvalida)
}

func TestPoliticaCancelaciones(t *testing.T) {
	svc, repo, p := setupTurnos(t)
	ctx := context.Background()

	reciente := time.Now().AddDate(0, 0, -10).Format(FechaLayout)
	for i := 0; i < 5; i++ {
		turno := &Turno{Fecha: reciente, Hora: fmt.Sprintf("%02d:00", 9+i), Estado: EstadoCancelado, PersonaID: p.ID}
		require.NoError(t, repo.CreateTurno(ctx, turno))
	}

	_, err := svc.Create(ctx, turnoInput(p.ID, time.Now().Format(FechaLayout), "16:00"))
	assert.ErrorIs(t, err, ErrPersonaInhabilitada)

	bloqueada, err := repo.GetPersonaByID(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, bloqueada.Habilitado)
}

func TestPoliticaCancelacionesVencidas(t *testing.T) {
	svc, repo, p := setupTurnos(t)
	ctx := context.Background()

	// Five cancellations, but outside the 180-day window.
	vieja := time.Now().AddDate(0, 0, -200).Format(FechaLayout)
	for i := 0; i < 5; i++ {
		turno := &Turno{Fecha: vieja, Hora: fmt.Sprintf("%02d:00", 9+i), Estado: EstadoCancelado, PersonaID: p.ID}
		require.NoError(t, repo.CreateTurno(ctx, turno))
	}
	require.NoError(t, repo.SetPersonaHabilitada(ctx, p.ID, false))

	creado, err := svc.Create(ctx, turnoInput(p.ID, time.Now().AddDate(0, 0, 1).Format(FechaLayout), "09:00"))
	require.NoError(t, err)
	assert.Equal(t, EstadoPendiente, creado.Estado)

	// The policy re-enabled the persona on the way through.
	habilitada, err := repo.GetPersonaByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, habilitada.Habilitado)
}

func TestTransicionesDeEstado(t *testing.T) {
	svc, _, p := setupTurnos(t)
	ctx := context.Background()

	turno, err := svc.Create(ctx, turnoInput(p.ID, "2025-06-10", "09:00"))
	require.NoError(t, err)

	confirmado, err := svc.Confirmar(ctx, turno.ID)
	require.NoError(t, err)
	assert.Equal(t, EstadoConfirmado, confirmado.Estado)

	// Confirming twice is invalid.
	_, err = svc.Confirmar(ctx, turno.ID)
	assert.ErrorIs(t, err, ErrTransicionInvalida)

	cancelado, err := svc.Cancelar(ctx, turno.ID)
	require.NoError(t, err)
	assert.Equal(t, EstadoCancelado, cancelado.Estado)

	// Cancelling twice is invalid, so is confirming a cancelled turno.
	_, err = svc.Cancelar(ctx, turno.ID)
	assert.ErrorIs(t, err, ErrTransicionInvalida)
	_, err = svc.Confirmar(ctx, turno.ID)
	assert.ErrorIs(t, err, ErrTransicionInvalida)
}

func TestUpdateTurno(t *testing.T) {
	svc, repo, p := setupTurnos(t)
	ctx := context.Background()

	turno, err := svc.Create(ctx, turnoInput(p.ID, "2025-06-10", "09:00"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, turnoInput(p.ID, "2025-06-10", "10:00"))
	require.NoError(t, err)

	// Confirmed turnos remain editable.
	_, err = svc.Confirmar(ctx, turno.ID)
	require.NoError(t, err)

	movido, err := svc.Update(ctx, turno.ID, TurnoInput{Fecha: ptr("2025-06-12")})
	require.NoError(t, err)
	assert.Equal(t, "2025-06-12", movido.Fecha)
	assert.Equal(t, "09:00", movido.Hora)

	// Rescheduling into an occupied slot conflicts.
	_, err = svc.Update(ctx, turno.ID, TurnoInput{Fecha: ptr("2025-06-10"), Hora: ptr("10:00")})
	assert.ErrorIs(t, err, ErrHorarioOcupado)

	_, err = svc.Update(ctx, turno.ID, TurnoInput{Hora: ptr("08:00")})
	assert.ErrorIs(t, err, ErrHorarioInvalido)

	_, err = svc.Update(ctx, turno.ID, TurnoInput{Estado: ptr("quizás")})
	assert.ErrorIs(t, err, ErrEstadoInvalido)

	// Cancelled and attended turnos reject any update.
	_, err = svc.Cancelar(ctx, turno.ID)
	require.NoError(t, err)
	_, err = svc.Update(ctx, turno.ID, TurnoInput{Hora: ptr("11:00")})
	assert.ErrorIs(t, err, ErrTurnoNoModificable)

	asistido := &Turno{Fecha: "2025-06-10", Hora: "12:00", Estado: EstadoAsistido, PersonaID: p.ID}
	require.NoError(t, repo.CreateTurno(ctx, asistido))
	_, err = svc.Update(ctx, asistido.ID, TurnoInput{Hora: ptr("13:00")})
	assert.ErrorIs(t, err, ErrTurnoNoModificable)
}

func TestDeleteTurno(t *testing.T) {
	svc, repo, p := setupTurnos(t)
	ctx := context.Background()

	turno, err := svc.Create(ctx, turnoInput(p.ID, "2025-06-10", "09:00"))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, turno.ID))
	_, err = svc.Get(ctx, turno.ID)
	assert.ErrorIs(t, err, ErrTurnoNoEncontrado)

	asistido := &Turno{Fecha: "2025-06-10", Hora: "12:00", Estado: EstadoAsistido, PersonaID: p.ID}
	require.NoError(t, repo.CreateTurno(ctx, asistido))
	err = svc.Delete(ctx, asistido.ID)
	assert.ErrorIs(t, err, ErrTurnoAsistido)
}
