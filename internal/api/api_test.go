package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turnera/turnos-api/internal/agenda"
	"github.com/turnera/turnos-api/internal/config"
	"github.com/turnera/turnos-api/internal/report"
)

// inlineLocker runs the critical section directly, no Redis involved.
type inlineLocker struct{}

func (inlineLocker) WithFechaLock(ctx context.Context, fecha string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	repo := agenda.NewMemoryRepository()
	cfg := config.Config{CancelWindowDays: 180, CancelThreshold: 5}

	return NewRouter(RouterConfig{
		Personas: agenda.NewPersonaService(repo),
		Turnos:   agenda.NewTurnoService(repo, inlineLocker{}, cfg),
		Reportes: report.NewService(repo),
		Env:      "test",
		Version:  "test",
	})
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func personaBody(dni int64) string {
	return fmt.Sprintf(`{
		"dni": %d,
		"nombre": "Ana García",
		"email": "persona%d@example.com",
		"telefono": "%d",
		"fecha_nacimiento": "1990-05-14"
	}`, dni, dni, dni*10)
}

func crearPersona(t *testing.T, h http.Handler, dni int64) PersonaResponse {
	t.Helper()
	rec := do(h, http.MethodPost, "/personas", personaBody(dni))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var p PersonaResponse
	decode(t, rec, &p)
	return p
}

func crearTurno(t *testing.T, h http.Handler, personaID int64, fecha, hora string) TurnoResponse {
	t.Helper()
	body := fmt.Sprintf(`{"fecha": %q, "hora": %q, "persona_id": %d}`, fecha, hora, personaID)
	rec := do(h, http.MethodPost, "/turnos", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var turno TurnoResponse
	decode(t, rec, &turno)
	return turno
}

func TestEscenarioReserva(t *testing.T) {
	h := newTestRouter(t)

	// Telefono arrives as a quoted string and is coerced to a number.
	p := crearPersona(t, h, 111)
	assert.Equal(t, int64(111), p.DNI)
	assert.Equal(t, int64(1110), p.Telefono)
	assert.True(t, p.Habilitado)
	require.NotNil(t, p.Edad)

	turno := crearTurno(t, h, p.ID, "2025-06-10", "09:00")
	assert.Equal(t, "pendiente", turno.Estado)

	// Same slot again: conflict.
	body := fmt.Sprintf(`{"fecha": "2025-06-10", "hora": "09:00", "persona_id": %d}`, p.ID)
	rec := do(h, http.MethodPost, "/turnos", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	var e ErrorResponse
	decode(t, rec, &e)
	assert.Equal(t, "horario_ocupado", e.Error)

	// Cancelling frees the slot.
	rec = do(h, http.MethodPut, fmt.Sprintf("/turnos/%d/cancelar", turno.ID), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var cancelado TurnoResponse
	decode(t, rec, &cancelado)
	assert.Equal(t, "cancelado", cancelado.Estado)

	rec = do(h, http.MethodGet, "/turnos-disponibles?fecha=2025-06-10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var disp DisponibilidadResponse
	decode(t, rec, &disp)
	assert.Contains(t, disp.Horarios, "09:00")

	rebooked := crearTurno(t, h, p.ID, "2025-06-10", "09:00")
	assert.Equal(t, "pendiente", rebooked.Estado)
}

func TestPersonasErrores(t *testing.T) {
	h := newTestRouter(t)
	crearPersona(t, h, 111)

	var e ErrorResponse

	rec := do(h, http.MethodPost, "/personas", `{"dni": 222, "nombre": "X", "email": "x@example.com", "telefono": "abc", "fecha_nacimiento": "1990-05-14"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	decode(t, rec, &e)
	assert.Equal(t, "telefono_invalido", e.Error)

	rec = do(h, http.MethodPost, "/personas", `{"dni": 111, "nombre": "X", "email": "otra@example.com", "telefono": 999, "fecha_nacimiento": "1990-05-14"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	decode(t, rec, &e)
	assert.Equal(t, "dni_registrado", e.Error)

	rec = do(h, http.MethodPost, "/personas", `{"dni": 333, "nombre": "X", "telefono": 999}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	decode(t, rec, &e)
	assert.Equal(t, "datos_incompletos", e.Error)

	rec = do(h, http.MethodGet, "/personas/9999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	decode(t, rec, &e)
	assert.Equal(t, "persona_no_encontrada", e.Error)

	rec = do(h, http.MethodGet, "/personas/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	decode(t, rec, &e)
	assert.Equal(t, "invalid_id", e.Error)
}

func TestPersonaConTurnosNoSeBorra(t *testing.T) {
	h := newTestRouter(t)
	p := crearPersona(t, h, 111)
	turno := crearTurno(t, h, p.ID, "2025-06-10", "09:00")

	rec := do(h, http.MethodDelete, fmt.Sprintf("/personas/%d", p.ID), "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	var e ErrorResponse
	decode(t, rec, &e)
	assert.Equal(t, "persona_con_turnos", e.Error)

	rec = do(h, http.MethodDelete, fmt.Sprintf("/turnos/%d", turno.ID), "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(h, http.MethodDelete, fmt.Sprintf("/personas/%d", p.ID), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTurnoTransiciones(t *testing.T) {
	h := newTestRouter(t)
	p := crearPersona(t, h, 111)
	turno := crearTurno(t, h, p.ID, "2025-06-10", "09:00")

	rec := do(h, http.MethodPut, fmt.Sprintf("/turnos/%d/confirmar", turno.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var confirmado TurnoResponse
	decode(t, rec, &confirmado)
	assert.Equal(t, "confirmado", confirmado.Estado)

	// A confirmed turno can still be rescheduled.
	rec = do(h, http.MethodPut, fmt.Sprintf("/turnos/%d", turno.ID), `{"hora": "10:00"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var movido TurnoResponse
	decode(t, rec, &movido)
	assert.Equal(t, "10:00", movido.Hora)

	var e ErrorResponse

	rec = do(h, http.MethodPut, fmt.Sprintf("/turnos/%d/confirmar", turno.ID), "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	decode(t, rec, &e)
	assert.Equal(t, "transicion_invalida", e.Error)

	rec = do(h, http.MethodPut, fmt.Sprintf("/turnos/%d/cancelar", turno.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)

	// Cancelled turnos reject edits.
	rec = do(h, http.MethodPut, fmt.Sprintf("/turnos/%d", turno.ID), `{"hora": "11:00"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	decode(t, rec, &e)
	assert.Equal(t, "turno_no_modificable", e.Error)
}

func TestTurnoValidaciones(t *testing.T) {
	h := newTestRouter(t)
	p := crearPersona(t, h, 111)

	casos := []struct {
		name string
		body string
		code string
	}{
		{"persona inexistente", `{"fecha": "2025-06-10", "hora": "09:00", "persona_id": 9999}`, "persona_no_encontrada"},
		{"sin hora", fmt.Sprintf(`{"fecha": "2025-06-10", "persona_id": %d}`, p.ID), "fecha_hora_requeridas"},
		{"fecha rota", fmt.Sprintf(`{"fecha": "10/06/2025", "hora": "09:00", "persona_id": %d}`, p.ID), "fecha_invalida"},
		{"hora rota", fmt.Sprintf(`{"fecha": "2025-06-10", "hora": "0900", "persona_id": %d}`, p.ID), "hora_invalida"},
		{"fuera de agenda", fmt.Sprintf(`{"fecha": "2025-06-10", "hora": "08:00", "persona_id": %d}`, p.ID), "horario_invalido"},
		{"estado desconocido", fmt.Sprintf(`{"fecha": "2025-06-10", "hora": "09:00", "estado": "perdido", "persona_id": %d}`, p.ID), "estado_invalido"},
	}

	for _, tc := range casos {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(h, http.MethodPost, "/turnos", tc.body)
			var e ErrorResponse
			decode(t, rec, &e)
			assert.Equal(t, tc.code, e.Error)
		})
	}
}

func TestListPersonasPaginacion(t *testing.T) {
	h := newTestRouter(t)
	for dni := int64(101); dni <= 105; dni++ {
		crearPersona(t, h, dni)
	}

	rec := do(h, http.MethodGet, "/personas?limit=2&skip=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var pagina []PersonaResponse
	decode(t, rec, &pagina)
	require.Len(t, pagina, 2)
	assert.Equal(t, int64(102), pagina[0].DNI)
}

func TestReportes(t *testing.T) {
	h := newTestRouter(t)
	p := crearPersona(t, h, 111)

	turno := crearTurno(t, h, p.ID, "2025-06-10", "09:00")
	rec := do(h, http.MethodPut, fmt.Sprintf("/turnos/%d/confirmar", turno.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)

	otro := crearTurno(t, h, p.ID, "2025-06-10", "10:00")
	rec = do(h, http.MethodPut, fmt.Sprintf("/turnos/%d/cancelar", otro.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)

	// JSON: rows grouped by persona.
	rec = do(h, http.MethodGet, "/reportes/turnos-por-fecha?fecha=2025-06-10", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var grupos []GrupoTurnosResponse
	decode(t, rec, &grupos)
	require.Len(t, grupos, 1)
	assert.Equal(t, int64(111), grupos[0].Persona.DNI)
	assert.Len(t, grupos[0].Turnos, 2)

	// CSV: same rows, one header line.
	rec = do(h, http.MethodGet, "/reportes/csv/turnos-por-fecha?fecha=2025-06-10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "turnos-por-fecha.csv")
	lineas := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lineas, 3)
	assert.Equal(t, "DNI,Nombre,Fecha,Hora,Estado", strings.TrimSpace(lineas[0]))

	// PDF: a real document comes back.
	rec = do(h, http.MethodGet, "/reportes/pdf/turnos-por-fecha?fecha=2025-06-10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))

	rec = do(h, http.MethodGet, "/reportes/turnos-confirmados?desde=2025-06-01&hasta=2025-06-30", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &grupos)
	require.Len(t, grupos, 1)
	require.Len(t, grupos[0].Turnos, 1)
	assert.Equal(t, "confirmado", grupos[0].Turnos[0].Estado)

	rec = do(h, http.MethodGet, "/reportes/estado-personas", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var personas []PersonaResponse
	decode(t, rec, &personas)
	require.Len(t, personas, 1)
	assert.True(t, personas[0].Habilitado)

	var e ErrorResponse

	rec = do(h, http.MethodGet, "/reportes/turnos-confirmados", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	decode(t, rec, &e)
	assert.Equal(t, "parametro_requerido", e.Error)

	rec = do(h, http.MethodGet, "/reportes/turnos-por-persona?dni=999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	decode(t, rec, &e)
	assert.Equal(t, "persona_no_encontrada", e.Error)
}

func TestHealthLive(t *testing.T) {
	h := newTestRouter(t)

	rec := do(h, http.MethodGet, "/health/live", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var live LivenessResponse
	decode(t, rec, &live)
	assert.Equal(t, "ok", live.Status)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
