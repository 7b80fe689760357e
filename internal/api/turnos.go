package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/turnera/turnos-api/internal/agenda"
)

type turnosHandler struct {
	svc *agenda.TurnoService
}

func (h *turnosHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaginacion(r)

	turnos, err := h.svc.List(r.Context(), limit, offset)
	if err != nil {
		handleTurnoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, turnosResponse(turnos))
}

func (h *turnosHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	t, err := h.svc.Get(r.Context(), id)
	if err != nil {
		handleTurnoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, turnoResponse(t))
}

func (h *turnosHandler) create(w http.ResponseWriter, r *http.Request) {
	var payload TurnoPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	t, err := h.svc.Create(r.Context(), payload.input())
	if err != nil {
		handleTurnoError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, turnoResponse(t))
}

func (h *turnosHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var payload TurnoPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	t, err := h.svc.Update(r.Context(), id, payload.input())
	if err != nil {
		handleTurnoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, turnoResponse(t))
}

func (h *turnosHandler) cancelar(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	t, err := h.svc.Cancelar(r.Context(), id)
	if err != nil {
		handleTurnoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, turnoResponse(t))
}

func (h *turnosHandler) confirmar(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	t, err := h.svc.Confirmar(r.Context(), id)
	if err != nil {
		handleTurnoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, turnoResponse(t))
}

func (h *turnosHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		handleTurnoError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *turnosHandler) disponibles(w http.ResponseWriter, r *http.Request) {
	fecha := r.URL.Query().Get("fecha")
	if fecha == "" {
		writeError(w, http.StatusBadRequest, "fecha_requerida", "el parámetro fecha es requerido")
		return
	}

	horarios, err := h.svc.Disponibilidad(r.Context(), fecha)
	if err != nil {
		handleTurnoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DisponibilidadResponse{Fecha: fecha, Horarios: horarios})
}

func handleTurnoError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, agenda.ErrTurnoNoEncontrado):
		writeError(w, http.StatusNotFound, "turno_no_encontrado", err.Error())
	case errors.Is(err, agenda.ErrPersonaNoEncontrada):
		writeError(w, http.StatusNotFound, "persona_no_encontrada", err.Error())
	case errors.Is(err, agenda.ErrFechaHoraRequeridas):
		writeError(w, http.StatusBadRequest, "fecha_hora_requeridas", err.Error())
	case errors.Is(err, agenda.ErrFechaInvalida):
		writeError(w, http.StatusBadRequest, "fecha_invalida", err.Error())
	case errors.Is(err, agenda.ErrHoraInvalida):
		writeError(w, http.StatusBadRequest, "hora_invalida", err.Error())
	case errors.Is(err, agenda.ErrHorarioInvalido):
		writeError(w, http.StatusBadRequest, "horario_invalido", err.Error())
	case errors.Is(err, agenda.ErrEstadoInvalido):
		writeError(w, http.StatusBadRequest, "estado_invalido", err.Error())
	case errors.Is(err, agenda.ErrHorarioOcupado):
		writeError(w, http.StatusConflict, "horario_ocupado", err.Error())
	case errors.Is(err, agenda.ErrPersonaInhabilitada):
		writeError(w, http.StatusConflict, "persona_inhabilitada", err.Error())
	case errors.Is(err, agenda.ErrTurnoNoModificable):
		writeError(w, http.StatusConflict, "turno_no_modificable", err.Error())
	case errors.Is(err, agenda.ErrTransicionInvalida):
		writeError(w, http.StatusConflict, "transicion_invalida", err.Error())
	case errors.Is(err, agenda.ErrTurnoAsistido):
		writeError(w, http.StatusConflict, "turno_asistido", err.Error())
	case errors.Is(err, agenda.ErrFechaBloqueada):
		writeError(w, http.StatusConflict, "fecha_bloqueada", "la fecha está siendo reservada, reintente en unos segundos")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
