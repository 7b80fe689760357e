package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/turnera/turnos-api/internal/agenda"
)

type personasHandler struct {
	svc *agenda.PersonaService
}

func (h *personasHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaginacion(r)

	personas, err := h.svc.List(r.Context(), limit, offset)
	if err != nil {
		handlePersonaError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, personasResponse(personas))
}

func (h *personasHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		handlePersonaError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, personaResponse(p))
}

func (h *personasHandler) create(w http.ResponseWriter, r *http.Request) {
	var payload PersonaPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	in, err := payload.input()
	if err != nil {
		writeError(w, http.StatusBadRequest, "telefono_invalido", err.Error())
		return
	}

	p, err := h.svc.Create(r.Context(), in)
	if err != nil {
		handlePersonaError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, personaResponse(p))
}

func (h *personasHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var payload PersonaPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	in, err := payload.input()
	if err != nil {
		writeError(w, http.StatusBadRequest, "telefono_invalido", err.Error())
		return
	}

	p, err := h.svc.Update(r.Context(), id, in)
	if err != nil {
		handlePersonaError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, personaResponse(p))
}

func (h *personasHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		handlePersonaError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handlePersonaError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, agenda.ErrPersonaNoEncontrada):
		writeError(w, http.StatusNotFound, "persona_no_encontrada", err.Error())
	case errors.Is(err, agenda.ErrDNIRegistrado):
		writeError(w, http.StatusConflict, "dni_registrado", err.Error())
	case errors.Is(err, agenda.ErrEmailRegistrado):
		writeError(w, http.StatusConflict, "email_registrado", err.Error())
	case errors.Is(err, agenda.ErrTelefonoRegistrado):
		writeError(w, http.StatusConflict, "telefono_registrado", err.Error())
	case errors.Is(err, agenda.ErrPersonaConTurnos):
		writeError(w, http.StatusConflict, "persona_con_turnos", err.Error())
	case errors.Is(err, agenda.ErrDatosIncompletos):
		writeError(w, http.StatusBadRequest, "datos_incompletos", err.Error())
	case errors.Is(err, agenda.ErrFechaNacimientoInvalida):
		writeError(w, http.StatusBadRequest, "fecha_nacimiento_invalida", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// parseID reads the {id} route parameter; a non-numeric value answers
// the request itself.
func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "id must be an integer")
		return 0, false
	}
	return id, true
}

// parsePaginacion reads skip/limit, defaulting to 0/100. The services
// clamp limit to 200.
func parsePaginacion(r *http.Request) (limit, offset int) {
	limit, offset = 100, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := r.URL.Query().Get("skip"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}
	return limit, offset
}
