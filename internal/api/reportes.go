package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/turnera/turnos-api/internal/agenda"
	"github.com/turnera/turnos-api/internal/report"
)

var errParametroRequerido = errors.New("parámetro requerido")

type reportesHandler struct {
	svc      *report.Service
	logoPath string
}

// reporteFetch resolves one report: the JSON payload plus the
// flattened table the CSV and PDF variants render. Both exports share
// the table, so they always carry the same rows in the same order.
type reporteFetch func(r *http.Request) (any, report.Table, error)

func (h *reportesHandler) json(fetch reporteFetch) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, _, err := fetch(r)
		if err != nil {
			handleReporteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
	}
}

func (h *reportesHandler) csv(fetch reporteFetch, nombre string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, tabla, err := fetch(r)
		if err != nil {
			handleReporteError(w, err)
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, nombre))
		if err := report.WriteCSV(w, tabla); err != nil {
			log.Printf("write csv %s failed: %v request_id=%s", nombre, err, GetRequestID(r.Context()))
		}
	}
}

func (h *reportesHandler) pdf(fetch reporteFetch, nombre string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, tabla, err := fetch(r)
		if err != nil {
			handleReporteError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, nombre))
		if err := report.WritePDF(w, tabla, h.logoPath); err != nil {
			log.Printf("write pdf %s failed: %v request_id=%s", nombre, err, GetRequestID(r.Context()))
		}
	}
}

// Fetchers

func (h *reportesHandler) turnosPorFecha(r *http.Request) (any, report.Table, error) {
	fecha := r.URL.Query().Get("fecha")
	if fecha == "" {
		return nil, report.Table{}, fmt.Errorf("%w: fecha", errParametroRequerido)
	}

	rows, err := h.svc.TurnosPorFecha(r.Context(), fecha)
	if err != nil {
		return nil, report.Table{}, err
	}

	tabla := report.TablaTurnos("Turnos del "+fecha, rows)
	return agruparPorPersona(rows), tabla, nil
}

func (h *reportesHandler) turnosPorPersona(r *http.Request) (any, report.Table, error) {
	dniStr := r.URL.Query().Get("dni")
	if dniStr == "" {
		return nil, report.Table{}, fmt.Errorf("%w: dni", errParametroRequerido)
	}
	dni, err := strconv.ParseInt(dniStr, 10, 64)
	if err != nil {
		return nil, report.Table{}, fmt.Errorf("%w: dni debe ser numérico", errParametroRequerido)
	}

	persona, turnos, err := h.svc.TurnosPorPersona(r.Context(), dni)
	if err != nil {
		return nil, report.Table{}, err
	}

	payload := GrupoTurnosResponse{
		Persona: personaResponse(persona),
		Turnos:  turnosResponse(turnos),
	}
	tabla := report.TablaTurnosDePersona("Turnos de "+persona.Nombre, persona, turnos)
	return payload, tabla, nil
}

func (h *reportesHandler) estadoPersonas(r *http.Request) (any, report.Table, error) {
	personas, err := h.svc.EstadoPersonas(r.Context())
	if err != nil {
		return nil, report.Table{}, err
	}

	tabla := report.TablaPersonas("Estado de personas", personas)
	return personasResponse(personas), tabla, nil
}

func (h *reportesHandler) turnosCancelados(r *http.Request) (any, report.Table, error) {
	min := 1
	if v := r.URL.Query().Get("min"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, report.Table{}, fmt.Errorf("%w: min debe ser un entero positivo", errParametroRequerido)
		}
		min = n
	}

	rows, err := h.svc.TurnosCancelados(r.Context(), min)
	if err != nil {
		return nil, report.Table{}, err
	}

	tabla := report.TablaTurnos("Turnos cancelados", rows)
	return agruparPorPersona(rows), tabla, nil
}

func (h *reportesHandler) turnosCanceladosPorMes(r *http.Request) (any, report.Table, error) {
	rows, err := h.svc.TurnosCanceladosDelMes(r.Context())
	if err != nil {
		return nil, report.Table{}, err
	}

	tabla := report.TablaTurnos("Turnos cancelados del mes", rows)
	return agruparPorPersona(rows), tabla, nil
}

func (h *reportesHandler) turnosConfirmados(r *http.Request) (any, report.Table, error) {
	desde := r.URL.Query().Get("desde")
	hasta := r.URL.Query().Get("hasta")
	if desde == "" || hasta == "" {
		return nil, report.Table{}, fmt.Errorf("%w: desde y hasta", errParametroRequerido)
	}

	rows, err := h.svc.TurnosConfirmados(r.Context(), desde, hasta)
	if err != nil {
		return nil, report.Table{}, err
	}

	tabla := report.TablaTurnos(fmt.Sprintf("Turnos confirmados %s a %s", desde, hasta), rows)
	return agruparPorPersona(rows), tabla, nil
}

func handleReporteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errParametroRequerido):
		writeError(w, http.StatusBadRequest, "parametro_requerido", err.Error())
	case errors.Is(err, agenda.ErrFechaInvalida):
		writeError(w, http.StatusBadRequest, "fecha_invalida", err.Error())
	case errors.Is(err, agenda.ErrPersonaNoEncontrada):
		writeError(w, http.StatusNotFound, "persona_no_encontrada", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
