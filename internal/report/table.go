package report

import (
	"strconv"
	"time"

	"github.com/turnera/turnos-api/internal/agenda"
)

// Table is the flattened form shared by the CSV and PDF renderers, so
// both exports carry the same rows in the same order.
type Table struct {
	Titulo  string
	Headers []string
	Rows    [][]string
}

// TablaTurnos flattens joined turno rows.
func TablaTurnos(titulo string, turnos []agenda.TurnoConPersona) Table {
	t := Table{
		Titulo:  titulo,
		Headers: []string{"DNI", "Nombre", "Fecha", "Hora", "Estado"},
		Rows:    make([][]string, 0, len(turnos)),
	}
	for i := range turnos {
		tc := &turnos[i]
		t.Rows = append(t.Rows, []string{
			strconv.FormatInt(tc.Persona.DNI, 10),
			tc.Persona.Nombre,
			tc.Fecha,
			tc.Hora,
			string(tc.Estado),
		})
	}
	return t
}

// TablaTurnosDePersona flattens the turnos of a single persona.
func TablaTurnosDePersona(titulo string, p *agenda.Persona, turnos []agenda.Turno) Table {
	t := Table{
		Titulo:  titulo,
		Headers: []string{"DNI", "Nombre", "Fecha", "Hora", "Estado"},
		Rows:    make([][]string, 0, len(turnos)),
	}
	for i := range turnos {
		t.Rows = append(t.Rows, []string{
			strconv.FormatInt(p.DNI, 10),
			p.Nombre,
			turnos[i].Fecha,
			turnos[i].Hora,
			string(turnos[i].Estado),
		})
	}
	return t
}

// TablaPersonas flattens the estado-personas projection, edad included.
func TablaPersonas(titulo string, personas []agenda.Persona) Table {
	hoy := time.Now()
	t := Table{
		Titulo:  titulo,
		Headers: []string{"DNI", "Nombre", "Email", "Teléfono", "Edad", "Habilitado"},
		Rows:    make([][]string, 0, len(personas)),
	}
	for i := range personas {
		p := &personas[i]
		edad := "-"
		if e := p.Edad(hoy); e != nil {
			edad = strconv.Itoa(*e)
		}
		habilitado := "no"
		if p.Habilitado {
			habilitado = "si"
		}
		t.Rows = append(t.Rows, []string{
			strconv.FormatInt(p.DNI, 10),
			p.Nombre,
			p.Email,
			strconv.FormatInt(p.Telefono, 10),
			edad,
			habilitado,
		})
	}
	return t
}
