package agenda

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	FechaLayout = "2006-01-02"

	// Daily schedule: half-hour slots from 09:00 to 16:00 inclusive.
	slotApertura = 9 * 60
	slotCierre   = 16 * 60
	slotDuracion = 30
)

// HorariosValidos returns every bookable slot of a day, in order.
func HorariosValidos() []string {
	horarios := make([]string, 0, (slotCierre-slotApertura)/slotDuracion+1)
	for m := slotApertura; m <= slotCierre; m += slotDuracion {
		horarios = append(horarios, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return horarios
}

// HorarioValido reports whether hora belongs to the fixed slot set.
func HorarioValido(hora string) bool {
	m, err := horaEnMinutos(hora)
	if err != nil {
		return false
	}
	return m >= slotApertura && m <= slotCierre && m%slotDuracion == 0
}

// horaEnMinutos parses an HH:MM value into minutes since midnight.
func horaEnMinutos(hora string) (int, error) {
	partes := strings.Split(hora, ":")
	if len(partes) != 2 {
		return 0, fmt.Errorf("hora inválida: %q", hora)
	}
	h, err := strconv.Atoi(partes[0])
	if err != nil {
		return 0, fmt.Errorf("hora inválida: %q", hora)
	}
	m, err := strconv.Atoi(partes[1])
	if err != nil {
		return 0, fmt.Errorf("hora inválida: %q", hora)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("hora inválida: %q", hora)
	}
	return h*60 + m, nil
}

// horariosSeSolapan tests two half-open 30-minute intervals
// [a, a+30) and [b, b+30) for intersection.
func horariosSeSolapan(horaA, horaB string) (bool, error) {
	a, err := horaEnMinutos(horaA)
	if err != nil {
		return false, err
	}
	b, err := horaEnMinutos(horaB)
	if err != nil {
		return false, err
	}
	return a < b+slotDuracion && a+slotDuracion > b, nil
}
