package agenda

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository is an in-memory Repository. It backs the service
// and API tests and is handy for running the server without Postgres.
type MemoryRepository struct {
	mu            sync.RWMutex
	personas      map[int64]*Persona
	turnos        map[int64]*Turno
	nextPersonaID int64
	nextTurnoID   int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		personas: make(map[int64]*Persona),
		turnos:   make(map[int64]*Turno),
	}
}

// Personas

func (r *MemoryRepository) ListPersonas(ctx context.Context, limit, offset int) ([]Persona, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.personasOrdenadas()
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryRepository) personasOrdenadas() []Persona {
	all := make([]Persona, 0, len(r.personas))
	for _, p := range r.personas {
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

func (r *MemoryRepository) GetPersonaByID(ctx context.Context, id int64) (*Persona, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.personas[id]
	if !ok {
		return nil, ErrPersonaNoEncontrada
	}
	copia := *p
	return &copia, nil
}

func (r *MemoryRepository) GetPersonaByDNI(ctx context.Context, dni int64) (*Persona, error) {
	return r.buscarPersona(func(p *Persona) bool { return p.DNI == dni })
}

func (r *MemoryRepository) GetPersonaByEmail(ctx context.Context, email string) (*Persona, error) {
	return r.buscarPersona(func(p *Persona) bool { return p.Email == email })
}

func (r *MemoryRepository) GetPersonaByTelefono(ctx context.Context, telefono int64) (*Persona, error) {
	return r.buscarPersona(func(p *Persona) bool { return p.Telefono == telefono })
}

func (r *MemoryRepository) buscarPersona(match func(*Persona) bool) (*Persona, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.personas {
		if match(p) {
			copia := *p
			return &copia, nil
		}
	}
	return nil, ErrPersonaNoEncontrada
}

func (r *MemoryRepository) CreatePersona(ctx context.Context, p *Persona) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextPersonaID++
	p.ID = r.nextPersonaID
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	copia := *p
	r.personas[p.ID] = &copia
	return nil
}

func (r *MemoryRepository) UpdatePersona(ctx context.Context, p *Persona) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	actual, ok := r.personas[p.ID]
	if !ok {
		return ErrPersonaNoEncontrada
	}
	p.CreatedAt = actual.CreatedAt
	p.UpdatedAt = time.Now()

	copia := *p
	r.personas[p.ID] = &copia
	return nil
}

func (r *MemoryRepository) DeletePersona(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.personas[id]; !ok {
		return ErrPersonaNoEncontrada
	}
	delete(r.personas, id)
	return nil
}

func (r *MemoryRepository) SetPersonaHabilitada(ctx context.Context, id int64, habilitada bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.personas[id]
	if !ok {
		return ErrPersonaNoEncontrada
	}
	p.Habilitado = habilitada
	p.UpdatedAt = time.Now()
	return nil
}

// Turnos

func (r *MemoryRepository) ListTurnos(ctx context.Context, limit, offset int) ([]Turno, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.turnosFiltrados(func(*Turno) bool { return true })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryRepository) turnosFiltrados(match func(*Turno) bool) []Turno {
	all := make([]Turno, 0, len(r.turnos))
	for _, t := range r.turnos {
		if match(t) {
			all = append(all, *t)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

func (r *MemoryRepository) GetTurnoByID(ctx context.Context, id int64) (*Turno, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.turnos[id]
	if !ok {
		return nil, ErrTurnoNoEncontrado
	}
	copia := *t
	return &copia, nil
}

func (r *MemoryRepository) ListTurnosByFecha(ctx context.Context, fecha string) ([]Turno, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	turnos := r.turnosFiltrados(func(t *Turno) bool { return t.Fecha == fecha })
	sort.Slice(turnos, func(i, j int) bool {
		if turnos[i].Hora != turnos[j].Hora {
			return turnos[i].Hora < turnos[j].Hora
		}
		return turnos[i].ID < turnos[j].ID
	})
	return turnos, nil
}

func (r *MemoryRepository) ListTurnosByPersona(ctx context.Context, personaID int64) ([]Turno, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.turnosFiltrados(func(t *Turno) bool { return t.PersonaID == personaID }), nil
}

func (r *MemoryRepository) CountTurnosDePersona(ctx context.Context, personaID int64) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, t := range r.turnos {
		if t.PersonaID == personaID {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) CreateTurno(ctx context.Context, t *Turno) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextTurnoID++
	t.ID = r.nextTurnoID
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	copia := *t
	r.turnos[t.ID] = &copia
	return nil
}

func (r *MemoryRepository) UpdateTurno(ctx context.Context, t *Turno) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	actual, ok := r.turnos[t.ID]
	if !ok {
		return ErrTurnoNoEncontrado
	}
	t.CreatedAt = actual.CreatedAt
	t.UpdatedAt = time.Now()

	copia := *t
	r.turnos[t.ID] = &copia
	return nil
}

func (r *MemoryRepository) DeleteTurno(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.turnos[id]; !ok {
		return ErrTurnoNoEncontrado
	}
	delete(r.turnos, id)
	return nil
}

// Reliability policy

func (r *MemoryRepository) CountCanceladosDesde(ctx context.Context, personaID int64, desdeFecha string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, t := range r.turnos {
		if t.PersonaID == personaID && t.Estado == EstadoCancelado && t.Fecha >= desdeFecha {
			n++
		}
	}
	return n, nil
}

// Reporting joins

func (r *MemoryRepository) ListTurnosConPersonaByFecha(ctx context.Context, fecha string) ([]TurnoConPersona, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.juntar(func(t *Turno) bool { return t.Fecha == fecha }), nil
}

func (r *MemoryRepository) ListTurnosConPersonaByEstado(ctx context.Context, estado Estado, desde, hasta string) ([]TurnoConPersona, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.juntar(func(t *Turno) bool {
		if t.Estado != estado {
			return false
		}
		if desde != "" && t.Fecha < desde {
			return false
		}
		if hasta != "" && t.Fecha > hasta {
			return false
		}
		return true
	}), nil
}

func (r *MemoryRepository) juntar(match func(*Turno) bool) []TurnoConPersona {
	var result []TurnoConPersona
	for _, t := range r.turnos {
		if !match(t) {
			continue
		}
		p, ok := r.personas[t.PersonaID]
		if !ok {
			continue
		}
		result = append(result, TurnoConPersona{Turno: *t, Persona: *p})
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := &result[i], &result[j]
		if a.Persona.Nombre != b.Persona.Nombre {
			return a.Persona.Nombre < b.Persona.Nombre
		}
		if a.Persona.ID != b.Persona.ID {
			return a.Persona.ID < b.Persona.ID
		}
		if a.Fecha != b.Fecha {
			return a.Fecha < b.Fecha
		}
		if a.Hora != b.Hora {
			return a.Hora < b.Hora
		}
		return a.ID < b.ID
	})
	return result
}
