package agenda

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrDNIRegistrado           = errors.New("el dni ya está registrado")
	ErrEmailRegistrado         = errors.New("el email ya está registrado")
	ErrTelefonoRegistrado      = errors.New("el teléfono ya está registrado")
	ErrFechaNacimientoInvalida = errors.New("fecha_nacimiento debe tener formato YYYY-MM-DD")
	ErrDatosIncompletos        = errors.New("faltan campos obligatorios")
	ErrPersonaConTurnos        = errors.New("la persona tiene turnos asociados")
)

// PersonaInput carries the fields of a create or partial-update
// request. Nil means the field was absent from the payload; only the
// fields listed here are ever written onto a record.
type PersonaInput struct {
	DNI             *int64
	Nombre          *string
	Email           *string
	Telefono        *int64
	FechaNacimiento *string
	Habilitado      *bool
}

type PersonaService struct {
	repo Repository
}

func NewPersonaService(repo Repository) *PersonaService {
	return &PersonaService{repo: repo}
}

func (s *PersonaService) List(ctx context.Context, limit, offset int) ([]Persona, error) {
	if limit <= 0 {
		limit = 100 // default
	}
	if limit > 200 {
		limit = 200 // max
	}
	if offset < 0 {
		offset = 0
	}

	personas, err := s.repo.ListPersonas(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list personas: %w", err)
	}
	return personas, nil
}

func (s *PersonaService) Get(ctx context.Context, id int64) (*Persona, error) {
	return s.repo.GetPersonaByID(ctx, id)
}

func (s *PersonaService) Create(ctx context.Context, in PersonaInput) (*Persona, error) {
	if in.DNI == nil || in.Nombre == nil || in.Email == nil || in.Telefono == nil || in.FechaNacimiento == nil {
		return nil, ErrDatosIncompletos
	}
	if _, err := time.Parse(FechaLayout, *in.FechaNacimiento); err != nil {
		return nil, ErrFechaNacimientoInvalida
	}

	if err := s.checkDNILibre(ctx, *in.DNI); err != nil {
		return nil, err
	}
	if err := s.checkEmailLibre(ctx, *in.Email); err != nil {
		return nil, err
	}
	if err := s.checkTelefonoLibre(ctx, *in.Telefono); err != nil {
		return nil, err
	}

	p := &Persona{
		DNI:             *in.DNI,
		Nombre:          *in.Nombre,
		Email:           *in.Email,
		Telefono:        *in.Telefono,
		FechaNacimiento: *in.FechaNacimiento,
		Habilitado:      true,
	}
	if in.Habilitado != nil {
		p.Habilitado = *in.Habilitado
	}

	if err := s.repo.CreatePersona(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update applies a partial update. Uniqueness is re-checked only for
// identity fields whose value actually changes.
func (s *PersonaService) Update(ctx context.Context, id int64, in PersonaInput) (*Persona, error) {
	p, err := s.repo.GetPersonaByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.DNI != nil && *in.DNI != p.DNI {
		if err := s.checkDNILibre(ctx, *in.DNI); err != nil {
			return nil, err
		}
		p.DNI = *in.DNI
	}
	if in.Email != nil && *in.Email != p.Email {
		if err := s.checkEmailLibre(ctx, *in.Email); err != nil {
			return nil, err
		}
		p.Email = *in.Email
	}
	if in.Telefono != nil && *in.Telefono != p.Telefono {
		if err := s.checkTelefonoLibre(ctx, *in.Telefono); err != nil {
			return nil, err
		}
		p.Telefono = *in.Telefono
	}
	if in.Nombre != nil {
		p.Nombre = *in.Nombre
	}
	if in.FechaNacimiento != nil {
		if _, err := time.Parse(FechaLayout, *in.FechaNacimiento); err != nil {
			return nil, ErrFechaNacimientoInvalida
		}
		p.FechaNacimiento = *in.FechaNacimiento
	}
	if in.Habilitado != nil {
		p.Habilitado = *in.Habilitado
	}

	if err := s.repo.UpdatePersona(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a persona. Deletion is blocked while turnos still
// reference the record.
func (s *PersonaService) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.GetPersonaByID(ctx, id); err != nil {
		return err
	}

	n, err := s.repo.CountTurnosDePersona(ctx, id)
	if err != nil {
		return fmt.Errorf("count turnos de persona: %w", err)
	}
	if n > 0 {
		return ErrPersonaConTurnos
	}

	return s.repo.DeletePersona(ctx, id)
}

func (s *PersonaService) checkDNILibre(ctx context.Context, dni int64) error {
	_, err := s.repo.GetPersonaByDNI(ctx, dni)
	switch {
	case err == nil:
		return ErrDNIRegistrado
	case errors.Is(err, ErrPersonaNoEncontrada):
		return nil
	default:
		return err
	}
}

func (s *PersonaService) checkEmailLibre(ctx context.Context, email string) error {
	_, err := s.repo.GetPersonaByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrEmailRegistrado
	case errors.Is(err, ErrPersonaNoEncontrada):
		return nil
	default:
		return err
	}
}

func (s *PersonaService) checkTelefonoLibre(ctx context.Context, telefono int64) error {
	_, err := s.repo.GetPersonaByTelefono(ctx, telefono)
	switch {
	case err == nil:
		return ErrTelefonoRegistrado
	case errors.Is(err, ErrPersonaNoEncontrada):
		return nil
	default:
		return err
	}
}
