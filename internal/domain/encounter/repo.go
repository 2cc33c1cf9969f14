package encounter

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

type Repository interface {
	CreatePatient(ctx context.Context, p *Patient) error
	GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error)

	CreateAppointment(ctx context.Context, a *Appointment) error
	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, status string) error
	// LastCompletedVisit returns the start of the latest completed
	// appointment of the patient strictly before the given time, excluding
	// the appointment with id exclude. It returns nil when there is none.
	LastCompletedVisit(ctx context.Context, patientID uuid.UUID, before time.Time, exclude *uuid.UUID) (*time.Time, error)

	Create(ctx context.Context, enc *Encounter) error
	GetByID(ctx context.Context, id uuid.UUID) (*Encounter, error)
	Update(ctx context.Context, enc *Encounter) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Encounter, int, error)
}
