package encounter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

var validSex = map[string]bool{"1": true, "2": true, "male": true, "female": true}

var validRelationships = map[string]bool{
	RelationshipSelf:   true,
	RelationshipFamily: true,
}

var validAppointmentStatuses = map[string]bool{
	AppointmentScheduled: true,
	AppointmentCompleted: true,
	AppointmentCancelled: true,
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.BirthDate.IsZero() {
		return fmt.Errorf("birth_date is required")
	}
	if !validSex[p.Sex] {
		return fmt.Errorf("invalid sex: %s", p.Sex)
	}
	if p.InsurerNumber == "" || p.InsuredNumber == "" {
		return fmt.Errorf("insurer_number and insured_number are required")
	}
	if p.Relationship == "" {
		p.Relationship = RelationshipSelf
	}
	if !validRelationships[p.Relationship] {
		return fmt.Errorf("invalid relationship: %s", p.Relationship)
	}
	if p.BurdenRatio != nil && (*p.BurdenRatio < 0 || *p.BurdenRatio > 1) {
		return fmt.Errorf("burden_ratio must be between 0 and 1")
	}
	return s.repo.CreatePatient(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetPatient(ctx, id)
}

func (s *Service) CreateAppointment(ctx context.Context, a *Appointment) error {
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if a.StartsAt.IsZero() {
		return fmt.Errorf("starts_at is required")
	}
	if a.Status == "" {
		a.Status = AppointmentScheduled
	}
	if !validAppointmentStatuses[a.Status] {
		return fmt.Errorf("invalid status: %s", a.Status)
	}
	return s.repo.CreateAppointment(ctx, a)
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointment(ctx, id)
}

func (s *Service) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, status string) error {
	if !validAppointmentStatuses[status] {
		return fmt.Errorf("invalid status: %s", status)
	}
	return s.repo.UpdateAppointmentStatus(ctx, id, status)
}

// PreviousVisit returns the latest completed appointment before the
// encounter, ignoring the encounter's own appointment.
func (s *Service) PreviousVisit(ctx context.Context, enc *Encounter) (*time.Time, error) {
	return s.repo.LastCompletedVisit(ctx, enc.PatientID, enc.VisitedAt, enc.AppointmentID)
}

// IsFlaggedNew reports whether the encounter's appointment was booked as a
// new patient visit.
func (s *Service) IsFlaggedNew(ctx context.Context, enc *Encounter) (bool, error) {
	if enc.AppointmentID == nil {
		return false, nil
	}
	a, err := s.repo.GetAppointment(ctx, *enc.AppointmentID)
	if err != nil {
		return false, fmt.Errorf("appointment %s: %w", *enc.AppointmentID, err)
	}
	return a.IsNew, nil
}

func (s *Service) CreateEncounter(ctx context.Context, enc *Encounter) error {
	if enc.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if enc.VisitedAt.IsZero() {
		enc.VisitedAt = time.Now().UTC()
	}
	if err := validateDiagnoses(enc.Diagnoses); err != nil {
		return err
	}
	return s.repo.Create(ctx, enc)
}

func (s *Service) GetEncounter(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateEncounter(ctx context.Context, enc *Encounter) error {
	if err := validateDiagnoses(enc.Diagnoses); err != nil {
		return err
	}
	return s.repo.Update(ctx, enc)
}

func (s *Service) ListEncountersByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Encounter, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func validateDiagnoses(ds []Diagnosis) error {
	for i, d := range ds {
		if d.Code == "" && d.Name == "" {
			return fmt.Errorf("diagnoses[%d]: code or name is required", i)
		}
	}
	return nil
}
