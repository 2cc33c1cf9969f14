package encounter

import (
	"time"

	"github.com/google/uuid"

	"github.com/dentclaim/dentclaim/internal/platform/notes"
)

// Patient maps to the patient table. Billing only reads it.
type Patient struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	Name           string          `db:"name" json:"name"`
	NameKana       string          `db:"name_kana" json:"name_kana,omitempty"`
	Sex            string          `db:"sex" json:"sex"`
	BirthDate      time.Time       `db:"birth_date" json:"birth_date"`
	InsurerNumber  string          `db:"insurer_number" json:"insurer_number"`
	InsuredSymbol  string          `db:"insured_symbol" json:"insured_symbol,omitempty"`
	InsuredNumber  string          `db:"insured_number" json:"insured_number"`
	Relationship   string          `db:"relationship" json:"relationship"`
	BurdenRatio    *float64        `db:"burden_ratio" json:"burden_ratio,omitempty"`
	Allergies      []string        `db:"allergies" json:"allergies,omitempty"`
	PublicExpenses []PublicExpense `db:"public_expenses" json:"public_expenses,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// PublicExpense is a public medical-expense program (公費) the patient is
// enrolled in.
type PublicExpense struct {
	PayerNumber     string `json:"payer_number"`
	RecipientNumber string `json:"recipient_number"`
}

// Appointment maps to the appointment table.
type Appointment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	StartsAt  time.Time `db:"starts_at" json:"starts_at"`
	Status    string    `db:"status" json:"status"`
	IsNew     bool      `db:"is_new" json:"is_new"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Encounter is one charted visit.
type Encounter struct {
	ID            uuid.UUID           `db:"id" json:"id"`
	PatientID     uuid.UUID           `db:"patient_id" json:"patient_id"`
	AppointmentID *uuid.UUID          `db:"appointment_id" json:"appointment_id,omitempty"`
	VisitedAt     time.Time           `db:"visited_at" json:"visited_at"`
	Subjective    string              `db:"subjective" json:"subjective"`
	Objective     string              `db:"objective" json:"objective"`
	Assessment    string              `db:"assessment" json:"assessment"`
	Plan          string              `db:"plan" json:"plan"`
	ToothSurfaces map[string][]string `db:"tooth_surfaces" json:"tooth_surfaces,omitempty"`
	Diagnoses     []Diagnosis         `db:"diagnoses" json:"diagnoses,omitempty"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time           `db:"updated_at" json:"updated_at"`
}

// Diagnosis is a diagnosis recorded on an encounter.
type Diagnosis struct {
	Code      string     `json:"code,omitempty"`
	Name      string     `json:"name"`
	Tooth     string     `json:"tooth,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	Outcome   string     `json:"outcome,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Modifier  string     `json:"modifier,omitempty"`
}

// Sections returns the SOAP note.
func (e *Encounter) Sections() notes.Sections {
	return notes.Sections{
		Subjective: e.Subjective,
		Objective:  e.Objective,
		Assessment: e.Assessment,
		Plan:       e.Plan,
	}
}

// Appointment statuses.
const (
	AppointmentScheduled = "scheduled"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
)

const (
	RelationshipSelf   = "self"
	RelationshipFamily = "family"
)
