package billing

import (
	"time"

	"github.com/google/uuid"

	"github.com/dentclaim/dentclaim/internal/domain/billing/derive"
)

// Claim and payment states of a billing row.
const (
	ClaimPending = "pending"
	ClaimBilled  = "billed"

	PaymentUnpaid = "unpaid"
	PaymentPaid   = "paid"
)

// Billing maps to the billing table. One row per encounter.
type Billing struct {
	ID              uuid.UUID               `db:"id" json:"id"`
	EncounterID     uuid.UUID               `db:"encounter_id" json:"encounter_id"`
	PatientID       uuid.UUID               `db:"patient_id" json:"patient_id"`
	VisitDate       time.Time               `db:"visit_date" json:"visit_date"`
	IsNewVisit      bool                    `db:"is_new_visit" json:"is_new_visit"`
	Items           []derive.SelectedItem   `db:"items" json:"items"`
	TotalPoints     int                     `db:"total_points" json:"total_points"`
	PatientBurden   int                     `db:"patient_burden" json:"patient_burden"`
	InsuranceClaim  int                     `db:"insurance_claim" json:"insurance_claim"`
	BurdenRatio     float64                 `db:"burden_ratio" json:"burden_ratio"`
	Warnings        []string                `db:"ai_check_warnings" json:"warnings"`
	ReceiptComments []derive.ReceiptComment `db:"receipt_comments" json:"receipt_comments"`
	ClaimStatus     string                  `db:"claim_status" json:"claim_status"`
	PaymentStatus   string                  `db:"payment_status" json:"payment_status"`
	PaidAt          *time.Time              `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt       time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time               `db:"updated_at" json:"updated_at"`
}

// DeriveResponse is the body returned after a derivation.
type DeriveResponse struct {
	BillingID       uuid.UUID               `json:"billing_id"`
	EncounterID     uuid.UUID               `json:"encounter_id"`
	IsNewVisit      bool                    `json:"is_new_visit"`
	TotalPoints     int                     `json:"total_points"`
	PatientBurden   int                     `json:"patient_burden"`
	InsuranceClaim  int                     `json:"insurance_claim"`
	LineItems       []derive.SelectedItem   `json:"line_items"`
	Warnings        []string                `json:"warnings"`
	ReceiptComments []derive.ReceiptComment `json:"receipt_comments"`
}

func NewDeriveResponse(b *Billing) DeriveResponse {
	return DeriveResponse{
		BillingID:       b.ID,
		EncounterID:     b.EncounterID,
		IsNewVisit:      b.IsNewVisit,
		TotalPoints:     b.TotalPoints,
		PatientBurden:   b.PatientBurden,
		InsuranceClaim:  b.InsuranceClaim,
		LineItems:       nonNil(b.Items),
		Warnings:        nonNil(b.Warnings),
		ReceiptComments: nonNil(b.ReceiptComments),
	}
}

// ListFilter narrows List. A zero Month means every month.
type ListFilter struct {
	Month         time.Time
	PaymentStatus string
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
