// Package derive turns one clinical note into billable line items.
//
// A derivation is a single linear pass over a reference snapshot: base visit
// fee, pattern matching (or the keyword fallback), drugs, prosthetic
// follow-on items, materials, facility bonuses, the allergy check and receipt
// comments. The only mutable state is the per-call builder.
package derive

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dentclaim/dentclaim/internal/domain/reference"
	"github.com/dentclaim/dentclaim/internal/platform/notes"
	"github.com/dentclaim/dentclaim/internal/platform/points"
)

// Line code prefixes for items that are not fee-table procedures.
const (
	DrugPrefix     = "DRUG-"
	MaterialPrefix = "MAT-"
	BonusPrefix    = "BONUS-"
)

// SelectedItem is one billed line.
type SelectedItem struct {
	Code         string           `json:"code"`
	Name         string           `json:"name"`
	Points       int              `json:"points"`
	Category     string           `json:"category"`
	Count        int              `json:"count"`
	Note         string           `json:"note,omitempty"`
	ToothNumbers []string         `json:"tooth_numbers,omitempty"`
	Quantity     *decimal.Decimal `json:"quantity,omitempty"`
	Unit         string           `json:"unit,omitempty"`
}

// ReceiptComment is a CO record attached to the claim.
type ReceiptComment struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

// Input is everything a derivation reads.
type Input struct {
	Note          notes.Sections
	ToothSurfaces map[string][]string
	Visit         Visit
	Allergies     []string
	BurdenRatio   float64
	Snapshot      *reference.Snapshot
}

// Result is the outcome of one derivation.
type Result struct {
	IsNew    bool
	Items    []SelectedItem
	Summary  points.Summary
	Warnings []string
	Comments []ReceiptComment
	Teeth    []string
	// Dropped lists codes that had neither a fee item nor a fallback.
	Dropped []string
	// Degraded is set when the keyword fallback replaced the pattern table.
	Degraded bool
}

// Visit is the outcome of ClassifyVisit.
type Visit struct {
	IsNew         bool
	Reason        VisitReason
	PreviousVisit *time.Time
	GapDays       int
}

type VisitReason string

const (
	VisitFlagged  VisitReason = "flagged"
	VisitFirst    VisitReason = "first"
	VisitGap      VisitReason = "gap"
	VisitFollowUp VisitReason = "follow_up"
)
