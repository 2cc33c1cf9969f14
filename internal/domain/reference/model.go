package reference

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeeConditions carries free-form conditions attached to a fee item.
type FeeConditions struct {
	Note string `json:"note,omitempty" yaml:"note,omitempty"`
}

// FeeItem maps to the fee_item table. One row per (revision_code, code).
type FeeItem struct {
	Code         string        `db:"code" json:"code" yaml:"code"`
	RevisionCode string        `db:"revision_code" json:"revision_code" yaml:"revision_code"`
	Name         string        `db:"name" json:"name" yaml:"name"`
	Points       int           `db:"points" json:"points" yaml:"points"`
	Category     string        `db:"category" json:"category" yaml:"category"`
	Conditions   FeeConditions `db:"conditions" json:"conditions" yaml:"conditions,omitempty"`
}

// PatternCondition holds the optional AND-keywords and the sub-type a pattern
// bills for (for example "canals:3" or "new:full:upper").
type PatternCondition struct {
	AndKeywords []string `json:"and_keywords,omitempty" yaml:"and_keywords,omitempty"`
	Variant     string   `json:"variant,omitempty" yaml:"variant,omitempty"`
}

// BillingPattern maps to the billing_pattern table.
type BillingPattern struct {
	ID                  uuid.UUID        `db:"id" json:"id" yaml:"-"`
	PatternName         string           `db:"pattern_name" json:"pattern_name" yaml:"pattern_name"`
	Category            string           `db:"category" json:"category" yaml:"category"`
	SOAPKeywords        []string         `db:"soap_keywords" json:"soap_keywords" yaml:"soap_keywords"`
	SOAPExcludeKeywords []string         `db:"soap_exclude_keywords" json:"soap_exclude_keywords,omitempty" yaml:"soap_exclude_keywords,omitempty"`
	FeeCodes            []string         `db:"fee_codes" json:"fee_codes" yaml:"fee_codes"`
	UseToothNumbers     bool             `db:"use_tooth_numbers" json:"use_tooth_numbers" yaml:"use_tooth_numbers,omitempty"`
	Condition           PatternCondition `db:"condition" json:"condition" yaml:"condition,omitempty"`
	Priority            int              `db:"priority" json:"priority" yaml:"priority"`
	RevisionCode        string           `db:"revision_code" json:"revision_code" yaml:"revision_code"`
	IsActive            bool             `db:"is_active" json:"is_active" yaml:"is_active"`
}

// Drug maps to the drug_master table.
type Drug struct {
	ID              string          `db:"id" json:"id" yaml:"id"`
	Name            string          `db:"name" json:"name" yaml:"name"`
	GenericName     string          `db:"generic_name" json:"generic_name,omitempty" yaml:"generic_name,omitempty"`
	DrugClass       string          `db:"drug_class" json:"drug_class" yaml:"drug_class"`
	UnitPrice       decimal.Decimal `db:"unit_price" json:"unit_price" yaml:"unit_price"`
	Unit            string          `db:"unit" json:"unit" yaml:"unit"`
	DosageForm      string          `db:"dosage_form" json:"dosage_form" yaml:"dosage_form"`
	DefaultDays     int             `db:"default_days" json:"default_days" yaml:"default_days"`
	DefaultQuantity decimal.Decimal `db:"default_quantity" json:"default_quantity" yaml:"default_quantity"`
	ReceiptCode     string          `db:"receipt_code" json:"receipt_code,omitempty" yaml:"receipt_code,omitempty"`
	IsActive        bool            `db:"is_active" json:"is_active" yaml:"is_active"`
}

// Material maps to the material_master table.
type Material struct {
	ID               string          `db:"id" json:"id" yaml:"id"`
	Name             string          `db:"name" json:"name" yaml:"name"`
	MaterialCategory string          `db:"material_category" json:"material_category" yaml:"material_category"`
	RelatedFeeCodes  []string        `db:"related_fee_codes" json:"related_fee_codes" yaml:"related_fee_codes"`
	UnitPrice        decimal.Decimal `db:"unit_price" json:"unit_price" yaml:"unit_price"`
	Unit             string          `db:"unit" json:"unit" yaml:"unit"`
	DefaultQuantity  decimal.Decimal `db:"default_quantity" json:"default_quantity" yaml:"default_quantity"`
	ReceiptCode      string          `db:"receipt_code" json:"receipt_code,omitempty" yaml:"receipt_code,omitempty"`
	IsActive         bool            `db:"is_active" json:"is_active" yaml:"is_active"`
}

// Bonus types.
const (
	BonusAdd    = "add"
	BonusUnlock = "unlock"
)

// FacilityBonus maps to the facility_bonus table.
type FacilityBonus struct {
	FacilityCode string `db:"facility_code" json:"facility_code" yaml:"facility_code"`
	Name         string `db:"name" json:"name" yaml:"name"`
	TargetKubun  string `db:"target_kubun" json:"target_kubun" yaml:"target_kubun"`
	BonusPoints  int    `db:"bonus_points" json:"bonus_points" yaml:"bonus_points"`
	BonusType    string `db:"bonus_type" json:"bonus_type" yaml:"bonus_type"`
	Condition    string `db:"condition" json:"condition,omitempty" yaml:"condition,omitempty"`
	IsActive     bool   `db:"is_active" json:"is_active" yaml:"is_active"`
}

// FacilityStandard is a clinic-level certification and whether the clinic
// has registered it with the regional bureau.
type FacilityStandard struct {
	Code         string     `db:"code" json:"code" yaml:"code"`
	Name         string     `db:"name" json:"name" yaml:"name"`
	Registered   bool       `db:"registered" json:"registered" yaml:"registered"`
	RegisteredAt *time.Time `db:"registered_at" json:"registered_at,omitempty" yaml:"registered_at,omitempty"`
}

// ReceiptCodeMapping is a database-backed receipt code, keyed by the internal
// code split at its first hyphen (I005-3 -> prefix I005, suffix 3).
type ReceiptCodeMapping struct {
	Prefix      string `db:"prefix" json:"prefix" yaml:"prefix"`
	Suffix      string `db:"suffix" json:"suffix" yaml:"suffix"`
	ReceiptCode string `db:"receipt_code" json:"receipt_code" yaml:"receipt_code"`
	ShinryoCode string `db:"shinryo_code" json:"shinryo_code" yaml:"shinryo_code"`
	Name        string `db:"name" json:"name,omitempty" yaml:"name,omitempty"`
}

// Diagnosis maps to the diagnosis_master table (傷病名マスター).
type Diagnosis struct {
	Code         string `db:"code" json:"code" yaml:"code"`
	Name         string `db:"name" json:"name" yaml:"name"`
	InternalCode string `db:"internal_code" json:"internal_code,omitempty" yaml:"internal_code,omitempty"`
}

// Snapshot is the read-only reference data used by one derivation request.
type Snapshot struct {
	Revision            string
	FeeItems            map[string]FeeItem
	Patterns            []BillingPattern
	PatternsUnavailable bool
	Drugs               []Drug
	Materials           []Material
	Bonuses             []FacilityBonus
	Registered          map[string]bool
}
