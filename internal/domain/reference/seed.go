package reference

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed seed/default.yaml
var defaultSeed []byte

// Seed is the on-disk form of the reference tables.
type Seed struct {
	FeeItems     []FeeItem            `yaml:"fee_items"`
	Patterns     []BillingPattern     `yaml:"patterns"`
	Drugs        []Drug               `yaml:"drugs"`
	Materials    []Material           `yaml:"materials"`
	Bonuses      []FacilityBonus      `yaml:"facility_bonuses"`
	Standards    []FacilityStandard   `yaml:"facility_standards"`
	ReceiptCodes []ReceiptCodeMapping `yaml:"receipt_codes"`
	Diagnoses    []Diagnosis          `yaml:"diagnoses"`
}

// DefaultSeed parses the seed compiled into the binary.
func DefaultSeed() (*Seed, error) {
	return ParseSeed(defaultSeed)
}

// LoadSeedFile reads a seed from path.
func LoadSeedFile(path string) (*Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	return ParseSeed(b)
}

// ParseSeed decodes and validates a YAML seed document.
func ParseSeed(b []byte) (*Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the keys the tables are unique on.
func (s *Seed) Validate() error {
	fees := make(map[string]bool, len(s.FeeItems))
	for _, f := range s.FeeItems {
		if f.Code == "" || f.RevisionCode == "" {
			return fmt.Errorf("fee item %q: code and revision_code are required", f.Name)
		}
		key := f.RevisionCode + "/" + f.Code
		if fees[key] {
			return fmt.Errorf("duplicate fee item %s", key)
		}
		fees[key] = true
	}
	for _, p := range s.Patterns {
		if p.PatternName == "" || p.Category == "" {
			return fmt.Errorf("pattern %q: pattern_name and category are required", p.PatternName)
		}
		if len(p.SOAPKeywords) == 0 && p.Category != "basic" {
			return fmt.Errorf("pattern %q: soap_keywords is empty", p.PatternName)
		}
	}
	ids := make(map[string]bool)
	for _, d := range s.Drugs {
		if ids["d/"+d.ID] {
			return fmt.Errorf("duplicate drug %s", d.ID)
		}
		ids["d/"+d.ID] = true
	}
	for _, m := range s.Materials {
		if ids["m/"+m.ID] {
			return fmt.Errorf("duplicate material %s", m.ID)
		}
		ids["m/"+m.ID] = true
	}
	for _, b := range s.Bonuses {
		if b.BonusType != BonusAdd && b.BonusType != BonusUnlock {
			return fmt.Errorf("facility bonus %s: unknown bonus_type %q", b.FacilityCode, b.BonusType)
		}
	}
	return nil
}
