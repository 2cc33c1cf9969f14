package derive

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/dentclaim/dentclaim/internal/domain/reference"
	"github.com/dentclaim/dentclaim/internal/platform/notes"
)

func fee(code string, pts int, category string) reference.FeeItem {
	return reference.FeeItem{Code: code, RevisionCode: "R06", Name: code, Points: pts, Category: category}
}

func testFees() map[string]reference.FeeItem {
	list := []reference.FeeItem{
		fee("A000-1", 267, "basic"),
		fee("A002-1", 58, "basic"),
		fee("B000-4", 100, "management"),
		fee("B000-4-N", 80, "management"),
		fee("E000-D", 48, "imaging"),
		fee("E100-P", 402, "imaging"),
		fee("K001", 30, "anesthesia"),
		fee("K001-2", 42, "anesthesia"),
		fee("I011", 72, "perio"),
		fee("M009-1", 106, "restoration"),
		fee("M009-2", 158, "restoration"),
		fee("M001-3-S", 60, "restoration"),
		fee("I005-1", 234, "endo"),
		fee("I005-2", 424, "endo"),
		fee("I005-3", 598, "endo"),
		fee("J000-1", 130, "extraction"),
		fee("J000-2", 160, "extraction"),
		fee("J000-3", 270, "extraction"),
		fee("J000-4", 500, "extraction"),
		fee("J000-5", 1080, "extraction"),
		fee("M000", 90, "prosthetic"),
		fee("M001-1", 306, "prosthetic"),
		fee("M002", 132, "prosthetic"),
		fee("M003-1", 32, "prosthetic"),
		fee("M003-2", 34, "prosthetic"),
		fee("M003-3", 272, "prosthetic"),
		fee("M005-1", 45, "prosthetic"),
		fee("M005-2", 300, "prosthetic"),
		fee("M006-1", 18, "prosthetic"),
		fee("M006-2", 283, "prosthetic"),
		fee("M010-3", 459, "crown"),
		fee("M010-4", 454, "crown"),
		fee("M015-2", 1200, "crown"),
		fee("M018-1", 2420, "denture"),
		fee("M018-2", 624, "denture"),
		fee("M029", 260, "denture"),
		fee("H001-2", 65, "denture"),
		fee("F100", 42, "medication"),
		fee("F000", 11, "medication"),
	}
	out := make(map[string]reference.FeeItem, len(list))
	for _, f := range list {
		out[f.Code] = f
	}
	return out
}

func pattern(name, category string, priority int, keywords []string, codes []string, variant string) reference.BillingPattern {
	return reference.BillingPattern{
		PatternName:     name,
		Category:        category,
		SOAPKeywords:    keywords,
		FeeCodes:        codes,
		UseToothNumbers: true,
		Condition:       reference.PatternCondition{Variant: variant},
		Priority:        priority,
		RevisionCode:    "R06",
		IsActive:        true,
	}
}

func testPatterns() []reference.BillingPattern {
	restore := []string{"cr充填", "充填"}
	extract := []string{"抜歯"}
	crown := []string{"クラウン", "fmc"}
	denture := []string{"義歯", "デンチャー"}
	return []reference.BillingPattern{
		pattern("basic", "basic", 100, []string{"初診"}, []string{"A000"}, ""),
		pattern("panorama", "imaging", 80, []string{"パノラマ"}, []string{"E100-P"}, ""),
		pattern("block", "anesthesia", 71, []string{"伝達麻酔", "伝麻"}, []string{"K001-2"}, "block"),
		pattern("infiltration", "anesthesia", 70, []string{"麻酔", "浸麻"}, []string{"K001"}, "infiltration"),
		pattern("management", "management", 60, []string{"管理", "指導"}, []string{"B-SHIDO"}, ""),
		pattern("scaling", "perio", 55, []string{"スケーリング"}, []string{"I011"}, ""),
		pattern("cr complex", "restoration", 51, restore, []string{"M009-2"}, "complex"),
		pattern("cr simple", "restoration", 50, restore, []string{"M009-1"}, "simple"),
		pattern("pulp 3", "endo", 47, []string{"抜髄"}, []string{"I005-3"}, "canals:3"),
		pattern("pulp 2", "endo", 46, []string{"抜髄"}, []string{"I005-2"}, "canals:2"),
		pattern("pulp 1", "endo", 45, []string{"抜髄"}, []string{"I005-1"}, "canals:1"),
		pattern("ext impacted", "extraction", 39, extract, []string{"J000-5"}, "impacted"),
		pattern("ext difficult", "extraction", 38, extract, []string{"J000-4"}, "difficult"),
		pattern("ext deciduous", "extraction", 37, extract, []string{"J000-1"}, "deciduous"),
		pattern("ext molar", "extraction", 36, extract, []string{"J000-3"}, "molar"),
		pattern("ext anterior", "extraction", 35, extract, []string{"J000-2"}, "anterior"),
		pattern("cadcam", "crown", 32, crown, []string{"M015-2"}, "cadcam"),
		pattern("fmc molar", "crown", 30, crown, []string{"M010-3"}, "molar"),
		pattern("fmc premolar", "crown", 29, crown, []string{"M010-4"}, "premolar"),
		pattern("prep", "prosthetic", 28, []string{"形成"}, []string{"M001-1"}, ""),
		pattern("core", "prosthetic", 27, []string{"コア", "築造"}, []string{"M002"}, ""),
		pattern("denture full", "denture", 26, denture, []string{"M018-1"}, "new:full:*"),
		pattern("denture partial", "denture", 25, denture, []string{"M018-2"}, "new:partial:*"),
		pattern("denture repair", "denture", 24, denture, []string{"M029"}, "repair:*:*"),
		pattern("denture adjust", "denture", 22, denture, []string{"H001-2"}, "adjustment:*:*"),
	}
}

func drug(id, name, class, price string, qty string, days int, receipt string) reference.Drug {
	return reference.Drug{
		ID: id, Name: name, DrugClass: class,
		UnitPrice: decimal.RequireFromString(price), Unit: "錠", DosageForm: "内服",
		DefaultDays: days, DefaultQuantity: decimal.RequireFromString(qty),
		ReceiptCode: receipt, IsActive: true,
	}
}

func testDrugs() []reference.Drug {
	return []reference.Drug{
		drug("loxonin", "ロキソニン錠60mg", ClassNSAID, "10", "1", 3, "620098801"),
		drug("sawacillin", "サワシリン錠250", ClassPenicillin, "12.1", "3", 3, "620007601"),
		drug("flomox", "フロモックス錠100mg", ClassCephem, "34.9", "3", 3, "620004401"),
		drug("mucosta", "ムコスタ錠100mg", ClassGastric, "10.1", "1", 3, "620002901"),
	}
}

func testMaterials() []reference.Material {
	return []reference.Material{
		{ID: "cr-resin", Name: "CR", MaterialCategory: "resin", RelatedFeeCodes: []string{"M009-1", "M009-2"},
			UnitPrice: decimal.RequireFromString("90"), Unit: "g", DefaultQuantity: decimal.RequireFromString("0.1"), ReceiptCode: "710010001", IsActive: true},
		{ID: "alginate", Name: "アルジネート", MaterialCategory: "impression", RelatedFeeCodes: []string{"M003-1", "M003-3"},
			UnitPrice: decimal.RequireFromString("1.1"), Unit: "g", DefaultQuantity: decimal.RequireFromString("16"), ReceiptCode: "710020001", IsActive: true},
		{ID: "silicone", Name: "シリコーン", MaterialCategory: "impression", RelatedFeeCodes: []string{"M003-3"},
			UnitPrice: decimal.RequireFromString("24"), Unit: "mL", DefaultQuantity: decimal.RequireFromString("6"), ReceiptCode: "710020002", IsActive: true},
		{ID: "core-resin", Name: "築造用レジン", MaterialCategory: "core", RelatedFeeCodes: []string{"M002"},
			UnitPrice: decimal.RequireFromString("70"), Unit: "g", DefaultQuantity: decimal.RequireFromString("0.3"), ReceiptCode: "710040001", IsActive: true},
		{ID: "gold-pd", Name: "金パラ", MaterialCategory: "alloy", RelatedFeeCodes: []string{"M010-3", "M010-4"},
			UnitPrice: decimal.Zero, Unit: "g", DefaultQuantity: decimal.RequireFromString("1"), IsActive: true},
	}
}

func testBonuses() []reference.FacilityBonus {
	return []reference.FacilityBonus{
		{FacilityCode: "gaikan1", Name: "外安全１", TargetKubun: "A000", BonusPoints: 12, BonusType: reference.BonusAdd, IsActive: true},
		{FacilityCode: "gaikan2", Name: "外安全２", TargetKubun: "A000", BonusPoints: 13, BonusType: reference.BonusAdd, IsActive: true},
		{FacilityCode: "kansen1", Name: "外感染１", TargetKubun: "A000", BonusPoints: 12, BonusType: reference.BonusAdd, IsActive: true},
		{FacilityCode: "kansen2", Name: "外感染２", TargetKubun: "A000", BonusPoints: 14, BonusType: reference.BonusAdd, IsActive: true},
		{FacilityCode: "kansen2", Name: "外感染２（再診）", TargetKubun: "A002", BonusPoints: 4, BonusType: reference.BonusAdd, IsActive: true},
		{FacilityCode: "kansen1", Name: "unlock only", TargetKubun: "A002", BonusPoints: 50, BonusType: reference.BonusUnlock, IsActive: true},
	}
}

func testSnapshot() *reference.Snapshot {
	return &reference.Snapshot{
		Revision:  "R06",
		FeeItems:  testFees(),
		Patterns:  testPatterns(),
		Drugs:     testDrugs(),
		Materials: testMaterials(),
	}
}

var (
	newVisit      = Visit{IsNew: true, Reason: VisitFirst}
	followUpVisit = Visit{Reason: VisitFollowUp}
)

func run(t *testing.T, snap *reference.Snapshot, visit Visit, plan string) *Result {
	t.Helper()
	r := NewEngine(zerolog.Nop()).Derive(Input{
		Note:        notes.Sections{Plan: plan},
		Visit:       visit,
		BurdenRatio: 0.3,
		Snapshot:    snap,
	})
	assertUniqueCodes(t, r.Items)
	return r
}

func assertUniqueCodes(t *testing.T, items []SelectedItem) {
	t.Helper()
	seen := make(map[string]bool)
	for _, it := range items {
		assert.False(t, seen[it.Code], "duplicate code %s", it.Code)
		seen[it.Code] = true
	}
}

func codes(items []SelectedItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Code
	}
	return out
}

func item(items []SelectedItem, code string) (SelectedItem, bool) {
	for _, it := range items {
		if it.Code == code {
			return it, true
		}
	}
	return SelectedItem{}, false
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}
