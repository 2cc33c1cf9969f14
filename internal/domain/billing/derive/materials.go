package derive

import (
	"github.com/shopspring/decimal"

	"github.com/dentclaim/dentclaim/internal/domain/reference"
	"github.com/dentclaim/dentclaim/internal/platform/points"
)

var one = decimal.NewFromInt(1)

func decimalInt(n int) decimal.Decimal { return decimal.NewFromInt(int64(n)) }

// applyMaterials bills the materials required by already-billed procedures,
// at most one per (material category, procedure category). Materials priced
// at zero follow the market price and are entered by hand.
func (b *builder) applyMaterials(materials []reference.Material) {
	procedures := make([]SelectedItem, len(b.items))
	copy(procedures, b.items)

	seen := make(map[[2]string]bool)
	for _, m := range materials {
		if !m.IsActive || !m.UnitPrice.IsPositive() {
			continue
		}
		proc, ok := b.relatedProcedure(procedures, m.RelatedFeeCodes)
		if !ok {
			continue
		}
		key := [2]string{m.MaterialCategory, proc.Category}
		if seen[key] {
			continue
		}
		if b.addLine(materialLine(m, proc)) {
			seen[key] = true
		}
	}
}

// relatedProcedure finds the billed item a material belongs to. Related codes
// may name a fee code directly or an abstract code that was billed through
// its fallback.
func (b *builder) relatedProcedure(items []SelectedItem, related []string) (SelectedItem, bool) {
	for _, it := range items {
		for _, code := range related {
			if it.Code == code {
				return it, true
			}
			if b.added[code] && CodeFallback[code] == it.Code {
				return it, true
			}
		}
	}
	return SelectedItem{}, false
}

func materialLine(m reference.Material, proc SelectedItem) SelectedItem {
	qty := m.DefaultQuantity
	if qty.IsZero() {
		qty = one
	}
	code := m.ReceiptCode
	if code == "" {
		code = m.ID
	}
	return SelectedItem{
		Code:         MaterialPrefix + code,
		Name:         m.Name,
		Points:       points.FromYen(m.UnitPrice.Mul(qty)),
		Category:     "material",
		Count:        1,
		Note:         proc.Code,
		ToothNumbers: copyTeeth(proc.ToothNumbers),
		Quantity:     &qty,
		Unit:         m.Unit,
	}
}
