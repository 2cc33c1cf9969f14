package derive

import (
	"strings"

	"github.com/dentclaim/dentclaim/internal/domain/reference"
)

// CodeFallback maps abstract or legacy codes used by patterns and engines to
// the codes present in the current fee table. It is consulted only when the
// code itself has no fee item.
var CodeFallback = map[string]string{
	"A000":        "A000-1",
	"A002":        "A002-1",
	"B-SHIDO":     "B000-4",
	"B-SHIDO-NEW": "B000-4-N",
	"F-SHOHO":     "F100",
	"F-CHOZAI":    "F000",
	"M-INSHO":     "M003-1",
	"M-KOGO":      "M006-1",
	"M-SOCHAKU":   "M005-1",
	"M-HOSHIN":    "M000",
	"M-SEIMITSU":  "M003-3",
	"M-KOGO-D":    "M006-2",
	"M-SOCHAKU-D": "M005-2",
	"M-TEK":       "M003-2",
	"M-KEISEI-S":  "M001-3-S",
}

// builder accumulates the line items of one derivation. added holds every
// code that produced an item, both as requested and as resolved.
type builder struct {
	fees     map[string]reference.FeeItem
	items    []SelectedItem
	added    map[string]bool
	dropped  []string
	warnings []string
	comments []ReceiptComment
}

func newBuilder(fees map[string]reference.FeeItem) *builder {
	return &builder{fees: fees, added: make(map[string]bool)}
}

// addItem bills a fee-table code. It is a no-op when the code, or the code it
// falls back to, has already been billed. Codes with neither a fee item nor a
// fallback are dropped.
func (b *builder) addItem(code string, count int, teeth []string) bool {
	if b.added[code] {
		return false
	}
	resolved := code
	fee, ok := b.fees[code]
	if !ok {
		fb, has := CodeFallback[code]
		if !has {
			b.dropped = append(b.dropped, code)
			return false
		}
		if b.added[fb] {
			b.added[code] = true
			return false
		}
		if fee, ok = b.fees[fb]; !ok {
			b.dropped = append(b.dropped, code)
			return false
		}
		resolved = fb
	}
	if count < 1 {
		count = 1
	}
	b.added[code] = true
	b.added[resolved] = true
	b.items = append(b.items, SelectedItem{
		Code:         resolved,
		Name:         fee.Name,
		Points:       fee.Points,
		Category:     fee.Category,
		Count:        count,
		Note:         fee.Conditions.Note,
		ToothNumbers: copyTeeth(teeth),
	})
	return true
}

// addLine bills a computed line (drug, material, bonus) under its own code.
func (b *builder) addLine(item SelectedItem) bool {
	if b.added[item.Code] {
		return false
	}
	if item.Count < 1 {
		item.Count = 1
	}
	b.added[item.Code] = true
	b.items = append(b.items, item)
	return true
}

func (b *builder) has(code string) bool { return b.added[code] }

// withPrefix returns the billed items whose code starts with prefix.
func (b *builder) withPrefix(prefix string) []SelectedItem {
	var out []SelectedItem
	for _, it := range b.items {
		if strings.HasPrefix(it.Code, prefix) {
			out = append(out, it)
		}
	}
	return out
}

func (b *builder) warn(msg string) { b.warnings = append(b.warnings, msg) }

func (b *builder) comment(c ReceiptComment) {
	for _, existing := range b.comments {
		if existing.Code == c.Code {
			return
		}
	}
	b.comments = append(b.comments, c)
}

func copyTeeth(teeth []string) []string {
	if len(teeth) == 0 {
		return nil
	}
	return append([]string(nil), teeth...)
}

// unionTeeth merges the tooth lists of items, keeping first-seen order.
func unionTeeth(items []SelectedItem) []string {
	seen := make(map[string]bool)
	var out []string
	for _, it := range items {
		for _, t := range it.ToothNumbers {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}
