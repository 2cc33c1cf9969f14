package derive

import (
	"fmt"
	"regexp"

	"github.com/dentclaim/dentclaim/internal/domain/reference"
	"github.com/dentclaim/dentclaim/internal/platform/notes"
	"github.com/dentclaim/dentclaim/internal/platform/points"
)

// Drug classes used by the drug engine and the allergy check.
const (
	ClassNSAID      = "nsaid"
	ClassAnalgesic  = "analgesic"
	ClassPenicillin = "penicillin"
	ClassCephem     = "cephem"
	ClassMacrolide  = "macrolide"
	ClassGastric    = "gastric"
)

type drugGroup struct {
	keywords []string
	class    string
}

var drugGroups = []drugGroup{
	{[]string{"ロキソニン", "ロキソプロフェン"}, ClassNSAID},
	{[]string{"ボルタレン", "ジクロフェナク"}, ClassNSAID},
	{[]string{"カロナール", "アセトアミノフェン"}, ClassAnalgesic},
	{[]string{"サワシリン", "アモキシシリン"}, ClassPenicillin},
	{[]string{"フロモックス", "セフカペン"}, ClassCephem},
	{[]string{"メイアクト", "セフジトレン"}, ClassCephem},
	{[]string{"クラリス", "クラリスロマイシン"}, ClassMacrolide},
	{[]string{"ムコスタ", "レバミピド"}, ClassGastric},
}

// gastricProtectant is attached to every NSAID prescription.
var gastricProtectant = drugGroups[len(drugGroups)-1]

var prescriptionTrigger = regexp.MustCompile(`処方|投薬|投与|服用|(?:^|[^a-z])rp(?:[^a-z]|$)`)

// Technical fees billed once whenever a drug is prescribed.
const (
	PrescriptionFee = "F-SHOHO"
	DispensingFee   = "F-CHOZAI"
)

// applyDrugs bills the drugs named in the note and returns the classes
// prescribed.
func (b *builder) applyDrugs(drugs []reference.Drug, mc *matchContext) []string {
	var matched []drugGroup
	for _, g := range drugGroups {
		if mc.has(g.keywords...) {
			matched = append(matched, g)
		}
	}
	if len(matched) == 0 {
		if prescriptionTrigger.MatchString(mc.corpus) {
			b.warn("処方の記載がありますが、薬剤を特定できませんでした。手入力で追加してください")
		}
		return nil
	}

	hasGastric := false
	hasNSAID := false
	for _, g := range matched {
		switch g.class {
		case ClassGastric:
			hasGastric = true
		case ClassNSAID:
			hasNSAID = true
		}
	}
	if hasNSAID && !hasGastric {
		matched = append(matched, gastricProtectant)
	}

	var classes []string
	billed := false
	for _, g := range matched {
		d, ok := findDrug(drugs, g)
		if !ok {
			b.warn(fmt.Sprintf("薬剤マスターに %s が見つかりません", g.keywords[0]))
			continue
		}
		if b.addLine(drugLine(d)) {
			billed = true
			classes = append(classes, d.DrugClass)
		}
	}
	if billed {
		b.addItem(PrescriptionFee, 1, nil)
		b.addItem(DispensingFee, 1, nil)
	}
	return classes
}

func findDrug(drugs []reference.Drug, g drugGroup) (reference.Drug, bool) {
	for _, d := range drugs {
		if !d.IsActive {
			continue
		}
		name := notes.Normalize(d.Name + " " + d.GenericName)
		if notes.ContainsAny(name, g.keywords) {
			return d, true
		}
	}
	return reference.Drug{}, false
}

// drugLine prices a drug as unit price × quantity × days.
func drugLine(d reference.Drug) SelectedItem {
	days := d.DefaultDays
	if days < 1 {
		days = 1
	}
	qty := d.DefaultQuantity
	if qty.IsZero() {
		qty = one
	}
	total := d.UnitPrice.Mul(qty).Mul(decimalInt(days))
	code := d.ReceiptCode
	if code == "" {
		code = d.ID
	}
	return SelectedItem{
		Code:     DrugPrefix + code,
		Name:     d.Name,
		Points:   points.FromYen(total),
		Category: "medication",
		Count:    1,
		Note:     fmt.Sprintf("%s%s × %d日分", qty.String(), d.Unit, days),
		Quantity: &qty,
		Unit:     d.Unit,
	}
}
