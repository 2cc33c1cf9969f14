package derive

// Main prosthesis code prefixes.
var (
	crownMainPrefixes = []string{"M010", "M011", "M015", "M017"}
	newDenturePrefix  = "M018"
	toothPrepPrefix   = "M001-1"
	postCorePrefix    = "M002"
)

var (
	crownFollowOn   = []string{"M-INSHO", "M-KOGO", "M-SOCHAKU", "M-HOSHIN"}
	dentureFollowOn = []string{"M-SEIMITSU", "M-KOGO-D", "M-SOCHAKU-D", "M-HOSHIN"}
	tempCrownWords  = []string{"テック", "tek", "仮歯", "テンポラリー"}
)

// applyProsthetic adds the auxiliary items every prosthesis is billed with.
func (b *builder) applyProsthetic(mc *matchContext) {
	maintenance := mc.has("義歯", "デンチャー") && mc.denture().Maintenance()
	if !maintenance {
		var mains []SelectedItem
		for _, p := range crownMainPrefixes {
			mains = append(mains, b.withPrefix(p)...)
		}
		if len(mains) > 0 {
			teeth := unionTeeth(mains)
			for _, code := range crownFollowOn {
				b.addItem(code, 1, teeth)
			}
		}
	}

	if len(b.withPrefix(newDenturePrefix)) > 0 {
		for _, code := range dentureFollowOn {
			b.addItem(code, 1, nil)
		}
	}

	if preps := b.withPrefix(toothPrepPrefix); len(preps) > 0 && mc.has(tempCrownWords...) {
		b.addItem("M-TEK", 1, unionTeeth(preps))
	}

	if cores := b.withPrefix(postCorePrefix); len(cores) > 0 {
		b.addItem("M-KEISEI-S", 1, unionTeeth(cores))
	}
}
