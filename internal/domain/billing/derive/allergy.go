package derive

import (
	"fmt"
	"strings"

	"github.com/dentclaim/dentclaim/internal/platform/notes"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

type allergyRule struct {
	label    string
	keywords []string
	classes  map[string]Severity
}

var allergyRules = []allergyRule{
	{
		label:    "ペニシリン系",
		keywords: []string{"ペニシリン", "penicillin", "サワシリン", "アモキシシリン"},
		classes:  map[string]Severity{ClassPenicillin: SeverityCritical, ClassCephem: SeverityWarning},
	},
	{
		label:    "セフェム系",
		keywords: []string{"セフェム", "cephem", "フロモックス", "メイアクト", "セフカペン", "セフジトレン"},
		classes:  map[string]Severity{ClassCephem: SeverityCritical},
	},
	{
		label:    "NSAIDs",
		keywords: []string{"nsaid", "ロキソニン", "ロキソプロフェン", "ボルタレン", "ジクロフェナク", "アスピリン", "解熱鎮痛"},
		classes:  map[string]Severity{ClassNSAID: SeverityCritical},
	},
	{
		label:    "マクロライド系",
		keywords: []string{"マクロライド", "macrolide", "クラリス", "エリスロマイシン"},
		classes:  map[string]Severity{ClassMacrolide: SeverityCritical},
	},
	{
		label:    "アセトアミノフェン",
		keywords: []string{"アセトアミノフェン", "acetaminophen", "カロナール"},
		classes:  map[string]Severity{ClassAnalgesic: SeverityCritical},
	},
}

var allergyAdvisories = []struct {
	keywords []string
	message  string
}{
	{[]string{"局所麻酔", "キシロカイン", "リドカイン", "麻酔"}, "局所麻酔薬アレルギーの記録があります。麻酔薬の選択に注意してください"},
	{[]string{"ラテックス", "latex", "ゴム"}, "ラテックスアレルギーの記録があります。ラテックスフリーのグローブ・ラバーダムを使用してください"},
}

var noAllergySentinels = map[string]bool{
	"なし": true, "無し": true, "特になし": true, "none": true, "nkda": true, "-": true, "ー": true,
}

// recordedAllergies drops empty entries and returns nil when the list is a
// "none" sentinel.
func recordedAllergies(allergies []string) []string {
	var out []string
	for _, a := range allergies {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if noAllergySentinels[notes.Normalize(a)] {
			continue
		}
		out = append(out, a)
	}
	return out
}

// checkAllergies cross-references prescribed drug classes with the
// patient's allergies. It only ever appends warnings.
func (b *builder) checkAllergies(allergies []string, prescribed []string) {
	recorded := recordedAllergies(allergies)
	if len(recorded) == 0 {
		return
	}
	text := notes.Normalize(strings.Join(recorded, " "))

	for _, rule := range allergyRules {
		if !notes.ContainsAny(text, rule.keywords) {
			continue
		}
		for _, class := range prescribed {
			sev, ok := rule.classes[class]
			if !ok {
				continue
			}
			switch sev {
			case SeverityCritical:
				b.warn(fmt.Sprintf("%s: %sアレルギーの患者に%s系薬剤が処方されています。処方を見直してください", sev, rule.label, classLabel(class)))
			default:
				b.warn(fmt.Sprintf("%s: %sアレルギーの患者に%s系薬剤が処方されています（交差反応に注意）", sev, rule.label, classLabel(class)))
			}
		}
	}
	for _, adv := range allergyAdvisories {
		if notes.ContainsAny(text, adv.keywords) {
			b.warn(fmt.Sprintf("%s: %s", SeverityWarning, adv.message))
		}
	}
	b.warn(fmt.Sprintf("%s: アレルギー歴あり（%s）", SeverityInfo, strings.Join(recorded, "、")))
}

func classLabel(class string) string {
	switch class {
	case ClassPenicillin:
		return "ペニシリン"
	case ClassCephem:
		return "セフェム"
	case ClassNSAID:
		return "NSAIDs"
	case ClassMacrolide:
		return "マクロライド"
	case ClassAnalgesic:
		return "アセトアミノフェン"
	case ClassGastric:
		return "胃粘膜保護"
	}
	return class
}
