package derive

import (
	"sort"

	"github.com/dentclaim/dentclaim/internal/domain/reference"
	"github.com/dentclaim/dentclaim/internal/platform/notes"
)

// ScalingCode is billed once per sextant touched.
const ScalingCode = "I011"

type matchContext struct {
	corpus   string
	teeth    []string
	parsed   []notes.Tooth
	surfaces map[string][]string
	isNew    bool

	dentureParsed bool
	dentureCache  dentureSubtype
}

func newMatchContext(corpus string, teeth []string, surfaces map[string][]string, isNew bool) *matchContext {
	mc := &matchContext{corpus: corpus, teeth: teeth, surfaces: surfaces, isNew: isNew}
	for _, t := range teeth {
		if pt, ok := notes.ParseTooth(t); ok {
			mc.parsed = append(mc.parsed, pt)
		}
	}
	return mc
}

func (mc *matchContext) has(keywords ...string) bool {
	return notes.ContainsAny(mc.corpus, keywords)
}

func (mc *matchContext) anyTooth(pred func(notes.Tooth) bool) bool {
	for _, t := range mc.parsed {
		if pred(t) {
			return true
		}
	}
	return false
}

func (mc *matchContext) denture() dentureSubtype {
	if !mc.dentureParsed {
		mc.dentureCache = parseDenture(mc)
		mc.dentureParsed = true
	}
	return mc.dentureCache
}

// applyPatterns evaluates the patterns in descending priority and bills the
// fee codes of every match.
func (b *builder) applyPatterns(patterns []reference.BillingPattern, mc *matchContext) {
	ordered := make([]reference.BillingPattern, len(patterns))
	copy(ordered, patterns)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority > ordered[j].Priority })

	consumed := make(map[Category]bool)
	for _, p := range ordered {
		cat := ParseCategory(p.Category)
		if cat == CategoryBasic {
			continue
		}
		if cat.Exclusive() && consumed[cat] {
			continue
		}
		if !patternMatches(p, mc) || !cat.Accepts(p.Condition.Variant, mc) {
			continue
		}
		for _, code := range p.FeeCodes {
			if code == "B-SHIDO" && mc.isNew {
				code = "B-SHIDO-NEW"
			}
			var teeth []string
			if p.UseToothNumbers {
				teeth = mc.teeth
			}
			count := 1
			if code == ScalingCode {
				count = notes.SextantCount(mc.teeth)
			}
			b.addItem(code, count, teeth)
		}
		if cat.Exclusive() {
			consumed[cat] = true
		}
	}
}

// patternMatches applies the keyword rules: one include hit, no exclude hit,
// and one AND-keyword hit when any are configured.
func patternMatches(p reference.BillingPattern, mc *matchContext) bool {
	if !mc.has(p.SOAPKeywords...) {
		return false
	}
	if mc.has(p.SOAPExcludeKeywords...) {
		return false
	}
	if len(p.Condition.AndKeywords) > 0 && !mc.has(p.Condition.AndKeywords...) {
		return false
	}
	return true
}
