package derive

import (
	"strings"

	"github.com/dentclaim/dentclaim/internal/platform/notes"
)

// Category is the closed set of pattern categories the matcher knows how to
// disambiguate. Anything else parses to CategoryOther and is not filtered.
type Category int

const (
	CategoryOther Category = iota
	CategoryBasic
	CategoryManagement
	CategoryAnesthesia
	CategoryEndo
	CategoryRootFilling
	CategoryPulpCapping
	CategoryRestoration
	CategoryInlay
	CategoryExtraction
	CategoryCrown
	CategoryDenture
	CategoryApicoectomy
)

var categoryNames = map[string]Category{
	"basic":        CategoryBasic,
	"management":   CategoryManagement,
	"anesthesia":   CategoryAnesthesia,
	"endo":         CategoryEndo,
	"root_filling": CategoryRootFilling,
	"pulp_capping": CategoryPulpCapping,
	"restoration":  CategoryRestoration,
	"inlay":        CategoryInlay,
	"extraction":   CategoryExtraction,
	"crown":        CategoryCrown,
	"denture":      CategoryDenture,
	"apicoectomy":  CategoryApicoectomy,
}

func ParseCategory(s string) Category {
	if c, ok := categoryNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return c
	}
	return CategoryOther
}

// Exclusive reports whether at most one pattern of the category may match
// per encounter.
func (c Category) Exclusive() bool {
	switch c {
	case CategoryAnesthesia, CategoryEndo, CategoryPulpCapping, CategoryManagement:
		return true
	}
	return false
}

// Accepts reports whether a pattern of this category that bills variant want
// applies to the note. An empty want always applies.
func (c Category) Accepts(want string, mc *matchContext) bool {
	if want == "" {
		return true
	}
	switch c {
	case CategoryDenture:
		return dentureAccepts(want, mc.denture())
	case CategoryEndo, CategoryRootFilling, CategoryAnesthesia, CategoryRestoration, CategoryInlay,
		CategoryExtraction, CategoryCrown, CategoryPulpCapping, CategoryApicoectomy:
		return strings.EqualFold(want, c.variant(mc))
	}
	return true
}

func (c Category) variant(mc *matchContext) string {
	switch c {
	case CategoryEndo, CategoryRootFilling:
		return canalVariant(mc)
	case CategoryAnesthesia:
		if mc.has("伝達", "伝麻", "下顎孔") {
			return "block"
		}
		return "infiltration"
	case CategoryRestoration, CategoryInlay:
		if notes.MaxSurfaceCount(mc.teeth, mc.surfaces, mc.corpus) >= 2 {
			return "complex"
		}
		return "simple"
	case CategoryExtraction:
		return extractionVariant(mc)
	case CategoryCrown:
		switch {
		case mc.has("cad/cam", "cadcam"):
			return "cadcam"
		case mc.has("前装"):
			return "facing"
		case mc.has("大臼歯") || mc.anyTooth(notes.Tooth.IsMolar):
			return "molar"
		}
		return "premolar"
	case CategoryPulpCapping:
		if mc.has("直接覆髄", "直覆") {
			return "direct"
		}
		return "indirect"
	case CategoryApicoectomy:
		if mc.has("大臼歯") || mc.anyTooth(notes.Tooth.IsMolar) {
			return "molar"
		}
		return "other"
	}
	return ""
}

func canalVariant(mc *matchContext) string {
	switch {
	case mc.has("単根", "1根"):
		return "canals:1"
	case mc.has("2根"):
		return "canals:2"
	case mc.has("3根", "大臼歯"):
		return "canals:3"
	}
	canals := 0
	for _, t := range mc.parsed {
		n := 1
		switch {
		case t.IsMolar():
			n = 3
		case t.IsPremolar():
			n = 2
		}
		if n > canals {
			canals = n
		}
	}
	switch canals {
	case 3:
		return "canals:3"
	case 2:
		return "canals:2"
	}
	return "canals:1"
}

func extractionVariant(mc *matchContext) string {
	switch {
	case mc.has("埋伏"):
		return "impacted"
	case mc.has("難抜"):
		return "difficult"
	case mc.has("乳歯") || mc.anyTooth(func(t notes.Tooth) bool { return t.Deciduous }):
		return "deciduous"
	case mc.has("臼歯") || mc.anyTooth(notes.Tooth.IsPosterior):
		return "molar"
	}
	return "anterior"
}

// dentureSubtype is mode:form:jaw, for example new:full:upper.
type dentureSubtype struct {
	Mode string
	Form string
	Jaw  string
}

var dentureModes = []struct {
	mode     string
	keywords []string
}{
	{"adjustment", []string{"調整"}},
	{"repair", []string{"修理"}},
	{"reline", []string{"リベース", "裏装", "リライン"}},
	{"seating", []string{"装着", "セット"}},
}

func parseDenture(mc *matchContext) dentureSubtype {
	d := dentureSubtype{Mode: "new", Form: "partial"}
	for _, m := range dentureModes {
		if mc.has(m.keywords...) {
			d.Mode = m.mode
			break
		}
	}
	if mc.has("総義歯", "fd") {
		d.Form = "full"
	}
	switch {
	case mc.has("上顎"):
		d.Jaw = "upper"
	case mc.has("下顎"):
		d.Jaw = "lower"
	}
	return d
}

// Maintenance reports whether the note is about an existing denture rather
// than a new prosthesis.
func (d dentureSubtype) Maintenance() bool {
	return d.Mode == "adjustment" || d.Mode == "repair" || d.Mode == "reline"
}

// dentureAccepts matches want ("mode:form:jaw", "*" for any part, missing
// trailing parts are wildcards) against the parsed subtype.
func dentureAccepts(want string, d dentureSubtype) bool {
	parts := strings.Split(strings.ToLower(want), ":")
	have := []string{d.Mode, d.Form, d.Jaw}
	for i, p := range parts {
		if i >= len(have) {
			break
		}
		if p == "*" || p == "" {
			continue
		}
		if p != have[i] {
			return false
		}
	}
	return true
}
