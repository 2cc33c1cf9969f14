package notes

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// quadrantNotation matches Japanese quadrant notation such as 右上6 or 左下e
// (corpus is already lower-cased).
var quadrantNotation = regexp.MustCompile(`(右上|左上|左下|右下)\s*([1-8a-e])`)

// fdiNumber matches an FDI tooth number, optionally prefixed by # and
// suffixed by 番. Boundaries are checked by the caller because notes are
// usually written without spaces (16番CR充填, #46にインレー).
var fdiNumber = regexp.MustCompile(`#?([1-4][1-8]|[5-8][1-5])(番?)`)

// quantitySuffixes follow doses, counts and dates rather than tooth numbers.
var quantitySuffixes = []string{
	"mg", "ml", "mm", "cm", "g", "%", "日", "錠", "回", "分", "時", "週",
	"歳", "才", "年", "月", "個", "本", "枚", "点", "円", "度", "カ月", "ヶ月", "か月",
}

var permanentQuadrant = map[string]int{"右上": 1, "左上": 2, "左下": 3, "右下": 4}

// ExtractTeeth returns the FDI tooth numbers mentioned in the corpus without
// duplicates: quadrant notation first, then FDI numbers, each in order of
// appearance. An FDI number must not sit inside a longer number or carry a
// unit suffix. Deciduous teeth written in quadrant letter notation
// (右上e) are converted to FDI 51–85.
func ExtractTeeth(corpus string) []string {
	seen := make(map[string]bool)
	var teeth []string
	add := func(t string) {
		if !seen[t] {
			seen[t] = true
			teeth = append(teeth, t)
		}
	}

	for _, m := range quadrantNotation.FindAllStringSubmatch(corpus, -1) {
		q := permanentQuadrant[m[1]]
		pos := m[2]
		if pos[0] >= 'a' && pos[0] <= 'e' {
			add(strconv.Itoa(q+4) + strconv.Itoa(int(pos[0]-'a')+1))
			continue
		}
		add(strconv.Itoa(q) + pos)
	}

	// Strip quadrant notation so that 右上16 style typos are not double counted.
	rest := quadrantNotation.ReplaceAllString(corpus, " ")
	for _, m := range fdiNumber.FindAllStringSubmatchIndex(rest, -1) {
		if numberBefore(rest[:m[0]]) {
			continue
		}
		if m[4] == m[5] && quantityAfter(rest[m[1]:]) {
			continue
		}
		add(rest[m[2]:m[3]])
	}
	return teeth
}

// numberBefore reports whether the text ends inside a longer number,
// a decimal or a time of day.
func numberBefore(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return unicode.IsDigit(r) || r == '.' || r == ':'
}

// quantityAfter reports whether the text continues a number or starts with a
// unit, so the preceding digits are a quantity.
func quantityAfter(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	if unicode.IsDigit(r) {
		return true
	}
	if r == '.' {
		next, _ := utf8.DecodeRuneInString(s[1:])
		return unicode.IsDigit(next)
	}
	for _, suffix := range quantitySuffixes {
		if strings.HasPrefix(s, suffix) {
			return true
		}
	}
	return false
}

// Tooth is a parsed FDI tooth number.
type Tooth struct {
	Quadrant   int // 1-4 permanent, 5-8 deciduous
	Position   int // 1-8 permanent, 1-5 deciduous
	Deciduous  bool
	Normalized string
}

// ParseTooth parses a two-digit FDI tooth number.
func ParseTooth(s string) (Tooth, bool) {
	if len(s) != 2 || s[0] < '1' || s[0] > '8' || s[1] < '1' || s[1] > '8' {
		return Tooth{}, false
	}
	q, p := int(s[0]-'0'), int(s[1]-'0')
	dec := q >= 5
	if dec && p > 5 {
		return Tooth{}, false
	}
	return Tooth{Quadrant: q, Position: p, Deciduous: dec, Normalized: s}, true
}

// IsMolar reports whether the tooth is a permanent molar (positions 6-8).
func (t Tooth) IsMolar() bool { return !t.Deciduous && t.Position >= 6 }

// IsPremolar reports whether the tooth is a permanent premolar.
func (t Tooth) IsPremolar() bool { return !t.Deciduous && (t.Position == 4 || t.Position == 5) }

// IsPosterior reports whether the tooth sits behind the canine.
func (t Tooth) IsPosterior() bool { return t.Position >= 4 }

// Upper reports whether the tooth is in the maxilla.
func (t Tooth) Upper() bool {
	q := t.Quadrant
	if t.Deciduous {
		q -= 4
	}
	return q == 1 || q == 2
}

// Sextant returns the periodontal block (1-6) the tooth belongs to:
// 1 upper right posterior, 2 upper anterior, 3 upper left posterior,
// 4 lower left posterior, 5 lower anterior, 6 lower right posterior.
func (t Tooth) Sextant() int {
	q := t.Quadrant
	if t.Deciduous {
		q -= 4
	}
	if !t.IsPosterior() {
		if q == 1 || q == 2 {
			return 2
		}
		return 5
	}
	switch q {
	case 1:
		return 1
	case 2:
		return 3
	case 3:
		return 4
	default:
		return 6
	}
}

// SextantCount returns the number of distinct sextants touched by the teeth,
// never less than one.
func SextantCount(teeth []string) int {
	blocks := make(map[int]bool)
	for _, s := range teeth {
		if t, ok := ParseTooth(s); ok {
			blocks[t.Sextant()] = true
		}
	}
	if len(blocks) == 0 {
		return 1
	}
	return len(blocks)
}
