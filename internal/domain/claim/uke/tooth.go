package uke

import (
	"fmt"
	"strings"
)

// toothCodes maps every supported tooth notation to the 6-digit claim form:
// kind (1 permanent, 2 deciduous), quadrant, two-digit position, "00".
var toothCodes = buildToothCodes()

var quadrantNames = map[int]string{1: "右上", 2: "左上", 3: "左下", 4: "右下"}

func buildToothCodes() map[string]string {
	m := make(map[string]string)
	for q := 1; q <= 4; q++ {
		for p := 1; p <= 8; p++ {
			code := fmt.Sprintf("1%d%02d00", q, p)
			m[fmt.Sprintf("%d%d", q, p)] = code
			m[fmt.Sprintf("%s%d", quadrantNames[q], p)] = code
		}
		for p := 1; p <= 5; p++ {
			code := fmt.Sprintf("2%d%02d00", q, p)
			letter := string(rune('A' + p - 1))
			m[fmt.Sprintf("%d%d", q+4, p)] = code
			m[quadrantNames[q]+letter] = code
		}
	}
	for p := 1; p <= 5; p++ {
		m[string(rune('A'+p-1))] = fmt.Sprintf("20%02d00", p)
	}
	return m
}

// ToothCode converts a tooth identifier to its 6-digit form. Unknown numeric
// input is zero-padded; anything that still is not six digits is returned
// unchanged with ok false.
func ToothCode(tooth string) (string, bool) {
	t := strings.ToUpper(strings.TrimSpace(tooth))
	if code, ok := toothCodes[t]; ok {
		return code, true
	}
	if isDigits(t) && len(t) <= 6 {
		return strings.Repeat("0", 6-len(t)) + t, true
	}
	return tooth, false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
