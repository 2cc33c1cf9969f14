// Package notes turns a clinical SOAP note into the search corpus used by the
// billing derivation, and extracts tooth identifiers and surface counts from it.
package notes

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Sections holds the four free-text sections of a SOAP note.
type Sections struct {
	Subjective string `json:"subjective"`
	Objective  string `json:"objective"`
	Assessment string `json:"assessment"`
	Plan       string `json:"plan"`
}

// Normalize folds full-width alphanumerics and half-width katakana with NFKC
// and lower-cases the result. Keywords and the corpus must go through the same
// function so that substring checks line up.
func Normalize(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}

// Corpus concatenates all note sections into one normalized search string.
func Corpus(s Sections) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{s.Subjective, s.Objective, s.Assessment, s.Plan} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return Normalize(strings.Join(parts, "\n"))
}

// ContainsAny reports whether corpus contains at least one of the keywords.
// Keywords are normalized before comparison; empty keywords never match.
func ContainsAny(corpus string, keywords []string) bool {
	for _, kw := range keywords {
		if kw = Normalize(kw); kw != "" && strings.Contains(corpus, kw) {
			return true
		}
	}
	return false
}
