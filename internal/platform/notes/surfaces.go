package notes

import (
	"regexp"
	"strings"
)

var (
	threeSurface = regexp.MustCompile(`(?:^|[^a-z])(mod|mid)(?:[^a-z]|$)`)
	twoSurface   = regexp.MustCompile(`(?:^|[^a-z])(mo|do|mi|di|ml|dl|ob|lb)(?:[^a-z]|$)`)
)

// MaxSurfaceCount returns the largest number of restored surfaces across the
// given teeth. Structured surface data wins when it covers any of the teeth
// (or, with no teeth extracted, when it is present at all); otherwise a
// keyword heuristic over the corpus is used. The result is at least 1.
func MaxSurfaceCount(teeth []string, surfaces map[string][]string, corpus string) int {
	if n := structuredMax(teeth, surfaces); n > 0 {
		return n
	}
	return heuristicSurfaces(corpus)
}

func structuredMax(teeth []string, surfaces map[string][]string) int {
	if len(surfaces) == 0 {
		return 0
	}
	count := func(list []string) int {
		distinct := make(map[string]bool)
		for _, s := range list {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				distinct[s] = true
			}
		}
		return len(distinct)
	}

	max := 0
	if len(teeth) == 0 {
		for _, list := range surfaces {
			if n := count(list); n > max {
				max = n
			}
		}
		return max
	}
	for _, t := range teeth {
		if n := count(surfaces[t]); n > max {
			max = n
		}
	}
	return max
}

func heuristicSurfaces(corpus string) int {
	switch {
	case threeSurface.MatchString(corpus), strings.Contains(corpus, "3面"):
		return 3
	case strings.Contains(corpus, "複雑"), strings.Contains(corpus, "2面"),
		strings.Contains(corpus, "隣接"), twoSurface.MatchString(corpus):
		return 2
	default:
		return 1
	}
}
