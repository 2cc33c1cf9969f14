package uke

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dentclaim/dentclaim/internal/domain/billing/derive"
)

// YearMonthLayout is the claim month format used in records and URLs.
const YearMonthLayout = "200601"

// ParseYearMonth parses YYYYMM into the first day of that month (UTC).
func ParseYearMonth(s string) (time.Time, error) {
	if len(s) != 6 {
		return time.Time{}, fmt.Errorf("year month %q: want YYYYMM", s)
	}
	t, err := time.Parse(YearMonthLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("year month %q: %w", s, err)
	}
	return t, nil
}

type Facility struct {
	Reviewer   string
	Prefecture string
	ClinicCode string
	ClinicName string
	Phone      string
}

type PublicExpense struct {
	Payer     string
	Recipient string
}

type Patient struct {
	ID             string
	Name           string
	Sex            string
	BirthDate      time.Time
	InsurerNumber  string
	InsuredSymbol  string
	InsuredNumber  string
	Relationship   string
	BurdenRatio    float64
	PublicExpenses []PublicExpense
}

type Diagnosis struct {
	Code      string
	Name      string
	Tooth     string
	StartedOn time.Time
	Outcome   string
	EndedOn   time.Time
	Modifier  string
}

// Visit is one paid billing row.
type Visit struct {
	BillingID     string
	PatientID     string
	Date          time.Time
	Items         []derive.SelectedItem
	Comments      []derive.ReceiptComment
	TotalPoints   int
	PatientBurden int
}

// PatientClaim is everything written into one RE block.
type PatientClaim struct {
	Patient   Patient
	Visits    []Visit
	Diagnoses []Diagnosis
}

// GroupByPatient splits a month of visits into per-patient groups. Visits are
// ordered by date and groups by each patient's first visit.
func GroupByPatient(visits []Visit) [][]Visit {
	sorted := make([]Visit, len(visits))
	copy(sorted, visits)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].PatientID < sorted[j].PatientID
	})

	index := make(map[string]int)
	var groups [][]Visit
	for _, v := range sorted {
		i, ok := index[v.PatientID]
		if !ok {
			i = len(groups)
			index[v.PatientID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], v)
	}
	return groups
}

// mergedLine is a billed line summed across a patient's visits.
type mergedLine struct {
	item  derive.SelectedItem
	count int
}

// mergeItems folds identical lines (same code, teeth and unit points) across
// visits, summing their counts. First-seen order is kept.
func mergeItems(visits []Visit) []mergedLine {
	index := make(map[string]int)
	var out []mergedLine
	for _, v := range visits {
		for _, it := range v.Items {
			key := fmt.Sprintf("%s|%s|%d", it.Code, strings.Join(it.ToothNumbers, "."), it.Points)
			if i, ok := index[key]; ok {
				out[i].count += it.Count
				continue
			}
			index[key] = len(out)
			out = append(out, mergedLine{item: it, count: it.Count})
		}
	}
	return out
}

func mergeComments(visits []Visit) []derive.ReceiptComment {
	seen := make(map[derive.ReceiptComment]bool)
	var out []derive.ReceiptComment
	for _, v := range visits {
		for _, c := range v.Comments {
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

func visitDays(visits []Visit) [31]bool {
	var days [31]bool
	for _, v := range visits {
		d := v.Date.Day()
		if d >= 1 && d <= 31 {
			days[d-1] = true
		}
	}
	return days
}

func countDays(days [31]bool) int {
	n := 0
	for _, d := range days {
		if d {
			n++
		}
	}
	return n
}
