package points

import "github.com/shopspring/decimal"

// Line is one billed line reduced to what the totals need.
type Line struct {
	Points int
	Count  int
}

// Summary is the per-encounter point total and its split in yen.
type Summary struct {
	TotalPoints    int `json:"total_points"`
	PatientBurden  int `json:"patient_burden"`
	InsuranceClaim int `json:"insurance_claim"`
}

// Summarize sums points×count and splits the yen amount (1 point = 10 yen)
// between patient and insurer. The patient share is rounded up; the insurer
// receives the remainder.
func Summarize(lines []Line, burdenRatio float64) Summary {
	total := 0
	for _, l := range lines {
		total += l.Points * l.Count
	}
	burden := PatientBurden(total, burdenRatio)
	return Summary{
		TotalPoints:    total,
		PatientBurden:  burden,
		InsuranceClaim: total*10 - burden,
	}
}

// PatientBurden returns ceil(totalPoints × 10 × ratio) in yen. The ratio is
// taken through its shortest decimal representation so that 0.3 multiplies
// as exactly three tenths.
func PatientBurden(totalPoints int, ratio float64) int {
	yen := decimal.NewFromInt(int64(totalPoints)).Mul(yenFactor)
	return int(yen.Mul(decimal.NewFromFloat(ratio)).Ceil().IntPart())
}
