package uke

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dentclaim/dentclaim/internal/domain/billing/derive"
)

// Batch is one month's claims for the clinic.
type Batch struct {
	YearMonth string
	CreatedAt time.Time
	Facility  Facility
	Claims    []PatientClaim
}

// File is a generated claim file before encoding.
type File struct {
	Records      []Record
	ReceiptCount int
	TotalPoints  int
	// Heuristic counts procedure codes written with a placeholder receipt code.
	Heuristic int
	Warnings  []string
}

// Text renders the file with CRLF line endings.
func (f *File) Text() string { return Render(f.Records) }

type Generator struct {
	codes     *Translator
	diagnoses DiagnosisLookup
	logger    zerolog.Logger
}

func NewGenerator(codes CodeLookup, diagnoses DiagnosisLookup, logger zerolog.Logger) *Generator {
	return &Generator{codes: NewTranslator(codes), diagnoses: diagnoses, logger: logger}
}

// Generate writes UK and IR, one RE block per patient claim, and GO.
func (g *Generator) Generate(ctx context.Context, b Batch) (*File, error) {
	month, err := ParseYearMonth(b.YearMonth)
	if err != nil {
		return nil, err
	}
	f := &File{}
	f.Records = append(f.Records,
		UK{
			Reviewer:   b.Facility.Reviewer,
			Prefecture: b.Facility.Prefecture,
			ClinicCode: b.Facility.ClinicCode,
			YearMonth:  b.YearMonth,
			CreatedOn:  b.CreatedAt.Format("20060102"),
		},
		IR{
			Reviewer:   b.Facility.Reviewer,
			Prefecture: b.Facility.Prefecture,
			ClinicCode: b.Facility.ClinicCode,
			ClinicName: b.Facility.ClinicName,
			YearMonth:  b.YearMonth,
			Phone:      b.Facility.Phone,
		},
	)

	for i, pc := range b.Claims {
		points, err := g.writeReceipt(ctx, f, i+1, month, b.YearMonth, pc)
		if err != nil {
			return nil, err
		}
		f.ReceiptCount++
		f.TotalPoints += points
	}
	f.Records = append(f.Records, GO{Claims: f.ReceiptCount, Points: f.TotalPoints})
	return f, nil
}

func (g *Generator) writeReceipt(ctx context.Context, f *File, seq int, month time.Time, ym string, pc PatientClaim) (int, error) {
	p := pc.Patient
	days := visitDays(pc.Visits)
	nDays := countDays(days)
	var points, window int
	for _, v := range pc.Visits {
		points += v.TotalPoints
		window += v.PatientBurden
	}
	costShare := "1"
	if len(p.PublicExpenses) > 0 {
		costShare = "2"
	}

	f.Records = append(f.Records,
		RE{
			Seq:         seq,
			ReceiptType: ReceiptType(p, month),
			YearMonth:   ym,
			Name:        p.Name,
			Sex:         sexCode(p.Sex),
			BirthDate:   formatDate(p.BirthDate),
			BurdenPct:   int(math.Round(p.BurdenRatio * 100)),
		},
		HO{Insurer: p.InsurerNumber, Symbol: p.InsuredSymbol, Number: p.InsuredNumber, Days: nDays, Points: points},
	)
	for _, pe := range p.PublicExpenses {
		f.Records = append(f.Records, KO{Payer: pe.Payer, Recipient: pe.Recipient, Days: nDays, Points: points})
	}

	if err := g.writeDiagnoses(ctx, f, ym, pc); err != nil {
		return 0, err
	}

	for _, line := range mergeItems(pc.Visits) {
		rec, err := g.lineRecord(ctx, f, p.ID, costShare, line)
		if err != nil {
			return 0, err
		}
		if rec != nil {
			f.Records = append(f.Records, rec)
		}
	}
	for _, c := range mergeComments(pc.Visits) {
		f.Records = append(f.Records, CO{Code: c.Code, Text: c.Text})
	}
	f.Records = append(f.Records, JD{Days: days}, MF{WindowYen: window, Days: nDays})
	return points, nil
}

func (g *Generator) writeDiagnoses(ctx context.Context, f *File, ym string, pc PatientClaim) error {
	seen := make(map[string]bool)
	for _, d := range pc.Diagnoses {
		code, name, ok, err := resolveDiagnosis(ctx, g.diagnoses, d)
		if err != nil {
			return err
		}
		if !ok {
			f.warn("%s: 傷病名コード未登録のため未コード化傷病名で記録（%s）", pc.Patient.ID, d.Name)
		}
		tooth := g.toothField(f, pc.Patient.ID, splitTeeth(d.Tooth))
		key := code + "|" + name + "|" + tooth
		if seen[key] {
			continue
		}
		seen[key] = true
		started := ym
		if !d.StartedOn.IsZero() {
			started = d.StartedOn.Format(YearMonthLayout)
		}
		ended := ""
		if !d.EndedOn.IsZero() {
			ended = d.EndedOn.Format(YearMonthLayout)
		}
		f.Records = append(f.Records, SY{
			Code:      code,
			Name:      name,
			StartedIn: started,
			Outcome:   d.Outcome,
			EndedIn:   ended,
			Modifier:  d.Modifier,
			Tooth:     tooth,
		})
	}
	return nil
}

func (g *Generator) lineRecord(ctx context.Context, f *File, patientID, costShare string, line mergedLine) (Record, error) {
	it := line.item
	switch KindOf(it.Code) {
	case LineOmitted:
		return nil, nil
	case LineDrug:
		return IY{
			Shinryo:   shinryoOralDrug,
			CostShare: costShare,
			Code:      g.masterCode(f, patientID, it.Code, derive.DrugPrefix),
			Quantity:  quantity(it),
			Points:    it.Points,
			Count:     line.count,
		}, nil
	case LineMaterial:
		return TO{
			Shinryo:   procedureShinryo(it.Note),
			CostShare: costShare,
			Code:      g.masterCode(f, patientID, it.Code, derive.MaterialPrefix),
			Quantity:  quantity(it),
			Points:    it.Points,
			Count:     line.count,
		}, nil
	}

	res, err := g.codes.Resolve(ctx, it.Code)
	if err != nil {
		return nil, err
	}
	if res.Source == SourceHeuristic {
		f.Heuristic++
		f.warn("%s: レセプト電算コード未登録のため推定コードを使用（%s → %s）", patientID, it.Code, res.ReceiptCode)
		g.logger.Warn().Str("code", it.Code).Str("receipt_code", res.ReceiptCode).Msg("heuristic receipt code")
	}
	return SI{
		Shinryo:   res.Shinryo,
		CostShare: costShare,
		Code:      res.ReceiptCode,
		Tooth:     g.toothField(f, patientID, it.ToothNumbers),
		Points:    it.Points,
		Count:     line.count,
	}, nil
}

// masterCode strips the line prefix; drug and material lines carry the
// receipt code when the master has one, otherwise the master id.
func (g *Generator) masterCode(f *File, patientID, code, prefix string) string {
	c := strings.TrimPrefix(code, prefix)
	if !isReceiptCode(c) {
		f.warn("%s: マスターにレセプト電算コードがありません（%s）", patientID, code)
	}
	return c
}

func (g *Generator) toothField(f *File, patientID string, teeth []string) string {
	var b strings.Builder
	for _, t := range teeth {
		code, ok := ToothCode(t)
		if !ok {
			f.warn("%s: 歯式を変換できません（%s）", patientID, t)
		}
		b.WriteString(code)
	}
	return b.String()
}

func (f *File) warn(format string, args ...any) {
	f.Warnings = append(f.Warnings, fmt.Sprintf(format, args...))
}

func procedureShinryo(code string) string {
	if rc, ok := staticCodes[code]; ok {
		return rc.Shinryo
	}
	if code == "" {
		return shinryoDefault
	}
	return HeuristicShinryo(code)
}

func quantity(it derive.SelectedItem) string {
	if it.Quantity == nil {
		return ""
	}
	return it.Quantity.String()
}

func splitTeeth(s string) []string {
	if s == "" {
		return nil
	}
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '、' })
}

func sexCode(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "m", "male", "男":
		return "1"
	case "2", "f", "female", "女":
		return "2"
	}
	return s
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("20060102")
}
