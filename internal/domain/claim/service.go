package claim

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dentclaim/dentclaim/internal/domain/billing"
	"github.com/dentclaim/dentclaim/internal/domain/claim/uke"
	"github.com/dentclaim/dentclaim/internal/domain/encounter"
	"github.com/dentclaim/dentclaim/internal/platform/telemetry"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatUKE  = "uke"
)

// BillingStore is the part of the billing repository a claim run touches.
type BillingStore interface {
	ListPaidInMonth(ctx context.Context, from, to time.Time) ([]*billing.Billing, error)
	MarkBilled(ctx context.Context, ids []uuid.UUID) (int64, error)
}

// ChartReader loads patients and the encounters their diagnoses are kept on.
type ChartReader interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*encounter.Patient, error)
	GetEncounter(ctx context.Context, id uuid.UUID) (*encounter.Encounter, error)
}

// ReferenceLookup resolves receipt and diagnosis codes.
type ReferenceLookup interface {
	uke.CodeLookup
	uke.DiagnosisLookup
}

// Preview is the JSON rendering of a claim file.
type Preview struct {
	CSV          string   `json:"csv"`
	ReceiptCount int      `json:"receipt_count"`
	TotalPoints  int      `json:"total_points"`
	Warnings     []string `json:"warnings"`
}

// Output is a generated month. Data is set for the uke format, Preview for json.
type Output struct {
	YearMonth string
	Format    string
	Filename  string
	Preview   *Preview
	Data      []byte
}

type Options struct {
	Facility           uke.Facility
	DefaultBurdenRatio float64
}

type Service struct {
	billings  BillingStore
	charts    ChartReader
	generator *uke.Generator
	opts      Options
	logger    zerolog.Logger
	metrics   *telemetry.Metrics
	now       func() time.Time
}

func NewService(billings BillingStore, charts ChartReader, ref ReferenceLookup, opts Options, logger zerolog.Logger, metrics *telemetry.Metrics) *Service {
	return &Service{
		billings:  billings,
		charts:    charts,
		generator: uke.NewGenerator(ref, ref, logger),
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Filename is the download name of a month's claim file.
func Filename(yearMonth string) string {
	return "receipt_" + yearMonth + ".UKE"
}

// GenerateMonthly builds the claim file for every paid billing whose visit
// falls in yearMonth. The uke format returns Shift_JIS bytes and marks the
// included billings as billed; json only previews.
func (s *Service) GenerateMonthly(ctx context.Context, yearMonth, format string) (*Output, error) {
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatUKE {
		return nil, newError(KindInvalidFormat, nil, "format must be %s or %s", FormatJSON, FormatUKE)
	}
	month, err := uke.ParseYearMonth(yearMonth)
	if err != nil {
		return nil, newError(KindInvalidMonth, err, "year month must be YYYYMM")
	}

	rows, err := s.billings.ListPaidInMonth(ctx, month, month.AddDate(0, 1, 0))
	if err != nil {
		return nil, newError(KindQueryFailure, err, "list paid billings for %s", yearMonth)
	}
	if len(rows) == 0 {
		return nil, newError(KindNoPaidRows, nil, "no paid billings in %s", yearMonth)
	}

	batch, err := s.batch(ctx, yearMonth, rows)
	if err != nil {
		return nil, err
	}
	file, err := s.generator.Generate(ctx, batch)
	if err != nil {
		return nil, newError(KindQueryFailure, err, "generate claim file for %s", yearMonth)
	}

	out := &Output{YearMonth: yearMonth, Format: format, Filename: Filename(yearMonth)}
	switch format {
	case FormatUKE:
		data, lossy, err := uke.EncodeShiftJIS(file.Text())
		if err != nil {
			return nil, newError(KindQueryFailure, err, "encode claim file")
		}
		if lossy {
			s.logger.Warn().Str("year_month", yearMonth).Msg("claim file has characters outside Shift_JIS, replaced")
		}
		ids := make([]uuid.UUID, len(rows))
		for i, b := range rows {
			ids[i] = b.ID
		}
		n, err := s.billings.MarkBilled(ctx, ids)
		if err != nil {
			return nil, newError(KindPersistenceFailure, err, "mark %d billings as billed", len(ids))
		}
		s.logger.Info().Str("year_month", yearMonth).Int64("billed", n).Msg("billings marked billed")
		out.Data = data
	default:
		warnings := file.Warnings
		if warnings == nil {
			warnings = []string{}
		}
		out.Preview = &Preview{
			CSV:          file.Text(),
			ReceiptCount: file.ReceiptCount,
			TotalPoints:  file.TotalPoints,
			Warnings:     warnings,
		}
	}

	s.metrics.ObserveClaimFile(format, file.ReceiptCount, file.Heuristic)
	s.logger.Info().
		Str("year_month", yearMonth).
		Str("format", format).
		Int("billings", len(rows)).
		Int("receipts", file.ReceiptCount).
		Int("total_points", file.TotalPoints).
		Int("warnings", len(file.Warnings)).
		Msg("claim file generated")
	return out, nil
}

// batch groups the month's billings by patient and loads each patient's
// chart data.
func (s *Service) batch(ctx context.Context, yearMonth string, rows []*billing.Billing) (uke.Batch, error) {
	visits := make([]uke.Visit, len(rows))
	encounterOf := make(map[string]uuid.UUID, len(rows))
	for i, b := range rows {
		visits[i] = uke.Visit{
			BillingID:     b.ID.String(),
			PatientID:     b.PatientID.String(),
			Date:          b.VisitDate,
			Items:         b.Items,
			Comments:      b.ReceiptComments,
			TotalPoints:   b.TotalPoints,
			PatientBurden: b.PatientBurden,
		}
		encounterOf[visits[i].BillingID] = b.EncounterID
	}

	batch := uke.Batch{YearMonth: yearMonth, CreatedAt: s.now(), Facility: s.opts.Facility}
	for _, group := range uke.GroupByPatient(visits) {
		patientID, err := uuid.Parse(group[0].PatientID)
		if err != nil {
			return uke.Batch{}, newError(KindQueryFailure, err, "patient id %s", group[0].PatientID)
		}
		p, err := s.charts.GetPatient(ctx, patientID)
		if err != nil {
			return uke.Batch{}, newError(KindQueryFailure, err, "load patient %s", patientID)
		}

		var diagnoses []uke.Diagnosis
		for _, v := range group {
			enc, err := s.charts.GetEncounter(ctx, encounterOf[v.BillingID])
			if err != nil {
				return uke.Batch{}, newError(KindQueryFailure, err, "load encounter of billing %s", v.BillingID)
			}
			for _, d := range enc.Diagnoses {
				diagnoses = append(diagnoses, claimDiagnosis(d, v.Date))
			}
		}
		batch.Claims = append(batch.Claims, uke.PatientClaim{
			Patient:   claimPatient(p, s.opts.DefaultBurdenRatio),
			Visits:    group,
			Diagnoses: diagnoses,
		})
	}
	return batch, nil
}

func claimPatient(p *encounter.Patient, defaultRatio float64) uke.Patient {
	out := uke.Patient{
		ID:            p.ID.String(),
		Name:          p.Name,
		Sex:           p.Sex,
		BirthDate:     p.BirthDate,
		InsurerNumber: p.InsurerNumber,
		InsuredSymbol: p.InsuredSymbol,
		InsuredNumber: p.InsuredNumber,
		Relationship:  p.Relationship,
		BurdenRatio:   defaultRatio,
	}
	if p.BurdenRatio != nil {
		out.BurdenRatio = *p.BurdenRatio
	}
	for _, pe := range p.PublicExpenses {
		out.PublicExpenses = append(out.PublicExpenses, uke.PublicExpense{Payer: pe.PayerNumber, Recipient: pe.RecipientNumber})
	}
	return out
}

// claimDiagnosis defaults the start month to the visit that recorded it.
func claimDiagnosis(d encounter.Diagnosis, visit time.Time) uke.Diagnosis {
	out := uke.Diagnosis{
		Code:      d.Code,
		Name:      d.Name,
		Tooth:     d.Tooth,
		StartedOn: visit,
		Outcome:   d.Outcome,
		Modifier:  d.Modifier,
	}
	if d.StartDate != nil {
		out.StartedOn = *d.StartDate
	}
	if d.EndDate != nil {
		out.EndedOn = *d.EndDate
	}
	return out
}
