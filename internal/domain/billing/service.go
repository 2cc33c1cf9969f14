package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dentclaim/dentclaim/internal/domain/billing/derive"
	"github.com/dentclaim/dentclaim/internal/domain/encounter"
	"github.com/dentclaim/dentclaim/internal/domain/reference"
	"github.com/dentclaim/dentclaim/internal/platform/telemetry"
)

// EncounterReader is the part of the encounter service billing reads.
type EncounterReader interface {
	GetEncounter(ctx context.Context, id uuid.UUID) (*encounter.Encounter, error)
	GetPatient(ctx context.Context, id uuid.UUID) (*encounter.Patient, error)
	PreviousVisit(ctx context.Context, enc *encounter.Encounter) (*time.Time, error)
	IsFlaggedNew(ctx context.Context, enc *encounter.Encounter) (bool, error)
}

// SnapshotSource loads the reference data for one derivation.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*reference.Snapshot, error)
}

type Options struct {
	DefaultBurdenRatio float64
	NewVisitGapDays    int
}

type Service struct {
	repo       Repository
	encounters EncounterReader
	reference  SnapshotSource
	engine     *derive.Engine
	opts       Options
	logger     zerolog.Logger
	metrics    *telemetry.Metrics
}

func NewService(repo Repository, encounters EncounterReader, ref SnapshotSource, opts Options, logger zerolog.Logger, metrics *telemetry.Metrics) *Service {
	if opts.NewVisitGapDays <= 0 {
		opts.NewVisitGapDays = derive.DefaultNewVisitGapDays
	}
	return &Service{
		repo:       repo,
		encounters: encounters,
		reference:  ref,
		engine:     derive.NewEngine(logger),
		opts:       opts,
		logger:     logger,
		metrics:    metrics,
	}
}

// Derive computes the billing for an encounter and stores it, replacing any
// earlier derivation of the same encounter.
func (s *Service) Derive(ctx context.Context, encounterID uuid.UUID) (*Billing, error) {
	b, res, err := s.derive(ctx, encounterID)
	if err != nil {
		s.metrics.ObserveDerivation(telemetry.ResultFailed, 0, nil)
		return nil, err
	}

	result := telemetry.ResultOK
	if res.Degraded {
		result = telemetry.ResultDegraded
	}
	s.metrics.ObserveDerivation(result, b.TotalPoints, res.Dropped)
	s.logger.Info().
		Str("encounter_id", encounterID.String()).
		Str("billing_id", b.ID.String()).
		Bool("is_new_visit", b.IsNewVisit).
		Int("items", len(b.Items)).
		Int("total_points", b.TotalPoints).
		Int("warnings", len(b.Warnings)).
		Bool("degraded", res.Degraded).
		Msg("billing derived")
	return b, nil
}

func (s *Service) derive(ctx context.Context, encounterID uuid.UUID) (*Billing, *derive.Result, error) {
	enc, err := s.encounters.GetEncounter(ctx, encounterID)
	if err != nil {
		return nil, nil, lookupError(err, "encounter %s", encounterID)
	}
	patient, err := s.encounters.GetPatient(ctx, enc.PatientID)
	if err != nil {
		return nil, nil, lookupError(err, "patient %s of encounter %s", enc.PatientID, encounterID)
	}

	snap, err := s.reference.Snapshot(ctx)
	if errors.Is(err, reference.ErrFeeTableEmpty) {
		return nil, nil, newError(KindFeeTableEmpty, err, "no fee items loaded")
	}
	if err != nil {
		return nil, nil, newError(KindPersistenceFailure, err, "load reference data")
	}

	flagged, err := s.encounters.IsFlaggedNew(ctx, enc)
	if err != nil {
		return nil, nil, newError(KindPersistenceFailure, err, "load appointment")
	}
	previous, err := s.encounters.PreviousVisit(ctx, enc)
	if err != nil {
		return nil, nil, newError(KindPersistenceFailure, err, "load visit history")
	}
	visit := derive.ClassifyVisit(flagged, enc.VisitedAt, previous, s.opts.NewVisitGapDays)

	ratio := s.opts.DefaultBurdenRatio
	if patient.BurdenRatio != nil {
		ratio = *patient.BurdenRatio
	}

	res := s.engine.Derive(derive.Input{
		Note:          enc.Sections(),
		ToothSurfaces: enc.ToothSurfaces,
		Visit:         visit,
		Allergies:     patient.Allergies,
		BurdenRatio:   ratio,
		Snapshot:      snap,
	})

	b := &Billing{
		EncounterID:     enc.ID,
		PatientID:       enc.PatientID,
		VisitDate:       dateOf(enc.VisitedAt),
		IsNewVisit:      res.IsNew,
		Items:           res.Items,
		TotalPoints:     res.Summary.TotalPoints,
		PatientBurden:   res.Summary.PatientBurden,
		InsuranceClaim:  res.Summary.InsuranceClaim,
		BurdenRatio:     ratio,
		Warnings:        res.Warnings,
		ReceiptComments: res.Comments,
	}
	if err := s.repo.Upsert(ctx, b); err != nil {
		return nil, nil, newError(KindPersistenceFailure, err, "store billing for encounter %s", encounterID)
	}
	return b, res, nil
}

func (s *Service) GetByEncounter(ctx context.Context, encounterID uuid.UUID) (*Billing, error) {
	b, err := s.repo.GetByEncounter(ctx, encounterID)
	if err != nil {
		return nil, lookupError(err, "billing for encounter %s", encounterID)
	}
	return b, nil
}

// MarkPaid records the window payment. Paying twice keeps the first paid_at.
func (s *Service) MarkPaid(ctx context.Context, id uuid.UUID) (*Billing, error) {
	b, err := s.repo.MarkPaid(ctx, id, time.Now().UTC())
	if err != nil {
		return nil, lookupError(err, "billing %s", id)
	}
	s.logger.Info().Str("billing_id", id.String()).Int("patient_burden", b.PatientBurden).Msg("billing paid")
	return b, nil
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Billing, int, error) {
	if f.PaymentStatus != "" && f.PaymentStatus != PaymentPaid && f.PaymentStatus != PaymentUnpaid {
		return nil, 0, fmt.Errorf("invalid payment_status: %s", f.PaymentStatus)
	}
	items, total, err := s.repo.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, newError(KindPersistenceFailure, err, "list billings")
	}
	return items, total, nil
}

// lookupError maps a not-found from any repository to the matching kind and
// everything else to a persistence failure.
func lookupError(err error, format string, args ...any) error {
	switch {
	case errors.Is(err, encounter.ErrNotFound):
		return newError(KindEncounterNotFound, err, format+" not found", args...)
	case errors.Is(err, ErrNotFound):
		return newError(KindNotFound, err, format+" not found", args...)
	}
	return newError(KindPersistenceFailure, err, format, args...)
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
