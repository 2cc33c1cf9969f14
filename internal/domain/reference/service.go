package reference

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// ErrFeeTableEmpty is returned when neither the target nor the baseline
// revision has any fee items.
var ErrFeeTableEmpty = errors.New("fee table empty")

type Service struct {
	repo     Repository
	revision string
	baseline string
	logger   zerolog.Logger
}

func NewService(repo Repository, revision, baseline string, logger zerolog.Logger) *Service {
	return &Service{repo: repo, revision: revision, baseline: baseline, logger: logger}
}

// Revision is the fee-schedule revision derivations run against.
func (s *Service) Revision() string { return s.revision }

// Snapshot loads every table a derivation needs. Fee items and patterns fall
// back to the baseline revision when the target revision has none. A pattern
// query failure does not fail the snapshot; it marks the patterns unavailable
// so the keyword fallback can run instead.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{Revision: s.revision}

	fees, err := s.repo.ListFeeItems(ctx, s.revision)
	if err != nil {
		return nil, fmt.Errorf("list fee items: %w", err)
	}
	if len(fees) == 0 && s.baseline != "" && s.baseline != s.revision {
		snap.Revision = s.baseline
		if fees, err = s.repo.ListFeeItems(ctx, s.baseline); err != nil {
			return nil, fmt.Errorf("list baseline fee items: %w", err)
		}
	}
	if len(fees) == 0 {
		return nil, ErrFeeTableEmpty
	}
	snap.FeeItems = make(map[string]FeeItem, len(fees))
	for _, f := range fees {
		snap.FeeItems[f.Code] = f
	}

	snap.Patterns, err = s.patterns(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("billing patterns unavailable, using keyword fallback")
		snap.PatternsUnavailable = true
	} else if len(snap.Patterns) == 0 {
		snap.PatternsUnavailable = true
	}

	if snap.Drugs, err = s.repo.ListActiveDrugs(ctx); err != nil {
		return nil, fmt.Errorf("list drugs: %w", err)
	}
	if snap.Materials, err = s.repo.ListActiveMaterials(ctx); err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	if snap.Bonuses, err = s.repo.ListActiveBonuses(ctx); err != nil {
		return nil, fmt.Errorf("list facility bonuses: %w", err)
	}
	standards, err := s.repo.ListFacilityStandards(ctx)
	if err != nil {
		return nil, fmt.Errorf("list facility standards: %w", err)
	}
	snap.Registered = make(map[string]bool, len(standards))
	for _, st := range standards {
		if st.Registered {
			snap.Registered[st.Code] = true
		}
	}
	return snap, nil
}

func (s *Service) patterns(ctx context.Context) ([]BillingPattern, error) {
	ps, err := s.repo.ListActivePatterns(ctx, s.revision)
	if err != nil {
		return nil, err
	}
	if len(ps) == 0 && s.baseline != "" && s.baseline != s.revision {
		s.logger.Debug().Str("revision", s.revision).Str("baseline", s.baseline).Msg("no active patterns, using baseline revision")
		return s.repo.ListActivePatterns(ctx, s.baseline)
	}
	return ps, nil
}

func (s *Service) ListFeeItems(ctx context.Context, revision string, limit, offset int) ([]*FeeItem, int, error) {
	if revision == "" {
		revision = s.revision
	}
	return s.repo.ListFeeItemsPage(ctx, revision, limit, offset)
}

func (s *Service) FindReceiptCode(ctx context.Context, prefix, suffix string) (*ReceiptCodeMapping, error) {
	return s.repo.FindReceiptCode(ctx, prefix, suffix)
}

func (s *Service) FindReceiptCodeByCode(ctx context.Context, code string) (*ReceiptCodeMapping, error) {
	return s.repo.FindReceiptCodeByCode(ctx, code)
}

func (s *Service) FindDiagnosisByCode(ctx context.Context, code string) (*Diagnosis, error) {
	return s.repo.FindDiagnosisByCode(ctx, code)
}

func (s *Service) FindDiagnosisByName(ctx context.Context, name string) (*Diagnosis, error) {
	return s.repo.FindDiagnosisByName(ctx, name)
}

// Load replaces all reference tables with the seed.
func (s *Service) Load(ctx context.Context, seed *Seed) error {
	if err := seed.Validate(); err != nil {
		return err
	}
	if err := s.repo.ReplaceAll(ctx, seed); err != nil {
		return fmt.Errorf("load reference seed: %w", err)
	}
	s.logger.Info().
		Int("fee_items", len(seed.FeeItems)).
		Int("patterns", len(seed.Patterns)).
		Int("drugs", len(seed.Drugs)).
		Int("materials", len(seed.Materials)).
		Msg("reference data loaded")
	return nil
}
