package reference

import (
	"context"
	"errors"
)

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("reference data not found")

type Repository interface {
	ListFeeItems(ctx context.Context, revision string) ([]FeeItem, error)
	ListFeeItemsPage(ctx context.Context, revision string, limit, offset int) ([]*FeeItem, int, error)
	ListActivePatterns(ctx context.Context, revision string) ([]BillingPattern, error)
	ListActiveDrugs(ctx context.Context) ([]Drug, error)
	ListActiveMaterials(ctx context.Context) ([]Material, error)
	ListActiveBonuses(ctx context.Context) ([]FacilityBonus, error)
	ListFacilityStandards(ctx context.Context) ([]FacilityStandard, error)

	// Claim-file lookups
	FindReceiptCode(ctx context.Context, prefix, suffix string) (*ReceiptCodeMapping, error)
	FindReceiptCodeByCode(ctx context.Context, receiptCode string) (*ReceiptCodeMapping, error)
	FindDiagnosisByCode(ctx context.Context, code string) (*Diagnosis, error)
	FindDiagnosisByName(ctx context.Context, name string) (*Diagnosis, error)

	// Seeding
	ReplaceAll(ctx context.Context, seed *Seed) error
}
