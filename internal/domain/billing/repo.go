package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Lookups return ErrNotFound when no row matches.
type Repository interface {
	// Upsert inserts the billing or replaces the derived fields of the row
	// for the same encounter. Claim and payment state are kept.
	Upsert(ctx context.Context, b *Billing) error
	GetByID(ctx context.Context, id uuid.UUID) (*Billing, error)
	GetByEncounter(ctx context.Context, encounterID uuid.UUID) (*Billing, error)
	MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) (*Billing, error)
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Billing, int, error)
	// ListPaidInMonth returns paid rows with a visit date in [from, to).
	ListPaidInMonth(ctx context.Context, from, to time.Time) ([]*Billing, error)
	MarkBilled(ctx context.Context, ids []uuid.UUID) (int64, error)
}
