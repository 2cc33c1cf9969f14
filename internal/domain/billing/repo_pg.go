package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dentclaim/dentclaim/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const billingCols = `id, encounter_id, patient_id, visit_date, is_new_visit, items,
	total_points, patient_burden, insurance_claim, burden_ratio::float8,
	ai_check_warnings, receipt_comments, claim_status, payment_status, paid_at,
	created_at, updated_at`

func scanBilling(row pgx.Row) (*Billing, error) {
	var b Billing
	err := row.Scan(&b.ID, &b.EncounterID, &b.PatientID, &b.VisitDate, &b.IsNewVisit, &b.Items,
		&b.TotalPoints, &b.PatientBurden, &b.InsuranceClaim, &b.BurdenRatio,
		&b.Warnings, &b.ReceiptComments, &b.ClaimStatus, &b.PaymentStatus, &b.PaidAt,
		&b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repoPG) Upsert(ctx context.Context, b *Billing) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.Items = nonNil(b.Items)
	b.Warnings = nonNil(b.Warnings)
	b.ReceiptComments = nonNil(b.ReceiptComments)
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO billing (
			id, encounter_id, patient_id, visit_date, is_new_visit, items,
			total_points, patient_burden, insurance_claim, burden_ratio,
			ai_check_warnings, receipt_comments
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (encounter_id) DO UPDATE SET
			patient_id = EXCLUDED.patient_id,
			visit_date = EXCLUDED.visit_date,
			is_new_visit = EXCLUDED.is_new_visit,
			items = EXCLUDED.items,
			total_points = EXCLUDED.total_points,
			patient_burden = EXCLUDED.patient_burden,
			insurance_claim = EXCLUDED.insurance_claim,
			burden_ratio = EXCLUDED.burden_ratio,
			ai_check_warnings = EXCLUDED.ai_check_warnings,
			receipt_comments = EXCLUDED.receipt_comments,
			updated_at = NOW()
		RETURNING id, claim_status, payment_status, paid_at, created_at, updated_at`,
		b.ID, b.EncounterID, b.PatientID, b.VisitDate, b.IsNewVisit, b.Items,
		b.TotalPoints, b.PatientBurden, b.InsuranceClaim, b.BurdenRatio,
		b.Warnings, b.ReceiptComments,
	).Scan(&b.ID, &b.ClaimStatus, &b.PaymentStatus, &b.PaidAt, &b.CreatedAt, &b.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Billing, error) {
	return scanBilling(r.conn(ctx).QueryRow(ctx, `SELECT `+billingCols+` FROM billing WHERE id = $1`, id))
}

func (r *repoPG) GetByEncounter(ctx context.Context, encounterID uuid.UUID) (*Billing, error) {
	return scanBilling(r.conn(ctx).QueryRow(ctx, `SELECT `+billingCols+` FROM billing WHERE encounter_id = $1`, encounterID))
}

func (r *repoPG) MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) (*Billing, error) {
	return scanBilling(r.conn(ctx).QueryRow(ctx, `
		UPDATE billing SET payment_status = 'paid', paid_at = COALESCE(paid_at, $2), updated_at = NOW()
		WHERE id = $1
		RETURNING `+billingCols, id, at))
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Billing, int, error) {
	var (
		where []string
		args  []interface{}
	)
	if !f.Month.IsZero() {
		args = append(args, f.Month, f.Month.AddDate(0, 1, 0))
		where = append(where, fmt.Sprintf("visit_date >= $%d AND visit_date < $%d", len(args)-1, len(args)))
	}
	if f.PaymentStatus != "" {
		args = append(args, f.PaymentStatus)
		where = append(where, fmt.Sprintf("payment_status = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM billing`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM billing%s ORDER BY visit_date DESC, created_at DESC LIMIT $%d OFFSET $%d`,
			billingCols, clause, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collect(rows)
	return items, total, err
}

func (r *repoPG) ListPaidInMonth(ctx context.Context, from, to time.Time) ([]*Billing, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+billingCols+` FROM billing
		WHERE payment_status = 'paid' AND visit_date >= $1 AND visit_date < $2
		ORDER BY visit_date, created_at`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func (r *repoPG) MarkBilled(ctx context.Context, ids []uuid.UUID) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE billing SET claim_status = 'billed', updated_at = NOW() WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func collect(rows pgx.Rows) ([]*Billing, error) {
	var out []*Billing
	for rows.Next() {
		b, err := scanBilling(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
