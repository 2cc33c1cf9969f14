package reference

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

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

// =========== Fee items ===========

const feeCols = `code, revision_code, name, points, category, conditions`

func scanFeeItem(row pgx.Row) (*FeeItem, error) {
	var f FeeItem
	err := row.Scan(&f.Code, &f.RevisionCode, &f.Name, &f.Points, &f.Category, &f.Conditions)
	return &f, err
}

func (r *repoPG) ListFeeItems(ctx context.Context, revision string) ([]FeeItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+feeCols+` FROM fee_item WHERE revision_code = $1 ORDER BY code`, revision)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FeeItem
	for rows.Next() {
		f, err := scanFeeItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *f)
	}
	return items, rows.Err()
}

func (r *repoPG) ListFeeItemsPage(ctx context.Context, revision string, limit, offset int) ([]*FeeItem, int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM fee_item WHERE revision_code = $1`, revision).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+feeCols+` FROM fee_item WHERE revision_code = $1 ORDER BY code LIMIT $2 OFFSET $3`, revision, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*FeeItem
	for rows.Next() {
		f, err := scanFeeItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, f)
	}
	return items, total, rows.Err()
}

// =========== Patterns ===========

func (r *repoPG) ListActivePatterns(ctx context.Context, revision string) ([]BillingPattern, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, pattern_name, category, soap_keywords, soap_exclude_keywords, fee_codes,
			use_tooth_numbers, condition, priority, revision_code, is_active
		FROM billing_pattern
		WHERE is_active AND revision_code = $1
		ORDER BY priority DESC, pattern_name`, revision)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BillingPattern
	for rows.Next() {
		var p BillingPattern
		if err := rows.Scan(&p.ID, &p.PatternName, &p.Category, &p.SOAPKeywords, &p.SOAPExcludeKeywords,
			&p.FeeCodes, &p.UseToothNumbers, &p.Condition, &p.Priority, &p.RevisionCode, &p.IsActive); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// =========== Drugs and materials ===========

func (r *repoPG) ListActiveDrugs(ctx context.Context) ([]Drug, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, name, COALESCE(generic_name, ''), drug_class, unit_price::text, unit, dosage_form,
			default_days, default_quantity::text, COALESCE(receipt_code, ''), is_active
		FROM drug_master WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Drug
	for rows.Next() {
		var d Drug
		var price, qty string
		if err := rows.Scan(&d.ID, &d.Name, &d.GenericName, &d.DrugClass, &price, &d.Unit, &d.DosageForm,
			&d.DefaultDays, &qty, &d.ReceiptCode, &d.IsActive); err != nil {
			return nil, err
		}
		if d.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("drug %s unit_price: %w", d.ID, err)
		}
		if d.DefaultQuantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("drug %s default_quantity: %w", d.ID, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *repoPG) ListActiveMaterials(ctx context.Context) ([]Material, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, name, material_category, related_fee_codes, unit_price::text, unit,
			default_quantity::text, COALESCE(receipt_code, ''), is_active
		FROM material_master WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Material
	for rows.Next() {
		var m Material
		var price, qty string
		if err := rows.Scan(&m.ID, &m.Name, &m.MaterialCategory, &m.RelatedFeeCodes, &price, &m.Unit,
			&qty, &m.ReceiptCode, &m.IsActive); err != nil {
			return nil, err
		}
		if m.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("material %s unit_price: %w", m.ID, err)
		}
		if m.DefaultQuantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("material %s default_quantity: %w", m.ID, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// =========== Facility ===========

func (r *repoPG) ListActiveBonuses(ctx context.Context) ([]FacilityBonus, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT facility_code, name, target_kubun, bonus_points, bonus_type, COALESCE(condition, ''), is_active
		FROM facility_bonus WHERE is_active ORDER BY facility_code, target_kubun`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FacilityBonus
	for rows.Next() {
		var b FacilityBonus
		if err := rows.Scan(&b.FacilityCode, &b.Name, &b.TargetKubun, &b.BonusPoints, &b.BonusType, &b.Condition, &b.IsActive); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repoPG) ListFacilityStandards(ctx context.Context) ([]FacilityStandard, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT code, name, registered, registered_at FROM facility_standard ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FacilityStandard
	for rows.Next() {
		var s FacilityStandard
		if err := rows.Scan(&s.Code, &s.Name, &s.Registered, &s.RegisteredAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// =========== Claim-file lookups ===========

const mappingCols = `prefix, suffix, receipt_code, shinryo_code, COALESCE(name, '')`

func scanMapping(row pgx.Row) (*ReceiptCodeMapping, error) {
	var m ReceiptCodeMapping
	if err := row.Scan(&m.Prefix, &m.Suffix, &m.ReceiptCode, &m.ShinryoCode, &m.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *repoPG) FindReceiptCode(ctx context.Context, prefix, suffix string) (*ReceiptCodeMapping, error) {
	return scanMapping(r.conn(ctx).QueryRow(ctx,
		`SELECT `+mappingCols+` FROM receipt_code_mapping WHERE prefix = $1 AND suffix = $2`, prefix, suffix))
}

func (r *repoPG) FindReceiptCodeByCode(ctx context.Context, receiptCode string) (*ReceiptCodeMapping, error) {
	return scanMapping(r.conn(ctx).QueryRow(ctx,
		`SELECT `+mappingCols+` FROM receipt_code_mapping WHERE receipt_code = $1 LIMIT 1`, receiptCode))
}

func scanDiagnosis(row pgx.Row) (*Diagnosis, error) {
	var d Diagnosis
	if err := row.Scan(&d.Code, &d.Name, &d.InternalCode); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *repoPG) FindDiagnosisByCode(ctx context.Context, code string) (*Diagnosis, error) {
	return scanDiagnosis(r.conn(ctx).QueryRow(ctx,
		`SELECT code, name, COALESCE(internal_code, '') FROM diagnosis_master WHERE code = $1 OR internal_code = $1 LIMIT 1`, code))
}

func (r *repoPG) FindDiagnosisByName(ctx context.Context, name string) (*Diagnosis, error) {
	return scanDiagnosis(r.conn(ctx).QueryRow(ctx,
		`SELECT code, name, COALESCE(internal_code, '') FROM diagnosis_master WHERE name = $1 LIMIT 1`, name))
}

// =========== Seeding ===========

// ReplaceAll truncates every reference table and loads the seed. Callers wrap
// it in db.WithTx so a failed seed leaves the previous data intact.
func (r *repoPG) ReplaceAll(ctx context.Context, s *Seed) error {
	q := r.conn(ctx)
	if _, err := q.Exec(ctx, `TRUNCATE fee_item, billing_pattern, drug_master, material_master,
		facility_bonus, facility_standard, receipt_code_mapping, diagnosis_master`); err != nil {
		return fmt.Errorf("truncate reference tables: %w", err)
	}
	for _, f := range s.FeeItems {
		if _, err := q.Exec(ctx, `INSERT INTO fee_item (`+feeCols+`) VALUES ($1,$2,$3,$4,$5,$6)`,
			f.Code, f.RevisionCode, f.Name, f.Points, f.Category, f.Conditions); err != nil {
			return fmt.Errorf("insert fee_item %s: %w", f.Code, err)
		}
	}
	for _, p := range s.Patterns {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if _, err := q.Exec(ctx, `
			INSERT INTO billing_pattern (id, pattern_name, category, soap_keywords, soap_exclude_keywords,
				fee_codes, use_tooth_numbers, condition, priority, revision_code, is_active)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			p.ID, p.PatternName, p.Category, nonNil(p.SOAPKeywords), nonNil(p.SOAPExcludeKeywords),
			nonNil(p.FeeCodes), p.UseToothNumbers, p.Condition, p.Priority, p.RevisionCode, p.IsActive); err != nil {
			return fmt.Errorf("insert billing_pattern %s: %w", p.PatternName, err)
		}
	}
	for _, d := range s.Drugs {
		if _, err := q.Exec(ctx, `
			INSERT INTO drug_master (id, name, generic_name, drug_class, unit_price, unit, dosage_form,
				default_days, default_quantity, receipt_code, is_active)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NULLIF($10, ''),$11)`,
			d.ID, d.Name, d.GenericName, d.DrugClass, d.UnitPrice, d.Unit, d.DosageForm,
			d.DefaultDays, d.DefaultQuantity, d.ReceiptCode, d.IsActive); err != nil {
			return fmt.Errorf("insert drug %s: %w", d.ID, err)
		}
	}
	for _, m := range s.Materials {
		if _, err := q.Exec(ctx, `
			INSERT INTO material_master (id, name, material_category, related_fee_codes, unit_price, unit,
				default_quantity, receipt_code, is_active)
			VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8, ''),$9)`,
			m.ID, m.Name, m.MaterialCategory, nonNil(m.RelatedFeeCodes), m.UnitPrice, m.Unit,
			m.DefaultQuantity, m.ReceiptCode, m.IsActive); err != nil {
			return fmt.Errorf("insert material %s: %w", m.ID, err)
		}
	}
	for _, b := range s.Bonuses {
		if _, err := q.Exec(ctx, `
			INSERT INTO facility_bonus (facility_code, name, target_kubun, bonus_points, bonus_type, condition, is_active)
			VALUES ($1,$2,$3,$4,$5,NULLIF($6, ''),$7)`,
			b.FacilityCode, b.Name, b.TargetKubun, b.BonusPoints, b.BonusType, b.Condition, b.IsActive); err != nil {
			return fmt.Errorf("insert facility_bonus %s/%s: %w", b.FacilityCode, b.TargetKubun, err)
		}
	}
	for _, st := range s.Standards {
		if _, err := q.Exec(ctx, `INSERT INTO facility_standard (code, name, registered, registered_at) VALUES ($1,$2,$3,$4)`,
			st.Code, st.Name, st.Registered, st.RegisteredAt); err != nil {
			return fmt.Errorf("insert facility_standard %s: %w", st.Code, err)
		}
	}
	for _, m := range s.ReceiptCodes {
		if _, err := q.Exec(ctx, `INSERT INTO receipt_code_mapping (prefix, suffix, receipt_code, shinryo_code, name) VALUES ($1,$2,$3,$4,NULLIF($5, ''))`,
			m.Prefix, m.Suffix, m.ReceiptCode, m.ShinryoCode, m.Name); err != nil {
			return fmt.Errorf("insert receipt_code_mapping %s-%s: %w", m.Prefix, m.Suffix, err)
		}
	}
	for _, d := range s.Diagnoses {
		if _, err := q.Exec(ctx, `INSERT INTO diagnosis_master (code, name, internal_code) VALUES ($1,$2,NULLIF($3, ''))`,
			d.Code, d.Name, d.InternalCode); err != nil {
			return fmt.Errorf("insert diagnosis %s: %w", d.Code, err)
		}
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
