package encounter

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dentclaim/dentclaim/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// -- Patients --

const patientCols = `id, name, COALESCE(name_kana, ''), sex, birth_date, insurer_number,
	COALESCE(insured_symbol, ''), insured_number, relationship, burden_ratio::float8,
	allergies, public_expenses, created_at, updated_at`

func (r *repoPG) CreatePatient(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	if p.Allergies == nil {
		p.Allergies = []string{}
	}
	if p.PublicExpenses == nil {
		p.PublicExpenses = []PublicExpense{}
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (
			id, name, name_kana, sex, birth_date, insurer_number, insured_symbol,
			insured_number, relationship, burden_ratio, allergies, public_expenses
		) VALUES ($1,$2,NULLIF($3,''),$4,$5,$6,NULLIF($7,''),$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.NameKana, p.Sex, p.BirthDate, p.InsurerNumber, p.InsuredSymbol,
		p.InsuredNumber, p.Relationship, p.BurdenRatio, p.Allergies, p.PublicExpenses,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *repoPG) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	var p Patient
	err := r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id).Scan(
		&p.ID, &p.Name, &p.NameKana, &p.Sex, &p.BirthDate, &p.InsurerNumber,
		&p.InsuredSymbol, &p.InsuredNumber, &p.Relationship, &p.BurdenRatio,
		&p.Allergies, &p.PublicExpenses, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// -- Appointments --

func (r *repoPG) CreateAppointment(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointment (id, patient_id, starts_at, status, is_new)
		VALUES ($1,$2,$3,$4,$5) RETURNING created_at`,
		a.ID, a.PatientID, a.StartsAt, a.Status, a.IsNew,
	).Scan(&a.CreatedAt)
}

func (r *repoPG) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	var a Appointment
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, patient_id, starts_at, status, is_new, created_at
		FROM appointment WHERE id = $1`, id,
	).Scan(&a.ID, &a.PatientID, &a.StartsAt, &a.Status, &a.IsNew, &a.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *repoPG) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE appointment SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) LastCompletedVisit(ctx context.Context, patientID uuid.UUID, before time.Time, exclude *uuid.UUID) (*time.Time, error) {
	var last *time.Time
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT MAX(starts_at) FROM appointment
		WHERE patient_id = $1 AND status = 'completed' AND starts_at < $2
		  AND ($3::uuid IS NULL OR id <> $3)`,
		patientID, before, exclude,
	).Scan(&last)
	if err != nil {
		return nil, err
	}
	return last, nil
}

// -- Encounters --

const encCols = `id, patient_id, appointment_id, visited_at, subjective, objective,
	assessment, plan, tooth_surfaces, diagnoses, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, enc *Encounter) error {
	enc.ID = uuid.New()
	normalize(enc)
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO encounter (
			id, patient_id, appointment_id, visited_at, subjective, objective,
			assessment, plan, tooth_surfaces, diagnoses
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at`,
		enc.ID, enc.PatientID, enc.AppointmentID, enc.VisitedAt, enc.Subjective, enc.Objective,
		enc.Assessment, enc.Plan, enc.ToothSurfaces, enc.Diagnoses,
	).Scan(&enc.CreatedAt, &enc.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	enc, err := scanEnc(r.conn(ctx).QueryRow(ctx, `SELECT `+encCols+` FROM encounter WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return enc, nil
}

func (r *repoPG) Update(ctx context.Context, enc *Encounter) error {
	normalize(enc)
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE encounter SET
			visited_at=$2, subjective=$3, objective=$4, assessment=$5, plan=$6,
			tooth_surfaces=$7, diagnoses=$8, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		enc.ID, enc.VisitedAt, enc.Subjective, enc.Objective, enc.Assessment, enc.Plan,
		enc.ToothSurfaces, enc.Diagnoses,
	).Scan(&enc.UpdatedAt)
	return notFound(err)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Encounter, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM encounter WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+encCols+` FROM encounter WHERE patient_id = $1 ORDER BY visited_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Encounter
	for rows.Next() {
		enc, err := scanEnc(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, enc)
	}
	return out, total, rows.Err()
}

func scanEnc(row pgx.Row) (*Encounter, error) {
	var e Encounter
	err := row.Scan(&e.ID, &e.PatientID, &e.AppointmentID, &e.VisitedAt, &e.Subjective, &e.Objective,
		&e.Assessment, &e.Plan, &e.ToothSurfaces, &e.Diagnoses, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// normalize replaces nil JSON collections so the columns never hold null.
func normalize(enc *Encounter) {
	if enc.ToothSurfaces == nil {
		enc.ToothSurfaces = map[string][]string{}
	}
	if enc.Diagnoses == nil {
		enc.Diagnoses = []Diagnosis{}
	}
}
