package medication

import (
	"context"
	"math"
	"strings"
	"time"

	"medvault-server/internal/apperr"
	"medvault-server/internal/auth"
	"medvault-server/internal/database"
	"medvault-server/internal/metrics"
	"medvault-server/internal/model"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/go-playground/validator/v10"
	"github.com/rs/xid"
)

var columns = []string{
	database.ColumnID, database.ColumnOwnerID, "name", "dosage", "schedule",
	"total_days", "remaining_days", database.ColumnCreatedAt,
}

// Form is the input for a new medication.
type Form struct {
	Name      string `json:"name" binding:"required,max=128" validate:"required,max=128"`
	Dosage    string `json:"dosage" binding:"required,max=64" validate:"required,max=64"`
	Schedule  string `json:"schedule" binding:"required,max=128" validate:"required,max=128"`
	TotalDays int    `json:"total_days" binding:"required,gt=0,lte=3650" validate:"gt=0,lte=3650"`
}

// Changes is a partial update. Nil fields are left alone.
type Changes struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=128"`
	Dosage   *string `json:"dosage" validate:"omitempty,min=1,max=64"`
	Schedule *string `json:"schedule" validate:"omitempty,min=1,max=128"`
}

// Repository stores the caller's medications.
type Repository struct {
	db       *database.Client
	validate *validator.Validate
	now      func() time.Time
}

func NewRepository(db *database.Client) *Repository {
	return &Repository{
		db:       db,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
}

// Create adds a medication with a full course remaining.
func (r *Repository) Create(ctx context.Context, f Form) (*model.Medication, error) {
	owner, err := auth.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}
	f.Name = strings.TrimSpace(f.Name)
	f.Dosage = strings.TrimSpace(f.Dosage)
	f.Schedule = strings.TrimSpace(f.Schedule)
	if err := r.validate.Struct(f); err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, "invalid medication", err)
	}

	m := &model.Medication{
		ID:            xid.New().String(),
		OwnerID:       owner,
		Name:          f.Name,
		Dosage:        f.Dosage,
		Schedule:      f.Schedule,
		TotalDays:     f.TotalDays,
		RemainingDays: f.TotalDays,
		CreatedAt:     r.now().UTC(),
	}
	b := r.db.Builder()
	_, err = database.Exec(ctx, r.db.Conn(), b.Insert(r.db.Tables.Medications).
		Columns(columns...).
		Values(m.ID, m.OwnerID, m.Name, m.Dosage, m.Schedule, m.TotalDays, m.RemainingDays, m.CreatedAt))
	metrics.Observe("medication", "create", err)
	if err != nil {
		return nil, apperr.Remote("create medication", err)
	}
	return m, nil
}

// List returns the caller's medications, newest first.
func (r *Repository) List(ctx context.Context) ([]*model.Medication, error) {
	owner, err := auth.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}
	b := r.db.Builder()
	meds, err := r.query(ctx, r.db.Conn(), b.Select(columns...).From(b.Table(r.db.Tables.Medications)).
		Where(entsql.EQ(database.ColumnOwnerID, owner)).
		OrderBy(entsql.Desc(database.ColumnCreatedAt), entsql.Asc(database.ColumnID)))
	metrics.Observe("medication", "list", err)
	if err != nil {
		return nil, apperr.Remote("list medications", err)
	}
	return meds, nil
}

// Get returns one of the caller's medications.
func (r *Repository) Get(ctx context.Context, id string) (*model.Medication, error) {
	owner, err := auth.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, r.db.Conn(), owner, id)
}

// IncrementRemaining adds one day back to the course. At totalDays it is a
// no-op; the ceiling is part of the UPDATE so concurrent callers cannot
// overshoot it.
func (r *Repository) IncrementRemaining(ctx context.Context, id string) (*model.Medication, error) {
	owner, err := auth.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}

	var m *model.Medication
	err = r.db.WithTx(ctx, func(tx dialect.ExecQuerier) error {
		b := r.db.Builder()
		if _, err := database.Exec(ctx, tx, b.Update(r.db.Tables.Medications).
			Add("remaining_days", 1).
			Where(entsql.And(
				r.owned(owner, id),
				entsql.ColumnsLT("remaining_days", "total_days"),
			))); err != nil {
			return err
		}
		var err error
		m, err = r.get(ctx, tx, owner, id)
		return err
	})
	metrics.Observe("medication", "increment", err)
	if err != nil {
		return nil, apperr.Remote("increment medication", err)
	}
	return m, nil
}

// Update applies the non-nil fields of c.
func (r *Repository) Update(ctx context.Context, id string, c Changes) (*model.Medication, error) {
	owner, err := auth.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}
	fields := map[string]*string{"name": c.Name, "dosage": c.Dosage, "schedule": c.Schedule}
	for _, v := range fields {
		if v != nil {
			*v = strings.TrimSpace(*v)
		}
	}
	if err := r.validate.Struct(c); err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, "invalid medication", err)
	}

	b := r.db.Builder()
	u := b.Update(r.db.Tables.Medications)
	set := false
	for column, v := range fields {
		if v != nil {
			u.Set(column, *v)
			set = true
		}
	}
	if !set {
		return nil, apperr.Validation("nothing to update")
	}

	n, err := database.Exec(ctx, r.db.Conn(), u.Where(r.owned(owner, id)))
	metrics.Observe("medication", "update", err)
	if err != nil {
		return nil, apperr.Remote("update medication", err)
	}
	if n == 0 {
		return nil, apperr.NotFound("medication")
	}
	return r.get(ctx, r.db.Conn(), owner, id)
}

// Delete removes one of the caller's medications.
func (r *Repository) Delete(ctx context.Context, id string) error {
	owner, err := auth.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	b := r.db.Builder()
	n, err := database.Exec(ctx, r.db.Conn(), b.Delete(r.db.Tables.Medications).Where(r.owned(owner, id)))
	metrics.Observe("medication", "delete", err)
	if err != nil {
		return apperr.Remote("delete medication", err)
	}
	if n == 0 {
		return apperr.NotFound("medication")
	}
	return nil
}

func (r *Repository) owned(owner, id string) *entsql.Predicate {
	return entsql.And(
		entsql.EQ(database.ColumnID, id),
		entsql.EQ(database.ColumnOwnerID, owner),
	)
}

func (r *Repository) get(ctx context.Context, conn dialect.ExecQuerier, owner, id string) (*model.Medication, error) {
	b := r.db.Builder()
	meds, err := r.query(ctx, conn, b.Select(columns...).From(b.Table(r.db.Tables.Medications)).
		Where(r.owned(owner, id)).Limit(1))
	if err != nil {
		return nil, apperr.Remote("get medication", err)
	}
	if len(meds) == 0 {
		return nil, apperr.NotFound("medication")
	}
	return meds[0], nil
}

func (r *Repository) query(ctx context.Context, conn dialect.ExecQuerier, stmt database.Querier) ([]*model.Medication, error) {
	meds := []*model.Medication{}
	err := database.Query(ctx, conn, stmt, func(rows *entsql.Rows) error {
		var m model.Medication
		if err := rows.Scan(&m.ID, &m.OwnerID, &m.Name, &m.Dosage, &m.Schedule,
			&m.TotalDays, &m.RemainingDays, &m.CreatedAt); err != nil {
			return err
		}
		meds = append(meds, &m)
		return nil
	})
	return meds, err
}

// PercentRemaining is remaining/total as a rounded percentage, 0 when total
// is not positive.
func PercentRemaining(remaining, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(remaining) / float64(total) * 100))
}
