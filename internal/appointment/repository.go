package appointment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"medvault-server/internal/apperr"
	"medvault-server/internal/auth"
	"medvault-server/internal/database"
	"medvault-server/internal/metrics"
	"medvault-server/internal/model"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/go-playground/validator/v10"
	"github.com/rs/xid"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var columns = []string{
	database.ColumnID, database.ColumnOwnerID, "doctor", "speciality",
	"date", "time", "location", database.ColumnCreatedAt,
}

// Form is the input for a new appointment.
type Form struct {
	Doctor     string `json:"doctor" binding:"required,max=128" validate:"required,max=128"`
	Speciality string `json:"speciality" binding:"required,max=128" validate:"required,max=128"`
	Date       string `json:"date" binding:"required" validate:"required,datetime=2006-01-02"`
	Time       string `json:"time" binding:"required" validate:"required,datetime=15:04"`
	Location   string `json:"location" binding:"required,max=256" validate:"required,max=256"`
}

// Changes is a partial update. Nil fields are left alone.
type Changes struct {
	Doctor     *string `json:"doctor" validate:"omitempty,min=1,max=128"`
	Speciality *string `json:"speciality" validate:"omitempty,min=1,max=128"`
	Date       *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time       *string `json:"time" validate:"omitempty,datetime=15:04"`
	Location   *string `json:"location" validate:"omitempty,min=1,max=256"`
}

func (c Changes) fields() map[string]*string {
	return map[string]*string{
		"doctor":     c.Doctor,
		"speciality": c.Speciality,
		"date":       c.Date,
		"time":       c.Time,
		"location":   c.Location,
	}
}

// Repository stores the caller's appointments.
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

func (r *Repository) Create(ctx context.Context, f Form) (*model.Appointment, error) {
	owner, err := auth.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}
	f.Doctor = strings.TrimSpace(f.Doctor)
	f.Speciality = strings.TrimSpace(f.Speciality)
	f.Location = strings.TrimSpace(f.Location)
	if err := r.validate.Struct(f); err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, "invalid appointment", err)
	}

	a := &model.Appointment{
		ID:         xid.New().String(),
		OwnerID:    owner,
		Doctor:     f.Doctor,
		Speciality: f.Speciality,
		Date:       f.Date,
		Time:       f.Time,
		Location:   f.Location,
		CreatedAt:  r.now().UTC(),
	}
	b := r.db.Builder()
	_, err = database.Exec(ctx, r.db.Conn(), b.Insert(r.db.Tables.Appointments).
		Columns(columns...).
		Values(a.ID, a.OwnerID, a.Doctor, a.Speciality, a.Date, a.Time, a.Location, a.CreatedAt))
	metrics.Observe("appointment", "create", err)
	if err != nil {
		return nil, apperr.Remote("create appointment", err)
	}
	return a, nil
}

// List returns the caller's appointments, soonest first. Dates and times are
// zero-padded, so string order is chronological.
func (r *Repository) List(ctx context.Context) ([]*model.Appointment, error) {
	owner, err := auth.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}
	b := r.db.Builder()
	list, err := r.query(ctx, b.Select(columns...).From(b.Table(r.db.Tables.Appointments)).
		Where(entsql.EQ(database.ColumnOwnerID, owner)).
		OrderBy(entsql.Asc("date"), entsql.Asc("time"), entsql.Asc(database.ColumnID)))
	metrics.Observe("appointment", "list", err)
	if err != nil {
		return nil, apperr.Remote("list appointments", err)
	}
	return list, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*model.Appointment, error) {
	owner, err := auth.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, owner, id)
}

// Update applies the non-nil fields of c.
func (r *Repository) Update(ctx context.Context, id string, c Changes) (*model.Appointment, error) {
	owner, err := auth.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}
	fields := c.fields()
	for _, v := range fields {
		if v != nil {
			*v = strings.TrimSpace(*v)
		}
	}
	if err := r.validate.Struct(c); err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, "invalid appointment", err)
	}

	b := r.db.Builder()
	u := b.Update(r.db.Tables.Appointments)
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
	metrics.Observe("appointment", "update", err)
	if err != nil {
		return nil, apperr.Remote("update appointment", err)
	}
	if n == 0 {
		return nil, apperr.NotFound("appointment")
	}
	return r.get(ctx, owner, id)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	owner, err := auth.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	b := r.db.Builder()
	n, err := database.Exec(ctx, r.db.Conn(), b.Delete(r.db.Tables.Appointments).Where(r.owned(owner, id)))
	metrics.Observe("appointment", "delete", err)
	if err != nil {
		return apperr.Remote("delete appointment", err)
	}
	if n == 0 {
		return apperr.NotFound("appointment")
	}
	return nil
}

func (r *Repository) owned(owner, id string) *entsql.Predicate {
	return entsql.And(
		entsql.EQ(database.ColumnID, id),
		entsql.EQ(database.ColumnOwnerID, owner),
	)
}

func (r *Repository) get(ctx context.Context, owner, id string) (*model.Appointment, error) {
	b := r.db.Builder()
	list, err := r.query(ctx, b.Select(columns...).From(b.Table(r.db.Tables.Appointments)).
		Where(r.owned(owner, id)).Limit(1))
	if err != nil {
		return nil, apperr.Remote("get appointment", err)
	}
	if len(list) == 0 {
		return nil, apperr.NotFound("appointment")
	}
	return list[0], nil
}

func (r *Repository) query(ctx context.Context, stmt database.Querier) ([]*model.Appointment, error) {
	list := []*model.Appointment{}
	err := database.Query(ctx, r.db.Conn(), stmt, func(rows *entsql.Rows) error {
		var a model.Appointment
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.Doctor, &a.Speciality,
			&a.Date, &a.Time, &a.Location, &a.CreatedAt); err != nil {
			return err
		}
		list = append(list, &a)
		return nil
	})
	return list, err
}

// TimeRemaining labels how far date lies from now in whole calendar days:
// "Past", "Today", "Tomorrow", "N days", "N weeks" or "N months".
func TimeRemaining(date string, now time.Time) (string, error) {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", apperr.Validation("invalid date %q", date)
	}
	y, m, day := now.Date()
	today := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	days := int(d.Sub(today).Hours() / 24)

	switch {
	case days < 0:
		return "Past", nil
	case days == 0:
		return "Today", nil
	case days == 1:
		return "Tomorrow", nil
	case days < 7:
		return fmt.Sprintf("%d days", days), nil
	case days < 30:
		return fmt.Sprintf("%d weeks", days/7), nil
	default:
		return fmt.Sprintf("%d months", days/30), nil
	}
}
