package drive

import (
	"context"
	"database/sql"

	"medvault-server/internal/apperr"
	"medvault-server/internal/database"
	"medvault-server/internal/model"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

var entryColumns = []string{
	database.ColumnID, "name", "kind", database.ColumnOwnerID, "parent_id",
	"storage_ref", "mime_type", "size_bytes", "checksum", database.ColumnCreatedAt,
}

// Repository reads and writes entry rows. Every statement is scoped to one owner.
type Repository struct {
	db *database.Client
}

func NewRepository(db *database.Client) *Repository {
	return &Repository{db: db}
}

func (r *Repository) table() string {
	return r.db.Tables.Entries
}

// Insert writes a new entry row.
func (r *Repository) Insert(ctx context.Context, e *model.Entry) error {
	var parent any
	if e.ParentID != nil {
		parent = *e.ParentID
	}
	var (
		ref, mime, sum string
		size           int64
	)
	if e.File != nil {
		ref, mime, size, sum = e.File.StorageRef, e.File.MimeType, e.File.SizeBytes, e.File.Checksum
	}

	b := r.db.Builder()
	_, err := database.Exec(ctx, r.db.Conn(), b.Insert(r.table()).
		Columns(entryColumns...).
		Values(e.ID, e.Name, string(e.Kind), e.OwnerID, parent, ref, mime, size, sum, e.CreatedAt))
	return err
}

// ListChildren returns the owner's entries under parentID (nil for the root),
// folders first, then by name.
func (r *Repository) ListChildren(ctx context.Context, ownerID string, parentID *string) ([]*model.Entry, error) {
	parent := entsql.IsNull("parent_id")
	if parentID != nil {
		parent = entsql.EQ("parent_id", *parentID)
	}
	b := r.db.Builder()
	return r.list(ctx, b.Select(entryColumns...).From(b.Table(r.table())).
		Where(entsql.And(entsql.EQ(database.ColumnOwnerID, ownerID), parent)).
		OrderBy(entsql.Desc("kind"), entsql.Asc("name")))
}

// ListAll returns every entry the owner has.
func (r *Repository) ListAll(ctx context.Context, ownerID string) ([]*model.Entry, error) {
	b := r.db.Builder()
	return r.list(ctx, b.Select(entryColumns...).From(b.Table(r.table())).
		Where(entsql.EQ(database.ColumnOwnerID, ownerID)))
}

// Get returns one entry of the owner.
func (r *Repository) Get(ctx context.Context, ownerID, id string) (*model.Entry, error) {
	b := r.db.Builder()
	entries, err := r.list(ctx, b.Select(entryColumns...).From(b.Table(r.table())).
		Where(entsql.And(
			entsql.EQ(database.ColumnID, id),
			entsql.EQ(database.ColumnOwnerID, ownerID),
		)).Limit(1))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, apperr.NotFound("entry")
	}
	return entries[0], nil
}

// UpdateName changes only the name column.
func (r *Repository) UpdateName(ctx context.Context, ownerID, id, name string) error {
	b := r.db.Builder()
	return r.update(ctx, b.Update(r.table()).Set("name", name).Where(r.owned(ownerID, id)))
}

// UpdateParent moves an entry under parentID (nil for the root).
func (r *Repository) UpdateParent(ctx context.Context, ownerID, id string, parentID *string) error {
	b := r.db.Builder()
	u := b.Update(r.table())
	if parentID == nil {
		u.SetNull("parent_id")
	} else {
		u.Set("parent_id", *parentID)
	}
	return r.update(ctx, u.Where(r.owned(ownerID, id)))
}

// Delete removes one entry row.
func (r *Repository) Delete(ctx context.Context, ownerID, id string) error {
	b := r.db.Builder()
	return r.update(ctx, b.Delete(r.table()).Where(r.owned(ownerID, id)))
}

func (r *Repository) owned(ownerID, id string) *entsql.Predicate {
	return entsql.And(
		entsql.EQ(database.ColumnID, id),
		entsql.EQ(database.ColumnOwnerID, ownerID),
	)
}

func (r *Repository) update(ctx context.Context, stmt database.Querier) error {
	n, err := database.Exec(ctx, r.db.Conn(), stmt)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("entry")
	}
	return nil
}

func (r *Repository) list(ctx context.Context, stmt database.Querier) ([]*model.Entry, error) {
	return listEntries(ctx, r.db.Conn(), stmt)
}

func listEntries(ctx context.Context, conn dialect.ExecQuerier, stmt database.Querier) ([]*model.Entry, error) {
	entries := []*model.Entry{}
	err := database.Query(ctx, conn, stmt, func(rows *entsql.Rows) error {
		e, err := scanEntry(rows)
		if err != nil {
			return err
		}
		entries = append(entries, e)
		return nil
	})
	return entries, err
}

func scanEntry(rows *entsql.Rows) (*model.Entry, error) {
	var (
		e      model.Entry
		kind   string
		parent sql.NullString
		f      model.FileMeta
	)
	if err := rows.Scan(&e.ID, &e.Name, &kind, &e.OwnerID, &parent,
		&f.StorageRef, &f.MimeType, &f.SizeBytes, &f.Checksum, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Kind = model.Kind(kind)
	if parent.Valid {
		e.ParentID = &parent.String
	}
	if e.Kind == model.KindFile {
		e.File = &f
	}
	return &e, nil
}
