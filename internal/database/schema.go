package database

import (
	"medvault-server/config"

	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Column names shared by the repositories.
const (
	ColumnID        = "id"
	ColumnOwnerID   = "owner_id"
	ColumnCreatedAt = "created_at"
)

// Tables returns the table definitions, named after the configured collections.
func Tables(names config.CollectionsConfig) []*schema.Table {
	return []*schema.Table{
		usersTable(names.Users),
		sessionsTable(names.Sessions),
		entriesTable(names.Entries),
		medicationsTable(names.Medications),
		appointmentsTable(names.Appointments),
	}
}

func idColumn() *schema.Column {
	return &schema.Column{Name: ColumnID, Type: field.TypeString, Unique: true}
}

func usersTable(name string) *schema.Table {
	columns := []*schema.Column{
		idColumn(),
		{Name: "email", Type: field.TypeString, Unique: true},
		{Name: "name", Type: field.TypeString},
		{Name: "password_hash", Type: field.TypeString},
		{Name: "preferences", Type: field.TypeJSON, Nullable: true},
		{Name: ColumnCreatedAt, Type: field.TypeTime},
	}
	return &schema.Table{
		Name:       name,
		Columns:    columns,
		PrimaryKey: []*schema.Column{columns[0]},
	}
}

func sessionsTable(name string) *schema.Table {
	columns := []*schema.Column{
		idColumn(),
		{Name: "user_id", Type: field.TypeString},
		{Name: ColumnCreatedAt, Type: field.TypeTime},
		{Name: "expires_at", Type: field.TypeTime},
	}
	return &schema.Table{
		Name:       name,
		Columns:    columns,
		PrimaryKey: []*schema.Column{columns[0]},
		Indexes: []*schema.Index{
			{Name: name + "_user_id", Columns: []*schema.Column{columns[1]}},
		},
	}
}

func entriesTable(name string) *schema.Table {
	columns := []*schema.Column{
		idColumn(),
		{Name: "name", Type: field.TypeString},
		{Name: "kind", Type: field.TypeString, Size: 16},
		{Name: ColumnOwnerID, Type: field.TypeString},
		{Name: "parent_id", Type: field.TypeString, Nullable: true},
		{Name: "storage_ref", Type: field.TypeString, Default: ""},
		{Name: "mime_type", Type: field.TypeString, Default: ""},
		{Name: "size_bytes", Type: field.TypeInt64, Default: 0},
		{Name: "checksum", Type: field.TypeString, Default: ""},
		{Name: ColumnCreatedAt, Type: field.TypeTime},
	}
	return &schema.Table{
		Name:       name,
		Columns:    columns,
		PrimaryKey: []*schema.Column{columns[0]},
		Indexes: []*schema.Index{
			{Name: name + "_owner_id_parent_id", Columns: []*schema.Column{columns[3], columns[4]}},
		},
	}
}

func medicationsTable(name string) *schema.Table {
	columns := []*schema.Column{
		idColumn(),
		{Name: ColumnOwnerID, Type: field.TypeString},
		{Name: "name", Type: field.TypeString},
		{Name: "dosage", Type: field.TypeString},
		{Name: "schedule", Type: field.TypeString},
		{Name: "total_days", Type: field.TypeInt},
		{Name: "remaining_days", Type: field.TypeInt},
		{Name: ColumnCreatedAt, Type: field.TypeTime},
	}
	return &schema.Table{
		Name:       name,
		Columns:    columns,
		PrimaryKey: []*schema.Column{columns[0]},
		Indexes: []*schema.Index{
			{Name: name + "_owner_id", Columns: []*schema.Column{columns[1]}},
		},
	}
}

func appointmentsTable(name string) *schema.Table {
	columns := []*schema.Column{
		idColumn(),
		{Name: ColumnOwnerID, Type: field.TypeString},
		{Name: "doctor", Type: field.TypeString},
		{Name: "speciality", Type: field.TypeString},
		{Name: "date", Type: field.TypeString, Size: 10},
		{Name: "time", Type: field.TypeString, Size: 5},
		{Name: "location", Type: field.TypeString},
		{Name: ColumnCreatedAt, Type: field.TypeTime},
	}
	return &schema.Table{
		Name:       name,
		Columns:    columns,
		PrimaryKey: []*schema.Column{columns[0]},
		Indexes: []*schema.Index{
			{Name: name + "_owner_id_date", Columns: []*schema.Column{columns[1], columns[4]}},
		},
	}
}
