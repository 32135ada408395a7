package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"medvault-server/internal/database"
	"medvault-server/internal/database/dbtest"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

func TestMigrateIsRepeatable(t *testing.T) {
	client := dbtest.New(t)
	if err := client.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestExecAndQuery(t *testing.T) {
	client := dbtest.New(t)
	ctx := context.Background()
	b := client.Builder()

	n, err := database.Exec(ctx, client.Conn(), b.Insert(client.Tables.Sessions).
		Columns("id", "user_id", "created_at", "expires_at").
		Values("s1", "u1", time.Now(), time.Now().Add(time.Hour)))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if n != 1 {
		t.Fatalf("affected = %d", n)
	}

	var ids []string
	err = database.Query(ctx, client.Conn(),
		b.Select("id").From(b.Table(client.Tables.Sessions)).Where(entsql.EQ("user_id", "u1")),
		func(rows *entsql.Rows) error {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
			return nil
		})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(ids) != 1 || ids[0] != "s1" {
		t.Fatalf("ids = %v", ids)
	}
}

func TestWithTxRollsBack(t *testing.T) {
	client := dbtest.New(t)
	ctx := context.Background()
	b := client.Builder()
	boom := errors.New("boom")

	err := client.WithTx(ctx, func(tx dialect.ExecQuerier) error {
		if _, err := database.Exec(ctx, tx, b.Insert(client.Tables.Sessions).
			Columns("id", "user_id", "created_at", "expires_at").
			Values("s1", "u1", time.Now(), time.Now())); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}

	count := 0
	err = database.Query(ctx, client.Conn(),
		b.Select("id").From(b.Table(client.Tables.Sessions)),
		func(*entsql.Rows) error { count++; return nil })
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("rows after rollback = %d", count)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	client := dbtest.New(t)
	ctx := context.Background()
	b := client.Builder()

	insert := func(id string) error {
		_, err := database.Exec(ctx, client.Conn(), b.Insert(client.Tables.Users).
			Columns("id", "email", "name", "password_hash", "preferences", "created_at").
			Values(id, "ada@example.com", "Ada", "x", "{}", time.Now()))
		return err
	}
	if err := insert("u1"); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := insert("u2")
	if err == nil {
		t.Fatal("duplicate email accepted")
	}
	if !database.IsUniqueViolation(err) {
		t.Fatalf("IsUniqueViolation(%v) = false", err)
	}

	if database.IsUniqueViolation(errors.New("connection refused")) || database.IsUniqueViolation(nil) {
		t.Fatal("unrelated errors reported as unique violations")
	}
}
