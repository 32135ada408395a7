package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"medvault-server/internal/apperr"
)

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	ref, err := m.Put(ctx, "u1/obj/report.pdf", strings.NewReader("hello"), 5, "application/pdf")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	rc, err := m.Open(ctx, ref)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "hello" {
		t.Fatalf("data = %q", data)
	}

	if _, err := m.URL(ctx, ref, time.Hour); err != nil {
		t.Fatalf("URL: %v", err)
	}

	if err := m.Delete(ctx, ref); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.URL(ctx, ref, time.Hour); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("URL after delete = %v", err)
	}
	if m.Len() != 0 {
		t.Fatalf("Len = %d", m.Len())
	}
}

func TestMemoryRejectsSizeMismatch(t *testing.T) {
	m := NewMemory()
	_, err := m.Put(context.Background(), "k", strings.NewReader("abc"), 10, "")
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v", err)
	}
}
