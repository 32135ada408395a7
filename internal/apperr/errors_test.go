package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesByCode(t *testing.T) {
	err := NotFound("entry")
	if !errors.Is(err, ErrNotFound) {
		t.Fatal("NotFound should match ErrNotFound")
	}
	if errors.Is(err, ErrConflict) {
		t.Fatal("NotFound should not match ErrConflict")
	}

	wrapped := fmt.Errorf("rename: %w", err)
	if !errors.Is(wrapped, ErrNotFound) {
		t.Fatal("wrapped error should still match")
	}
	if CodeOf(wrapped) != CodeNotFound {
		t.Fatalf("CodeOf = %s", CodeOf(wrapped))
	}
}

func TestRemoteKeepsExistingCode(t *testing.T) {
	inner := Validation("bad name")
	if got := Remote("insert", inner); CodeOf(got) != CodeValidation {
		t.Fatalf("Remote overrode code: %v", got)
	}

	raw := errors.New("connection refused")
	got := Remote("insert", raw)
	if CodeOf(got) != CodeRemote {
		t.Fatalf("CodeOf = %s", CodeOf(got))
	}
	if !errors.Is(got, raw) {
		t.Fatal("cause should be reachable")
	}
}

func TestCodeOf(t *testing.T) {
	if CodeOf(nil) != "" {
		t.Error("nil should have empty code")
	}
	if CodeOf(errors.New("plain")) != CodeUnknown {
		t.Error("plain error should be unknown")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrUnauthenticated, 401},
		{Validation("x"), 400},
		{NotFound("entry"), 404},
		{Conflict("dup"), 409},
		{Remote("put", errors.New("down")), 502},
		{ErrPartial, 500},
		{errors.New("plain"), 500},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
		if PublicMessage(tc.err) == "" {
			t.Errorf("no public message for %v", tc.err)
		}
	}
}
