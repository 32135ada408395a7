package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"medvault-server/config"
	"medvault-server/internal/apperr"
	"medvault-server/internal/database/dbtest"
)

var testJWT = &config.JWTConfig{Secret: "test-secret", Expiration: "1h"}

func newService(t *testing.T) *Service {
	t.Helper()
	return NewService(dbtest.New(t), testJWT)
}

func register(t *testing.T, s *Service, email string) string {
	t.Helper()
	_, token, err := s.Register(context.Background(), Registration{
		Email:       email,
		Password:    "correct horse",
		Name:        "Test User",
		Preferences: map[string]string{"nickname": "tester"},
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return token
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("sess", "user", time.Now(), testJWT)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ValidateToken(token, testJWT)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.ID != "sess" || claims.UserID != "user" {
		t.Fatalf("claims = %+v", claims)
	}

	if _, err := ValidateToken(token, &config.JWTConfig{Secret: "other"}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong secret: %v", err)
	}
}

func TestTokenExpired(t *testing.T) {
	token, err := GenerateToken("sess", "user", time.Now().Add(-2*time.Hour), testJWT)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ValidateToken(token, testJWT); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("err = %v", err)
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("pa55word")
	if err != nil {
		t.Fatal(err)
	}
	if !CheckPassword("pa55word", hash) {
		t.Error("correct password rejected")
	}
	if CheckPassword("nope", hash) {
		t.Error("wrong password accepted")
	}
}

func TestCurrentUserIDWithoutSession(t *testing.T) {
	if _, err := CurrentUserID(context.Background()); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Fatalf("err = %v", err)
	}
	ctx := WithIdentity(context.Background(), Identity{UserID: "u1", SessionID: "s1"})
	uid, err := CurrentUserID(ctx)
	if err != nil || uid != "u1" {
		t.Fatalf("uid = %q, err = %v", uid, err)
	}
}

func TestRegisterLoginLogout(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	token := register(t, s, "Ada@Example.com ")

	id, err := s.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	u, err := s.CurrentUser(WithIdentity(ctx, id))
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if u.Email != "ada@example.com" || u.Preferences["nickname"] != "tester" {
		t.Fatalf("user = %+v", u)
	}

	if _, _, err := s.Login(ctx, "ada@example.com", "wrong password"); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Fatalf("bad login: %v", err)
	}
	_, second, err := s.Login(ctx, "ADA@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := s.Logout(WithIdentity(ctx, id)); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := s.Authenticate(ctx, token); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Fatalf("token after logout: %v", err)
	}
	if _, err := s.Authenticate(ctx, second); err != nil {
		t.Fatalf("other session should survive: %v", err)
	}
}

func TestRegisterRejectsDuplicateAndInvalid(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	register(t, s, "bob@example.com")

	_, _, err := s.Register(ctx, Registration{Email: "bob@example.com", Password: "long enough", Name: "Bob"})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("duplicate: %v", err)
	}

	_, _, err = s.Register(ctx, Registration{Email: "not-an-email", Password: "short", Name: ""})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("invalid: %v", err)
	}
}

func TestListUsers(t *testing.T) {
	s := newService(t)
	register(t, s, "a@example.com")
	register(t, s, "b@example.com")

	users, err := s.ListUsers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 {
		t.Fatalf("len = %d", len(users))
	}
}
