package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"medvault-server/config"
	"medvault-server/internal/apperr"
	"medvault-server/internal/database"
	"medvault-server/internal/logger"
	"medvault-server/internal/metrics"
	"medvault-server/internal/model"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/go-playground/validator/v10"
	"github.com/rs/xid"
	"go.uber.org/zap"
)

// Registration is the signup form.
type Registration struct {
	Email       string            `json:"email" binding:"required,email" validate:"required,email"`
	Password    string            `json:"password" binding:"required,min=8" validate:"required,min=8"`
	Name        string            `json:"name" binding:"required,max=128" validate:"required,max=128"`
	Preferences map[string]string `json:"preferences"`
}

// Service manages accounts and sessions.
type Service struct {
	db       *database.Client
	jwt      *config.JWTConfig
	validate *validator.Validate
	now      func() time.Time
}

func NewService(db *database.Client, cfg *config.JWTConfig) *Service {
	return &Service{
		db:       db,
		jwt:      cfg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
}

var userColumns = []string{"id", "email", "name", "password_hash", "preferences", "created_at"}

// Register creates the account and its first session.
func (s *Service) Register(ctx context.Context, reg Registration) (*model.User, string, error) {
	reg.Email = normalizeEmail(reg.Email)
	reg.Name = strings.TrimSpace(reg.Name)
	if err := s.validate.Struct(reg); err != nil {
		return nil, "", apperr.Wrap(apperr.CodeValidation, "invalid registration", err)
	}

	if _, err := s.FindByEmail(ctx, reg.Email); err == nil {
		return nil, "", apperr.Conflict("email already registered")
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, "", err
	}

	hash, err := HashPassword(reg.Password)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.CodeUnknown, "hash password", err)
	}
	prefs := reg.Preferences
	if prefs == nil {
		prefs = map[string]string{}
	}
	prefsJSON, err := json.Marshal(prefs)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.CodeValidation, "invalid preferences", err)
	}

	now := s.now().UTC()
	u := &model.User{
		ID:           xid.New().String(),
		Email:        reg.Email,
		Name:         reg.Name,
		PasswordHash: hash,
		Preferences:  prefs,
		CreatedAt:    now,
	}

	var token string
	err = s.db.WithTx(ctx, func(tx dialect.ExecQuerier) error {
		b := s.db.Builder()
		if _, err := database.Exec(ctx, tx, b.Insert(s.db.Tables.Users).
			Columns(userColumns...).
			Values(u.ID, u.Email, u.Name, u.PasswordHash, string(prefsJSON), u.CreatedAt)); err != nil {
			return err
		}
		var err error
		token, err = s.createSession(ctx, tx, u.ID, now)
		return err
	})
	metrics.Observe("auth", "register", err)
	if database.IsUniqueViolation(err) {
		// Lost a race with another registration for the same email.
		return nil, "", apperr.Conflict("email already registered")
	}
	if err != nil {
		return nil, "", apperr.Remote("create user", err)
	}

	logger.L().Info("user registered", zap.String("user_id", u.ID))
	return u, token, nil
}

// Login verifies credentials and opens a new session.
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	u, err := s.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, "", apperr.New(apperr.CodeUnauthenticated, "invalid email or password")
		}
		return nil, "", err
	}
	if !CheckPassword(password, u.PasswordHash) {
		return nil, "", apperr.New(apperr.CodeUnauthenticated, "invalid email or password")
	}

	token, err := s.createSession(ctx, s.db.Conn(), u.ID, s.now().UTC())
	metrics.Observe("auth", "login", err)
	if err != nil {
		return nil, "", apperr.Remote("create session", err)
	}
	return u, token, nil
}

func (s *Service) createSession(ctx context.Context, conn dialect.ExecQuerier, userID string, now time.Time) (string, error) {
	sess := model.Session{
		ID:        xid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.jwt.GetExpiration()),
	}
	b := s.db.Builder()
	if _, err := database.Exec(ctx, conn, b.Insert(s.db.Tables.Sessions).
		Columns("id", "user_id", "created_at", "expires_at").
		Values(sess.ID, sess.UserID, sess.CreatedAt, sess.ExpiresAt)); err != nil {
		return "", err
	}
	return GenerateToken(sess.ID, userID, now, s.jwt)
}

// Logout deletes the caller's session.
func (s *Service) Logout(ctx context.Context) error {
	id, ok := FromContext(ctx)
	if !ok {
		return apperr.ErrUnauthenticated
	}
	b := s.db.Builder()
	_, err := database.Exec(ctx, s.db.Conn(), b.Delete(s.db.Tables.Sessions).
		Where(entsql.And(
			entsql.EQ("id", id.SessionID),
			entsql.EQ("user_id", id.UserID),
		)))
	metrics.Observe("auth", "logout", err)
	if err != nil {
		return apperr.Remote("delete session", err)
	}
	return nil
}

// Authenticate validates a bearer token against the session table.
func (s *Service) Authenticate(ctx context.Context, token string) (Identity, error) {
	claims, err := ValidateToken(token, s.jwt)
	if err != nil {
		return Identity{}, apperr.Wrap(apperr.CodeUnauthenticated, "invalid token", err)
	}

	b := s.db.Builder()
	var expiresAt time.Time
	found := false
	err = database.Query(ctx, s.db.Conn(),
		b.Select("expires_at").From(b.Table(s.db.Tables.Sessions)).
			Where(entsql.And(
				entsql.EQ("id", claims.ID),
				entsql.EQ("user_id", claims.UserID),
			)).Limit(1),
		func(rows *entsql.Rows) error {
			found = true
			return rows.Scan(&expiresAt)
		})
	if err != nil {
		return Identity{}, apperr.Remote("load session", err)
	}
	if !found || !s.now().Before(expiresAt) {
		return Identity{}, apperr.New(apperr.CodeUnauthenticated, "session ended")
	}
	return Identity{UserID: claims.UserID, SessionID: claims.ID}, nil
}

// CurrentUser returns the caller's account.
func (s *Service) CurrentUser(ctx context.Context) (*model.User, error) {
	uid, err := CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}
	return s.findOne(ctx, entsql.EQ("id", uid))
}

func (s *Service) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findOne(ctx, entsql.EQ("email", normalizeEmail(email)))
}

// ListUsers returns all accounts ordered by signup time.
func (s *Service) ListUsers(ctx context.Context) ([]*model.User, error) {
	b := s.db.Builder()
	var users []*model.User
	err := database.Query(ctx, s.db.Conn(),
		b.Select(userColumns...).From(b.Table(s.db.Tables.Users)).OrderBy(entsql.Asc("created_at")),
		func(rows *entsql.Rows) error {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			users = append(users, u)
			return nil
		})
	if err != nil {
		return nil, apperr.Remote("list users", err)
	}
	return users, nil
}

func (s *Service) findOne(ctx context.Context, p *entsql.Predicate) (*model.User, error) {
	b := s.db.Builder()
	var u *model.User
	err := database.Query(ctx, s.db.Conn(),
		b.Select(userColumns...).From(b.Table(s.db.Tables.Users)).Where(p).Limit(1),
		func(rows *entsql.Rows) error {
			var err error
			u, err = scanUser(rows)
			return err
		})
	if err != nil {
		return nil, apperr.Remote("load user", err)
	}
	if u == nil {
		return nil, apperr.NotFound("user")
	}
	return u, nil
}

func scanUser(rows *entsql.Rows) (*model.User, error) {
	var (
		u     model.User
		prefs sql.NullString
	)
	if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &prefs, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Preferences = map[string]string{}
	if prefs.Valid && prefs.String != "" {
		if err := json.Unmarshal([]byte(prefs.String), &u.Preferences); err != nil {
			return nil, err
		}
	}
	return &u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
