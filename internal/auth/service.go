// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/templates/rbac-backend/internal/core"
	"github.com/carterperez-dev/templates/rbac-backend/internal/middleware"
	"github.com/carterperez-dev/templates/rbac-backend/internal/user"
)

var (
	ErrAccountExists      = core.ConflictError("account already exists")
	ErrAccountLocked      = core.UnauthorizedError("account is locked or does not exist")
	ErrInvalidCredentials = core.UnauthorizedError("incorrect username or password")
	ErrInvalidToken       = core.TokenInvalidError()
	ErrAccountNotFound    = core.UnauthorizedError("account does not exist")
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) bool
	VerifyTimingSafe(password string, encodedHash *string) bool
	NeedsRehash(encodedHash string) bool
}

type ServiceConfig struct {
	UnitOfWork core.UnitOfWork
	Users      user.RepositoryFactory
	Hasher     PasswordHasher
	Tokens     *TokenManager
	LoginTTL   time.Duration
	Metrics    *core.Metrics
}

type Service struct {
	uow      core.UnitOfWork
	users    user.RepositoryFactory
	hasher   PasswordHasher
	tokens   *TokenManager
	loginTTL time.Duration
	metrics  *core.Metrics
}

func NewService(cfg ServiceConfig) *Service {
	return &Service{
		uow:      cfg.UnitOfWork,
		users:    cfg.Users,
		hasher:   cfg.Hasher,
		tokens:   cfg.Tokens,
		loginTTL: cfg.LoginTTL,
		metrics:  cfg.Metrics,
	}
}

// Register creates an account unless the username or email is taken,
// soft-deleted accounts included.
func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
) (resp *user.UserResponse, err error) {
	ctx, span := core.StartSpan(ctx, "auth.Register")
	defer func() {
		s.record("register", err)
		core.EndSpan(span, err)
	}()

	username := user.NormalizeUsername(req.Username)
	email := user.NormalizeEmail(req.Email)
	if utf8.RuneCountInString(username) < minUsernameLen {
		err = core.BadRequestError(fmt.Sprintf(
			"username must be at least %d characters",
			minUsernameLen,
		))
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, core.Internal("register: hash password", err)
	}

	created := &user.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}

	err = s.uow.InTx(ctx, func(tx core.DBTX) error {
		repo := s.users(tx)

		_, findErr := repo.FindByUsernameOrEmail(ctx, username, email)
		switch {
		case findErr == nil:
			return ErrAccountExists
		case !errors.Is(findErr, core.ErrNotFound):
			return findErr
		}

		if createErr := repo.Create(ctx, created); createErr != nil {
			if errors.Is(createErr, core.ErrDuplicateKey) {
				return ErrAccountExists
			}
			return createErr
		}
		return nil
	})
	if err != nil {
		err = core.Pass("register", err)
		return nil, err
	}

	slog.InfoContext(ctx, "account registered",
		"user_id", created.ID,
		"username", created.Username,
	)

	out := user.ToUserResponse(created)
	return &out, nil
}

// Login checks the password before the account state so that a locked
// account is only reported to a caller who knows its password.
func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
) (resp *TokenResponse, err error) {
	ctx, span := core.StartSpan(ctx, "auth.Login")
	defer func() {
		s.record("login", err)
		core.EndSpan(span, err)
	}()

	username := user.NormalizeUsername(req.Username)

	var found *user.User
	err = s.uow.ReadTx(ctx, func(tx core.DBTX) error {
		u, getErr := s.users(tx).GetByUsername(ctx, username)
		if getErr != nil {
			if errors.Is(getErr, core.ErrNotFound) {
				return nil
			}
			return getErr
		}
		found = u
		return nil
	})
	if err != nil {
		err = core.Pass("login: lookup", err)
		return nil, err
	}

	if found == nil {
		s.hasher.VerifyTimingSafe(req.Password, nil)
		err = ErrInvalidCredentials
		return nil, err
	}

	if !s.hasher.VerifyTimingSafe(req.Password, &found.PasswordHash) {
		err = ErrInvalidCredentials
		return nil, err
	}

	if !found.CanAuthenticate() {
		err = ErrAccountLocked
		return nil, err
	}

	token, err := s.tokens.Issue(found.Username, s.loginTTL)
	if err != nil {
		err = core.Internal("login: issue token", err)
		return nil, err
	}

	if s.hasher.NeedsRehash(found.PasswordHash) {
		s.rehash(ctx, found.ID, req.Password)
	}

	span.SetAttributes(attribute.Int64("user.id", found.ID))
	return toTokenResponse(token), nil
}

// Refresh reissues a token from an authentic one whose expiry may already
// have passed. The new token always carries the default lifetime.
func (s *Service) Refresh(
	ctx context.Context,
	authorization string,
) (resp *TokenResponse, err error) {
	ctx, span := core.StartSpan(ctx, "auth.Refresh")
	defer func() {
		s.record("refresh", err)
		core.EndSpan(span, err)
	}()

	raw, ok := middleware.ParseBearer(authorization)
	if !ok {
		err = ErrInvalidToken
		return nil, err
	}

	claims, err := s.tokens.ValidateIgnoringExpiry(raw)
	if err != nil {
		err = ErrInvalidToken
		return nil, err
	}

	if _, err = s.activeUser(ctx, claims.Subject); err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(claims.Subject, 0)
	if err != nil {
		err = core.Internal("refresh: issue token", err)
		return nil, err
	}

	return toTokenResponse(token), nil
}

func (s *Service) WhoAmI(
	ctx context.Context,
	token string,
) (resp *user.UserResponse, err error) {
	ctx, span := core.StartSpan(ctx, "auth.WhoAmI")
	defer func() { core.EndSpan(span, err) }()

	claims, err := s.tokens.Validate(token)
	if err != nil {
		err = ErrInvalidToken
		return nil, err
	}

	u, err := s.activeUser(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}

	out := user.ToUserResponse(u)
	return &out, nil
}

// VerifyAccessToken validates the token and requires its subject to be a
// live account, so a soft-deleted user loses access before the token expires.
func (s *Service) VerifyAccessToken(
	ctx context.Context,
	token string,
) (*middleware.AccessTokenClaims, error) {
	claims, err := s.tokens.VerifyAccessToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if _, err := s.activeUser(ctx, claims.Subject); err != nil {
		return nil, err
	}

	return claims, nil
}

func (s *Service) activeUser(ctx context.Context, username string) (*user.User, error) {
	var found *user.User
	err := s.uow.ReadTx(ctx, func(tx core.DBTX) error {
		u, getErr := s.users(tx).GetByUsername(ctx, username)
		if getErr != nil {
			if errors.Is(getErr, core.ErrNotFound) {
				return ErrAccountNotFound
			}
			return getErr
		}
		if !u.CanAuthenticate() {
			return ErrAccountNotFound
		}
		found = u
		return nil
	})
	if err != nil {
		return nil, core.Pass("lookup account", err)
	}

	return found, nil
}

// rehash upgrades a legacy or outdated digest after a successful login.
// Failure is logged and otherwise ignored.
func (s *Service) rehash(ctx context.Context, userID int64, password string) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		slog.WarnContext(ctx, "password rehash failed", "error", err, "user_id", userID)
		return
	}

	err = s.uow.InTx(ctx, func(tx core.DBTX) error {
		return s.users(tx).UpdatePassword(ctx, userID, hash)
	})
	if err != nil {
		slog.WarnContext(ctx, "password rehash failed", "error", err, "user_id", userID)
		return
	}

	slog.InfoContext(ctx, "password digest upgraded", "user_id", userID)
}

func (s *Service) record(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = outcomeOf(err)
	}
	s.metrics.AuthOutcome(operation, outcome)
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrAccountExists):
		return "account_exists"
	case errors.Is(err, ErrAccountLocked):
		return "account_locked"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, ErrAccountNotFound):
		return "account_not_found"
	default:
		return "error"
	}
}
