// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"log/slog"

	"github.com/carterperez-dev/templates/rbac-backend/internal/core"
)

var ErrUserNotFound = core.NotFoundError("user")

type Service struct {
	uow   core.UnitOfWork
	repos RepositoryFactory
}

func NewService(uow core.UnitOfWork, repos RepositoryFactory) *Service {
	return &Service{uow: uow, repos: repos}
}

// DeleteUser soft-deletes the account. The row is kept so the username and
// email stay reserved, and login rejects it from then on.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	ctx, span := core.StartSpan(ctx, "user.DeleteUser")
	var err error
	defer func() { core.EndSpan(span, err) }()

	err = s.uow.InTx(ctx, func(tx core.DBTX) error {
		if delErr := s.repos(tx).SoftDelete(ctx, id); delErr != nil {
			if errors.Is(delErr, core.ErrNotFound) {
				return ErrUserNotFound
			}
			return delErr
		}
		return nil
	})
	if err != nil {
		err = core.Pass("delete user", err)
		return err
	}

	slog.InfoContext(ctx, "user soft-deleted", "user_id", id)
	return nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (*UserResponse, error) {
	var found *User
	err := s.uow.ReadTx(ctx, func(tx core.DBTX) error {
		u, getErr := s.repos(tx).GetByID(ctx, id)
		if getErr != nil {
			if errors.Is(getErr, core.ErrNotFound) {
				return ErrUserNotFound
			}
			return getErr
		}
		found = u
		return nil
	})
	if err != nil {
		return nil, core.Pass("get user", err)
	}

	resp := ToUserResponse(found)
	return &resp, nil
}
