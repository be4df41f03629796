// AngelaMos | 2026
// service.go

package rbac

import (
	"context"
	"errors"

	"github.com/carterperez-dev/templates/rbac-backend/internal/core"
)

var (
	ErrPermissionNotFound = core.NotFoundError("permission")
	ErrRoleNotFound       = core.NotFoundError("role")
	ErrUserNotFound       = core.NotFoundError("user")

	ErrPermissionExists = core.ConflictError("permission already exists")
	ErrRoleExists       = core.ConflictError("role already exists")

	ErrPermissionAlreadyAssigned = core.ConflictError(
		"permission is already assigned to this role",
	)
	ErrPermissionNotAssigned = core.ConflictError(
		"permission is not assigned to this role",
	)
	ErrRoleAlreadyAssigned = core.ConflictError(
		"role is already assigned to this user",
	)
	ErrRoleNotAssigned = core.ConflictError(
		"role is not assigned to this user",
	)
)

// Service runs every operation in its own unit of work. Domain errors are
// returned as-is; anything else surfaces as core.Internal.
type Service struct {
	uow   core.UnitOfWork
	repos RepositoryFactory
	cache PermissionCache
}

func NewService(
	uow core.UnitOfWork,
	repos RepositoryFactory,
	cache PermissionCache,
) *Service {
	if cache == nil {
		cache = noopCache{}
	}
	return &Service{uow: uow, repos: repos, cache: cache}
}

func (s *Service) CreatePermission(
	ctx context.Context,
	req CreatePermissionRequest,
) (*PermissionResponse, error) {
	p := &Permission{Name: req.Name, Description: req.Description}

	err := s.uow.InTx(ctx, func(tx core.DBTX) error {
		return mapErr(s.repos(tx).CreatePermission(ctx, p), nil, ErrPermissionExists)
	})
	if err != nil {
		return nil, core.Pass("create permission", err)
	}

	resp := ToPermissionResponse(p)
	return &resp, nil
}

func (s *Service) ListPermissions(ctx context.Context) ([]PermissionResponse, error) {
	var perms []Permission
	err := s.uow.ReadTx(ctx, func(tx core.DBTX) error {
		var listErr error
		perms, listErr = s.repos(tx).ListPermissions(ctx)
		return listErr
	})
	if err != nil {
		return nil, core.Pass("list permissions", err)
	}

	return ToPermissionResponseList(perms), nil
}

func (s *Service) GetPermission(
	ctx context.Context,
	id int64,
) (*PermissionResponse, error) {
	var p *Permission
	err := s.uow.ReadTx(ctx, func(tx core.DBTX) error {
		var getErr error
		p, getErr = s.repos(tx).GetPermission(ctx, id)
		return mapErr(getErr, ErrPermissionNotFound, nil)
	})
	if err != nil {
		return nil, core.Pass("get permission", err)
	}

	resp := ToPermissionResponse(p)
	return &resp, nil
}

func (s *Service) UpdatePermission(
	ctx context.Context,
	id int64,
	req UpdatePermissionRequest,
) (*PermissionResponse, error) {
	p := &Permission{ID: id, Name: req.Name, Description: req.Description}

	err := s.uow.InTx(ctx, func(tx core.DBTX) error {
		return mapErr(
			s.repos(tx).UpdatePermission(ctx, p),
			ErrPermissionNotFound,
			ErrPermissionExists,
		)
	})
	if err != nil {
		return nil, core.Pass("update permission", err)
	}

	s.cache.InvalidateAll(ctx)

	resp := ToPermissionResponse(p)
	return &resp, nil
}

func (s *Service) DeletePermission(ctx context.Context, id int64) error {
	err := s.uow.InTx(ctx, func(tx core.DBTX) error {
		return mapErr(s.repos(tx).DeletePermission(ctx, id), ErrPermissionNotFound, nil)
	})
	if err != nil {
		return core.Pass("delete permission", err)
	}

	s.cache.InvalidateAll(ctx)
	return nil
}

func (s *Service) CreateRole(
	ctx context.Context,
	req CreateRoleRequest,
) (*RoleResponse, error) {
	role := &Role{Name: req.Name, Description: req.Description}

	err := s.uow.InTx(ctx, func(tx core.DBTX) error {
		return mapErr(s.repos(tx).CreateRole(ctx, role), nil, ErrRoleExists)
	})
	if err != nil {
		return nil, core.Pass("create role", err)
	}

	resp := ToRoleResponse(role)
	return &resp, nil
}

func (s *Service) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	var roles []Role
	err := s.uow.ReadTx(ctx, func(tx core.DBTX) error {
		var listErr error
		roles, listErr = s.repos(tx).ListRoles(ctx)
		return listErr
	})
	if err != nil {
		return nil, core.Pass("list roles", err)
	}

	return ToRoleResponseList(roles), nil
}

func (s *Service) GetRole(ctx context.Context, id int64) (*RoleResponse, error) {
	var role *Role
	err := s.uow.ReadTx(ctx, func(tx core.DBTX) error {
		var getErr error
		role, getErr = s.repos(tx).GetRole(ctx, id)
		return mapErr(getErr, ErrRoleNotFound, nil)
	})
	if err != nil {
		return nil, core.Pass("get role", err)
	}

	resp := ToRoleResponse(role)
	return &resp, nil
}

func (s *Service) UpdateRole(
	ctx context.Context,
	id int64,
	req UpdateRoleRequest,
) (*RoleResponse, error) {
	role := &Role{ID: id, Name: req.Name, Description: req.Description}

	err := s.uow.InTx(ctx, func(tx core.DBTX) error {
		return mapErr(s.repos(tx).UpdateRole(ctx, role), ErrRoleNotFound, ErrRoleExists)
	})
	if err != nil {
		return nil, core.Pass("update role", err)
	}

	resp := ToRoleResponse(role)
	return &resp, nil
}

func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	err := s.uow.InTx(ctx, func(tx core.DBTX) error {
		return mapErr(s.repos(tx).DeleteRole(ctx, id), ErrRoleNotFound, nil)
	})
	if err != nil {
		return core.Pass("delete role", err)
	}

	s.cache.InvalidateRole(ctx, id)
	return nil
}

// AssignPermission links a permission to a role and returns the role's
// permissions in assignment order.
func (s *Service) AssignPermission(
	ctx context.Context,
	roleID, permissionID int64,
) ([]PermissionResponse, error) {
	ctx, span := core.StartSpan(ctx, "rbac.AssignPermission")
	var err error
	defer func() { core.EndSpan(span, err) }()

	var perms []Permission
	err = s.uow.InTx(ctx, func(tx core.DBTX) error {
		repo := s.repos(tx)

		if err := s.requireRoleAndPermission(ctx, repo, roleID, permissionID); err != nil {
			return err
		}

		has, err := repo.HasPermission(ctx, roleID, permissionID)
		if err != nil {
			return err
		}
		if has {
			return ErrPermissionAlreadyAssigned
		}

		if err := repo.AssignPermission(ctx, roleID, permissionID); err != nil {
			return mapErr(err, nil, ErrPermissionAlreadyAssigned)
		}

		perms, err = repo.ListRolePermissions(ctx, roleID)
		return err
	})
	if err != nil {
		err = core.Pass("assign permission", err)
		return nil, err
	}

	s.cache.InvalidateRole(ctx, roleID)
	return ToPermissionResponseList(perms), nil
}

func (s *Service) UnassignPermission(
	ctx context.Context,
	roleID, permissionID int64,
) ([]PermissionResponse, error) {
	ctx, span := core.StartSpan(ctx, "rbac.UnassignPermission")
	var err error
	defer func() { core.EndSpan(span, err) }()

	var perms []Permission
	err = s.uow.InTx(ctx, func(tx core.DBTX) error {
		repo := s.repos(tx)

		if err := s.requireRoleAndPermission(ctx, repo, roleID, permissionID); err != nil {
			return err
		}

		if err := repo.UnassignPermission(ctx, roleID, permissionID); err != nil {
			return mapErr(err, ErrPermissionNotAssigned, nil)
		}

		var err error
		perms, err = repo.ListRolePermissions(ctx, roleID)
		return err
	})
	if err != nil {
		err = core.Pass("unassign permission", err)
		return nil, err
	}

	s.cache.InvalidateRole(ctx, roleID)
	return ToPermissionResponseList(perms), nil
}

func (s *Service) ListRolePermissions(
	ctx context.Context,
	roleID int64,
) ([]PermissionResponse, error) {
	perms, err := s.cache.GetOrLoad(ctx, roleID, func(ctx context.Context) ([]PermissionResponse, error) {
		var perms []Permission
		err := s.uow.ReadTx(ctx, func(tx core.DBTX) error {
			repo := s.repos(tx)

			if _, err := repo.GetRole(ctx, roleID); err != nil {
				return mapErr(err, ErrRoleNotFound, nil)
			}

			var err error
			perms, err = repo.ListRolePermissions(ctx, roleID)
			return err
		})
		if err != nil {
			return nil, err
		}
		return ToPermissionResponseList(perms), nil
	})
	if err != nil {
		return nil, core.Pass("list role permissions", err)
	}

	return perms, nil
}

func (s *Service) AssignRole(
	ctx context.Context,
	userID, roleID int64,
) ([]RoleResponse, error) {
	var roles []Role
	err := s.uow.InTx(ctx, func(tx core.DBTX) error {
		repo := s.repos(tx)

		if err := requireUserAndRole(ctx, repo, userID, roleID); err != nil {
			return err
		}

		has, err := repo.HasRole(ctx, userID, roleID)
		if err != nil {
			return err
		}
		if has {
			return ErrRoleAlreadyAssigned
		}

		if err := repo.AssignRole(ctx, userID, roleID); err != nil {
			return mapErr(err, nil, ErrRoleAlreadyAssigned)
		}

		roles, err = repo.ListUserRoles(ctx, userID)
		return err
	})
	if err != nil {
		return nil, core.Pass("assign role", err)
	}

	return ToRoleResponseList(roles), nil
}

func (s *Service) UnassignRole(
	ctx context.Context,
	userID, roleID int64,
) ([]RoleResponse, error) {
	var roles []Role
	err := s.uow.InTx(ctx, func(tx core.DBTX) error {
		repo := s.repos(tx)

		if err := requireUserAndRole(ctx, repo, userID, roleID); err != nil {
			return err
		}

		if err := repo.UnassignRole(ctx, userID, roleID); err != nil {
			return mapErr(err, ErrRoleNotAssigned, nil)
		}

		var err error
		roles, err = repo.ListUserRoles(ctx, userID)
		return err
	})
	if err != nil {
		return nil, core.Pass("unassign role", err)
	}

	return ToRoleResponseList(roles), nil
}

func (s *Service) ListUserRoles(ctx context.Context, userID int64) ([]RoleResponse, error) {
	var roles []Role
	err := s.uow.ReadTx(ctx, func(tx core.DBTX) error {
		repo := s.repos(tx)

		exists, err := repo.UserExists(ctx, userID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrUserNotFound
		}

		roles, err = repo.ListUserRoles(ctx, userID)
		return err
	})
	if err != nil {
		return nil, core.Pass("list user roles", err)
	}

	return ToRoleResponseList(roles), nil
}

func (s *Service) requireRoleAndPermission(
	ctx context.Context,
	repo Repository,
	roleID, permissionID int64,
) error {
	if _, err := repo.GetRole(ctx, roleID); err != nil {
		return mapErr(err, ErrRoleNotFound, nil)
	}
	if _, err := repo.GetPermission(ctx, permissionID); err != nil {
		return mapErr(err, ErrPermissionNotFound, nil)
	}
	return nil
}

func requireUserAndRole(
	ctx context.Context,
	repo Repository,
	userID, roleID int64,
) error {
	exists, err := repo.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrUserNotFound
	}

	if _, err := repo.GetRole(ctx, roleID); err != nil {
		return mapErr(err, ErrRoleNotFound, nil)
	}
	return nil
}

// mapErr translates storage sentinels into domain errors. A nil target
// leaves that sentinel untranslated.
func mapErr(err error, notFound, duplicate *core.AppError) error {
	switch {
	case err == nil:
		return nil
	case notFound != nil && errors.Is(err, core.ErrNotFound):
		return notFound
	case duplicate != nil && errors.Is(err, core.ErrDuplicateKey):
		return duplicate
	default:
		return err
	}
}
