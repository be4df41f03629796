// AngelaMos | 2026
// repository.go

package rbac

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/templates/rbac-backend/internal/core"
)

type Repository interface {
	CreatePermission(ctx context.Context, p *Permission) error
	ListPermissions(ctx context.Context) ([]Permission, error)
	GetPermission(ctx context.Context, id int64) (*Permission, error)
	UpdatePermission(ctx context.Context, p *Permission) error
	DeletePermission(ctx context.Context, id int64) error

	CreateRole(ctx context.Context, r *Role) error
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (*Role, error)
	UpdateRole(ctx context.Context, r *Role) error
	DeleteRole(ctx context.Context, id int64) error

	AssignPermission(ctx context.Context, roleID, permissionID int64) error
	UnassignPermission(ctx context.Context, roleID, permissionID int64) error
	HasPermission(ctx context.Context, roleID, permissionID int64) (bool, error)
	ListRolePermissions(ctx context.Context, roleID int64) ([]Permission, error)

	AssignRole(ctx context.Context, userID, roleID int64) error
	UnassignRole(ctx context.Context, userID, roleID int64) error
	HasRole(ctx context.Context, userID, roleID int64) (bool, error)
	ListUserRoles(ctx context.Context, userID int64) ([]Role, error)

	UserExists(ctx context.Context, userID int64) (bool, error)
}

// RepositoryFactory binds a Repository to the handle of a unit of work.
type RepositoryFactory func(db core.DBTX) Repository

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const (
	permissionColumns = `id, name, description, created_at, updated_at, deleted_at`
	roleColumns       = `id, name, description, created_at, updated_at, deleted_at`
)

func (r *repository) CreatePermission(ctx context.Context, p *Permission) error {
	query := `
		INSERT INTO permissions (name, description)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`

	err := r.db.GetContext(ctx, p, query, p.Name, p.Description)
	if err != nil {
		return writeError("create permission", err)
	}

	return nil
}

func (r *repository) ListPermissions(ctx context.Context) ([]Permission, error) {
	query := `
		SELECT ` + permissionColumns + `
		FROM permissions
		WHERE deleted_at IS NULL
		ORDER BY id`

	perms := []Permission{}
	if err := r.db.SelectContext(ctx, &perms, query); err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}

	return perms, nil
}

func (r *repository) GetPermission(
	ctx context.Context,
	id int64,
) (*Permission, error) {
	query := `
		SELECT ` + permissionColumns + `
		FROM permissions
		WHERE id = $1 AND deleted_at IS NULL`

	var p Permission
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		return nil, readError("get permission", err)
	}

	return &p, nil
}

func (r *repository) UpdatePermission(ctx context.Context, p *Permission) error {
	query := `
		UPDATE permissions
		SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, p, query, p.ID, p.Name, p.Description)
	if err != nil {
		return writeError("update permission", err)
	}

	return nil
}

func (r *repository) DeletePermission(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete permission: %w", err)
	}

	return expectAffected(result, "delete permission")
}

func (r *repository) CreateRole(ctx context.Context, role *Role) error {
	query := `
		INSERT INTO roles (name, description)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`

	err := r.db.GetContext(ctx, role, query, role.Name, role.Description)
	if err != nil {
		return writeError("create role", err)
	}

	return nil
}

func (r *repository) ListRoles(ctx context.Context) ([]Role, error) {
	query := `
		SELECT ` + roleColumns + `
		FROM roles
		WHERE deleted_at IS NULL
		ORDER BY id`

	roles := []Role{}
	if err := r.db.SelectContext(ctx, &roles, query); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}

	return roles, nil
}

func (r *repository) GetRole(ctx context.Context, id int64) (*Role, error) {
	query := `
		SELECT ` + roleColumns + `
		FROM roles
		WHERE id = $1 AND deleted_at IS NULL`

	var role Role
	if err := r.db.GetContext(ctx, &role, query, id); err != nil {
		return nil, readError("get role", err)
	}

	return &role, nil
}

func (r *repository) UpdateRole(ctx context.Context, role *Role) error {
	query := `
		UPDATE roles
		SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, role, query, role.ID, role.Name, role.Description)
	if err != nil {
		return writeError("update role", err)
	}

	return nil
}

func (r *repository) DeleteRole(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}

	return expectAffected(result, "delete role")
}

func (r *repository) AssignPermission(
	ctx context.Context,
	roleID, permissionID int64,
) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)`,
		roleID, permissionID,
	)
	if err != nil {
		return writeError("assign permission", err)
	}

	return nil
}

func (r *repository) UnassignPermission(
	ctx context.Context,
	roleID, permissionID int64,
) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`,
		roleID, permissionID,
	)
	if err != nil {
		return fmt.Errorf("unassign permission: %w", err)
	}

	return expectAffected(result, "unassign permission")
}

func (r *repository) HasPermission(
	ctx context.Context,
	roleID, permissionID int64,
) (bool, error) {
	query := `SELECT EXISTS(
		SELECT 1 FROM role_permissions WHERE role_id = $1 AND permission_id = $2)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, roleID, permissionID); err != nil {
		return false, fmt.Errorf("check role permission: %w", err)
	}

	return exists, nil
}

// ListRolePermissions returns the role's permissions in assignment order.
func (r *repository) ListRolePermissions(
	ctx context.Context,
	roleID int64,
) ([]Permission, error) {
	query := `
		SELECT p.id, p.name, p.description, p.created_at, p.updated_at, p.deleted_at
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = $1 AND p.deleted_at IS NULL
		ORDER BY rp.seq`

	perms := []Permission{}
	if err := r.db.SelectContext(ctx, &perms, query, roleID); err != nil {
		return nil, fmt.Errorf("list role permissions: %w", err)
	}

	return perms, nil
}

func (r *repository) AssignRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`,
		userID, roleID,
	)
	if err != nil {
		return writeError("assign role", err)
	}

	return nil
}

func (r *repository) UnassignRole(ctx context.Context, userID, roleID int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`,
		userID, roleID,
	)
	if err != nil {
		return fmt.Errorf("unassign role: %w", err)
	}

	return expectAffected(result, "unassign role")
}

func (r *repository) HasRole(
	ctx context.Context,
	userID, roleID int64,
) (bool, error) {
	query := `SELECT EXISTS(
		SELECT 1 FROM user_roles WHERE user_id = $1 AND role_id = $2)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, roleID); err != nil {
		return false, fmt.Errorf("check user role: %w", err)
	}

	return exists, nil
}

func (r *repository) ListUserRoles(ctx context.Context, userID int64) ([]Role, error) {
	query := `
		SELECT ro.id, ro.name, ro.description, ro.created_at, ro.updated_at, ro.deleted_at
		FROM user_roles ur
		JOIN roles ro ON ro.id = ur.role_id
		WHERE ur.user_id = $1 AND ro.deleted_at IS NULL
		ORDER BY ur.seq`

	roles := []Role{}
	if err := r.db.SelectContext(ctx, &roles, query, userID); err != nil {
		return nil, fmt.Errorf("list user roles: %w", err)
	}

	return roles, nil
}

func (r *repository) UserExists(ctx context.Context, userID int64) (bool, error) {
	query := `SELECT EXISTS(
		SELECT 1 FROM users WHERE id = $1 AND deleted_at IS NULL)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}

	return exists, nil
}

func readError(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func writeError(op string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	case core.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", op, core.ErrDuplicateKey)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func expectAffected(result sql.Result, op string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return nil
}
