// AngelaMos | 2026
// fakes_test.go

package rbac

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/carterperez-dev/templates/rbac-backend/internal/core"
)

type fakeUoW struct{}

func (fakeUoW) InTx(_ context.Context, fn func(tx core.DBTX) error) error {
	return fn(nil)
}

func (fakeUoW) ReadTx(_ context.Context, fn func(tx core.DBTX) error) error {
	return fn(nil)
}

type link struct {
	left, right int64
}

// memRepo is an in-memory Repository. Link slices keep insertion order.
type memRepo struct {
	mu sync.Mutex

	nextID      int64
	permissions map[int64]Permission
	roles       map[int64]Role
	users       map[int64]bool
	rolePerms   []link
	userRoles   []link

	// failWith, when set, is returned by every call.
	failWith error
	// lists counts ListRolePermissions calls.
	lists int
}

func newMemRepo() *memRepo {
	return &memRepo{
		permissions: make(map[int64]Permission),
		roles:       make(map[int64]Role),
		users:       make(map[int64]bool),
	}
}

func (m *memRepo) factory() RepositoryFactory {
	return func(core.DBTX) Repository { return m }
}

func (m *memRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memRepo) CreatePermission(_ context.Context, p *Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return m.failWith
	}
	for _, existing := range m.permissions {
		if existing.Name == p.Name {
			return fmt.Errorf("create permission: %w", core.ErrDuplicateKey)
		}
	}

	p.ID = m.id()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.permissions[p.ID] = *p
	return nil
}

func (m *memRepo) ListPermissions(context.Context) ([]Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return nil, m.failWith
	}
	out := []Permission{}
	for id := int64(1); id <= m.nextID; id++ {
		if p, ok := m.permissions[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memRepo) GetPermission(_ context.Context, id int64) (*Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return nil, m.failWith
	}
	p, ok := m.permissions[id]
	if !ok {
		return nil, fmt.Errorf("get permission: %w", core.ErrNotFound)
	}
	return &p, nil
}

func (m *memRepo) UpdatePermission(_ context.Context, p *Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return m.failWith
	}
	existing, ok := m.permissions[p.ID]
	if !ok {
		return fmt.Errorf("update permission: %w", core.ErrNotFound)
	}
	for id, other := range m.permissions {
		if id != p.ID && other.Name == p.Name {
			return fmt.Errorf("update permission: %w", core.ErrDuplicateKey)
		}
	}

	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now()
	m.permissions[p.ID] = *p
	return nil
}

func (m *memRepo) DeletePermission(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.permissions[id]; !ok {
		return fmt.Errorf("delete permission: %w", core.ErrNotFound)
	}
	delete(m.permissions, id)
	m.rolePerms = without(m.rolePerms, func(l link) bool { return l.right == id })
	return nil
}

func (m *memRepo) CreateRole(_ context.Context, r *Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return m.failWith
	}
	for _, existing := range m.roles {
		if existing.Name == r.Name {
			return fmt.Errorf("create role: %w", core.ErrDuplicateKey)
		}
	}

	r.ID = m.id()
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	m.roles[r.ID] = *r
	return nil
}

func (m *memRepo) ListRoles(context.Context) ([]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return nil, m.failWith
	}
	out := []Role{}
	for id := int64(1); id <= m.nextID; id++ {
		if r, ok := m.roles[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRepo) GetRole(_ context.Context, id int64) (*Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return nil, m.failWith
	}
	r, ok := m.roles[id]
	if !ok {
		return nil, fmt.Errorf("get role: %w", core.ErrNotFound)
	}
	return &r, nil
}

func (m *memRepo) UpdateRole(_ context.Context, r *Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return m.failWith
	}
	existing, ok := m.roles[r.ID]
	if !ok {
		return fmt.Errorf("update role: %w", core.ErrNotFound)
	}
	for id, other := range m.roles {
		if id != r.ID && other.Name == r.Name {
			return fmt.Errorf("update role: %w", core.ErrDuplicateKey)
		}
	}

	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = time.Now()
	m.roles[r.ID] = *r
	return nil
}

func (m *memRepo) DeleteRole(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.roles[id]; !ok {
		return fmt.Errorf("delete role: %w", core.ErrNotFound)
	}
	delete(m.roles, id)
	m.rolePerms = without(m.rolePerms, func(l link) bool { return l.left == id })
	m.userRoles = without(m.userRoles, func(l link) bool { return l.right == id })
	return nil
}

func (m *memRepo) AssignPermission(_ context.Context, roleID, permissionID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return m.failWith
	}
	if contains(m.rolePerms, link{roleID, permissionID}) {
		return fmt.Errorf("assign permission: %w", core.ErrDuplicateKey)
	}
	m.rolePerms = append(m.rolePerms, link{roleID, permissionID})
	return nil
}

func (m *memRepo) UnassignPermission(_ context.Context, roleID, permissionID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return m.failWith
	}
	target := link{roleID, permissionID}
	if !contains(m.rolePerms, target) {
		return fmt.Errorf("unassign permission: %w", core.ErrNotFound)
	}
	m.rolePerms = without(m.rolePerms, func(l link) bool { return l == target })
	return nil
}

func (m *memRepo) HasPermission(_ context.Context, roleID, permissionID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return false, m.failWith
	}
	return contains(m.rolePerms, link{roleID, permissionID}), nil
}

func (m *memRepo) ListRolePermissions(_ context.Context, roleID int64) ([]Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lists++
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := []Permission{}
	for _, l := range m.rolePerms {
		if l.left == roleID {
			out = append(out, m.permissions[l.right])
		}
	}
	return out, nil
}

func (m *memRepo) AssignRole(_ context.Context, userID, roleID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return m.failWith
	}
	if contains(m.userRoles, link{userID, roleID}) {
		return fmt.Errorf("assign role: %w", core.ErrDuplicateKey)
	}
	m.userRoles = append(m.userRoles, link{userID, roleID})
	return nil
}

func (m *memRepo) UnassignRole(_ context.Context, userID, roleID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return m.failWith
	}
	target := link{userID, roleID}
	if !contains(m.userRoles, target) {
		return fmt.Errorf("unassign role: %w", core.ErrNotFound)
	}
	m.userRoles = without(m.userRoles, func(l link) bool { return l == target })
	return nil
}

func (m *memRepo) HasRole(_ context.Context, userID, roleID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return false, m.failWith
	}
	return contains(m.userRoles, link{userID, roleID}), nil
}

func (m *memRepo) ListUserRoles(_ context.Context, userID int64) ([]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return nil, m.failWith
	}
	out := []Role{}
	for _, l := range m.userRoles {
		if l.left == userID {
			out = append(out, m.roles[l.right])
		}
	}
	return out, nil
}

func (m *memRepo) UserExists(_ context.Context, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return false, m.failWith
	}
	return m.users[userID], nil
}

func contains(links []link, target link) bool {
	for _, l := range links {
		if l == target {
			return true
		}
	}
	return false
}

func without(links []link, drop func(link) bool) []link {
	out := links[:0]
	for _, l := range links {
		if !drop(l) {
			out = append(out, l)
		}
	}
	return out
}

// spyCache records invalidations and delegates loads.
type spyCache struct {
	invalidated []int64
	flushes     int
}

func (s *spyCache) GetOrLoad(
	ctx context.Context,
	_ int64,
	load func(context.Context) ([]PermissionResponse, error),
) ([]PermissionResponse, error) {
	return load(ctx)
}

func (s *spyCache) InvalidateRole(_ context.Context, roleID int64) {
	s.invalidated = append(s.invalidated, roleID)
}

func (s *spyCache) InvalidateAll(context.Context) {
	s.flushes++
}
