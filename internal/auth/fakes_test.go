// AngelaMos | 2026
// fakes_test.go

package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/carterperez-dev/templates/rbac-backend/internal/core"
	"github.com/carterperez-dev/templates/rbac-backend/internal/user"
)

type fakeUoW struct {
	writes int
	reads  int
}

func (f *fakeUoW) InTx(_ context.Context, fn func(tx core.DBTX) error) error {
	f.writes++
	return fn(nil)
}

func (f *fakeUoW) ReadTx(_ context.Context, fn func(tx core.DBTX) error) error {
	f.reads++
	return fn(nil)
}

// memUsers is an in-memory user.Repository keyed by id.
type memUsers struct {
	mu     sync.Mutex
	rows   map[int64]user.User
	nextID int64

	// failWith, when set, is returned by every call.
	failWith error
	// createErr, when set, is returned by Create after the lookup passed.
	createErr error
}

func newMemUsers() *memUsers {
	return &memUsers{rows: make(map[int64]user.User)}
}

func (m *memUsers) factory() user.RepositoryFactory {
	return func(core.DBTX) user.Repository { return m }
}

func (m *memUsers) seed(u user.User) user.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	u.ID = m.nextID
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
		u.UpdatedAt = u.CreatedAt
	}
	m.rows[u.ID] = u
	return u
}

func (m *memUsers) byUsername(username string) (user.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.rows {
		if u.Username == username {
			return u, true
		}
	}
	return user.User{}, false
}

func (m *memUsers) Create(_ context.Context, u *user.User) error {
	if m.failWith != nil {
		return m.failWith
	}
	if m.createErr != nil {
		return m.createErr
	}

	m.mu.Lock()
	for _, existing := range m.rows {
		if existing.Username == u.Username || existing.Email == u.Email {
			m.mu.Unlock()
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
	}
	m.mu.Unlock()

	u.IsActive = true
	stored := m.seed(*u)
	u.ID = stored.ID
	u.CreatedAt = stored.CreatedAt
	u.UpdatedAt = stored.UpdatedAt
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*user.User, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.rows[id]
	if !ok || u.IsDeleted() {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	return &u, nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*user.User, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}

	u, ok := m.byUsername(username)
	if !ok {
		return nil, fmt.Errorf("get user by username: %w", core.ErrNotFound)
	}
	return &u, nil
}

func (m *memUsers) FindByUsernameOrEmail(
	_ context.Context,
	username, email string,
) (*user.User, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.rows {
		if u.Username == username || u.Email == email {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("find user: %w", core.ErrNotFound)
}

func (m *memUsers) SoftDelete(_ context.Context, id int64) error {
	if m.failWith != nil {
		return m.failWith
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.rows[id]
	if !ok || u.IsDeleted() {
		return fmt.Errorf("soft delete user: %w", core.ErrNotFound)
	}
	now := time.Now()
	u.DeletedAt = &now
	u.IsActive = false
	m.rows[id] = u
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	if m.failWith != nil {
		return m.failWith
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.rows[id]
	if !ok || u.IsDeleted() {
		return fmt.Errorf("update password: %w", core.ErrNotFound)
	}
	u.PasswordHash = passwordHash
	m.rows[id] = u
	return nil
}

func (m *memUsers) Exists(_ context.Context, id int64) (bool, error) {
	if m.failWith != nil {
		return false, m.failWith
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.rows[id]
	return ok && !u.IsDeleted(), nil
}
