// AngelaMos | 2026
// entity.go

package user

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

type User struct {
	ID           int64      `db:"id"`
	Username     string     `db:"username"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"`
	IsActive     bool       `db:"is_active"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at"`
}

func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

// CanAuthenticate is false for soft-deleted or deactivated accounts.
func (u *User) CanAuthenticate() bool {
	return !u.IsDeleted() && u.IsActive
}

// NormalizeUsername trims surrounding space and folds the name to Unicode
// NFC so visually identical names compare equal.
func NormalizeUsername(username string) string {
	return norm.NFC.String(strings.TrimSpace(username))
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
