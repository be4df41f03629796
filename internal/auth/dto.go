// AngelaMos | 2026
// dto.go

package auth

import (
	"time"

	"github.com/carterperez-dev/templates/rbac-backend/internal/user"
)

const (
	tokenTypeBearer = "bearer"
	minUsernameLen  = 3
)

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email"    validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// Normalize applies the stored form of username and email so length rules
// see what will be persisted.
func (r *RegisterRequest) Normalize() {
	r.Username = user.NormalizeUsername(r.Username)
	r.Email = user.NormalizeEmail(r.Email)
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required,max=128"`
}

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func toTokenResponse(t *Token) *TokenResponse {
	return &TokenResponse{
		AccessToken: t.AccessToken,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   int(t.TTL.Seconds()),
		ExpiresAt:   t.ExpiresAt,
	}
}
