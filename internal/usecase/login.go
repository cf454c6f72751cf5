package usecase

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/guillermolam/alberguecarcalejo-sub002/internal/auth"
)

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Role      string    `json:"role"`
}

// Login authenticates the single configured administrator.
type Login struct {
	issuer       *auth.Issuer
	username     string
	passwordHash string
}

func NewLogin(issuer *auth.Issuer, username, passwordHash string) *Login {
	return &Login{issuer: issuer, username: username, passwordHash: passwordHash}
}

func (uc *Login) Execute(_ context.Context, username, password string) (*LoginResult, error) {
	if uc.passwordHash == "" {
		return nil, auth.ErrInvalidCredentials
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(uc.username)) == 1
	// bcrypt runs regardless of the username so both failures take the same time.
	passErr := auth.CheckPassword(uc.passwordHash, password)
	if !userOK || passErr != nil {
		return nil, auth.ErrInvalidCredentials
	}

	token, exp, err := uc.issuer.Issue(username, auth.RoleAdmin)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: exp, Role: auth.RoleAdmin}, nil
}
