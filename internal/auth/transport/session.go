package transport

import (
	"context"
	"time"
)

// User is the authenticated account as other domains see it.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

// Session is the result of a successful sign-in or refresh.
type Session struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	User         User      `json:"user"`
}

// SessionVerifier confirms that a previously issued session still belongs to a live account.
// Other domains depend on this interface, not on the auth service.
type SessionVerifier interface {
	GetSession(ctx context.Context, userID string) (User, error)
}
