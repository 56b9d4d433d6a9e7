package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Users is the account store behind password sign-in and session lookup.
type Users interface {
	CreateUser(ctx context.Context, email, passwordHash, fullName string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (User, error)
}

// RefreshTokens stores refresh token digests. Raw tokens never reach it.
type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, time.Time, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
}

// AuthRepository is everything the auth service persists.
type AuthRepository interface {
	Users
	RefreshTokens
}

var _ AuthRepository = (*Repository)(nil)
