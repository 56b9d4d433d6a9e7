package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrProfileNotFound is returned when a user has no profile row.
var ErrProfileNotFound = errors.New("profile not found")

// Profile is a member of the team as stored in the identity store.
type Profile struct {
	ID       string
	Email    string
	FullName string
	Role     string
}

const listProfilesQuery = `
	SELECT id, email, full_name, role
	FROM profiles
	ORDER BY full_name ASC, email ASC`

func (r *Repository) ListProfiles(ctx context.Context) ([]Profile, error) {
	rows, err := r.pool.Query(ctx, listProfilesQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := make([]Profile, 0)
	for rows.Next() {
		var (
			p  Profile
			id uuid.UUID
		)
		if err := rows.Scan(&id, &p.Email, &p.FullName, &p.Role); err != nil {
			return nil, err
		}
		p.ID = id.String()
		profiles = append(profiles, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return profiles, nil
}

// GetProfileRole returns the stored role of a user.
func (r *Repository) GetProfileRole(ctx context.Context, userID string) (string, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return "", ErrProfileNotFound
	}

	var role string
	err = r.pool.QueryRow(ctx, `SELECT role FROM profiles WHERE id = $1`, id).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrProfileNotFound
	}
	if err != nil {
		return "", err
	}
	return role, nil
}

// GetProfile returns the profile of a user.
func (r *Repository) GetProfile(ctx context.Context, userID string) (Profile, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return Profile{}, ErrProfileNotFound
	}

	var p Profile
	err = r.pool.QueryRow(ctx, `SELECT email, full_name, role FROM profiles WHERE id = $1`, id).Scan(&p.Email, &p.FullName, &p.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrProfileNotFound
	}
	if err != nil {
		return Profile{}, err
	}
	p.ID = id.String()
	return p, nil
}
