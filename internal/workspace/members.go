package workspace

import (
	"context"

	"leadtracker_backend/internal/identity"
	"leadtracker_backend/internal/leads/repository"
	"leadtracker_backend/internal/leads/views"
)

// ProfileStore is the identity store as the workspace needs it.
type ProfileStore interface {
	identity.ProfileSource
	ListProfiles(ctx context.Context) ([]repository.Profile, error)
}

// profileMembers adapts the profile store to the team view's member source.
type profileMembers struct {
	profiles ProfileStore
}

func (m profileMembers) ListMembers(ctx context.Context) ([]views.Member, error) {
	profiles, err := m.profiles.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}

	members := make([]views.Member, 0, len(profiles))
	for _, p := range profiles {
		name := p.FullName
		if name == "" {
			name = p.Email
		}
		members = append(members, views.Member{
			ID:    p.ID,
			Name:  name,
			Email: p.Email,
			Role:  identity.NormalizeRole(p.Role),
		})
	}
	return members, nil
}
