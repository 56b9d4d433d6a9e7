package views

import (
	"context"

	"leadtracker_backend/internal/leads/cache"
	"leadtracker_backend/internal/leads/domain"

	"golang.org/x/sync/errgroup"
)

// MemberSource lists the team.
type MemberSource interface {
	ListMembers(ctx context.Context) ([]Member, error)
}

// Refresher brings the cache up to date for a requester.
type Refresher interface {
	Fetch(ctx context.Context, req domain.Requester, force bool) error
}

// Team builds the per-member view for administrators.
type Team struct {
	members MemberSource
	leads   Refresher
	cache   *cache.Store
}

func NewTeam(members MemberSource, leads Refresher, store *cache.Store) *Team {
	return &Team{members: members, leads: leads, cache: store}
}

// Summaries loads the member list and refreshes the leads concurrently, then
// counts leads per member.
func (t *Team) Summaries(ctx context.Context, req domain.Requester) ([]TeamMember, error) {
	var members []Member

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := t.members.ListMembers(gctx)
		if err != nil {
			return err
		}
		members = list
		return nil
	})
	g.Go(func() error {
		return t.leads.Fetch(gctx, req, false)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows, _ := t.cache.Read()
	return CountsByMember(rows, members), nil
}
