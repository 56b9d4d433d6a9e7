package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"leadtracker_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

// ListQuery narrows List. An empty MemberID lists every lead.
type ListQuery struct {
	MemberID string
}

// CreateParams carries a validated lead to be inserted.
type CreateParams struct {
	Lead      domain.NewLead
	CreatedBy string
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `id, name, company, source, contact, profile_url, context, tags, estimated_value,
	status, priority, next_action, next_action_date, created_by, assigned_to, created_at, updated_at`

const listLeadsQuery = `SELECT ` + leadColumns + ` FROM leads`

// memberScopePredicate restricts rows to those a member created or is assigned to.
const memberScopePredicate = `(created_by = $1 OR assigned_to = $1)`

const listOrder = ` ORDER BY created_at DESC, id`

// buildListQuery returns the SQL and arguments for q.
func buildListQuery(q ListQuery) (string, []any, error) {
	if strings.TrimSpace(q.MemberID) == "" {
		return listLeadsQuery + listOrder, nil, nil
	}
	memberID, err := uuid.Parse(q.MemberID)
	if err != nil {
		return "", nil, fmt.Errorf("invalid member id %q: %w", q.MemberID, err)
	}
	return listLeadsQuery + ` WHERE ` + memberScopePredicate + listOrder, []any{memberID}, nil
}

// List returns leads newest first with their notes in insertion order.
func (r *Repository) List(ctx context.Context, q ListQuery) ([]domain.Lead, error) {
	query, args, err := buildListQuery(q)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	if err := r.attachNotes(ctx, leads); err != nil {
		return nil, err
	}
	return leads, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (domain.Lead, error) {
	leadID, err := uuid.Parse(id)
	if err != nil {
		return domain.Lead{}, ErrNotFound
	}

	lead, err := scanLead(r.pool.QueryRow(ctx, listLeadsQuery+` WHERE id = $1`, leadID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	if err != nil {
		return domain.Lead{}, err
	}

	leads := []domain.Lead{lead}
	if err := r.attachNotes(ctx, leads); err != nil {
		return domain.Lead{}, err
	}
	return leads[0], nil
}

func (r *Repository) Create(ctx context.Context, params CreateParams) (domain.Lead, error) {
	createdBy, err := uuid.Parse(params.CreatedBy)
	if err != nil {
		return domain.Lead{}, fmt.Errorf("invalid creator id: %w", err)
	}
	assignedTo, err := parseOptionalID(params.Lead.AssignedTo)
	if err != nil {
		return domain.Lead{}, fmt.Errorf("invalid assignee id: %w", err)
	}

	in := params.Lead
	status := in.Status.Normalize()
	if status == "" {
		status = domain.StatusNew
	}
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	var nextActionDate time.Time
	if in.NextActionDate != nil {
		nextActionDate = *in.NextActionDate
	}

	lead, err := scanLead(r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			name, company, source, contact, profile_url, context, tags, estimated_value,
			status, priority, next_action, next_action_date, created_by, assigned_to
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING `+leadColumns,
		in.Name, in.Company, string(in.Source), in.Contact, in.ProfileURL, in.Context, tags, in.EstimatedValue,
		string(status), priorityArg(in.Priority), in.NextAction, nextActionDate, createdBy, assignedTo,
	))
	if err != nil {
		return domain.Lead{}, err
	}
	lead.Notes = []domain.Note{}
	return lead, nil
}

// buildUpdate returns the SET clause and arguments for patch. The lead id is
// always the first argument.
func buildUpdate(patch domain.Patch) (string, []any, error) {
	sets := make([]string, 0, 14)
	args := make([]any, 0, 14)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)+1))
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Company != nil {
		add("company", *patch.Company)
	}
	if patch.Source != nil {
		add("source", string(*patch.Source))
	}
	if patch.Contact != nil {
		add("contact", *patch.Contact)
	}
	if patch.ProfileURL != nil {
		add("profile_url", *patch.ProfileURL)
	}
	if patch.Context != nil {
		add("context", *patch.Context)
	}
	if patch.Tags != nil {
		add("tags", patch.Tags)
	}
	if patch.EstimatedValue != nil {
		add("estimated_value", *patch.EstimatedValue)
	}
	if patch.Status != nil {
		add("status", string(patch.Status.Normalize()))
	}
	if patch.Priority != nil {
		add("priority", priorityArg(patch.Priority))
	}
	if patch.NextAction != nil {
		add("next_action", *patch.NextAction)
	}
	if patch.NextActionDate != nil {
		add("next_action_date", *patch.NextActionDate)
	}
	if patch.AssignedTo != nil {
		assignee, err := parseOptionalID(patch.AssignedTo)
		if err != nil {
			return "", nil, fmt.Errorf("invalid assignee id: %w", err)
		}
		add("assigned_to", assignee)
	}

	sets = append(sets, "updated_at = GREATEST(now(), created_at)")
	return strings.Join(sets, ", "), args, nil
}

func (r *Repository) Update(ctx context.Context, id string, patch domain.Patch) (domain.Lead, error) {
	leadID, err := uuid.Parse(id)
	if err != nil {
		return domain.Lead{}, ErrNotFound
	}

	set, args, err := buildUpdate(patch)
	if err != nil {
		return domain.Lead{}, err
	}

	lead, err := scanLead(r.pool.QueryRow(ctx,
		`UPDATE leads SET `+set+` WHERE id = $1 RETURNING `+leadColumns,
		append([]any{leadID}, args...)...,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	if err != nil {
		return domain.Lead{}, err
	}

	leads := []domain.Lead{lead}
	if err := r.attachNotes(ctx, leads); err != nil {
		return domain.Lead{}, err
	}
	return leads[0], nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	leadID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	result, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, leadID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanLead(row pgx.Row) (domain.Lead, error) {
	var (
		lead       domain.Lead
		id         uuid.UUID
		source     string
		status     string
		priority   *string
		createdBy  *uuid.UUID
		assignedTo *uuid.UUID
	)
	err := row.Scan(
		&id, &lead.Name, &lead.Company, &source, &lead.Contact, &lead.ProfileURL, &lead.Context, &lead.Tags, &lead.EstimatedValue,
		&status, &priority, &lead.NextAction, &lead.NextActionDate, &createdBy, &assignedTo, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return domain.Lead{}, err
	}

	lead.ID = id.String()
	lead.Source = domain.Source(source)
	lead.Status = domain.Status(status).Normalize()
	if priority != nil {
		p := domain.Priority(*priority)
		lead.Priority = &p
	}
	if createdBy != nil {
		lead.CreatedBy = createdBy.String()
	}
	if assignedTo != nil {
		s := assignedTo.String()
		lead.AssignedTo = &s
	}
	if lead.Tags == nil {
		lead.Tags = []string{}
	}
	return lead, nil
}

func priorityArg(p *domain.Priority) *string {
	if p == nil || *p == "" {
		return nil
	}
	s := string(*p)
	return &s
}

// parseOptionalID treats nil and empty strings as SQL NULL.
func parseOptionalID(id *string) (*uuid.UUID, error) {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil, nil
	}
	parsed, err := uuid.Parse(*id)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
