package repository

import (
	"context"
	"errors"

	"leadtracker_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const listNotesQuery = `
	SELECT id, lead_id, content, created_at
	FROM lead_notes
	WHERE lead_id = ANY($1::uuid[])
	ORDER BY created_at ASC, id ASC`

// CreateNote appends a note to a lead.
func (r *Repository) CreateNote(ctx context.Context, leadID string, content string) (domain.Note, error) {
	id, err := uuid.Parse(leadID)
	if err != nil {
		return domain.Note{}, ErrNotFound
	}

	var (
		note   domain.Note
		noteID uuid.UUID
	)
	err = r.pool.QueryRow(ctx, `
		INSERT INTO lead_notes (lead_id, content)
		VALUES ($1, $2)
		RETURNING id, content, created_at
	`, id, content).Scan(&noteID, &note.Content, &note.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return domain.Note{}, ErrNotFound
		}
		return domain.Note{}, err
	}
	note.ID = noteID.String()
	return note, nil
}

// attachNotes loads the notes of every lead in one query.
func (r *Repository) attachNotes(ctx context.Context, leads []domain.Lead) error {
	if len(leads) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(leads))
	index := make(map[string]int, len(leads))
	for i := range leads {
		leads[i].Notes = []domain.Note{}
		parsed, err := uuid.Parse(leads[i].ID)
		if err != nil {
			continue
		}
		ids = append(ids, parsed)
		index[leads[i].ID] = i
	}

	rows, err := r.pool.Query(ctx, listNotesQuery, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			note   domain.Note
			noteID uuid.UUID
			leadID uuid.UUID
		)
		if err := rows.Scan(&noteID, &leadID, &note.Content, &note.CreatedAt); err != nil {
			return err
		}
		note.ID = noteID.String()
		if i, ok := index[leadID.String()]; ok {
			leads[i].Notes = append(leads[i].Notes, note)
		}
	}
	return rows.Err()
}
