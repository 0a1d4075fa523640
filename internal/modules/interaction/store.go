package interaction

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store handles interactions persistence.
type Store struct {
	db *pgxpool.Pool
}

// NewStore returns a Store backed by the given connection pool.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Record(ctx context.Context, in *Interaction) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO interactions (id, session_id, kind, model, latency_ms, success, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, in.ID, in.SessionID, string(in.Kind), in.Model, in.LatencyMS, in.Success, in.Error, in.CreatedAt)
	return err
}

// ListBySession returns a session's interactions, oldest first.
func (s *Store) ListBySession(ctx context.Context, sessionID string) ([]Interaction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id::text, session_id, kind, model, latency_ms, success, error, created_at
		FROM interactions
		WHERE session_id = $1
		ORDER BY created_at ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Interaction
	for rows.Next() {
		var in Interaction
		var kind string
		if err := rows.Scan(&in.ID, &in.SessionID, &kind, &in.Model, &in.LatencyMS, &in.Success, &in.Error, &in.CreatedAt); err != nil {
			return nil, err
		}
		in.Kind = Kind(kind)
		out = append(out, in)
	}
	return out, rows.Err()
}
