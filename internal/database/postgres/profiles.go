package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/facescan/internal/database"
	"github.com/pgvector/pgvector-go"
)

// ProfileRepository provides PostgreSQL-backed storage for labeled reference embeddings
type ProfileRepository struct {
	pool *Pool
}

// NewProfileRepository creates a new PostgreSQL profile repository
func NewProfileRepository(pool *Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// LoadReferences returns every stored reference ordered by label, then insertion order
func (r *ProfileRepository) LoadReferences(ctx context.Context) ([]database.StoredReference, error) {
	query := `
		SELECT id, label, embedding, dim, source, created_at
		FROM face_profiles
		ORDER BY label, id
	`

	rows, err := r.pool.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query references: %w", err)
	}
	defer rows.Close()

	var refs []database.StoredReference
	for rows.Next() {
		var ref database.StoredReference
		var vec pgvector.Vector
		if err := rows.Scan(&ref.ID, &ref.Label, &vec, &ref.Dim, &ref.Source, &ref.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reference: %w", err)
		}
		ref.Embedding = vec.Slice()
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate references: %w", err)
	}

	return refs, nil
}

// ListLabels returns one summary row per label
func (r *ProfileRepository) ListLabels(ctx context.Context) ([]database.LabelSummary, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT label, COUNT(*)
		FROM face_profiles
		GROUP BY label
		ORDER BY label
	`)
	if err != nil {
		return nil, fmt.Errorf("query labels: %w", err)
	}
	defer rows.Close()

	var labels []database.LabelSummary
	for rows.Next() {
		var s database.LabelSummary
		if err := rows.Scan(&s.Label, &s.References); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		labels = append(labels, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate labels: %w", err)
	}
	return labels, nil
}

// Count returns the total number of stored references
func (r *ProfileRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM face_profiles").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count references: %w", err)
	}
	return count, nil
}

// ReplaceLabel atomically swaps all references stored under label
func (r *ProfileRepository) ReplaceLabel(ctx context.Context, label string, refs []database.StoredReference) error {
	if label == "" {
		return errors.New("label is required")
	}

	tx, err := r.pool.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction for %s: %w", label, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM face_profiles WHERE label = $1", label); err != nil {
		return fmt.Errorf("delete references for %s: %w", label, err)
	}

	for i, ref := range refs {
		if len(ref.Embedding) == 0 {
			return fmt.Errorf("reference %d for %s has no embedding", i, label)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO face_profiles (label, embedding, dim, source)
			VALUES ($1, $2, $3, $4)
		`, label, pgvector.NewVector(ref.Embedding), len(ref.Embedding), ref.Source)
		if err != nil {
			return fmt.Errorf("insert reference %d for %s: %w", i, label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit references for %s: %w", label, err)
	}
	return nil
}

// DeleteLabel removes every reference stored under label
func (r *ProfileRepository) DeleteLabel(ctx context.Context, label string) (int64, error) {
	result, err := r.pool.db.ExecContext(ctx, "DELETE FROM face_profiles WHERE label = $1", label)
	if err != nil {
		return 0, fmt.Errorf("delete label %s: %w", label, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

var _ database.ProfileWriter = (*ProfileRepository)(nil)
