package mariadb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kozaktomas/facescan/internal/database"
)

// Named face markers with an embedding. PhotoPrism stores marker embeddings
// as [[e1, e2, ...]] (JSON list-of-lists in a mediumblob).
const namedMarkers = `
	FROM markers m
	JOIN subjects s ON s.subj_uid = m.subj_uid
	WHERE m.marker_type = 'face'
	  AND m.marker_invalid = 0
	  AND s.subj_name <> ''
	  AND m.embeddings_json IS NOT NULL
	  AND LENGTH(m.embeddings_json) > 2
`

// MarkerReader exposes PhotoPrism's named face markers as a read-only profile.
// Every marker of a person becomes one reference under the person's name.
type MarkerReader struct {
	db *sql.DB
}

// decodeMarkerEmbedding unwraps the first embedding of a marker.
func decodeMarkerEmbedding(data []byte) ([]float32, error) {
	var wrapped [][]float32
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("unmarshal embedding: %w", err)
	}
	if len(wrapped) == 0 || len(wrapped[0]) == 0 {
		return nil, fmt.Errorf("empty embedding")
	}
	return wrapped[0], nil
}

// LoadReferences returns one reference per named marker ordered by name, then marker UID.
// Markers whose embedding cannot be decoded are skipped.
func (r *MarkerReader) LoadReferences(ctx context.Context) ([]database.StoredReference, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT m.marker_uid, s.subj_name, m.embeddings_json`+namedMarkers+`ORDER BY s.subj_name, m.marker_uid`)
	if err != nil {
		return nil, fmt.Errorf("query markers: %w", err)
	}
	defer rows.Close()

	var refs []database.StoredReference
	var id int64
	for rows.Next() {
		var markerUID, name string
		var raw []byte
		if err := rows.Scan(&markerUID, &name, &raw); err != nil {
			return nil, fmt.Errorf("scan marker: %w", err)
		}
		embedding, err := decodeMarkerEmbedding(raw)
		if err != nil {
			continue
		}
		id++
		refs = append(refs, database.StoredReference{
			ID:        id,
			Label:     name,
			Embedding: embedding,
			Source:    "photoprism:" + markerUID,
			Dim:       len(embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate markers: %w", err)
	}
	return refs, nil
}

// ListLabels returns one summary per named subject.
func (r *MarkerReader) ListLabels(ctx context.Context) ([]database.LabelSummary, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT s.subj_name, COUNT(*)`+namedMarkers+`GROUP BY s.subj_name ORDER BY s.subj_name`)
	if err != nil {
		return nil, fmt.Errorf("query subjects: %w", err)
	}
	defer rows.Close()

	var labels []database.LabelSummary
	for rows.Next() {
		var s database.LabelSummary
		if err := rows.Scan(&s.Label, &s.References); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		labels = append(labels, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subjects: %w", err)
	}
	return labels, nil
}

// Count returns the number of named markers with an embedding.
func (r *MarkerReader) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*)`+namedMarkers).Scan(&count); err != nil {
		return 0, fmt.Errorf("count markers: %w", err)
	}
	return count, nil
}

var _ database.ProfileReader = (*MarkerReader)(nil)
