// Package profile loads the labeled reference embeddings used for identity matching.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kozaktomas/facescan/internal/database"
	"github.com/kozaktomas/facescan/internal/face"
	"gopkg.in/yaml.v3"
)

var (
	ErrNoSource          = errors.New("no profile source configured: set PROFILE_PATH, PHOTOPRISM_DATABASE_URL or DATABASE_URL")
	ErrEmptyLabel        = errors.New("profile contains an empty label")
	ErrReservedLabel     = errors.New("profile label is reserved for unmatched faces")
	ErrEmptyEmbedding    = errors.New("profile contains an empty embedding")
	ErrInconsistentDim   = errors.New("profile embeddings have inconsistent dimensions")
	ErrUnsupportedFormat = errors.New("unsupported profile format")
)

// Format is a profile file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the file format from the extension. Anything that is
// not .yaml or .yml is read as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Parse decodes a label -> [][]float32 document and validates it.
func Parse(data []byte, format Format) (face.Profile, error) {
	var raw map[string][][]float32
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse JSON profile: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse YAML profile: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	p := make(face.Profile, len(raw))
	for label, refs := range raw {
		embeddings := make([]face.Embedding, 0, len(refs))
		for _, r := range refs {
			embeddings = append(embeddings, face.Embedding(r))
		}
		p[label] = embeddings
	}

	if _, err := Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadFile reads and validates a profile file.
func LoadFile(path string) (face.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile %s: %w", path, err)
	}
	return Parse(data, FormatFromPath(path))
}

// LoadStore reads every stored reference and groups them by label.
func LoadStore(ctx context.Context, store database.ProfileReader) (face.Profile, error) {
	refs, err := store.LoadReferences(ctx)
	if err != nil {
		return nil, fmt.Errorf("load references: %w", err)
	}
	p := FromReferences(refs)
	if _, err := Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Load reads the profile from path when set, otherwise from store.
func Load(ctx context.Context, path string, store database.ProfileReader) (face.Profile, error) {
	if path != "" {
		return LoadFile(path)
	}
	if store == nil {
		return nil, ErrNoSource
	}
	return LoadStore(ctx, store)
}

// Validate checks labels and embeddings and returns the shared dimension.
// An empty profile is valid and reports dimension 0.
func Validate(p face.Profile) (int, error) {
	dim := 0
	for _, label := range Labels(p) {
		if strings.TrimSpace(label) == "" {
			return 0, ErrEmptyLabel
		}
		if label == face.UnknownLabel {
			return 0, fmt.Errorf("%w: %q", ErrReservedLabel, label)
		}
		for i, e := range p[label] {
			if len(e) == 0 {
				return 0, fmt.Errorf("%w: %s[%d]", ErrEmptyEmbedding, label, i)
			}
			if dim == 0 {
				dim = len(e)
			} else if len(e) != dim {
				return 0, fmt.Errorf("%w: %s[%d] has %d, expected %d", ErrInconsistentDim, label, i, len(e), dim)
			}
		}
	}
	return dim, nil
}

// Labels returns the profile labels in sorted order.
func Labels(p face.Profile) []string {
	labels := make([]string, 0, len(p))
	for label := range p {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// FromReferences groups stored references by label, keeping their order.
func FromReferences(refs []database.StoredReference) face.Profile {
	p := make(face.Profile)
	for _, ref := range refs {
		p[ref.Label] = append(p[ref.Label], face.Embedding(ref.Embedding))
	}
	return p
}

// ToReferences flattens a profile into stored references, sorted by label.
// IDs are assigned sequentially from 1.
func ToReferences(p face.Profile, source string) []database.StoredReference {
	refs := make([]database.StoredReference, 0, p.Count())
	var id int64
	for _, label := range Labels(p) {
		for _, e := range p[label] {
			id++
			refs = append(refs, database.StoredReference{
				ID:        id,
				Label:     label,
				Embedding: e,
				Source:    source,
				Dim:       len(e),
			})
		}
	}
	return refs
}
