package database

import (
	"context"
)

// ProfileReader provides read-only access to the reference profile
type ProfileReader interface {
	// LoadReferences returns every stored reference ordered by label, then ID
	LoadReferences(ctx context.Context) ([]StoredReference, error)
	// ListLabels returns one summary per label ordered by label
	ListLabels(ctx context.Context) ([]LabelSummary, error)
	// Count returns the total number of references stored
	Count(ctx context.Context) (int, error)
}

// ProfileWriter provides write access to the reference profile.
// Only the profile import command writes; enrollment never does.
type ProfileWriter interface {
	ProfileReader

	// ReplaceLabel stores the references for a label, replacing existing ones
	ReplaceLabel(ctx context.Context, label string, refs []StoredReference) error
	// DeleteLabel removes all references for a label
	DeleteLabel(ctx context.Context, label string) (int64, error)
}
