// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/kozaktomas/facescan/internal/database"
)

// MockProfileStore is an in-memory implementation of database.ProfileWriter
type MockProfileStore struct {
	mu     sync.RWMutex
	refs   map[string][]database.StoredReference
	nextID int64

	// Error injection
	LoadError    error
	ListError    error
	CountError   error
	ReplaceError error
	DeleteError  error
}

// NewMockProfileStore creates a new empty mock profile store
func NewMockProfileStore() *MockProfileStore {
	return &MockProfileStore{
		refs: make(map[string][]database.StoredReference),
	}
}

// AddReference adds a single reference to the mock store
func (m *MockProfileStore) AddReference(label string, embedding []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.refs[label] = append(m.refs[label], database.StoredReference{
		ID:        m.nextID,
		Label:     label,
		Embedding: embedding,
		Dim:       len(embedding),
	})
}

func (m *MockProfileStore) sortedLabels() []string {
	labels := make([]string, 0, len(m.refs))
	for label := range m.refs {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// LoadReferences returns every reference ordered by label, then ID
func (m *MockProfileStore) LoadReferences(ctx context.Context) ([]database.StoredReference, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []database.StoredReference
	for _, label := range m.sortedLabels() {
		out = append(out, m.refs[label]...)
	}
	return out, nil
}

// ListLabels returns one summary per label
func (m *MockProfileStore) ListLabels(ctx context.Context) ([]database.LabelSummary, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]database.LabelSummary, 0, len(m.refs))
	for _, label := range m.sortedLabels() {
		out = append(out, database.LabelSummary{Label: label, References: len(m.refs[label])})
	}
	return out, nil
}

// Count returns the total number of references
func (m *MockProfileStore) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, refs := range m.refs {
		n += len(refs)
	}
	return n, nil
}

// ReplaceLabel replaces all references for a label
func (m *MockProfileStore) ReplaceLabel(ctx context.Context, label string, refs []database.StoredReference) error {
	if m.ReplaceError != nil {
		return m.ReplaceError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]database.StoredReference, 0, len(refs))
	for _, ref := range refs {
		m.nextID++
		ref.ID = m.nextID
		ref.Label = label
		ref.Dim = len(ref.Embedding)
		stored = append(stored, ref)
	}
	m.refs[label] = stored
	return nil
}

// DeleteLabel removes a label and returns how many references were removed
func (m *MockProfileStore) DeleteLabel(ctx context.Context, label string) (int64, error) {
	if m.DeleteError != nil {
		return 0, m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.refs[label]))
	delete(m.refs, label)
	return n, nil
}

var _ database.ProfileWriter = (*MockProfileStore)(nil)
