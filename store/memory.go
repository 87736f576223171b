package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

type nameKey struct {
	parentID string
	kind     Kind
	name     string
}

// Memory is a Backend that keeps records in process memory.
type Memory struct {
	mu       sync.RWMutex
	registry *Registry
	records  map[string]*Record
	children map[string][]string
	names    map[nameKey]string
}

// NewMemory creates an empty Memory backend using DefaultRegistry.
func NewMemory() *Memory {
	return NewMemoryWithRegistry(DefaultRegistry())
}

// NewMemoryWithRegistry creates an empty Memory backend with a custom registry.
func NewMemoryWithRegistry(registry *Registry) *Memory {
	return &Memory{
		registry: registry,
		records:  make(map[string]*Record),
		children: make(map[string][]string),
		names:    make(map[nameKey]string),
	}
}

// NewID returns a random UUID.
func (m *Memory) NewID() string {
	return uuid.NewString()
}

// Create stores a new record.
func (m *Memory) Create(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[rec.ID]; exists {
		return errors.Wrapf(ErrAlreadyExists, "create %s %s", rec.Kind, rec.ID)
	}

	var parentKind Kind
	if rec.ParentID != "" {
		parent, ok := m.records[rec.ParentID]
		if !ok {
			return errors.Wrapf(ErrParentNotFound, "create %s %s", rec.Kind, rec.ID)
		}
		parentKind = parent.Kind
	}
	if !m.registry.Allows(parentKind, rec.Kind) {
		return errors.Wrapf(ErrUnknownRelationship, "%q cannot own %q", parentKind, rec.Kind)
	}

	key := nameKey{rec.ParentID, rec.Kind, rec.Name}
	if rec.Name != "" {
		if _, taken := m.names[key]; taken {
			return errors.Wrapf(ErrDuplicateValue, "%s %q", rec.Kind, rec.Name)
		}
	}

	now := time.Now().UTC().Truncate(time.Second)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	rec.Version = 1

	m.records[rec.ID] = rec.Clone()
	m.children[rec.ParentID] = append(m.children[rec.ParentID], rec.ID)
	if rec.Name != "" {
		m.names[key] = rec.ID
	}
	return nil
}

// Update replaces Type, Seq, UpdatedAt and Body of a stored record.
func (m *Memory) Update(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.records[rec.ID]
	if !ok {
		return errors.Wrapf(ErrNotFound, "update %s", rec.ID)
	}
	if current.Version != rec.Version {
		return errors.Wrapf(ErrConcurrentModification, "update %s: have version %d, stored %d",
			rec.ID, rec.Version, current.Version)
	}

	next := current.Clone()
	next.Type = rec.Type
	next.Seq = rec.Seq
	next.Body = append([]byte(nil), rec.Body...)
	next.UpdatedAt = rec.UpdatedAt
	if next.UpdatedAt.IsZero() {
		next.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	}
	if !rec.CreatedAt.IsZero() {
		next.CreatedAt = rec.CreatedAt
	}
	next.Version++

	m.records[rec.ID] = next
	rec.Version = next.Version
	return nil
}

// Get returns a copy of the record with the given id.
func (m *Memory) Get(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "get %s", id)
	}
	return rec.Clone(), nil
}

// Children returns copies of all children of parentID ordered by Seq.
func (m *Memory) Children(_ context.Context, parentID string) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.children[parentID]
	out := make([]*Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.records[id].Clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// Delete removes id and its descendants.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return nil
	}

	siblings := m.children[rec.ParentID]
	for i, sid := range siblings {
		if sid == id {
			m.children[rec.ParentID] = append(siblings[:i:i], siblings[i+1:]...)
			break
		}
	}

	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		r, ok := m.records[cur]
		if !ok {
			continue
		}
		queue = append(queue, m.children[cur]...)
		delete(m.children, cur)
		delete(m.records, cur)
		if r.Name != "" {
			delete(m.names, nameKey{r.ParentID, r.Kind, r.Name})
		}
	}
	return nil
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
