package service

import (
	"sync"

	"sofdesk/internal/domain"
)

// ResultView is a consistent snapshot of the store for rendering.
type ResultView struct {
	Columns []string         `json:"columns"`
	Records []*domain.Record `json:"records"`
	Editing *domain.Record   `json:"editing,omitempty"`
}

// ResultStore owns the in-memory result set of one results view, plus the
// edit buffer of the record being edited. Every mutation is applied under
// the store's lock, so readers never see a half-applied change.
type ResultStore struct {
	mu      sync.RWMutex
	records []*domain.Record
	buffer  *domain.Record
}

// NewResultStore constructs a view's store. When handoff is non-nil its
// records are taken; otherwise, or if the handoff was already taken, the
// store starts empty.
func NewResultStore(handoff *Handoff) *ResultStore {
	s := &ResultStore{}
	if handoff != nil {
		if records, ok := handoff.Take(); ok {
			s.Initialize(records)
		}
	}
	return s
}

// Initialize replaces the whole result set and discards any edit buffer.
func (s *ResultStore) Initialize(records []*domain.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append([]*domain.Record(nil), records...)
	s.buffer = nil
}

// Len returns the number of records.
func (s *ResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Records returns the records in order. The slice is a copy; the records
// are shared and must not be mutated by callers.
func (s *ResultStore) Records() []*domain.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*domain.Record(nil), s.records...)
}

// Columns derives the display columns from the current first record.
func (s *ResultStore) Columns() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.DeriveColumns(s.records)
}

// View returns columns, records and edit buffer from the same instant.
func (s *ResultStore) View() ResultView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	view := ResultView{
		Columns: domain.DeriveColumns(s.records),
		Records: append([]*domain.Record{}, s.records...),
	}
	if s.buffer != nil {
		view.Editing = s.buffer.Clone()
	}
	return view
}

// BeginEdit snapshots the record with the given id into the edit buffer,
// replacing any edit already in progress. The result set is not touched.
func (s *ResultStore) BeginEdit(id string) (*domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, domain.ErrRecordNotFound
	}
	s.buffer = s.records[i].Clone()
	return s.buffer.Clone(), nil
}

// EditBuffer returns a copy of the edit buffer.
func (s *ResultStore) EditBuffer() (*domain.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.buffer == nil {
		return nil, false
	}
	return s.buffer.Clone(), true
}

// UpdateBuffer sets one field of the edit buffer. Values are opaque text.
// The id field cannot be changed and no field can be added, so every record
// keeps the field names of the set.
func (s *ResultStore) UpdateBuffer(field, value string) (*domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buffer == nil {
		return nil, domain.ErrNoActiveEdit
	}
	if field == domain.IDField {
		return nil, domain.ErrImmutableField
	}
	if _, ok := s.buffer.Get(field); !ok {
		return nil, domain.ErrUnknownField
	}
	s.buffer.SetText(field, value)
	return s.buffer.Clone(), nil
}

// CancelEdit discards the edit buffer.
func (s *ResultStore) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer = nil
}

// CommitEdit replaces the record whose id matches the buffer with the
// buffer's contents, in place. Other records keep their identity and order.
// If the record is gone the commit is a no-op. The buffer is discarded
// either way. It reports whether a record was replaced.
func (s *ResultStore) CommitEdit() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buffer == nil {
		return false, domain.ErrNoActiveEdit
	}
	buf := s.buffer
	s.buffer = nil

	i := s.indexOf(buf.ID())
	if i < 0 {
		return false, nil
	}
	records := append([]*domain.Record(nil), s.records...)
	records[i] = buf
	s.records = records
	return true, nil
}

// Delete removes the record with the given id, keeping the order of the
// rest. An unknown id is a no-op. It reports whether a record was removed.
func (s *ResultStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	records := make([]*domain.Record, 0, len(s.records)-1)
	records = append(records, s.records[:i]...)
	records = append(records, s.records[i+1:]...)
	s.records = records
	return true
}

// ClearAll empties the result set. It does nothing and returns
// domain.ErrConfirmationRequired unless confirmed is true.
func (s *ResultStore) ClearAll(confirmed bool) error {
	if !confirmed {
		return domain.ErrConfirmationRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.buffer = nil
	return nil
}

func (s *ResultStore) indexOf(id string) int {
	for i, r := range s.records {
		if r.ID() == id {
			return i
		}
	}
	return -1
}
