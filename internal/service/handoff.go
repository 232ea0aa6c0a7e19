package service

import (
	"sync"

	"github.com/google/uuid"

	"sofdesk/internal/domain"
)

// Handoff is the single-use transfer of a freshly extracted record list from
// the Submission Controller to a new results view.
type Handoff struct {
	token   uuid.UUID
	mu      sync.Mutex
	records []*domain.Record
	taken   bool
}

// NewHandoff wraps records for a one-time transfer.
func NewHandoff(records []*domain.Record) *Handoff {
	return &Handoff{token: uuid.New(), records: records}
}

// Token identifies the handoff in the navigation to the results view.
func (h *Handoff) Token() string {
	return h.token.String()
}

// Len returns the number of records carried, or 0 once taken.
func (h *Handoff) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

// Take hands the records over. Only the first call returns them.
func (h *Handoff) Take() ([]*domain.Record, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.taken {
		return nil, false
	}
	h.taken = true
	records := h.records
	h.records = nil
	return records, true
}
