package service

import (
	"context"
	"errors"
	"log"
	"sync"

	"sofdesk/internal/domain"
	"sofdesk/internal/port"
)

// SlotView is the externally visible state of one slot.
type SlotView struct {
	domain.SlotPolicy
	Filename string `json:"filename,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// SubmissionView is the externally visible state of the controller.
type SubmissionView struct {
	State   domain.SubmissionState `json:"state"`
	Slots   []SlotView             `json:"slots"`
	Message string                 `json:"message,omitempty"`
}

// SubmissionOutcome is the result of a successful submit.
type SubmissionOutcome struct {
	Handoff *Handoff
	Message string
}

// SubmissionController validates the three file slots and submits them to
// the extraction service, one request at a time.
type SubmissionController struct {
	extractor port.Extractor

	mu      sync.Mutex
	slots   map[domain.SlotRole]*domain.SelectedFile
	state   domain.SubmissionState
	message string
}

// NewSubmissionController creates an idle controller with every slot empty.
func NewSubmissionController(extractor port.Extractor) *SubmissionController {
	return &SubmissionController{
		extractor: extractor,
		slots:     make(map[domain.SlotRole]*domain.SelectedFile),
		state:     domain.SubmissionIdle,
	}
}

// Select puts file into the slot after checking its extension against the
// slot's allow-list. A nil file clears the slot. A rejected file leaves the
// slot empty and sets the inline message.
func (c *SubmissionController) Select(role domain.SlotRole, file *domain.SelectedFile) error {
	policy, ok := domain.PolicyFor(role)
	if !ok {
		return domain.ErrUnknownSlot
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if file == nil {
		delete(c.slots, role)
		return nil
	}

	if err := domain.CheckExtension(policy, file.Filename); err != nil {
		delete(c.slots, role)
		c.message = err.Error()
		return err
	}

	c.slots[role] = file
	c.message = ""
	return nil
}

// Selected returns the file in a slot, if any.
func (c *SubmissionController) Selected(role domain.SlotRole) (*domain.SelectedFile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.slots[role]
	return f, ok
}

// State returns the current lifecycle state.
func (c *SubmissionController) State() domain.SubmissionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Message returns the current inline message.
func (c *SubmissionController) Message() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message
}

// DismissMessage clears the inline message.
func (c *SubmissionController) DismissMessage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.message = ""
}

// View returns a snapshot of state, slots and message.
func (c *SubmissionController) View() SubmissionView {
	c.mu.Lock()
	defer c.mu.Unlock()

	view := SubmissionView{State: c.state, Message: c.message}
	for _, p := range domain.SlotPolicies {
		sv := SlotView{SlotPolicy: p}
		if f := c.slots[p.Role]; f != nil {
			sv.Filename = f.Filename
			sv.Size = f.Size()
		}
		view.Slots = append(view.Slots, sv)
	}
	return view
}

// Submit sends the selected files to the extraction service. It fails with
// domain.ErrMissingRequiredFile, without any network call, when the primary
// slot is empty, and with domain.ErrSubmissionInProgress while another
// submit is pending. On success the records travel in a single-use Handoff.
func (c *SubmissionController) Submit(ctx context.Context) (*SubmissionOutcome, error) {
	c.mu.Lock()
	if c.state == domain.SubmissionSubmitting {
		c.mu.Unlock()
		return nil, domain.ErrSubmissionInProgress
	}
	req, err := domain.NewSubmissionRequest(c.slots)
	if err != nil {
		c.message = err.Error()
		c.mu.Unlock()
		return nil, err
	}
	c.state = domain.SubmissionSubmitting
	c.message = ""
	c.mu.Unlock()

	result, err := c.extractor.Extract(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = domain.SubmissionIdle
	if err != nil {
		c.message = userMessage(err)
		log.Printf("submissionController.Submit: extraction failed: %v", err)
		return nil, err
	}

	log.Printf("submissionController.Submit: received %d record(s)", len(result.Records))
	return &SubmissionOutcome{
		Handoff: NewHandoff(result.Records),
		Message: result.Message,
	}, nil
}

func userMessage(err error) string {
	var svcErr *domain.ServiceError
	switch {
	case errors.As(err, &svcErr):
		return svcErr.Error()
	case errors.Is(err, domain.ErrMalformedResponse):
		return domain.ErrMalformedResponse.Error()
	case errors.Is(err, domain.ErrServiceUnreachable):
		return domain.ErrServiceUnreachable.Error()
	default:
		return "document processing failed"
	}
}
