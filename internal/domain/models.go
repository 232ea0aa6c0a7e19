package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Identity is the display identity supplied at sign-in. It carries no
// authorization semantics.
type Identity struct {
	Email      string `json:"email"`
	ProfilePic string `json:"profile_pic,omitempty"`
}

// SessionInfo describes a live browsing session.
type SessionInfo struct {
	ID        uuid.UUID `json:"id"`
	Identity  Identity  `json:"identity"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SelectedFile is a file chosen into a slot, held in memory until submit.
type SelectedFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Size returns the file size in bytes.
func (f *SelectedFile) Size() int64 {
	return int64(len(f.Content))
}

// Extension returns the lowercase final dot-delimited segment of filename,
// or "" when the name has no dot.
func Extension(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}

// CheckExtension returns a *ValidationError when filename's extension is not
// in allowed. The comparison is case-insensitive.
func CheckExtension(policy SlotPolicy, filename string) error {
	ext := Extension(filename)
	for _, a := range policy.AllowedExtensions {
		if ext != "" && strings.EqualFold(a, ext) {
			return nil
		}
	}
	return &ValidationError{
		Slot:    policy.Role,
		Label:   policy.Label,
		Allowed: append([]string(nil), policy.AllowedExtensions...),
	}
}

// SubmissionPart is one named file of a SubmissionRequest.
type SubmissionPart struct {
	FieldName string
	File      *SelectedFile
}

// SubmissionRequest bundles the files of every non-empty slot, in slot order.
type SubmissionRequest struct {
	Parts []SubmissionPart
}

// NewSubmissionRequest builds a request from the selected files keyed by slot.
// Empty slots are omitted. It fails when the primary slot is empty.
func NewSubmissionRequest(selected map[SlotRole]*SelectedFile) (SubmissionRequest, error) {
	var req SubmissionRequest
	for _, p := range SlotPolicies {
		f := selected[p.Role]
		if f == nil {
			if p.Required {
				return SubmissionRequest{}, ErrMissingRequiredFile
			}
			continue
		}
		req.Parts = append(req.Parts, SubmissionPart{FieldName: p.FieldName, File: f})
	}
	return req, nil
}
