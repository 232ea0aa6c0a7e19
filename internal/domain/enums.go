package domain

// SlotRole identifies one of the three fixed upload slots.
type SlotRole string

const (
	SlotPrimary       SlotRole = "primary"
	SlotSecondary     SlotRole = "secondary"
	SlotSupplementary SlotRole = "supplementary"
)

// SlotPolicy describes a slot's multipart field name, label and allow-list.
type SlotPolicy struct {
	Role              SlotRole `json:"role"`
	FieldName         string   `json:"field_name"`
	Label             string   `json:"label"`
	Required          bool     `json:"required"`
	AllowedExtensions []string `json:"allowed_extensions"`
}

// SlotPolicies lists the slots in submission order.
var SlotPolicies = []SlotPolicy{
	{
		Role:              SlotPrimary,
		FieldName:         "sof_file",
		Label:             "Statement of Facts",
		Required:          true,
		AllowedExtensions: []string{"pdf", "docx"},
	},
	{
		Role:              SlotSecondary,
		FieldName:         "cp_file",
		Label:             "Charter Party document",
		AllowedExtensions: []string{"pdf", "docx"},
	},
	{
		Role:              SlotSupplementary,
		FieldName:         "additional_file",
		Label:             "Additional document",
		AllowedExtensions: []string{"pdf", "docx", "txt"},
	},
}

// PolicyFor returns the policy of the given slot role.
func PolicyFor(role SlotRole) (SlotPolicy, bool) {
	for _, p := range SlotPolicies {
		if p.Role == role {
			return p, true
		}
	}
	return SlotPolicy{}, false
}

// SubmissionState is the Submission Controller's lifecycle state.
type SubmissionState string

const (
	SubmissionIdle       SubmissionState = "idle"
	SubmissionSubmitting SubmissionState = "submitting"
)

// ExportFormat is a downloadable representation of the result set.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportJSON ExportFormat = "json"
	ExportXLSX ExportFormat = "xlsx"
)

// ExportContentTypes maps each format to the Content-Type it is served with.
var ExportContentTypes = map[ExportFormat]string{
	ExportCSV:  "text/csv; charset=utf-8",
	ExportJSON: "application/json; charset=utf-8",
	ExportXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}
