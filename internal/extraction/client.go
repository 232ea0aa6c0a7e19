package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"sofdesk/internal/config"
	"sofdesk/internal/domain"
	"sofdesk/internal/port"
)

// Client implements port.Extractor against the document extraction service's
// multipart endpoint.
type Client struct {
	endpoint string
	client   *http.Client
}

// NewClient creates an extraction client from config.
func NewClient(cfg *config.ExtractionConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint(),
		client:   &http.Client{Timeout: timeout},
	}
}

// Extract posts every part of req in one multipart request. Optional slots
// absent from req are not sent at all.
func (c *Client) Extract(ctx context.Context, req domain.SubmissionRequest) (*port.ExtractionResult, error) {
	body, contentType, err := buildMultipart(req)
	if err != nil {
		return nil, fmt.Errorf("building multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	log.Printf("extraction.Extract: posting %d file(s) to %s", len(req.Parts), c.endpoint)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrServiceUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", domain.ErrServiceUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.ServiceError{Status: resp.StatusCode, Detail: parseDetail(respBody)}
	}

	return parseEnvelope(respBody)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func buildMultipart(req domain.SubmissionRequest) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for _, p := range req.Parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(p.FieldName), quoteEscaper.Replace(p.File.Filename)))
		ct := p.File.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(p.File.Content); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

// envelope models the extraction service success response.
type envelope struct {
	Message       string            `json:"message"`
	ProcessedData *[]*domain.Record `json:"processed_data"`
}

func parseEnvelope(body []byte) (*port.ExtractionResult, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v (raw: %s)", domain.ErrMalformedResponse, err, truncate(string(body), 200))
	}
	if env.ProcessedData == nil {
		return nil, fmt.Errorf("%w: missing processed_data", domain.ErrMalformedResponse)
	}

	records := *env.ProcessedData
	seen := make(map[string]bool, len(records))
	for i, r := range records {
		if r == nil {
			return nil, fmt.Errorf("%w: record %d is null", domain.ErrMalformedResponse, i)
		}
		id := r.ID()
		if id == "" {
			return nil, fmt.Errorf("%w: record %d has no id", domain.ErrMalformedResponse, i)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: duplicate record id %q", domain.ErrMalformedResponse, id)
		}
		seen[id] = true
	}

	return &port.ExtractionResult{Message: env.Message, Records: records}, nil
}

// parseDetail extracts the service's detail message. A non-string detail
// (e.g. a list of validation errors) is returned as compact JSON; a body
// that is not a detail envelope is returned truncated.
func parseDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return truncate(strings.TrimSpace(string(body)), 500)
	}
	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		return s
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, payload.Detail); err != nil {
		return string(payload.Detail)
	}
	return compact.String()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
