package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrNotConfigured is returned when no API key is set
	ErrNotConfigured = errors.New("gemini API key not configured")
	// ErrUpstream is returned when the model API fails or responds malformed
	ErrUpstream = errors.New("upstream model error")
	// ErrEmptyInput is returned when no source text is provided
	ErrEmptyInput = errors.New("no input text provided")
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client calls the Gemini generateContent REST API. The zero API key makes
// every call fail with ErrNotConfigured so the service can run without AI
// assist.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Entry
}

// NewClient creates a Gemini client
func NewClient(apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logrus.WithField("component", "ai"),
	}
}

// WithBaseURL overrides the API endpoint, used in tests
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// Configured reports whether an API key is present
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// DraftInput describes the SOP to draft
type DraftInput struct {
	Title      string `json:"title"`
	Department string `json:"department"`
	Outline    string `json:"outline,omitempty"`
}

// CleanInput holds source content to standardize
type CleanInput struct {
	Department string `json:"department,omitempty"`
	TextMD     string `json:"text_md,omitempty"`
	TextHTML   string `json:"text_html,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// Draft generates a fresh SOP draft in the standard section format
func (c *Client) Draft(ctx context.Context, input DraftInput) (string, error) {
	outline := input.Outline
	if outline == "" {
		outline = "(none)"
	}
	prompt := fmt.Sprintf(`You are an expert SOP writer. Create a clean SOP draft in the Standard SOP Format.
Input:
- Title: %s
- Department: %s
- Outline (optional): %s
Output:
- Use headings (Purpose, Scope, Roles & RACI, Prerequisites, Tools & Access, Procedure with numbered steps, Quality Standard / Acceptance Criteria, Common Errors & Fixes, Templates & Links, Change Log, Next Review).
- Use imperative voice. Keep steps concise and unambiguous.`,
		input.Title, input.Department, outline)

	return c.generate(ctx, prompt)
}

// Clean rewrites existing content into the standard SOP section format
func (c *Client) Clean(ctx context.Context, input CleanInput) (string, error) {
	source := input.TextMD
	if source == "" {
		source = input.TextHTML
	}
	if source == "" {
		return "", ErrEmptyInput
	}

	department := input.Department
	if department == "" {
		department = "(unspecified)"
	}
	notes := input.Notes
	if notes == "" {
		notes = "(none)"
	}

	prompt := fmt.Sprintf(`You are an SOP standardizer. Rewrite the provided content into the Standard SOP Format sections.
Department: %s
Guidelines: Use imperative voice, concise numbered steps, QA criteria, and keep tables/bullets where helpful.
Additional notes: %s

CONTENT START
%s
CONTENT END
Return clean markdown/plain text with clear section headings.`,
		department, notes, source)

	return c.generate(ctx, prompt)
}

// Summarize condenses an improvement suggestion into a short summary for
// reviewers
func (c *Client) Summarize(ctx context.Context, rawText string) (string, error) {
	if rawText == "" {
		return "", ErrEmptyInput
	}
	prompt := fmt.Sprintf(`You are reviewing an improvement suggestion for a standard operating procedure.
Summarize the suggestion below in at most three sentences, keeping the concrete change being proposed.

SUGGESTION START
%s
SUGGESTION END`, rawText)

	return c.generate(ctx, prompt)
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.baseURL, c.model, url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).Warn("model request failed")
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.WithFields(logrus.Fields{
			"status":   resp.StatusCode,
			"duration": time.Since(start),
		}).Warn("model returned non-200")
		return "", fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, payload)
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrUpstream)
	}

	c.logger.WithField("duration", time.Since(start)).Debug("model request completed")
	return decoded.Candidates[0].Content.Parts[0].Text, nil
}
