// Package responses is a typed client for the stateful Responses completion
// endpoint. Both the decision oracle and the checklist reviewer speak this
// protocol; conversation state lives server-side and is threaded through
// previous response ids.
package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/entrhq/proctor/pkg/types"
)

// DefaultBaseURL is the standard OpenAI API base URL.
const DefaultBaseURL = "https://api.openai.com/v1"

// Tool describes one tool definition in a request. Type selects which of
// the remaining fields apply: "computer_use_preview" uses the display
// fields, "function" uses name/description/parameters.
type Tool struct {
	Type          string         `json:"type"`
	DisplayWidth  int            `json:"display_width,omitempty"`
	DisplayHeight int            `json:"display_height,omitempty"`
	Environment   string         `json:"environment,omitempty"`
	Name          string         `json:"name,omitempty"`
	Description   string         `json:"description,omitempty"`
	Parameters    map[string]any `json:"parameters,omitempty"`
}

// ContentPart is one block of a user turn: input text or an inline image.
type ContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// ImageOutput is the screenshot payload of a computer call result.
type ImageOutput struct {
	Type     string `json:"type"`
	ImageURL string `json:"image_url"`
}

// InputItem is one entry of a request's ordered input list: a role turn
// (system/user), a computer_call_output, or a function_call_output.
type InputItem struct {
	// Role turn fields. Content is either a plain string or []ContentPart.
	Role    string `json:"role,omitempty"`
	Content any    `json:"content,omitempty"`

	// Call output fields.
	Type   string `json:"type,omitempty"`
	CallID string `json:"call_id,omitempty"`
	Output any    `json:"output,omitempty"`
}

// SystemTurn builds a system role input item.
func SystemTurn(text string) InputItem {
	return InputItem{Role: "system", Content: text}
}

// UserTurn builds a user role input item with plain text content.
func UserTurn(text string) InputItem {
	return InputItem{Role: "user", Content: text}
}

// UserParts builds a user role input item with mixed content parts.
func UserParts(parts ...ContentPart) InputItem {
	return InputItem{Role: "user", Content: parts}
}

// ComputerCallOutput builds the screenshot result of a prior computer call.
func ComputerCallOutput(callID, imageDataURL string) InputItem {
	return InputItem{
		Type:   "computer_call_output",
		CallID: callID,
		Output: ImageOutput{Type: "input_image", ImageURL: imageDataURL},
	}
}

// FunctionCallOutput builds the serialized result of a prior function call.
func FunctionCallOutput(callID, output string) InputItem {
	return InputItem{
		Type:   "function_call_output",
		CallID: callID,
		Output: output,
	}
}

// OutputFormat constrains the response text to a JSON schema.
type OutputFormat struct {
	Type   string         `json:"type"`
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
}

// TextParams wraps the output format in the request.
type TextParams struct {
	Format *OutputFormat `json:"format,omitempty"`
}

// ReasoningParams requests a reasoning summary alongside the decision.
type ReasoningParams struct {
	GenerateSummary string `json:"generate_summary,omitempty"`
}

// Request is one call to the Responses endpoint.
type Request struct {
	Model              string           `json:"model"`
	Input              []InputItem      `json:"input"`
	Tools              []Tool           `json:"tools,omitempty"`
	Reasoning          *ReasoningParams `json:"reasoning,omitempty"`
	Truncation         string           `json:"truncation,omitempty"`
	ToolChoice         string           `json:"tool_choice,omitempty"`
	PreviousResponseID string           `json:"previous_response_id,omitempty"`
	Text               *TextParams      `json:"text,omitempty"`
}

// Client calls the Responses endpoint over HTTP. It performs no retries;
// callers own recovery policy.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at a compatible endpoint.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient replaces the HTTP client, mainly for tests.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// NewClient creates a client. An empty apiKey falls back to OPENAI_API_KEY;
// an unset base URL falls back to OPENAI_BASE_URL, then the public endpoint.
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required (provide via parameter or OPENAI_API_KEY)")
	}

	c := &Client{
		httpClient: &http.Client{},
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == DefaultBaseURL {
		if env := os.Getenv("OPENAI_BASE_URL"); env != "" {
			c.baseURL = env
		}
	}
	return c, nil
}

// Create sends the request and returns the parsed, validated decision.
func (c *Client) Create(ctx context.Context, req Request) (*types.Decision, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, raw)
	}

	return types.ParseDecision(raw)
}

// ImageDataURL wraps base64 PNG data in the inline data URL form the
// endpoint expects.
func ImageDataURL(b64 string) string {
	return "data:image/png;base64," + b64
}
