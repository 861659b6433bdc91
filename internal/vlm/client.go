package vlm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/havenvlm/vlm-mux/internal/dispatch"
	"github.com/havenvlm/vlm-mux/internal/endpoint"
)

// Client performs chat-completion calls against any endpoint of the pool.
// A single pooled transport is shared across all endpoints; per-endpoint
// concurrency is enforced by the admission gates, not here.
type Client struct {
	httpClient   *http.Client
	defaultModel string
}

var _ dispatch.Caller = (*Client)(nil)

// NewClient creates a Client with a connection pool of the given size.
// defaultModel is used for work items that do not name a model.
func NewClient(poolSize int, defaultModel string) *Client {
	transport := &http.Transport{
		MaxIdleConns:        poolSize,
		MaxIdleConnsPerHost: poolSize,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		httpClient:   &http.Client{Transport: transport},
		defaultModel: defaultModel,
	}
}

// apiRequest is the OpenAI chat completion request format with multi-part
// message content for the image payload.
type apiRequest struct {
	Model    string       `json:"model"`
	Messages []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageRef `json:"image_url,omitempty"`
}

type imageRef struct {
	URL string `json:"url"`
}

// apiResponse is the OpenAI chat completion response format.
type apiResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
}

// Call sends one inference request to the chosen endpoint and maps the
// outcome into the dispatch error taxonomy.
func (c *Client) Call(ctx context.Context, ep *endpoint.Endpoint, item dispatch.WorkItem) (dispatch.Result, error) {
	model := item.Model
	if model == "" {
		model = c.defaultModel
	}

	content := []contentPart{{Type: "text", Text: item.Prompt}}
	if item.ImageData != "" {
		content = append(content, contentPart{Type: "image_url", ImageURL: &imageRef{URL: item.ImageData}})
	}

	body := apiRequest{
		Model:    model,
		Messages: []apiMessage{{Role: "user", Content: content}},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("%w: encode request: %v", dispatch.ErrEndpointRejected, err)
	}

	url := strings.TrimRight(ep.BaseURL().String(), "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("%w: build request: %v", dispatch.ErrEndpointRejected, err)
	}

	req.Header.Set("Content-Type", "application/json")
	if key := ep.APIKey(); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("%w: %v", dispatch.ErrEndpointUnreachable, err)
	}
	defer httpResp.Body.Close()

	if err := mapHTTPError(httpResp); err != nil {
		return dispatch.Result{}, err
	}

	var resp apiResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return dispatch.Result{}, fmt.Errorf("%w: decode response: %v", dispatch.ErrEndpointUnreachable, err)
	}

	if len(resp.Choices) == 0 {
		return dispatch.Result{}, fmt.Errorf("%w: response has no choices", dispatch.ErrEndpointUnreachable)
	}

	return dispatch.Result{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: dispatch.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// mapHTTPError classifies non-2xx responses. 5xx and 429 are the endpoint's
// problem and retryable elsewhere; the remaining 4xx mean the request itself
// was refused, so failover cannot help.
func mapHTTPError(resp *http.Response) error {
	if resp.StatusCode < 300 {
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: status %d: %s", dispatch.ErrEndpointUnreachable, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	return fmt.Errorf("%w: status %d: %s", dispatch.ErrEndpointRejected, resp.StatusCode, strings.TrimSpace(string(snippet)))
}
