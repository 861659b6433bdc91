package dispatch

import (
	"context"

	"github.com/havenvlm/vlm-mux/internal/endpoint"
)

// WorkItem is one routable inference request. The payload is opaque to the
// router; ID is a caller-visible correlation id carried through logging.
type WorkItem struct {
	ID     string
	Model  string
	Prompt string
	// ImageData is the media payload as a data URL (or a plain https URL
	// the endpoint can fetch itself).
	ImageData string
}

// Usage reports token consumption as returned by the endpoint.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Result is the successful outcome of routing one WorkItem. Endpoint and
// Attempts record which backend answered and how many endpoint-level
// attempts it took.
type Result struct {
	Content  string
	Model    string
	Usage    Usage
	Endpoint string
	Attempts int
}

// Caller performs the actual inference call against a chosen endpoint.
// Implementations must honor ctx cancellation and deadlines, and report
// failures through the package error taxonomy so the dispatcher can decide
// between failover and abort.
type Caller interface {
	Call(ctx context.Context, ep *endpoint.Endpoint, item WorkItem) (Result, error)
}
