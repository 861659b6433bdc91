// Package vlm is the outbound HTTP client for OpenAI-compatible
// vision-capable chat completion endpoints (LM Studio, vLLM, cloud
// providers). The router treats the response as opaque; this package only
// has to build the request shape, decode the answer, and classify failures
// into the dispatch error taxonomy.
package vlm
