// stubvlm is a fake OpenAI-compatible vision endpoint for manual testing.
// It answers /v1/chat/completions with a canned tag list, with optional
// artificial latency and failure injection.
//
// Usage:
//
//	go run ./scripts/stubvlm -port 1234 -latency 200ms -fail-rate 0.1
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

func main() {
	port := flag.Int("port", 1234, "listen port")
	name := flag.String("name", "stubvlm", "endpoint name echoed in response ids")
	latency := flag.Duration("latency", 0, "artificial response delay")
	failRate := flag.Float64("fail-rate", 0, "probability of answering 500")
	flag.Parse()

	http.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if *latency > 0 {
			time.Sleep(*latency)
		}

		if *failRate > 0 && rand.Float64() < *failRate {
			log.Printf("injecting failure")
			http.Error(w, "injected failure", http.StatusInternalServerError)
			return
		}

		resp := chatResponse{
			ID:    fmt.Sprintf("%s-%d", *name, time.Now().UnixNano()),
			Model: "stub-vlm",
			Choices: []chatChoice{
				{
					Message: chatMessage{
						Role:    "assistant",
						Content: `{"tags": ["Kissing", "Undressing"]}`,
					},
					FinishReason: "stop",
				},
			},
			Usage: chatUsage{PromptTokens: 120, CompletionTokens: 16, TotalTokens: 136},
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Printf("encode response: %v", err)
		}
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("stubvlm %s listening on %s", *name, addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}
