// loadgen drives a running vlm-mux instance with concurrent analyze
// requests and prints the observed per-endpoint distribution, which makes
// weight ratios and overflow behavior visible from the command line.
//
// Usage:
//
//	go run ./scripts/loadgen -target http://localhost:8085 -n 1000 -c 32
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sort"
	"sync"
)

type analyzeResponse struct {
	Endpoint string `json:"endpoint"`
	Attempts int    `json:"attempts"`
}

func main() {
	target := flag.String("target", "http://localhost:8085", "vlm-mux base URL")
	total := flag.Int("n", 1000, "number of requests")
	concurrency := flag.Int("c", 32, "concurrent workers")
	flag.Parse()

	payload, err := json.Marshal(map[string]string{
		"prompt": "Which of the following tags apply to this frame?",
	})
	if err != nil {
		log.Fatal(err)
	}

	var (
		mutex    sync.Mutex
		counts   = make(map[string]int)
		failures int
	)

	jobs := make(chan struct{})
	var wg sync.WaitGroup

	for w := 0; w < *concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				endpoint, ok := sendOne(*target, payload)

				mutex.Lock()
				if ok {
					counts[endpoint]++
				} else {
					failures++
				}
				mutex.Unlock()
			}
		}()
	}

	for i := 0; i < *total; i++ {
		jobs <- struct{}{}
	}
	close(jobs)
	wg.Wait()

	names := make([]string, 0, len(counts))
	succeeded := 0
	for name, count := range counts {
		names = append(names, name)
		succeeded += count
	}
	sort.Strings(names)

	fmt.Printf("requests: %d  succeeded: %d  failed: %d\n", *total, succeeded, failures)
	for _, name := range names {
		fmt.Printf("  %-24s %6d  (%.1f%%)\n", name, counts[name], 100*float64(counts[name])/float64(succeeded))
	}
}

func sendOne(target string, payload []byte) (string, bool) {
	resp, err := http.Post(target+"/v1/analyze", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false
	}

	var body analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", false
	}

	return body.Endpoint, true
}
