// Load generator for the podcast export endpoint. Sends export jobs at a
// fixed concurrency and reports latency percentiles. An export job is heavy
// on the server side, so start with low counts.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"os"
	"os/signal"
	"sort"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

type message struct {
	Content string `json:"content"`
	IsUser  bool   `json:"is_user"`
}

type exportPayload struct {
	CharacterID string    `json:"character_id"`
	Messages    []message `json:"messages"`
	IntroText   string    `json:"intro_text,omitempty"`
	OutroText   string    `json:"outro_text,omitempty"`
	SpeedRatio  float64   `json:"speed_ratio,omitempty"`
}

type transcript struct {
	CharacterID string    `json:"character_id"`
	Messages    []message `json:"messages"`
}

type loadClient struct {
	baseURL     string
	apiKey      string
	characterID string
	transcripts []transcript
	nextIndex   uint64
	client      *http.Client
}

type runResult struct {
	duration    time.Duration
	firstByte   time.Duration
	bytes       int64
	statusCode  int
	success     bool
	err         error
}

func newLoadClient(baseURL, apiKey, characterID string, transcripts []transcript) *loadClient {
	return &loadClient{
		baseURL:     baseURL,
		apiKey:      apiKey,
		characterID: characterID,
		transcripts: transcripts,
		client: &http.Client{
			Timeout: 15 * time.Minute,
		},
	}
}

func (c *loadClient) nextTranscript() transcript {
	if len(c.transcripts) == 0 {
		return transcript{
			CharacterID: c.characterID,
			Messages: []message{
				{Content: "Hello there, how are you today?", IsUser: true},
				{Content: "I am doing well, thanks for asking."},
			},
		}
	}

	idx := atomic.AddUint64(&c.nextIndex, 1)
	return c.transcripts[(idx-1)%uint64(len(c.transcripts))]
}

func (c *loadClient) Do(ctx context.Context) runResult {
	start := time.Now()
	tr := c.nextTranscript()

	characterID := tr.CharacterID
	if characterID == "" {
		characterID = c.characterID
	}

	payload := exportPayload{
		CharacterID: characterID,
		Messages:    tr.Messages,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return runResult{err: fmt.Errorf("encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/export/podcast", bytes.NewReader(body))
	if err != nil {
		return runResult{err: fmt.Errorf("build request: %w", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "podforge-benchmark/0.1")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	var firstByte time.Duration
	trace := &httptrace.ClientTrace{
		GotFirstResponseByte: func() {
			firstByte = time.Since(start)
		},
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	resp, err := c.client.Do(req)
	if err != nil {
		return runResult{duration: time.Since(start), err: err}
	}
	defer resp.Body.Close()

	n, err := io.Copy(io.Discard, resp.Body)

	duration := time.Since(start)
	success := err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300

	return runResult{
		duration:   duration,
		firstByte:  firstByte,
		bytes:      n,
		statusCode: resp.StatusCode,
		success:    success,
		err:        err,
	}
}

type summary struct {
	durations  []time.Duration
	firstBytes []time.Duration
	totalBytes int64
	total      int
	success    int
	rejected   int
}

func (s *summary) add(result runResult) {
	s.total++
	if result.statusCode == http.StatusServiceUnavailable || result.statusCode == http.StatusGatewayTimeout {
		s.rejected++
	}
	if result.success {
		s.success++
		s.durations = append(s.durations, result.duration)
		s.totalBytes += result.bytes
		if result.firstByte > 0 {
			s.firstBytes = append(s.firstBytes, result.firstByte)
		}
	}
}

func percentile(values []time.Duration, p float64) time.Duration {
	if len(values) == 0 {
		return 0
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	rank := p * float64(len(values)-1)
	lower := int(rank)
	upper := lower + 1
	if upper >= len(values) {
		return values[lower]
	}
	weight := rank - float64(lower)
	return time.Duration(float64(values[lower])*(1-weight) + float64(values[upper])*weight)
}

func average(values []time.Duration) time.Duration {
	if len(values) == 0 {
		return 0
	}
	var total time.Duration
	for _, v := range values {
		total += v
	}
	return total / time.Duration(len(values))
}

func loadTranscripts(path string) ([]transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []transcript
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func main() {
	baseURL := flag.String("base-url", "http://127.0.0.1:8090", "Export server base URL")
	apiKey := flag.String("api-key", "", "Bearer token, if the server requires one")
	characterID := flag.String("character-id", "bench", "Character to export with")
	count := flag.Int("count", 1, "Number of export jobs to run")
	concurrency := flag.Int("concurrency", 1, "Number of concurrent workers")
	transcriptsFile := flag.String("transcripts", "", "Path to a JSON file of transcripts to cycle through")
	loop := flag.Bool("loop", false, "Run continuously until interrupted")
	flag.Parse()

	var transcripts []transcript
	if *transcriptsFile != "" {
		loaded, err := loadTranscripts(*transcriptsFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load transcripts: %v\n", err)
			os.Exit(1)
		}
		transcripts = loaded
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := newLoadClient(*baseURL, *apiKey, *characterID, transcripts)

	jobs := make(chan struct{}, *concurrency)
	results := make(chan runResult, *concurrency)
	var workers sync.WaitGroup

	for i := 0; i < *concurrency; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				results <- client.Do(ctx)
			}
		}()
	}

	go func() {
		if *loop {
			for {
				select {
				case <-ctx.Done():
					close(jobs)
					return
				case jobs <- struct{}{}:
				}
			}
		}

		for i := 0; i < *count; i++ {
			select {
			case <-ctx.Done():
				close(jobs)
				return
			case jobs <- struct{}{}:
			}
		}
		close(jobs)
	}()

	go func() {
		workers.Wait()
		close(results)
	}()

	var sum summary
	for res := range results {
		sum.add(res)
		if res.err != nil {
			fmt.Fprintf(os.Stderr, "request error: %v\n", res.err)
		}
	}

	fmt.Printf("Total exports: %d\n", sum.total)
	fmt.Printf("Success: %d, Failed: %d, Rejected at capacity: %d\n", sum.success, sum.total-sum.success, sum.rejected)

	if len(sum.durations) > 0 {
		fmt.Printf("Total audio bytes: %d\n", sum.totalBytes)
		fmt.Printf("Average duration: %s\n", average(sum.durations))
		fmt.Printf("P50: %s\n", percentile(sum.durations, 0.50))
		fmt.Printf("P75: %s\n", percentile(sum.durations, 0.75))
		fmt.Printf("P90: %s\n", percentile(sum.durations, 0.90))
		fmt.Printf("P95: %s\n", percentile(sum.durations, 0.95))
	}

	if len(sum.firstBytes) > 0 {
		fmt.Printf("Avg time to first byte: %s\n", average(sum.firstBytes))
		fmt.Printf("P50 time to first byte: %s\n", percentile(sum.firstBytes, 0.50))
	}
}
