package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	apiKey    string
	output    string
)

var rootCmd = &cobra.Command{
	Use:   "podforge-ctl",
	Short: "Podforge server management tool",
	Long: `podforge-ctl is a management tool for podforge servers.

Commands:
  health   Check server health
  voices   List cloud preset voices
  metrics  Show export job counters
  cache    Inspect and clean the TTS cache`,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server health",
	RunE:  runHealth,
}

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List cloud preset voices",
	RunE:  runVoices,
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show export job counters",
	RunE:  runMetrics,
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clean the TTS cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry count and size",
	RunE:  runCacheStats,
}

var cacheCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Evict cache entries older than the server's max age",
	RunE:  runCacheCleanup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8090", "podforge server URL")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for authentication")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "text", "Output format: text, json")

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(voicesCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(cacheCmd)

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheCleanupCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	resp, err := makeRequest(http.MethodGet, serverURL+"/v1/health", nil)
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(resp))
		return nil
	}

	var health map[string]interface{}
	_ = json.Unmarshal(resp, &health)

	fmt.Printf("Status: %s\n", health["status"])
	return nil
}

func runVoices(cmd *cobra.Command, args []string) error {
	resp, err := makeRequest(http.MethodGet, serverURL+"/v1/voices", nil)
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(resp))
		return nil
	}

	var catalogue struct {
		Voices []struct {
			VoiceType string `json:"voice_type"`
			Name      string `json:"voice_name"`
			Category  string `json:"category"`
		} `json:"voices"`
	}
	_ = json.Unmarshal(resp, &catalogue)

	if len(catalogue.Voices) == 0 {
		fmt.Println("No voices found")
		return nil
	}

	fmt.Println("Preset Voices:")
	for _, v := range catalogue.Voices {
		if v.Category != "" {
			fmt.Printf("  - %s (%s, %s)\n", v.VoiceType, v.Name, v.Category)
			continue
		}
		fmt.Printf("  - %s (%s)\n", v.VoiceType, v.Name)
	}

	return nil
}

func runMetrics(cmd *cobra.Command, args []string) error {
	resp, err := makeRequest(http.MethodGet, serverURL+"/v1/metrics", nil)
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(resp))
		return nil
	}

	var metrics struct {
		ActiveJobs      int64 `json:"active_jobs"`
		CompletedJobs   int64 `json:"completed_jobs"`
		FailedJobs      int64 `json:"failed_jobs"`
		Rejected        int64 `json:"rejected"`
		AcquireTimeouts int64 `json:"acquire_timeouts"`
	}
	_ = json.Unmarshal(resp, &metrics)

	fmt.Printf("Active:           %d\n", metrics.ActiveJobs)
	fmt.Printf("Completed:        %d\n", metrics.CompletedJobs)
	fmt.Printf("Failed:           %d\n", metrics.FailedJobs)
	fmt.Printf("Rejected:         %d\n", metrics.Rejected)
	fmt.Printf("Acquire timeouts: %d\n", metrics.AcquireTimeouts)
	return nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	resp, err := makeRequest(http.MethodGet, serverURL+"/v1/cache/stats", nil)
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(resp))
		return nil
	}

	var stats struct {
		Entries    int   `json:"entries"`
		TotalBytes int64 `json:"total_bytes"`
	}
	_ = json.Unmarshal(resp, &stats)

	fmt.Printf("Entries: %d\n", stats.Entries)
	fmt.Printf("Size:    %.1f MB\n", float64(stats.TotalBytes)/(1<<20))
	return nil
}

func runCacheCleanup(cmd *cobra.Command, args []string) error {
	resp, err := makeRequest(http.MethodPost, serverURL+"/v1/cache/cleanup", nil)
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(resp))
		return nil
	}

	var result struct {
		Removed int `json:"removed"`
	}
	_ = json.Unmarshal(resp, &result)

	fmt.Printf("✓ Removed %d cache entries\n", result.Removed)
	return nil
}

func makeRequest(method, url string, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("server error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
