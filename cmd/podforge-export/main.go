package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/podforge/podforge/internal/schema"
)

var (
	serverURL     string
	outputFile    string
	characterID   string
	userVoiceType string
	userVoiceFile string
	musicFile     string
	introText     string
	outroText     string
	speedRatio    float64
	apiKey        string
	timeout       time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "podforge-export [transcript.json]",
	Short: "Export a conversation transcript as podcast audio",
	Long: `podforge-export posts a transcript file to a running podforge server
and saves the resulting MP3.

The transcript file is a JSON array of messages:
  [{"content": "Hello!", "is_user": true},
   {"content": "Hi there.", "is_user": false}]

Examples:
  # Basic export
  podforge-export --character-id abc123 -o episode.mp3 chat.json

  # Clone the user's voice from a recording
  podforge-export --character-id abc123 --user-voice-type custom_upload \
    --user-voice me.wav -o episode.mp3 chat.json

  # Add background music
  podforge-export --character-id abc123 --music bed.mp3 -o episode.mp3 chat.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.Flags().StringVarP(&serverURL, "server", "s", "http://localhost:8090", "podforge server URL")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "podcast.mp3", "Output MP3 file")
	rootCmd.Flags().StringVar(&characterID, "character-id", "", "Character id for AI turns")
	rootCmd.Flags().StringVar(&userVoiceType, "user-voice-type", "", "User voice: cloud_preset, custom_upload, custom_record")
	rootCmd.Flags().StringVar(&userVoiceFile, "user-voice", "", "User reference audio file for voice cloning")
	rootCmd.Flags().StringVar(&musicFile, "music", "", "Background music file")
	rootCmd.Flags().StringVar(&introText, "intro", "", "Intro line (default: server default)")
	rootCmd.Flags().StringVar(&outroText, "outro", "", "Outro line (default: server default)")
	rootCmd.Flags().Float64Var(&speedRatio, "speed", 0, "Speech speed ratio (0.5-2.0, 0 = default)")
	rootCmd.Flags().StringVar(&apiKey, "api-key", "", "API key for authentication")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 15*time.Minute, "Request timeout")
}

func runExport(cmd *cobra.Command, args []string) error {
	transcript, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read transcript file: %w", err)
	}

	var messages []schema.Message
	if err := json.Unmarshal(transcript, &messages); err != nil {
		return fmt.Errorf("invalid transcript file: %w", err)
	}

	req := schema.ExportRequest{
		CharacterID:   characterID,
		Messages:      messages,
		UserVoiceType: userVoiceType,
		IntroText:     introText,
		OutroText:     outroText,
		SpeedRatio:    speedRatio,
	}

	audio, err := makeExportRequest(&req)
	if err != nil {
		return err
	}

	if err := os.WriteFile(outputFile, audio, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Podcast saved to %s (%d bytes)\n", outputFile, len(audio))
	return nil
}

func makeExportRequest(req *schema.ExportRequest) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	if err := form.WriteField("payload", string(payload)); err != nil {
		return nil, err
	}
	if err := attachFile(form, "user_voice", userVoiceFile); err != nil {
		return nil, err
	}
	if err := attachFile(form, "background_music", musicFile); err != nil {
		return nil, err
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, serverURL+"/v1/export/podcast", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", form.FormDataContentType())
	if apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

func attachFile(form *multipart.Writer, field, path string) error {
	if path == "" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	part, err := form.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
