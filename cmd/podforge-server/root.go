package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string

	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "podforge-server",
	Short: "Podcast export API server",
	Long: `podforge-server turns conversation transcripts into finished podcast
audio: per-message speech synthesis with voice cloning and fallbacks,
loudness normalization, timeline assembly, and MP3 mastering.

Start the server:
  podforge-server

Start with custom settings:
  podforge-server --listen 0.0.0.0:8090 --clone-url http://localhost:9880

Use environment variables:
  PODFORGE_LISTEN=0.0.0.0:8090 PODFORGE_CLONE_URL=http://localhost:9880 podforge-server`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("podforge-server %s\n", Version)
		fmt.Printf("  Commit:     %s\n", Commit)
		fmt.Printf("  Build Date: %s\n", BuildDate)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	rootCmd.Flags().String("listen", "0.0.0.0:8090", "Server listen address")
	rootCmd.Flags().Duration("read-timeout", 30*time.Second, "HTTP read timeout")
	rootCmd.Flags().Duration("write-timeout", 10*time.Minute, "HTTP write timeout")

	rootCmd.Flags().String("cloud-url", "", "Cloud AI gateway base URL")
	rootCmd.Flags().String("cloud-backup-url", "", "Cloud AI gateway backup base URL")
	rootCmd.Flags().String("cloud-api-key", "", "Cloud AI gateway API key")
	rootCmd.Flags().String("clone-url", "", "Voice cloning backend URL")
	rootCmd.Flags().String("storage-url", "", "Object storage base URL")
	rootCmd.Flags().String("provider-url", "", "Character data provider URL")

	rootCmd.Flags().String("cache-dir", "tts-cache", "TTS cache directory")
	rootCmd.Flags().Int("synth-workers", 4, "Concurrent synthesis calls per export job")
	rootCmd.Flags().Int("max-jobs", 2, "Concurrent export jobs")
	rootCmd.Flags().Int("bitrate", 128, "Output MP3 bitrate in kbps")

	rootCmd.Flags().String("api-key", "", "API key for authentication (empty = no auth)")
	rootCmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.Flags().String("log-format", "json", "Log format (json, text)")

	bindFlags()

	rootCmd.AddCommand(versionCmd)
}

func bindFlags() {
	bindings := []struct {
		key  string
		flag string
	}{
		{"server.listen", "listen"},
		{"server.read_timeout", "read-timeout"},
		{"server.write_timeout", "write-timeout"},
		{"cloud.base_url", "cloud-url"},
		{"cloud.backup_url", "cloud-backup-url"},
		{"cloud.api_key", "cloud-api-key"},
		{"clone.url", "clone-url"},
		{"storage.base_url", "storage-url"},
		{"provider.url", "provider-url"},
		{"cache.dir", "cache-dir"},
		{"export.synth_workers", "synth-workers"},
		{"export.max_concurrent_jobs", "max-jobs"},
		{"export.bitrate_kbps", "bitrate"},
		{"auth.api_key", "api-key"},
		{"logging.level", "log-level"},
		{"logging.format", "log-format"},
	}

	for _, b := range bindings {
		flag := rootCmd.Flags().Lookup(b.flag)
		if flag == nil {
			continue
		}
		_ = viper.BindPFlag(b.key, flag)
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("PODFORGE")
	viper.AutomaticEnv()

	bindFlags()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
