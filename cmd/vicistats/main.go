package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"vici-telegraf-plugin/internal/source"
	"vici-telegraf-plugin/internal/vici"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type config struct {
	URL         string
	Input       string
	Format      string
	Server      string
	Timeout     time.Duration
	Location    string
	JSON        bool
	MetricsFile string
	Debug       bool
	LogJSON     bool
}

var (
	cfg        config
	configFile string

	format   source.Format
	location *time.Location
)

var rootCmd = &cobra.Command{
	Use:               "vicistats",
	Short:             "Normalize strongSwan vici replies and events into typed output",
	PersistentPreRunE: persistentPreRunE,
	SilenceUsage:      true,
}

func init() {
	hostname, _ := os.Hostname()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (yaml)")
	flags.StringP("url", "u", "", "vici HTTP bridge URL (reads --input when empty)")
	flags.StringP("input", "i", "-", "file holding the decoded record(s), - for stdin")
	flags.StringP("format", "f", string(source.JSON), "input encoding: json, yaml or cbor")
	flags.StringP("server", "s", hostname, "Server tag for line protocol output")
	flags.DurationP("timeout", "t", 5*time.Second, "HTTP request timeout")
	flags.String("location", "UTC", "time zone of zone-less daemon timestamps")
	flags.BoolP("json", "j", false, "Output normalized records as JSON")
	flags.String("metrics-file", "", "also write stats to this Prometheus textfile")
	flags.Bool("debug", false, "show debug log")
	flags.Bool("log-json", false, "log as JSON instead of console text")

	rootCmd.AddCommand(statsCmd, reloadCmd, logsCmd, versionCmd)
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig merges flags, VICISTATS_* environment variables and the config
// file, in that order of precedence.
func loadConfig(cmd *cobra.Command) error {
	v := viper.New()
	v.SetEnvPrefix("vicistats")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	cfg = config{
		URL:         v.GetString("url"),
		Input:       v.GetString("input"),
		Format:      v.GetString("format"),
		Server:      v.GetString("server"),
		Timeout:     v.GetDuration("timeout"),
		Location:    v.GetString("location"),
		JSON:        v.GetBool("json"),
		MetricsFile: v.GetString("metrics-file"),
		Debug:       v.GetBool("debug"),
		LogJSON:     v.GetBool("log-json"),
	}
	return nil
}

func persistentPreRunE(cmd *cobra.Command, _ []string) error {
	if err := loadConfig(cmd); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(10)
	}
	setupLogging()
	if err := validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(10)
	}
	return nil
}

func setupLogging() {
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}
	if cfg.LogJSON {
		w = os.Stderr
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

func validate() error {
	if cfg.URL != "" && cfg.Input != "-" {
		return fmt.Errorf("--url and --input are mutually exclusive")
	}
	if cfg.Server == "" {
		return fmt.Errorf("--server is required")
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("--timeout must be positive")
	}
	f, err := source.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	format = f
	loc, err := time.LoadLocation(cfg.Location)
	if err != nil {
		return fmt.Errorf("--location: %w", err)
	}
	location = loc
	return nil
}

// load fetches the reply to command from the bridge, or reads it from the
// input file when no bridge is configured.
func load(ctx context.Context, command string) (vici.Record, error) {
	if cfg.URL != "" {
		log.Debug().Str("url", cfg.URL).Str("command", command).Msg("querying bridge")
		return source.NewClient(cfg.URL, cfg.Timeout).Get(ctx, command)
	}
	log.Debug().Str("input", cfg.Input).Str("format", string(format)).Msg("reading record")
	return source.ReadFile(cfg.Input, format)
}
