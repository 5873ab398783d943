package main

import (
	"encoding/json"
	"fmt"
	"os"

	"vici-telegraf-plugin/internal/lineprotocol"
	"vici-telegraf-plugin/internal/metrics"
	"vici-telegraf-plugin/internal/source"
	"vici-telegraf-plugin/internal/vici"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rawStats bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Normalize the daemon's runtime stats and output InfluxDB line protocol",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&rawStats, "raw", false, "Output the bridge's raw reply (debug mode)")
}

func runStats(cmd *cobra.Command, args []string) error {
	// Raw debug mode: print the bridge reply untouched and exit
	if rawStats {
		if cfg.URL == "" {
			return fmt.Errorf("--raw needs --url")
		}
		raw, rawFormat, err := source.NewClient(cfg.URL, cfg.Timeout).GetRaw(cmd.Context(), "stats")
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(source.Pretty(raw, rawFormat))
		return nil
	}

	rec, err := load(cmd.Context(), "stats")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	stats, err := vici.ConvertStatsIn(rec, location)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if stats.Queues.IsNaN() || stats.Workers.Running.IsNaN() {
		log.Warn().Msg("stats carry unparseable counters")
	}

	if cfg.MetricsFile != "" {
		exporter := metrics.New()
		exporter.Update(stats)
		if err := exporter.WriteTextfile(cfg.MetricsFile); err != nil {
			return fmt.Errorf("writing metrics file: %w", err)
		}
		log.Debug().Str("path", cfg.MetricsFile).Msg("metrics file written")
	}

	if cfg.JSON {
		return printJSON(stats)
	}
	output := lineprotocol.Format(stats, cfg.Server)
	if output != "" {
		fmt.Println(output)
	}
	return nil
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
