package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"vici-telegraf-plugin/internal/logsink"
	"vici-telegraf-plugin/internal/source"
	"vici-telegraf-plugin/internal/vici"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var controlLog bool

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Forward a stream of daemon log events to the log",
	RunE:  runLogs,
}

func init() {
	logsCmd.Flags().BoolVar(&controlLog, "control", false, "events are control-log events (no thread)")
}

func runLogs(cmd *cobra.Command, args []string) error {
	if cfg.URL != "" {
		return fmt.Errorf("logs reads an event stream from --input, not --url")
	}

	var r io.Reader = os.Stdin
	if cfg.Input != "-" {
		f, err := os.Open(cfg.Input)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	sink := logsink.New(log.Logger)
	enc := json.NewEncoder(os.Stdout)
	skipped := 0

	err := source.Stream(r, format, func(rec vici.Record) error {
		ev, err := forwardEvent(sink, rec)
		if err != nil {
			skipped++
			log.Warn().Err(err).Msg("skipping malformed event")
			return nil
		}
		if cfg.JSON {
			return enc.Encode(ev)
		}
		return nil
	})
	if skipped > 0 {
		log.Info().Int("skipped", skipped).Msg("event stream done")
	}
	return err
}

// forwardEvent converts rec and, unless JSON output was asked for, hands it
// to the sink.
func forwardEvent(sink *logsink.Sink, rec vici.Record) (any, error) {
	if controlLog {
		ev, err := vici.ConvertControlLog(rec)
		if err == nil && !cfg.JSON {
			sink.ControlLog(ev)
		}
		return ev, err
	}
	ev, err := vici.ConvertLog(rec)
	if err == nil && !cfg.JSON {
		sink.Log(ev)
	}
	return ev, err
}
