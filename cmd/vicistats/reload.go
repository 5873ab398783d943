package main

import (
	"fmt"
	"os"

	"vici-telegraf-plugin/internal/vici"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// exitReloadFailed is returned when the daemon rejected the reload.
const exitReloadFailed = 2

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Normalize a reload-settings reply",
	RunE:  runReload,
}

func runReload(cmd *cobra.Command, args []string) error {
	rec, err := load(cmd.Context(), "reload-settings")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	status, err := vici.ConvertReloadSettings(rec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if status.Error != nil {
		log.Warn().Bool("success", status.Success).Msg(*status.Error)
	}
	if err := printJSON(status); err != nil {
		return err
	}
	if !status.Success {
		os.Exit(exitReloadFailed)
	}
	return nil
}
