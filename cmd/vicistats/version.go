package main

import (
	"fmt"
	"os"

	"vici-telegraf-plugin/internal/vici"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Normalize the daemon's version reply",
	RunE:  runVersion,
}

func runVersion(cmd *cobra.Command, args []string) error {
	rec, err := load(cmd.Context(), "version")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	v, err := vici.ConvertVersion(rec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if cfg.JSON {
		return printJSON(v)
	}
	fmt.Printf("%s %s (%s %s, %s)\n", v.Daemon, v.Version, v.Sysname, v.Release, v.Machine)
	fmt.Printf("vicistats %s\n", rootCmd.Version)
	return nil
}
