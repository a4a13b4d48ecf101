package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "tenderscope",
	Short: "Fraud investigation for Chilean public procurement tenders",
	Long: "Tenderscope fetches a tender from Mercado Público, runs the compliance\n" +
		"check catalog against it with LLM agents, and streams the investigation\n" +
		"live over WebSocket. Finished investigations replay from the event log.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to yaml config (default: $TENDERSCOPE_CONFIG)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(investigateCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
