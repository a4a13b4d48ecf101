package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var investigateJSON bool

var investigateCmd = &cobra.Command{
	Use:   "investigate <tender-id>",
	Short: "Run one investigation from the terminal",
	Long: "Runs the full investigation pipeline for a tender, printing the event\n" +
		"stream to stdout. The stream is persisted like a server-side run, so the\n" +
		"tender replays for later API viewers.",
	Args: cobra.ExactArgs(1),
	RunE: runInvestigate,
}

func init() {
	investigateCmd.Flags().BoolVar(&investigateJSON, "json", false, "Print the final result as JSON")
}

// stdoutConn prints each event payload as one line.
type stdoutConn struct{}

func (stdoutConn) Send(_ context.Context, payload []byte) error {
	fmt.Println(string(payload))
	return nil
}

func (stdoutConn) Close() error { return nil }

func runInvestigate(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	tenderID := args[0]
	sessionID := uuid.NewString()

	conn := stdoutConn{}
	a.registry.BindTender(sessionID, tenderID, false)
	a.registry.Register(sessionID, conn)
	defer a.registry.Release(sessionID)

	res, err := a.engine.Run(cmd.Context(), tenderID, sessionID)
	if err != nil {
		return fmt.Errorf("investigate %s: %w", tenderID, err)
	}

	if investigateJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	passed := 0
	for _, task := range res.Tasks {
		if task.ValidationPassed {
			passed++
		}
	}
	fmt.Printf("\nLicitación %s: %d/%d verificaciones cumplidas\n\n%s\n", tenderID, passed, len(res.Tasks), res.Summary)
	return nil
}
