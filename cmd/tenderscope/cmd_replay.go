package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var replaySpeed float64

var replayCmd = &cobra.Command{
	Use:   "replay <tender-id>",
	Short: "Replay a stored investigation to the terminal",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func init() {
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 0, "Replay speed multiplier (default from config)")
}

func runReplay(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	tenderID := args[0]
	sessionID := uuid.NewString()

	conn := stdoutConn{}
	a.registry.BindTender(sessionID, tenderID, true)
	a.registry.Register(sessionID, conn)
	defer a.registry.Release(sessionID)

	replayer := a.replayer
	if replaySpeed > 0 {
		cfg := a.cfg.Replay
		cfg.Speed = replaySpeed
		replayer = newReplayer(a, cfg)
	}
	if err := replayer.Replay(cmd.Context(), tenderID, sessionID); err != nil {
		return fmt.Errorf("replay %s: %w", tenderID, err)
	}
	return nil
}
