package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tenderscope/tenderscope/internal/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the investigation API server",
	Long: "Serves the REST and WebSocket API. POST /api/investigate opens a session;\n" +
		"GET /api/ws/{session} streams the investigation live, or replays the stored\n" +
		"stream when the tender was already investigated.",
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if days := a.cfg.Store.RetentionDays; days > 0 {
		cutoff := time.Now().AddDate(0, 0, -days)
		pruned, err := a.events.PruneOlderThan(ctx, cutoff)
		if err != nil {
			a.log.Warnf("retention_prune_failed error=%v", err)
		} else if pruned > 0 {
			a.log.Infof("retention_pruned events=%d days=%d", pruned, days)
		}
	}

	api := httpapi.NewServer(a.registry, a.events, a.engine, a.replayer, a.log.WithComponent("api"))
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("server_listening addr=%s", a.cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		a.log.Infof("server_shutting_down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	}
}
