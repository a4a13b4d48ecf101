package main

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/tenderscope/tenderscope/internal/agent"
	"github.com/tenderscope/tenderscope/internal/cache"
	"github.com/tenderscope/tenderscope/internal/config"
	"github.com/tenderscope/tenderscope/internal/logging"
	"github.com/tenderscope/tenderscope/internal/model"
	"github.com/tenderscope/tenderscope/internal/portal"
	"github.com/tenderscope/tenderscope/internal/replay"
	"github.com/tenderscope/tenderscope/internal/store"
	"github.com/tenderscope/tenderscope/internal/stream"
	"github.com/tenderscope/tenderscope/internal/workflow"
)

// app bundles the wired components shared by the commands.
type app struct {
	cfg      model.Config
	log      *logging.Logger
	db       *sql.DB
	events   *store.EventLog
	cache    *cache.Manager
	registry *stream.Registry
	engine   *workflow.Engine
	replayer *replay.Engine
}

func buildApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log := logging.New(os.Stderr, "tenderscope", logging.ParseLevel(cfg.Logging.Level))

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	events := store.NewEventLog(db)

	cacheMgr, err := cache.New(cfg.Cache.Dir)
	if err != nil {
		db.Close()
		return nil, err
	}

	registry := stream.NewRegistry(events, log.WithComponent("stream"))

	htmlMaxAge := time.Duration(cfg.Cache.HTMLMaxAgeSeconds) * time.Second
	portalClient := portal.NewClient(cfg.Portal, htmlMaxAge, cacheMgr, log.WithComponent("portal"))
	ocr := portal.NewMistralOCR(cfg.OCR)
	reader := portal.NewReader(cacheMgr, ocr, cfg.Portal.MaxPages, log.WithComponent("ocr"))

	llm := agent.NewHTTPClient(cfg.Agent)
	engine := workflow.New(
		portalClient,
		reader,
		agent.NewLLMClassifier(llm),
		agent.NewLLMInvestigator(llm, cfg.Agent),
		agent.NewLLMSummarizer(llm),
		registry,
		cacheMgr,
		workflow.Options{
			FallbackCount: cfg.Classifier.FallbackCount,
			CacheMaxAge:   time.Duration(cfg.Cache.MaxAgeHours) * time.Hour,
		},
		log.WithComponent("workflow"),
	)

	replayer := replay.New(events, registry, cfg.Replay, log.WithComponent("replay"))

	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		events:   events,
		cache:    cacheMgr,
		registry: registry,
		engine:   engine,
		replayer: replayer,
	}, nil
}

// newReplayer builds a replay engine with overridden pacing settings.
func newReplayer(a *app, cfg model.ReplayConfig) *replay.Engine {
	return replay.New(a.events, a.registry, cfg, a.log.WithComponent("replay"))
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.log.Warnf("db_close_failed error=%v", err)
	}
}

func fmtBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
