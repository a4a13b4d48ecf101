// Package replay re-delivers a stored investigation stream to a new viewer,
// pacing events by their recorded gaps.
package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tenderscope/tenderscope/internal/logging"
	"github.com/tenderscope/tenderscope/internal/model"
	"github.com/tenderscope/tenderscope/internal/store"
)

// Source reads the stored event stream for a tender.
type Source interface {
	ReadAll(ctx context.Context, tenderID string) ([]store.StoredEvent, error)
}

// Sink receives replayed payloads.
type Sink interface {
	EmitRaw(ctx context.Context, sessionID string, payload []byte) error
}

// Engine paces stored events back out. Payloads are delivered byte for
// byte as they were recorded; only the timing is synthesized.
type Engine struct {
	source     Source
	sink       Sink
	speed      float64
	defaultGap time.Duration
	log        *logging.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a replay engine. speed divides the recorded gaps (4.0 replays
// at four times the original pace); defaultGap is substituted when a stored
// timestamp cannot be parsed.
func New(source Source, sink Sink, cfg model.ReplayConfig, log *logging.Logger) *Engine {
	speed := cfg.Speed
	if speed <= 0 {
		speed = 4.0
	}
	gap := time.Duration(cfg.DefaultGapMS) * time.Millisecond
	if gap <= 0 {
		gap = 250 * time.Millisecond
	}
	return &Engine{
		source:     source,
		sink:       sink,
		speed:      speed,
		defaultGap: gap,
		log:        log,
		sleep:      sleepCtx,
	}
}

// Replay streams the stored events for a tender to a session. An empty log
// yields a single synthetic error event. Replay stops early only on context
// cancellation.
func (e *Engine) Replay(ctx context.Context, tenderID, sessionID string) error {
	events, err := e.source.ReadAll(ctx, tenderID)
	if err != nil {
		return fmt.Errorf("load stored events: %w", err)
	}
	if len(events) == 0 {
		payload, err := json.Marshal(model.ErrorObservation("No se encontró una investigación almacenada para la licitación " + tenderID))
		if err != nil {
			return fmt.Errorf("marshal empty-replay event: %w", err)
		}
		return e.sink.EmitRaw(ctx, sessionID, payload)
	}

	e.log.Infof("replay_started tender=%s session=%s events=%d speed=%.1f", tenderID, sessionID, len(events), e.speed)

	for i, ev := range events {
		if i > 0 {
			if err := e.sleep(ctx, e.gap(events[i-1], ev)); err != nil {
				return fmt.Errorf("replay interrupted: %w", err)
			}
		}
		if err := e.sink.EmitRaw(ctx, sessionID, ev.Payload); err != nil {
			return fmt.Errorf("deliver replayed event: %w", err)
		}
	}

	e.log.Infof("replay_finished tender=%s session=%s", tenderID, sessionID)
	return nil
}

// gap computes the scaled pause before an event. Unparseable timestamps and
// clock skew both fall back to the default gap.
func (e *Engine) gap(prev, cur store.StoredEvent) time.Duration {
	prevAt, err1 := time.Parse(time.RFC3339Nano, prev.CreatedAt)
	curAt, err2 := time.Parse(time.RFC3339Nano, cur.CreatedAt)
	if err1 != nil || err2 != nil {
		return e.defaultGap
	}
	recorded := curAt.Sub(prevAt)
	if recorded < 0 {
		return e.defaultGap
	}
	return time.Duration(float64(recorded) / e.speed)
}

// sleepCtx pauses for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
