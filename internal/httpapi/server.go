// Package httpapi exposes the REST and WebSocket surface: start an
// investigation, attach to its stream, and check process health.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"nhooyr.io/websocket"

	"github.com/tenderscope/tenderscope/internal/logging"
	"github.com/tenderscope/tenderscope/internal/model"
	"github.com/tenderscope/tenderscope/internal/stream"
	"github.com/tenderscope/tenderscope/internal/workflow"
)

// Runner executes a live investigation.
type Runner interface {
	Run(ctx context.Context, tenderID, sessionID string) (workflow.Result, error)
}

// Replayer re-delivers a stored stream.
type Replayer interface {
	Replay(ctx context.Context, tenderID, sessionID string) error
}

// HistoryChecker reports whether a tender already has a stored stream.
type HistoryChecker interface {
	Exists(ctx context.Context, tenderID string) (bool, error)
}

type apiSession struct {
	tenderID string
	replay   bool
	started  bool
}

// Server routes investigation requests. A POST creates a session and decides
// live-versus-replay from stored history; the WebSocket attach for that
// session starts the work exactly once.
type Server struct {
	registry *stream.Registry
	history  HistoryChecker
	runner   Runner
	replayer Replayer
	log      *logging.Logger

	mu       sync.Mutex
	sessions map[string]*apiSession
}

// NewServer wires the API surface.
func NewServer(registry *stream.Registry, history HistoryChecker, runner Runner, replayer Replayer, log *logging.Logger) *Server {
	return &Server{
		registry: registry,
		history:  history,
		runner:   runner,
		replayer: replayer,
		log:      log,
		sessions: make(map[string]*apiSession),
	}
}

// Handler returns the routed http handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/investigate", s.handleInvestigate)
	mux.HandleFunc("GET /api/ws/{session}", s.handleWebSocket)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	return mux
}

type investigateRequest struct {
	TenderID string `json:"tender_id"`
	// SessionID lets a client pick its own session key; one is generated
	// when absent.
	SessionID string `json:"session_id,omitempty"`
}

type investigateResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func (s *Server) handleInvestigate(w http.ResponseWriter, r *http.Request) {
	var req investigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TenderID == "" {
		http.Error(w, "tender_id is required", http.StatusBadRequest)
		return
	}

	exists, err := s.history.Exists(r.Context(), req.TenderID)
	if err != nil {
		s.log.Errorf("history_check_failed tender=%s error=%v", req.TenderID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	s.mu.Lock()
	s.sessions[sessionID] = &apiSession{tenderID: req.TenderID, replay: exists}
	s.mu.Unlock()

	msg := "Investigación iniciada"
	if exists {
		msg = "Investigación existente; se reproducirá el resultado almacenado"
	}
	s.log.Infof("session_created session=%s tender=%s replay=%v", sessionID, req.TenderID, exists)
	writeJSON(w, http.StatusOK, investigateResponse{SessionID: sessionID, Message: msg})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session")

	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	var start bool
	if ok && !sess.started {
		sess.started = true
		start = true
	}
	s.mu.Unlock()
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.log.Warnf("ws_accept_failed session=%s error=%v", sessionID, err)
		return
	}
	conn := newWSConn(ws)

	s.registry.BindTender(sessionID, sess.tenderID, sess.replay)
	s.registry.Register(sessionID, conn)
	defer s.registry.Unregister(sessionID, conn)

	if start {
		// The run is detached from the request context so a viewer
		// disconnect does not abort a live investigation mid-flight.
		go s.startSession(context.Background(), sessionID, sess.tenderID, sess.replay)
	}

	// Clients only listen; the read loop exists to notice the close.
	for {
		if _, _, err := ws.Read(r.Context()); err != nil {
			break
		}
	}
	conn.Close()
}

// startSession drives the run or replay behind a session and tears the
// session down when it finishes, releasing the stream binding and freeing
// the session entry.
func (s *Server) startSession(ctx context.Context, sessionID, tenderID string, replay bool) {
	defer func() {
		s.registry.Release(sessionID)
		s.mu.Lock()
		delete(s.sessions, sessionID)
		s.mu.Unlock()
	}()

	if replay {
		if err := s.replayer.Replay(ctx, tenderID, sessionID); err != nil {
			s.log.Errorf("replay_failed session=%s tender=%s error=%v", sessionID, tenderID, err)
		}
		return
	}
	if _, err := s.runner.Run(ctx, tenderID, sessionID); err != nil {
		s.log.Errorf("run_failed session=%s tender=%s error=%v", sessionID, tenderID, err)
		obs := model.ErrorObservation(fmt.Sprintf("La investigación falló: %v", err))
		if err := s.registry.Emit(ctx, sessionID, obs); err != nil {
			s.log.Warnf("emit_error_event_failed session=%s error=%v", sessionID, err)
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
