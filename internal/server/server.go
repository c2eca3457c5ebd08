// Package server exposes the alarm webhook, health and metrics endpoints,
// and the WebSocket event feed.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/airwin/platform/internal/alarm"
	"github.com/airwin/platform/internal/competition"
	"github.com/airwin/platform/internal/feed"
	"github.com/airwin/platform/internal/kv"
	"github.com/airwin/platform/internal/metrics"
	"github.com/airwin/platform/internal/session"
	"github.com/airwin/platform/internal/trace"
)

// Upstream alarm dispatchers retry on non-200; the webhook answers 200 for
// every well-formed request and reports disposition in the body instead.
type callbackResponse struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

const maxCallbackBody = 1 << 20

// Server routes platform HTTP traffic.
type Server struct {
	manager  *session.Manager
	registry *competition.Registry
	store    kv.Store
	hub      *feed.Hub
	now      func() time.Time
}

// New creates a server.
func New(manager *session.Manager, registry *competition.Registry, store kv.Store, hub *feed.Hub) *Server {
	return &Server{
		manager:  manager,
		registry: registry,
		store:    store,
		hub:      hub,
		now:      time.Now,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(trace.Middleware)

	r.Post("/callback", s.handleCallback)
	r.Get("/healthz", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx, span := trace.StartSpan(r.Context(), "alarm_callback")
	defer span.End()
	log := trace.Logger(ctx)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		log.Warn("callback body unreadable", "error", err)
		s.respond(w, callbackResponse{Status: "ignored", Reason: "unreadable body"})
		return
	}

	ev, ok := alarm.Extract(body, s.now())
	if !ok {
		log.Info("callback carried no recognizable alarm")
		s.respond(w, callbackResponse{Status: "ignored", Reason: "no alarm payload"})
		return
	}
	metrics.AlarmsReceived.Inc()
	span.SetAttr("comp", ev.CompName)
	span.SetAttr("alarm_id", ev.AlarmID)

	prof, ok := s.registry.Lookup(ev.CompName)
	if !ok {
		log.Info("unknown competition", "comp", ev.CompName)
		s.respond(w, callbackResponse{Status: "ignored", Reason: "unknown competition"})
		return
	}
	if !prof.AcceptsAlarm(ev.AlarmID) {
		log.Info("alarm id not accepted for competition", "comp", ev.CompName, "alarm_id", ev.AlarmID)
		s.respond(w, callbackResponse{Status: "ignored", Reason: "alarm not accepted"})
		return
	}

	id, started, err := s.manager.Trigger(ctx, prof)
	switch {
	case err != nil:
		log.Error("trigger failed", "comp", prof.Name, "error", err)
		s.respond(w, callbackResponse{Status: "error", Reason: "store unavailable"})
	case !started:
		log.Info("trigger rejected", "comp", prof.Name)
		s.respond(w, callbackResponse{Status: "rejected", Reason: "cooldown or in progress"})
	default:
		log.Info("session started", "comp", prof.Name, "session_id", id)
		s.respond(w, callbackResponse{Status: "started", SessionID: id})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	type health struct {
		Status string            `json:"status"`
		Active map[string]string `json:"active_sessions,omitempty"`
	}
	if err := s.store.Ping(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(health{Status: "degraded"})
		return
	}
	_ = json.NewEncoder(w).Encode(health{Status: "ok", Active: s.manager.Active()})
}

// handleWebSocket streams the session event feed to one operator connection.
// The feed is write-only; a slow or closed consumer just drops off.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		trace.Logger(r.Context()).Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	ctx := r.Context()
	log := trace.Logger(ctx)
	log.Info("event feed connected", "remote", r.RemoteAddr)

	events, cancel := s.hub.Subscribe(16)
	defer cancel()

	// Reads are discarded, but the read loop notices a closed peer.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-readDone:
			log.Info("event feed disconnected", "remote", r.RemoteAddr)
			return
		case ev := <-events:
			if err := s.writeEvent(ctx, conn, ev); err != nil {
				log.Debug("event feed write error", "error", err)
				return
			}
		}
	}
}

func (s *Server) writeEvent(ctx context.Context, conn *websocket.Conn, ev feed.Event) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return wsjson.Write(ctx, conn, ev)
}

func (s *Server) respond(w http.ResponseWriter, resp callbackResponse) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
