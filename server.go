// server.go
// The relay owns the registries, the session coordinator and the client
// manager, and exposes them over HTTP: token login, the WebSocket endpoint,
// a health probe and Prometheus metrics.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"presence-relay/internal/auth"
	"presence-relay/internal/chat"
	"presence-relay/internal/config"
	"presence-relay/internal/conversations"
	"presence-relay/internal/dispatch"
	"presence-relay/internal/metrics"
	"presence-relay/internal/presence"
	"presence-relay/internal/rooms"
	"presence-relay/internal/session"
	"presence-relay/internal/typing"
)

const writeWait = 10 * time.Second

type relay struct {
	cfg      *config.Config
	auth     *auth.Manager
	coord    *session.Coordinator
	manager  *ClientManager
	upgrader websocket.Upgrader
	limits   connLimits
	logger   *slog.Logger
}

func newRelay(cfg *config.Config, logger *slog.Logger) *relay {
	users := presence.NewRegistry()
	catalog := rooms.NewRegistry(cfg.Rooms.Catalog, rooms.WithHistoryLimit(cfg.Rooms.HistoryLimit))
	jwtManager := auth.NewManager(auth.Config{
		Secret: cfg.Auth.Secret,
		TTL:    cfg.Auth.TokenTTL,
		Issuer: cfg.Auth.Issuer,
	})

	coord := session.NewCoordinator(session.Deps{
		Verifier:      jwtManager,
		Presence:      users,
		Rooms:         catalog,
		Conversations: conversations.NewStore(cfg.Conversations.HistoryLimit),
		Typing:        typing.NewTracker(),
		Dispatcher:    dispatch.New(users, catalog, logger),
		IDs:           chat.UUIDv7{},
		Logger:        logger,
		DefaultRoom:   cfg.Rooms.Default,
		RateLimit:     cfg.RateLimit.RPS,
		Burst:         cfg.RateLimit.Burst,
	})

	rl := &relay{
		cfg:     cfg,
		auth:    jwtManager,
		coord:   coord,
		manager: newClientManager(logger),
		limits: connLimits{
			maxMessageBytes: cfg.Server.MaxMessageBytes,
			pongWait:        cfg.Server.PongWait,
			pingPeriod:      cfg.Server.PongWait * 9 / 10,
			writeWait:       writeWait,
		},
		logger: logger,
	}
	rl.upgrader = websocket.Upgrader{CheckOrigin: rl.checkOrigin}
	return rl
}

func (rl *relay) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(rl.cors)
	r.HandleFunc("/api/auth/login", rl.loginHandler).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/ws", rl.wsHandler).Methods(http.MethodGet)
	r.HandleFunc("/healthz", rl.healthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

func (rl *relay) allowedOrigin(origin string) bool {
	return slices.Contains(rl.cfg.Server.AllowedOrigins, "*") ||
		slices.Contains(rl.cfg.Server.AllowedOrigins, origin)
}

// checkOrigin admits non-browser clients, which send no Origin header, and
// browsers from the configured origins.
func (rl *relay) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || rl.allowedOrigin(origin)
}

func (rl *relay) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && rl.allowedOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type loginRequest struct {
	Username string `json:"username"`
}

type loginResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

func (rl *relay) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, id, err := rl.auth.Issue(req.Username)
	if errors.Is(err, auth.ErrEmptyUsername) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		rl.logger.Error("issue token", "error", err)
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}

	metrics.Logins.Inc()
	rl.logger.Info("login", "userID", id.UserID, "username", id.Username)
	writeJSON(w, http.StatusOK, loginResponse{Token: token, UserID: id.UserID, Username: id.Username})
}

// wsHandler upgrades the request. A token on the query string or in an
// Authorization header is checked before the upgrade; without one the
// client must send an auth event first.
func (rl *relay) wsHandler(w http.ResponseWriter, r *http.Request) {
	token := requestToken(r)
	if token != "" {
		if _, err := rl.auth.Verify(token); err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
	}

	conn, err := rl.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written the response
		rl.logger.Debug("upgrade failed", "error", err)
		return
	}

	client := newClient(conn, rl.cfg.Server.SendBuffer, rl.logger)
	client.session = rl.coord.Open(client)
	if !rl.manager.add(client) {
		conn.Close()
		return
	}

	go client.write(rl.limits)
	if token != "" {
		if err := client.session.Authenticate(token); err != nil {
			client.logger.Warn("authenticate", "error", err)
			client.Send(chat.ErrorEvent(err))
			rl.manager.remove(client)
			client.Close()
			return
		}
	}
	go client.read(rl.manager, rl.limits)
}

func (rl *relay) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"connections": rl.manager.connections(),
	})
}

func (rl *relay) shutdown(ctx context.Context) error {
	return rl.manager.shutdown(ctx)
}

func requestToken(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	h := r.Header.Get("Authorization")
	if t, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(t)
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
