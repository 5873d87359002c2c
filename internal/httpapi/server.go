package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"chasehome/internal/config"
	"chasehome/internal/engine"
	"chasehome/internal/events"
	"chasehome/internal/observability"
	"chasehome/internal/protocol"
	"chasehome/internal/room"
	"chasehome/internal/store"
)

type Server struct {
	cfg      config.Config
	engine   *engine.Engine
	rooms    *room.Manager
	accounts store.Store
	journal  events.Log
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(cfg config.Config, eng *engine.Engine, rooms *room.Manager, accounts store.Store, journal events.Log, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:      cfg,
		engine:   eng,
		rooms:    rooms,
		accounts: accounts,
		journal:  journal,
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin or an explicitly allowed one. This keeps other
				// websites from driving a player's session if the server is
				// ever exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				for _, allowed := range cfg.AllowedOrigins {
					if strings.EqualFold(origin, allowed) {
						return true
					}
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Get("/ws", s.handleGameWS)

	r.Post("/v1/accounts", s.handleCreateAccount)
	r.Get("/v1/accounts/{id}", s.handleGetAccount)
	r.Get("/v1/houses", s.handleListHouses)
	r.Get("/v1/houses/{id}/tasks", s.handleListHouseTasks)
	r.Get("/v1/rooms", s.handleListRooms)
	r.Get("/v1/rooms/{id}", s.handleGetRoom)
	r.Get("/v1/rooms/{id}/events", s.handleListRoomEvents)
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	corsOptions := cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}
	if s.cfg.AllowAnyOrigin || len(corsOptions.AllowedOrigins) == 0 {
		// Credentials cannot be combined with a wildcard origin.
		corsOptions.AllowedOrigins = []string{"*"}
		corsOptions.AllowCredentials = false
	}
	return cors.New(corsOptions).Handler(r)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"service": "chasehome",
		"status":  "ok",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"store_mode": s.storeMode(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.accounts.Ping(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ready",
		"store_mode": s.storeMode(),
	})
}

func (s *Server) handleGameWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := newWSClient(conn, s.cfg.PingInterval, s.metrics)
	go client.writeLoop()
	defer client.Close()

	pongWait := s.cfg.PingInterval + s.cfg.PingTimeout
	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))

	var userID, username string
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		if userID != "" {
			s.engine.Touch(userID)
		}
		return nil
	})

	ctx := r.Context()
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			s.metrics.WSMessages.WithLabelValues("inbound", "invalid").Inc()
			client.sendError("bad_request", err.Error())
			continue
		}
		if event, ok := messageEventOf(parsed); ok {
			s.metrics.WSMessages.WithLabelValues("inbound", string(event)).Inc()
		}

		if auth, ok := parsed.(protocol.Authenticate); ok {
			if userID != "" && auth.UserID != userID {
				client.sendError("conflict", "channel already authenticated")
				continue
			}
			account, err := s.engine.Authenticate(ctx, client, auth)
			if err != nil {
				client.sendError(engine.ErrorCode(err), err.Error())
				continue
			}
			userID, username = account.ID, account.Username
			continue
		}
		if userID == "" {
			// A rejected action never tears down the channel.
			client.sendError("unauthorized", "authenticate first")
			continue
		}
		if err := s.dispatchClientMessage(ctx, userID, username, parsed); err != nil {
			client.sendError(engine.ErrorCode(err), err.Error())
		}
	}

	if userID != "" {
		s.engine.Disconnect(userID, client)
	}
}

func (s *Server) dispatchClientMessage(ctx context.Context, userID, username string, parsed any) error {
	switch msg := parsed.(type) {
	case protocol.CreateRoom:
		return s.engine.CreateRoom(ctx, userID, username, msg)
	case protocol.JoinRoom:
		return s.engine.JoinRoom(ctx, userID, username, msg)
	case protocol.LeaveRoom:
		return s.engine.LeaveRoom(ctx, userID)
	case protocol.PlayerMove:
		return s.engine.PlayerMove(ctx, userID, msg)
	case protocol.TaskComplete:
		return s.engine.TaskComplete(ctx, userID, msg)
	case protocol.AdvanceFloor:
		return s.engine.AdvanceFloor(ctx, userID)
	case protocol.ChangeHouse:
		return s.engine.ChangeHouse(ctx, userID, msg)
	case protocol.GetRoomState:
		return s.engine.SendRoomState(ctx, userID)
	default:
		return nil
	}
}

func (s *Server) storeMode() string {
	if strings.TrimSpace(s.cfg.DatabaseURL) == "" {
		return "in-memory"
	}
	return "postgres"
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

func messageEventOf(v any) (protocol.EventType, bool) {
	switch v.(type) {
	case protocol.Authenticate:
		return protocol.EventAuthenticate, true
	case protocol.CreateRoom:
		return protocol.EventCreateRoom, true
	case protocol.JoinRoom:
		return protocol.EventJoinRoom, true
	case protocol.LeaveRoom:
		return protocol.EventLeaveRoom, true
	case protocol.PlayerMove:
		return protocol.EventPlayerMove, true
	case protocol.TaskComplete:
		return protocol.EventTaskComplete, true
	case protocol.AdvanceFloor:
		return protocol.EventAdvanceFloor, true
	case protocol.ChangeHouse:
		return protocol.EventChangeHouse, true
	case protocol.GetRoomState:
		return protocol.EventGetRoomState, true
	default:
		return "", false
	}
}
