package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"chasehome/internal/catalog"
	"chasehome/internal/engine"
	"chasehome/internal/store"
)

type createAccountRequest struct {
	Username string `json:"username"`
}

type roomSummary struct {
	RoomID       string    `json:"room_id"`
	RoomName     string    `json:"room_name"`
	HostID       string    `json:"host_id"`
	PlayerCount  int       `json:"player_count"`
	MaxPlayers   int       `json:"max_players"`
	CurrentHouse int       `json:"current_house"`
	CurrentFloor int       `json:"current_floor"`
	IsStarted    bool      `json:"is_started"`
	CreatedAt    time.Time `json:"created_at"`
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "username is required")
		return
	}

	account, err := s.accounts.CreateAccount(r.Context(), username)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage_failure", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, account)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "missing account id")
		return
	}

	account, err := s.accounts.GetAccount(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "unknown account")
			return
		}
		respondError(w, http.StatusInternalServerError, "storage_failure", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, account)
}

func (s *Server) handleListHouses(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"houses": catalog.Houses(),
	})
}

func (s *Server) handleListHouseTasks(w http.ResponseWriter, r *http.Request) {
	houseID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "house id must be numeric")
		return
	}
	floor := 1
	if v := strings.TrimSpace(r.URL.Query().Get("floor")); v != "" {
		floor, err = strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "floor must be numeric")
			return
		}
	}

	tasks, err := catalog.TasksFor(houseID, floor)
	if err != nil {
		respondError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"house_id": houseID,
		"floor":    floor,
		"tasks":    tasks,
	})
}

func (s *Server) handleListRooms(w http.ResponseWriter, _ *http.Request) {
	active := s.rooms.ListActive()
	summaries := make([]roomSummary, 0, len(active))
	for _, r := range active {
		summaries = append(summaries, roomSummary{
			RoomID:       r.ID,
			RoomName:     r.Name,
			HostID:       r.HostID,
			PlayerCount:  r.ActiveCount(),
			MaxPlayers:   r.MaxPlayers,
			CurrentHouse: r.HouseID,
			CurrentFloor: r.Floor,
			IsStarted:    r.Started,
			CreatedAt:    r.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"rooms": summaries,
	})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "missing room id")
		return
	}

	snap, err := s.rooms.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "not_found", "unknown room")
		return
	}
	respondJSON(w, http.StatusOK, engine.RoomState(snap))
}

func (s *Server) handleListRoomEvents(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "missing room id")
		return
	}
	limit := 100
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = n
	}

	recorded, err := s.journal.ListByRoom(r.Context(), id, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage_failure", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"room_id": id,
		"events":  recorded,
	})
}
