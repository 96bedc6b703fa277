package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/arenaprime/bracket-engine/services"
)

// BracketHandler обслуживает диспетчер действий движка сетки и read-only
// маршруты прогресса.
type BracketHandler struct {
	bracketService services.BracketService
}

func NewBracketHandler(bs services.BracketService) *BracketHandler {
	return &BracketHandler{bracketService: bs}
}

// actionRequest — конверт запроса диспетчера: {"action": "...", ...параметры}.
// Неиспользуемые действием поля игнорируются на уровне семантики, но не JSON:
// каждый параметр объявлен здесь.
type actionRequest struct {
	Action string `json:"action"`

	Game       string `json:"game,omitempty"`
	MaxPlayers int    `json:"max_players,omitempty"`

	TournamentID int `json:"tournament_id,omitempty"`
	RoundNumber  int `json:"round_number,omitempty"`
	CurrentRound int `json:"current_round,omitempty"`

	RoomID       int `json:"room_id,omitempty"`
	WinnerTeamID int `json:"winner_team_id,omitempty"`

	FirstPlaceTeamID  int `json:"first_place_team_id,omitempty"`
	SecondPlaceTeamID int `json:"second_place_team_id,omitempty"`
	ThirdPlaceTeamID  int `json:"third_place_team_id,omitempty"`
}

// DispatchHandler обрабатывает POST /api/bracket.
func (h *BracketHandler) DispatchHandler(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	switch req.Action {
	case "calculate_structure":
		h.calculateStructure(w, r, req)
	case "generate_round":
		h.generateRound(w, r, req)
	case "declare_room_winner":
		h.declareRoomWinner(w, r, req)
	case "start_next_round":
		h.startNextRound(w, r, req)
	case "declare_final_winners":
		h.declareFinalWinners(w, r, req)
	case "get_tournament_stats":
		h.tournamentStats(w, r, req.TournamentID)
	case "":
		badRequestResponse(w, r, errors.New("action is required"))
	default:
		badRequestResponse(w, r, fmt.Errorf("unknown action %q", req.Action))
	}
}

func (h *BracketHandler) calculateStructure(w http.ResponseWriter, r *http.Request, req actionRequest) {
	structure, err := h.bracketService.CalculateStructure(req.Game, req.MaxPlayers)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.writeSuccess(w, r, jsonResponse{"structure": structure})
}

func (h *BracketHandler) generateRound(w http.ResponseWriter, r *http.Request, req actionRequest) {
	result, err := h.bracketService.GenerateRound(r.Context(), req.TournamentID, req.RoundNumber)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.writeSuccess(w, r, jsonResponse{
		"rooms_created":  result.RoomsCreated,
		"teams_assigned": result.TeamsAssigned,
		"is_final_round": result.IsFinalRound,
	})
}

func (h *BracketHandler) declareRoomWinner(w http.ResponseWriter, r *http.Request, req actionRequest) {
	result, err := h.bracketService.DeclareRoomWinner(r.Context(), req.RoomID, req.WinnerTeamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.writeSuccess(w, r, jsonResponse{
		"round_complete":       result.RoundComplete,
		"next_round_generated": result.NextRoundGenerated,
		"new_rooms_created":    result.NewRoomsCreated,
		"is_final_round":       result.IsFinalRound,
	})
}

func (h *BracketHandler) startNextRound(w http.ResponseWriter, r *http.Request, req actionRequest) {
	result, err := h.bracketService.StartNextRound(r.Context(), req.TournamentID, req.CurrentRound)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.writeSuccess(w, r, jsonResponse{
		"new_rooms_created": result.NewRoomsCreated,
		"is_final_round":    result.IsFinalRound,
		"next_round":        result.NextRound,
		"teams_advanced":    result.TeamsAdvanced,
	})
}

func (h *BracketHandler) declareFinalWinners(w http.ResponseWriter, r *http.Request, req actionRequest) {
	err := h.bracketService.DeclareFinalWinners(r.Context(),
		req.TournamentID, req.FirstPlaceTeamID, req.SecondPlaceTeamID, req.ThirdPlaceTeamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.writeSuccess(w, r, jsonResponse{})
}

func (h *BracketHandler) tournamentStats(w http.ResponseWriter, r *http.Request, tournamentID int) {
	stats, err := h.bracketService.GetTournamentStats(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.writeSuccess(w, r, jsonResponse{
		"tournament":       stats.Tournament,
		"total_teams":      stats.TotalTeams,
		"active_teams":     stats.ActiveTeams,
		"eliminated_teams": stats.EliminatedTeams,
		"rooms_by_round":   stats.RoomsByRound,
	})
}

// StatsHandler обрабатывает GET /tournaments/{tournamentID}/stats.
func (h *BracketHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	h.tournamentStats(w, r, id)
}

// RoomsHandler обрабатывает GET /tournaments/{tournamentID}/rooms:
// комнаты активного раунда вместе с назначениями.
func (h *BracketHandler) RoomsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	rooms, err := h.bracketService.CurrentRooms(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.writeSuccess(w, r, jsonResponse{"rooms": rooms})
}

func (h *BracketHandler) writeSuccess(w http.ResponseWriter, r *http.Request, fields jsonResponse) {
	fields["success"] = true
	if err := writeJSON(w, http.StatusOK, fields, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
