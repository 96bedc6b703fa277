package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arenaprime/bracket-engine/brackets"
	"github.com/arenaprime/bracket-engine/models"
	"github.com/arenaprime/bracket-engine/services"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubBracketService — подменный сервис: каждый метод возвращает заранее
// заданный результат или ошибку.
type stubBracketService struct {
	structure *brackets.TournamentStructure
	generate  *services.GenerateRoundResult
	declare   *services.DeclareWinnerResult
	next      *services.StartNextRoundResult
	stats     *models.TournamentStats
	rooms     []*models.Room
	err       error

	lastAction string
}

func (s *stubBracketService) CalculateStructure(game string, maxPlayers int) (*brackets.TournamentStructure, error) {
	s.lastAction = "calculate_structure"
	return s.structure, s.err
}

func (s *stubBracketService) GenerateRound(ctx context.Context, tournamentID, roundNumber int) (*services.GenerateRoundResult, error) {
	s.lastAction = "generate_round"
	return s.generate, s.err
}

func (s *stubBracketService) DeclareRoomWinner(ctx context.Context, roomID, winnerTeamID int) (*services.DeclareWinnerResult, error) {
	s.lastAction = "declare_room_winner"
	return s.declare, s.err
}

func (s *stubBracketService) StartNextRound(ctx context.Context, tournamentID, currentRound int) (*services.StartNextRoundResult, error) {
	s.lastAction = "start_next_round"
	return s.next, s.err
}

func (s *stubBracketService) DeclareFinalWinners(ctx context.Context, tournamentID, firstTeamID, secondTeamID, thirdTeamID int) error {
	s.lastAction = "declare_final_winners"
	return s.err
}

func (s *stubBracketService) GetTournamentStats(ctx context.Context, tournamentID int) (*models.TournamentStats, error) {
	s.lastAction = "get_tournament_stats"
	return s.stats, s.err
}

func (s *stubBracketService) CurrentRooms(ctx context.Context, tournamentID int) ([]*models.Room, error) {
	s.lastAction = "current_rooms"
	return s.rooms, s.err
}

func dispatch(t *testing.T, svc services.BracketService, body string) (*httptest.ResponseRecorder, jsonResponse) {
	t.Helper()
	handler := NewBracketHandler(svc)
	req := httptest.NewRequest(http.MethodPost, "/api/bracket", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	handler.DispatchHandler(rec, req)

	var payload jsonResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return rec, payload
}

func TestDispatchCalculateStructure(t *testing.T) {
	stub := &stubBracketService{
		structure: &brackets.TournamentStructure{
			PlayersPerRoom: 100,
			TeamsPerRoom:   25,
			TotalTeams:     100,
			InitialRooms:   4,
			TotalRounds:    2,
			FinaleMaxTeams: 25,
		},
	}

	rec, payload := dispatch(t, stub, `{"action": "calculate_structure", "game": "BGMI", "max_players": 400}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "calculate_structure", stub.lastAction)
	assert.Equal(t, true, payload["success"])
	structure, ok := payload["structure"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(4), structure["initial_rooms"])
	assert.Equal(t, float64(2), structure["total_rounds"])
}

func TestDispatchDeclareRoomWinner(t *testing.T) {
	stub := &stubBracketService{
		declare: &services.DeclareWinnerResult{
			RoundComplete:      true,
			NextRoundGenerated: true,
			NewRoomsCreated:    1,
			IsFinalRound:       true,
		},
	}

	rec, payload := dispatch(t, stub, `{"action": "declare_room_winner", "room_id": 7, "winner_team_id": 42}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, payload["round_complete"])
	assert.Equal(t, true, payload["is_final_round"])
	assert.Equal(t, float64(1), payload["new_rooms_created"])
}

func TestDispatchActionValidation(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		wantCode int
	}{
		{name: "missing action", body: `{"game": "BGMI"}`, wantCode: http.StatusBadRequest},
		{name: "unknown action", body: `{"action": "delete_everything"}`, wantCode: http.StatusBadRequest},
		{name: "malformed body", body: `{"action":`, wantCode: http.StatusBadRequest},
		{name: "unknown field", body: `{"action": "generate_round", "bogus": 1}`, wantCode: http.StatusBadRequest},
		{name: "empty body", body: ``, wantCode: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec, payload := dispatch(t, &stubBracketService{}, tc.body)
			assert.Equal(t, tc.wantCode, rec.Code)
			assert.NotEmpty(t, payload["error"])
		})
	}
}

func TestDispatchServiceErrorMapping(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		err      error
		wantCode int
	}{
		{
			name:     "unknown game",
			body:     `{"action": "calculate_structure", "game": "Chess", "max_players": 10}`,
			err:      services.ErrUnknownGame,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "room not found",
			body:     `{"action": "declare_room_winner", "room_id": 99, "winner_team_id": 1}`,
			err:      services.ErrRoomNotFound,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "winner not in room",
			body:     `{"action": "declare_room_winner", "room_id": 1, "winner_team_id": 1}`,
			err:      services.ErrInvalidWinner,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "room already completed",
			body:     `{"action": "declare_room_winner", "room_id": 1, "winner_team_id": 1}`,
			err:      services.ErrRoomCompleted,
			wantCode: http.StatusConflict,
		},
		{
			name:     "round incomplete",
			body:     `{"action": "start_next_round", "tournament_id": 1, "current_round": 1}`,
			err:      services.ErrRoundIncomplete,
			wantCode: http.StatusConflict,
		},
		{
			name:     "stale round replay",
			body:     `{"action": "start_next_round", "tournament_id": 1, "current_round": 1}`,
			err:      services.ErrRoundMismatch,
			wantCode: http.StatusConflict,
		},
		{
			name:     "round already generated",
			body:     `{"action": "generate_round", "tournament_id": 1, "round_number": 1}`,
			err:      services.ErrRoundAlreadyGenerated,
			wantCode: http.StatusConflict,
		},
		{
			name:     "duplicate podium",
			body:     `{"action": "declare_final_winners", "tournament_id": 1, "first_place_team_id": 1, "second_place_team_id": 1, "third_place_team_id": 2}`,
			err:      services.ErrFinalistsRequired,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "tournament already completed",
			body:     `{"action": "declare_final_winners", "tournament_id": 1, "first_place_team_id": 1, "second_place_team_id": 2, "third_place_team_id": 3}`,
			err:      services.ErrTournamentCompleted,
			wantCode: http.StatusConflict,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec, payload := dispatch(t, &stubBracketService{err: tc.err}, tc.body)
			assert.Equal(t, tc.wantCode, rec.Code)
			assert.NotEmpty(t, payload["error"])
		})
	}
}

func TestStatsHandler(t *testing.T) {
	stub := &stubBracketService{
		stats: &models.TournamentStats{
			Tournament:      &models.Tournament{ID: 3, Name: "Inter-School Cup", Status: models.StatusFinale},
			TotalTeams:      100,
			ActiveTeams:     4,
			EliminatedTeams: 96,
			RoomsByRound:    []models.RoundRoomStats{{RoundNumber: 2, TotalRooms: 1, CompletedRooms: 0}},
		},
	}
	handler := NewBracketHandler(stub)

	router := chi.NewRouter()
	router.Get("/tournaments/{tournamentID}/stats", handler.StatsHandler)

	req := httptest.NewRequest(http.MethodGet, "/tournaments/3/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var payload jsonResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, float64(100), payload["total_teams"])
	assert.Equal(t, float64(4), payload["active_teams"])
	assert.Equal(t, float64(96), payload["eliminated_teams"])

	// Нечисловой идентификатор в URL не доходит до сервиса.
	req = httptest.NewRequest(http.MethodGet, "/tournaments/abc/stats", nil)
	rec = httptest.NewRecorder()
	stub.lastAction = ""
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, stub.lastAction)
}

func TestRoomsHandler(t *testing.T) {
	stub := &stubBracketService{
		rooms: []*models.Room{
			{
				ID:           1,
				TournamentID: 3,
				RoundNumber:  2,
				RoomNumber:   1,
				Name:         "Finale",
				Status:       models.RoomStatusWaiting,
				Assignments: []models.RoomAssignment{
					{ID: 1, RoomID: 1, TeamID: 10, SlotNumber: 1},
					{ID: 2, RoomID: 1, TeamID: 11, SlotNumber: 2},
				},
			},
		},
	}
	handler := NewBracketHandler(stub)

	router := chi.NewRouter()
	router.Get("/tournaments/{tournamentID}/rooms", handler.RoomsHandler)

	req := httptest.NewRequest(http.MethodGet, "/tournaments/3/rooms", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var payload jsonResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	rooms, ok := payload["rooms"].([]interface{})
	require.True(t, ok)
	require.Len(t, rooms, 1)
	room, ok := rooms[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Finale", room["name"])
}
