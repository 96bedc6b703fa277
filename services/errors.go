package services

import "errors"

// Общие ошибки, используемые в сервисах и маппинге HTTP.
var (
	// Ресурс не найден
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrRoomNotFound       = errors.New("room not found")
	ErrTeamNotFound       = errors.New("team not found")

	// Ошибки валидации и бизнес-правил
	ErrUnknownGame           = errors.New("unsupported game")
	ErrInvalidMaxPlayers     = errors.New("max players must be a positive number")
	ErrInvalidWinner         = errors.New("winning team is not assigned to this room")
	ErrRoundIncomplete       = errors.New("current round still has unfinished rooms")
	ErrNoAdvancingTeams      = errors.New("no teams qualify for the next round")
	ErrRoomCompleted         = errors.New("room winner has already been declared")
	ErrRoundMismatch         = errors.New("round does not match the tournament's current round")
	ErrRoundAlreadyGenerated = errors.New("rooms already exist for this round")

	// Ошибки финала
	ErrFinalistsRequired   = errors.New("three distinct finalist team ids are required")
	ErrNotInFinale         = errors.New("team is not a finale participant")
	ErrTournamentCompleted = errors.New("tournament is already completed")
	ErrNotInFinaleStage    = errors.New("tournament is not in the finale stage")
)
