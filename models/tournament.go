package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
// Статусы раундов кодируются как "round_1", "round_2" и т.д.
type TournamentStatus string

const (
	StatusRegistration TournamentStatus = "registration"
	StatusFinale       TournamentStatus = "finale"
	StatusCompleted    TournamentStatus = "completed"
)

// RoundStatus returns the status value for an elimination round, e.g. "round_2".
func RoundStatus(round int) TournamentStatus {
	return TournamentStatus(fmt.Sprintf("round_%d", round))
}

// RoundFromStatus reports whether the status encodes an elimination round and,
// if so, which one.
func (s TournamentStatus) RoundFromStatus() (int, bool) {
	rest, ok := strings.CutPrefix(string(s), "round_")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// Tournament представляет школьный турнир.
type Tournament struct {
	ID           int              `json:"id" db:"id"`
	Name         string           `json:"name" db:"name"`
	Game         string           `json:"game" db:"game"`
	MaxPlayers   int              `json:"max_players" db:"max_players"`
	CurrentRound int              `json:"current_round" db:"current_round"`
	TotalRounds  int              `json:"total_rounds" db:"total_rounds"`
	Status       TournamentStatus `json:"status" db:"status"`
	StartTime    time.Time        `json:"start_time" db:"start_time"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty" db:"completed_at"`
}
