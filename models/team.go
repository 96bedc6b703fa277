package models

import "time"

// Team — команда из четырёх игроков, зарегистрированная на турнир.
// Записи команд никогда не удаляются: eliminated_at_round и final_rank
// сохраняют историю турнира после удаления комнат.
type Team struct {
	ID                int       `json:"id" db:"id"`
	TournamentID      int       `json:"tournament_id" db:"tournament_id"`
	Name              string    `json:"name" db:"name"`
	CurrentRound      int       `json:"current_round" db:"current_round"`
	IsEliminated      bool      `json:"is_eliminated" db:"is_eliminated"`
	EliminatedAtRound *int      `json:"eliminated_at_round,omitempty" db:"eliminated_at_round"`
	FinalRank         *int      `json:"final_rank,omitempty" db:"final_rank"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}
