package brackets

import (
	"errors"

	"github.com/arenaprime/bracket-engine/models"
)

// RoundPlan описывает один раунд в предварительном расчёте структуры.
type RoundPlan struct {
	Round         int  `json:"round"`
	TeamsEntering int  `json:"teams_entering"`
	Rooms         int  `json:"rooms"`
	IsFinale      bool `json:"is_finale"`
}

// TournamentStructure — неизменяемая форма турнира, выведенная из игры и
// максимального числа игроков. Чистый расчёт, без ввода-вывода: фактические
// регистрации на него не влияют.
type TournamentStructure struct {
	PlayersPerRoom int         `json:"players_per_room"`
	TeamsPerRoom   int         `json:"teams_per_room"`
	TotalTeams     int         `json:"total_teams"`
	InitialRooms   int         `json:"initial_rooms"`
	TotalRounds    int         `json:"total_rounds"`
	FinaleMaxTeams int         `json:"finale_max_teams"`
	RoundBreakdown []RoundPlan `json:"round_breakdown"`
}

var ErrNoPlayers = errors.New("max players must be positive")

// CalculateStructure выводит форму турнира: команды по 4 игрока,
// в каждой комнате побеждает ровно одна команда, финал добавляется
// отдельным раундом, когда оставшиеся команды помещаются в одну комнату.
func CalculateStructure(cfg models.GameConfig, maxPlayers int) (*TournamentStructure, error) {
	if maxPlayers <= 0 {
		return nil, ErrNoPlayers
	}

	totalTeams := ceilDiv(maxPlayers, models.SquadSize)
	initialRooms := ceilDiv(totalTeams, cfg.TeamsPerRoom)

	breakdown := make([]RoundPlan, 0, 4)
	currentTeams := totalTeams
	round := 0
	for currentTeams > cfg.TeamsPerRoom {
		round++
		rooms := ceilDiv(currentTeams, cfg.TeamsPerRoom)
		breakdown = append(breakdown, RoundPlan{
			Round:         round,
			TeamsEntering: currentTeams,
			Rooms:         rooms,
		})
		// Из каждой комнаты в следующий раунд проходит одна команда.
		currentTeams = rooms
	}

	// Финал: оставшиеся команды помещаются в одну комнату.
	round++
	breakdown = append(breakdown, RoundPlan{
		Round:         round,
		TeamsEntering: currentTeams,
		Rooms:         1,
		IsFinale:      true,
	})

	return &TournamentStructure{
		PlayersPerRoom: cfg.PlayersPerRoom,
		TeamsPerRoom:   cfg.TeamsPerRoom,
		TotalTeams:     totalTeams,
		InitialRooms:   initialRooms,
		TotalRounds:    round,
		FinaleMaxTeams: currentTeams,
		RoundBreakdown: breakdown,
	}, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
