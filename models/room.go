package models

import "time"

// RoomStatus представляет статусы комнаты, соответствующие ENUM в БД.
type RoomStatus string

const (
	RoomStatusWaiting   RoomStatus = "waiting"
	RoomStatusCompleted RoomStatus = "completed"
)

// Room — лобби одного матча в рамках раунда. Комнаты завершённого раунда
// удаляются при создании следующего раунда.
type Room struct {
	ID            int        `json:"id" db:"id"`
	TournamentID  int        `json:"tournament_id" db:"tournament_id"`
	RoundNumber   int        `json:"round_number" db:"round_number"`
	RoomNumber    int        `json:"room_number" db:"room_number"`
	Name          string     `json:"name" db:"name"`
	ScheduledTime *time.Time `json:"scheduled_time,omitempty" db:"scheduled_time"`
	Status        RoomStatus `json:"status" db:"status"`
	WinnerTeamID  *int       `json:"winner_team_id,omitempty" db:"winner_team_id"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Assignments []RoomAssignment `json:"assignments,omitempty" db:"-"`
}

// RoomAssignment — привязка команды к комнате. Уникальна по (room_id, team_id);
// команда может состоять максимум в одной комнате за раунд.
type RoomAssignment struct {
	ID         int  `json:"id" db:"id"`
	RoomID     int  `json:"room_id" db:"room_id"`
	TeamID     int  `json:"team_id" db:"team_id"`
	SlotNumber int  `json:"slot_number" db:"slot_number"`
	IsWinner   bool `json:"is_winner" db:"is_winner"`
	MatchRank  *int `json:"match_rank,omitempty" db:"match_rank"`
}
