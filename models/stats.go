package models

// RoundRoomStats — счётчики комнат одного раунда для отображения прогресса.
type RoundRoomStats struct {
	RoundNumber    int `json:"round_number"`
	TotalRooms     int `json:"total_rooms"`
	CompletedRooms int `json:"completed_rooms"`
}

// TournamentStats — агрегированный прогресс турнира. Только чтение,
// отсутствующие строки трактуются как нули.
type TournamentStats struct {
	Tournament      *Tournament      `json:"tournament"`
	TotalTeams      int              `json:"total_teams"`
	ActiveTeams     int              `json:"active_teams"`
	EliminatedTeams int              `json:"eliminated_teams"`
	RoomsByRound    []RoundRoomStats `json:"rooms_by_round"`
}
