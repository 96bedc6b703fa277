package models

// SquadSize — команды всегда состоят из четырёх игроков.
const SquadSize = 4

// GameConfig задаёт вместимость комнаты для конкретной игры.
type GameConfig struct {
	PlayersPerRoom int `json:"players_per_room"`
	TeamsPerRoom   int `json:"teams_per_room"`
}

// DefaultGameConfigs — поддерживаемые игры и их вместимости. Таблица
// инжектируется в сервис один раз при старте, а не выводится заново
// на каждый вызов.
func DefaultGameConfigs() map[string]GameConfig {
	return map[string]GameConfig{
		"BGMI":      {PlayersPerRoom: 100, TeamsPerRoom: 25},
		"Free Fire": {PlayersPerRoom: 50, TeamsPerRoom: 12},
	}
}
