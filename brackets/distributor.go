package brackets

import (
	"math/rand"
	"time"
)

// RoomSpacing — фиксированный интервал между стартами комнат одного раунда,
// буфер против одновременного создания лобби.
const RoomSpacing = 15 * time.Minute

// RoomDistribution — одна комната, полученная при разбиении пула команд.
type RoomDistribution struct {
	RoomNumber    int       `json:"room_number"`
	TeamIDs       []int     `json:"team_ids"`
	ScheduledTime time.Time `json:"scheduled_time"`
}

// RoomDistributor случайно перемешивает пул команд и нарезает его на комнаты
// ограниченной вместимости. Источник случайности инжектируется, чтобы тесты
// могли фиксировать seed; в проде используется невоспроизводимый shuffle.
type RoomDistributor struct {
	rng *rand.Rand
}

func NewRoomDistributor(rng *rand.Rand) *RoomDistributor {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RoomDistributor{rng: rng}
}

// Distribute разбивает команды на комнаты по capacity, последняя комната может
// быть неполной. Комната i стартует в baseTime + i*RoomSpacing.
// Пустой вход даёт пустой результат, ошибок нет.
func (d *RoomDistributor) Distribute(teamIDs []int, capacity int, baseTime time.Time) []RoomDistribution {
	if len(teamIDs) == 0 || capacity <= 0 {
		return []RoomDistribution{}
	}

	shuffled := make([]int, len(teamIDs))
	copy(shuffled, teamIDs)
	d.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	rooms := make([]RoomDistribution, 0, ceilDiv(len(shuffled), capacity))
	for start := 0; start < len(shuffled); start += capacity {
		end := start + capacity
		if end > len(shuffled) {
			end = len(shuffled)
		}
		roomIdx := len(rooms)
		rooms = append(rooms, RoomDistribution{
			RoomNumber:    roomIdx + 1,
			TeamIDs:       shuffled[start:end],
			ScheduledTime: baseTime.Add(time.Duration(roomIdx) * RoomSpacing),
		})
	}
	return rooms
}
