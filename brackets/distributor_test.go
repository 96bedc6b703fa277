package brackets

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededDistributor(seed int64) *RoomDistributor {
	return NewRoomDistributor(rand.New(rand.NewSource(seed)))
}

func teamPool(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i + 1
	}
	return ids
}

func TestDistributeCapacityAndCompleteness(t *testing.T) {
	testCases := []struct {
		name      string
		teams     int
		capacity  int
		wantRooms int
		wantLast  int // размер последней комнаты
	}{
		{name: "full rooms", teams: 100, capacity: 25, wantRooms: 4, wantLast: 25},
		{name: "partial last room", teams: 500, capacity: 12, wantRooms: 42, wantLast: 8},
		{name: "single partial room", teams: 7, capacity: 12, wantRooms: 1, wantLast: 7},
		{name: "one team", teams: 1, capacity: 25, wantRooms: 1, wantLast: 1},
	}

	base := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := seededDistributor(42)
			rooms := d.Distribute(teamPool(tc.teams), tc.capacity, base)
			require.Len(t, rooms, tc.wantRooms)

			seen := make(map[int]bool)
			for i, room := range rooms {
				assert.Equal(t, i+1, room.RoomNumber)
				assert.LessOrEqual(t, len(room.TeamIDs), tc.capacity)
				if i < len(rooms)-1 {
					// Неполной может быть только последняя комната.
					assert.Len(t, room.TeamIDs, tc.capacity)
				}
				for _, id := range room.TeamIDs {
					assert.False(t, seen[id], "team %d assigned twice", id)
					seen[id] = true
				}
			}
			assert.Len(t, rooms[len(rooms)-1].TeamIDs, tc.wantLast)
			assert.Len(t, seen, tc.teams, "partition must cover the whole pool")
		})
	}
}

func TestDistributeSchedulingSpacing(t *testing.T) {
	base := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	rooms := seededDistributor(7).Distribute(teamPool(100), 25, base)
	require.Len(t, rooms, 4)

	for i, room := range rooms {
		assert.Equal(t, base.Add(time.Duration(i)*RoomSpacing), room.ScheduledTime)
	}
}

func TestDistributeShufflesPool(t *testing.T) {
	base := time.Now()
	first := seededDistributor(1).Distribute(teamPool(50), 10, base)
	second := seededDistributor(2).Distribute(teamPool(50), 10, base)

	// Разные seed практически наверняка дают разные составы первой комнаты.
	assert.NotEqual(t, first[0].TeamIDs, second[0].TeamIDs)
}

func TestDistributeEmptyInput(t *testing.T) {
	rooms := seededDistributor(3).Distribute(nil, 25, time.Now())
	assert.Empty(t, rooms)
}

func TestDistributeDoesNotMutateInput(t *testing.T) {
	original := teamPool(20)
	snapshot := append([]int(nil), original...)

	seededDistributor(9).Distribute(original, 6, time.Now())
	assert.Equal(t, snapshot, original)
}
