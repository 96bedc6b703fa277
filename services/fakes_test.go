package services

import (
	"context"
	"sort"
	"time"

	"github.com/arenaprime/bracket-engine/models"
	"github.com/arenaprime/bracket-engine/repositories"
)

// fakeStore — репозитории в памяти для тестов движка, без БД.
// Реализует все три интерфейса репозиториев поверх общих карт.
type fakeStore struct {
	tournaments map[int]*models.Tournament
	teams       map[int]*models.Team
	rooms       map[int]*models.Room

	nextTeamID       int
	nextRoomID       int
	nextAssignmentID int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tournaments: make(map[int]*models.Tournament),
		teams:       make(map[int]*models.Team),
		rooms:       make(map[int]*models.Room),
	}
}

func (f *fakeStore) addTournament(t *models.Tournament) *models.Tournament {
	f.tournaments[t.ID] = t
	return t
}

func (f *fakeStore) addTeams(tournamentID, count, currentRound int) []int {
	ids := make([]int, 0, count)
	for i := 0; i < count; i++ {
		f.nextTeamID++
		f.teams[f.nextTeamID] = &models.Team{
			ID:           f.nextTeamID,
			TournamentID: tournamentID,
			CurrentRound: currentRound,
		}
		ids = append(ids, f.nextTeamID)
	}
	return ids
}

func (f *fakeStore) roomIDsByRound(tournamentID, round int) []int {
	ids := make([]int, 0)
	for id, room := range f.rooms {
		if room.TournamentID == tournamentID && room.RoundNumber == round {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// --- TournamentRepository ---

func (f *fakeStore) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	t, ok := f.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	clone := *t
	return &clone, nil
}

func (f *fakeStore) UpdateStatusAndRound(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentStatus, currentRound int) error {
	t, ok := f.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	t.CurrentRound = currentRound
	return nil
}

func (f *fakeStore) MarkCompleted(ctx context.Context, exec repositories.SQLExecutor, id int, completedAt time.Time) error {
	t, ok := f.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = models.StatusCompleted
	t.CompletedAt = &completedAt
	return nil
}

func (f *fakeStore) AdvisoryLock(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	return nil
}

// --- TeamRepository ---

func (f *fakeStore) ListActiveByRound(ctx context.Context, exec repositories.SQLExecutor, tournamentID, round int) ([]*models.Team, error) {
	teams := make([]*models.Team, 0)
	for _, t := range f.teams {
		if t.TournamentID == tournamentID && t.CurrentRound == round && !t.IsEliminated {
			clone := *t
			teams = append(teams, &clone)
		}
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID < teams[j].ID })
	return teams, nil
}

func (f *fakeStore) AdvanceTeam(ctx context.Context, exec repositories.SQLExecutor, teamID int) error {
	t, ok := f.teams[teamID]
	if !ok || t.IsEliminated {
		return repositories.ErrTeamNotFound
	}
	t.CurrentRound++
	return nil
}

func (f *fakeStore) EliminateTeams(ctx context.Context, exec repositories.SQLExecutor, teamIDs []int, round int) error {
	for _, id := range teamIDs {
		if t, ok := f.teams[id]; ok {
			eliminatedAt := round
			t.IsEliminated = true
			t.EliminatedAtRound = &eliminatedAt
		}
	}
	return nil
}

func (f *fakeStore) SetFinalRank(ctx context.Context, exec repositories.SQLExecutor, teamID, rank int) error {
	t, ok := f.teams[teamID]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	r := rank
	t.FinalRank = &r
	return nil
}

func (f *fakeStore) GetCounts(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (*repositories.TeamCounts, error) {
	counts := &repositories.TeamCounts{}
	for _, t := range f.teams {
		if t.TournamentID != tournamentID {
			continue
		}
		counts.Total++
		if t.IsEliminated {
			counts.Eliminated++
		} else {
			counts.Active++
		}
	}
	return counts, nil
}

// --- RoomRepository ---

func (f *fakeStore) GetRoomByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Room, error) {
	room, ok := f.rooms[id]
	if !ok {
		return nil, repositories.ErrRoomNotFound
	}
	clone := *room
	clone.Assignments = nil
	return &clone, nil
}

func (f *fakeStore) CreateWithAssignments(ctx context.Context, exec repositories.SQLExecutor, room *models.Room, teamIDs []int) error {
	f.nextRoomID++
	room.ID = f.nextRoomID
	room.CreatedAt = time.Now()

	stored := *room
	stored.Assignments = make([]models.RoomAssignment, 0, len(teamIDs))
	for slot, teamID := range teamIDs {
		f.nextAssignmentID++
		stored.Assignments = append(stored.Assignments, models.RoomAssignment{
			ID:         f.nextAssignmentID,
			RoomID:     room.ID,
			TeamID:     teamID,
			SlotNumber: slot + 1,
		})
	}
	f.rooms[room.ID] = &stored
	room.Assignments = append([]models.RoomAssignment(nil), stored.Assignments...)
	return nil
}

func (f *fakeStore) ListAssignments(ctx context.Context, exec repositories.SQLExecutor, roomID int) ([]models.RoomAssignment, error) {
	room, ok := f.rooms[roomID]
	if !ok {
		return nil, repositories.ErrRoomNotFound
	}
	return append([]models.RoomAssignment(nil), room.Assignments...), nil
}

func (f *fakeStore) ListByRound(ctx context.Context, exec repositories.SQLExecutor, tournamentID, round int) ([]*models.Room, error) {
	rooms := make([]*models.Room, 0)
	for _, id := range f.roomIDsByRound(tournamentID, round) {
		clone := *f.rooms[id]
		clone.Assignments = nil
		rooms = append(rooms, &clone)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].RoomNumber < rooms[j].RoomNumber })
	return rooms, nil
}

func (f *fakeStore) CountPendingByRound(ctx context.Context, exec repositories.SQLExecutor, tournamentID, round int) (int, error) {
	pending := 0
	for _, room := range f.rooms {
		if room.TournamentID == tournamentID && room.RoundNumber == round && room.Status != models.RoomStatusCompleted {
			pending++
		}
	}
	return pending, nil
}

func (f *fakeStore) SetWinner(ctx context.Context, exec repositories.SQLExecutor, roomID, winnerTeamID int) error {
	room, ok := f.rooms[roomID]
	if !ok {
		return repositories.ErrRoomNotFound
	}
	winner := winnerTeamID
	room.Status = models.RoomStatusCompleted
	room.WinnerTeamID = &winner
	return nil
}

func (f *fakeStore) MarkAssignmentWinner(ctx context.Context, exec repositories.SQLExecutor, roomID, teamID, matchRank int) error {
	room, ok := f.rooms[roomID]
	if !ok {
		return repositories.ErrRoomNotFound
	}
	for i := range room.Assignments {
		if room.Assignments[i].TeamID == teamID {
			rank := matchRank
			room.Assignments[i].IsWinner = true
			room.Assignments[i].MatchRank = &rank
			return nil
		}
	}
	return repositories.ErrAssignmentNotFound
}

func (f *fakeStore) DeleteByRound(ctx context.Context, exec repositories.SQLExecutor, tournamentID, round int) error {
	for _, id := range f.roomIDsByRound(tournamentID, round) {
		delete(f.rooms, id)
	}
	return nil
}

func (f *fakeStore) StatsByRound(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]models.RoundRoomStats, error) {
	byRound := make(map[int]*models.RoundRoomStats)
	for _, room := range f.rooms {
		if room.TournamentID != tournamentID {
			continue
		}
		s, ok := byRound[room.RoundNumber]
		if !ok {
			s = &models.RoundRoomStats{RoundNumber: room.RoundNumber}
			byRound[room.RoundNumber] = s
		}
		s.TotalRooms++
		if room.Status == models.RoomStatusCompleted {
			s.CompletedRooms++
		}
	}
	stats := make([]models.RoundRoomStats, 0, len(byRound))
	for _, s := range byRound {
		stats = append(stats, *s)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].RoundNumber < stats[j].RoundNumber })
	return stats, nil
}

// roomRepoAdapter разводит GetByID комнат и турниров: fakeStore не может
// реализовать оба интерфейса одним методом.
type roomRepoAdapter struct {
	*fakeStore
}

func (a roomRepoAdapter) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Room, error) {
	return a.GetRoomByID(ctx, exec, id)
}
