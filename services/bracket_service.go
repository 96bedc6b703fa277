package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arenaprime/bracket-engine/brackets"
	"github.com/arenaprime/bracket-engine/models"
	"github.com/arenaprime/bracket-engine/repositories"
	"github.com/arenaprime/bracket-engine/storage"
	"golang.org/x/sync/errgroup"
)

// GenerateRoundResult — итог материализации раунда.
type GenerateRoundResult struct {
	RoomsCreated  int  `json:"rooms_created"`
	TeamsAssigned int  `json:"teams_assigned"`
	IsFinalRound  bool `json:"is_final_round"`
}

// DeclareWinnerResult — итог объявления победителя комнаты.
type DeclareWinnerResult struct {
	RoundComplete      bool `json:"round_complete"`
	NextRoundGenerated bool `json:"next_round_generated"`
	NewRoomsCreated    int  `json:"new_rooms_created"`
	IsFinalRound       bool `json:"is_final_round"`
}

// StartNextRoundResult — итог ручного запуска следующего раунда.
type StartNextRoundResult struct {
	NewRoomsCreated int  `json:"new_rooms_created"`
	IsFinalRound    bool `json:"is_final_round"`
	NextRound       int  `json:"next_round"`
	TeamsAdvanced   int  `json:"teams_advanced"`
}

type BracketService interface {
	CalculateStructure(game string, maxPlayers int) (*brackets.TournamentStructure, error)
	GenerateRound(ctx context.Context, tournamentID, roundNumber int) (*GenerateRoundResult, error)
	DeclareRoomWinner(ctx context.Context, roomID, winnerTeamID int) (*DeclareWinnerResult, error)
	StartNextRound(ctx context.Context, tournamentID, currentRound int) (*StartNextRoundResult, error)
	DeclareFinalWinners(ctx context.Context, tournamentID, firstTeamID, secondTeamID, thirdTeamID int) error
	GetTournamentStats(ctx context.Context, tournamentID int) (*models.TournamentStats, error)
	CurrentRooms(ctx context.Context, tournamentID int) ([]*models.Room, error)
}

type bracketService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	roomRepo       repositories.RoomRepository
	games          map[string]models.GameConfig
	distributor    *brackets.RoomDistributor
	hub            *brackets.Hub
	archiver       storage.ResultsArchiver
	logger         *slog.Logger
	now            func() time.Time
}

func NewBracketService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	roomRepo repositories.RoomRepository,
	games map[string]models.GameConfig,
	distributor *brackets.RoomDistributor,
	hub *brackets.Hub,
	archiver storage.ResultsArchiver,
	logger *slog.Logger,
) BracketService {
	if logger == nil {
		logger = slog.Default()
	}
	return &bracketService{
		db:             db,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		roomRepo:       roomRepo,
		games:          games,
		distributor:    distributor,
		hub:            hub,
		archiver:       archiver,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// runInTx выполняет fn внутри транзакции с отложенным rollback/commit.
// При сконструированном без БД сервисе (тесты с фейковыми репозиториями)
// fn выполняется без транзакции.
func (s *bracketService) runInTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	if s.db == nil {
		return fn(nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *bracketService) gameConfig(game string) (models.GameConfig, error) {
	cfg, ok := s.games[game]
	if !ok {
		return models.GameConfig{}, fmt.Errorf("%w: %q", ErrUnknownGame, game)
	}
	return cfg, nil
}

// CalculateStructure — чистый предварительный расчёт формы турнира.
func (s *bracketService) CalculateStructure(game string, maxPlayers int) (*brackets.TournamentStructure, error) {
	cfg, err := s.gameConfig(game)
	if err != nil {
		return nil, err
	}
	structure, err := brackets.CalculateStructure(cfg, maxPlayers)
	if err != nil {
		if errors.Is(err, brackets.ErrNoPlayers) {
			return nil, ErrInvalidMaxPlayers
		}
		return nil, err
	}
	return structure, nil
}

// GenerateRound распределяет допущенные к раунду команды по комнатам и
// переводит турнир в статус раунда (или сразу в финал, если все команды
// помещаются в одну комнату).
func (s *bracketService) GenerateRound(ctx context.Context, tournamentID, roundNumber int) (*GenerateRoundResult, error) {
	result := &GenerateRoundResult{}

	err := s.runInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.tournamentRepo.AdvisoryLock(ctx, exec, tournamentID); err != nil {
			return err
		}
		tournament, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID)
		if err != nil {
			return mapRepoError(err)
		}
		cfg, err := s.gameConfig(tournament.Game)
		if err != nil {
			return err
		}
		if tournament.Status == models.StatusCompleted {
			return ErrTournamentCompleted
		}

		// Повторный вызов для уже материализованного раунда отклоняется:
		// иначе каждая команда оказалась бы в двух комнатах одного раунда.
		existing, err := s.roomRepo.ListByRound(ctx, exec, tournamentID, roundNumber)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return ErrRoundAlreadyGenerated
		}

		teams, err := s.teamRepo.ListActiveByRound(ctx, exec, tournamentID, roundNumber)
		if err != nil {
			return err
		}
		if len(teams) == 0 {
			return ErrNoAdvancingTeams
		}

		created, isFinal, err := s.createRoundRooms(ctx, exec, tournament, cfg, roundNumber, teams)
		if err != nil {
			return err
		}
		result.RoomsCreated = created
		result.TeamsAssigned = len(teams)
		result.IsFinalRound = isFinal
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("round generated",
		slog.Int("tournament_id", tournamentID),
		slog.Int("round", roundNumber),
		slog.Int("rooms", result.RoomsCreated),
		slog.Bool("finale", result.IsFinalRound))
	return result, nil
}

// DeclareRoomWinner — центральный переход автомата состояний: фиксирует
// победителя комнаты, выбивает проигравших и, если раунд закрыт последним,
// автоматически создаёт следующий раунд или финал.
func (s *bracketService) DeclareRoomWinner(ctx context.Context, roomID, winnerTeamID int) (*DeclareWinnerResult, error) {
	result := &DeclareWinnerResult{}
	var tournamentID int

	err := s.runInTx(ctx, func(exec repositories.SQLExecutor) error {
		room, err := s.roomRepo.GetByID(ctx, exec, roomID)
		if err != nil {
			return mapRepoError(err)
		}
		if err := s.tournamentRepo.AdvisoryLock(ctx, exec, room.TournamentID); err != nil {
			return err
		}
		tournament, err := s.tournamentRepo.GetByID(ctx, exec, room.TournamentID)
		if err != nil {
			return mapRepoError(err)
		}
		tournamentID = tournament.ID
		cfg, err := s.gameConfig(tournament.Game)
		if err != nil {
			return err
		}

		if room.Status == models.RoomStatusCompleted {
			return ErrRoomCompleted
		}

		// Проверка до любых мутаций: победитель должен состоять в комнате.
		assignments, err := s.roomRepo.ListAssignments(ctx, exec, roomID)
		if err != nil {
			return err
		}
		losers := make([]int, 0, len(assignments))
		winnerAssigned := false
		for _, a := range assignments {
			if a.TeamID == winnerTeamID {
				winnerAssigned = true
				continue
			}
			losers = append(losers, a.TeamID)
		}
		if !winnerAssigned {
			return ErrInvalidWinner
		}

		if err := s.roomRepo.SetWinner(ctx, exec, roomID, winnerTeamID); err != nil {
			return err
		}
		if err := s.roomRepo.MarkAssignmentWinner(ctx, exec, roomID, winnerTeamID, 1); err != nil {
			return err
		}
		if err := s.teamRepo.AdvanceTeam(ctx, exec, winnerTeamID); err != nil {
			return err
		}
		if err := s.teamRepo.EliminateTeams(ctx, exec, losers, room.RoundNumber); err != nil {
			return err
		}

		pending, err := s.roomRepo.CountPendingByRound(ctx, exec, tournament.ID, room.RoundNumber)
		if err != nil {
			return err
		}
		if pending > 0 {
			// Раунд ещё идёт, прогресс не запускаем.
			return nil
		}

		result.RoundComplete = true
		created, isFinal, _, err := s.materializeNextRound(ctx, exec, tournament, cfg, room.RoundNumber)
		if err != nil {
			return err
		}
		result.NextRoundGenerated = true
		result.NewRoomsCreated = created
		result.IsFinalRound = isFinal
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(tournamentID, brackets.EventRoomCompleted, map[string]interface{}{
		"room_id":        roomID,
		"winner_team_id": winnerTeamID,
	})
	if result.RoundComplete {
		s.broadcast(tournamentID, brackets.EventRoundCompleted, result)
		if result.IsFinalRound {
			s.broadcast(tournamentID, brackets.EventFinaleStarted, nil)
		}
	}
	s.logger.Info("room winner declared",
		slog.Int("room_id", roomID),
		slog.Int("winner_team_id", winnerTeamID),
		slog.Bool("round_complete", result.RoundComplete))
	return result, nil
}

// StartNextRound — ручной запасной вариант той же логики материализации.
// Безопасен для повторов после частичного сбоя: состояние перечитывается
// заново, промежуточным значениям он не доверяет.
func (s *bracketService) StartNextRound(ctx context.Context, tournamentID, currentRound int) (*StartNextRoundResult, error) {
	result := &StartNextRoundResult{}

	err := s.runInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.tournamentRepo.AdvisoryLock(ctx, exec, tournamentID); err != nil {
			return err
		}
		tournament, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID)
		if err != nil {
			return mapRepoError(err)
		}
		cfg, err := s.gameConfig(tournament.Game)
		if err != nil {
			return err
		}
		if tournament.Status == models.StatusCompleted {
			return ErrTournamentCompleted
		}
		// Защита от повтора со stale-раундом: после материализации
		// current_round турнира уже указывает на следующий раунд, и
		// комнаты закрытого раунда удалены, так что проверка pending
		// сама по себе пропустила бы повторный вызов.
		if tournament.CurrentRound != currentRound {
			return ErrRoundMismatch
		}

		pending, err := s.roomRepo.CountPendingByRound(ctx, exec, tournamentID, currentRound)
		if err != nil {
			return err
		}
		if pending > 0 {
			return ErrRoundIncomplete
		}

		created, isFinal, advanced, err := s.materializeNextRound(ctx, exec, tournament, cfg, currentRound)
		if err != nil {
			return err
		}
		result.NewRoomsCreated = created
		result.IsFinalRound = isFinal
		result.NextRound = currentRound + 1
		result.TeamsAdvanced = advanced
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(tournamentID, brackets.EventRoundCompleted, result)
	if result.IsFinalRound {
		s.broadcast(tournamentID, brackets.EventFinaleStarted, nil)
	}
	return result, nil
}

// materializeNextRound удаляет комнаты закрытого раунда и создаёт комнаты
// следующего раунда либо единственную комнату финала.
func (s *bracketService) materializeNextRound(
	ctx context.Context,
	exec repositories.SQLExecutor,
	tournament *models.Tournament,
	cfg models.GameConfig,
	finishedRound int,
) (roomsCreated int, isFinal bool, teamsAdvanced int, err error) {
	nextRound := finishedRound + 1

	existing, err := s.roomRepo.ListByRound(ctx, exec, tournament.ID, nextRound)
	if err != nil {
		return 0, false, 0, err
	}
	if len(existing) > 0 {
		return 0, false, 0, ErrRoundAlreadyGenerated
	}

	winners, err := s.teamRepo.ListActiveByRound(ctx, exec, tournament.ID, nextRound)
	if err != nil {
		return 0, false, 0, err
	}
	if len(winners) == 0 {
		return 0, false, 0, ErrNoAdvancingTeams
	}

	// Детали комнат закрытого раунда не сохраняются, история остаётся
	// только на уровне команд.
	if err := s.roomRepo.DeleteByRound(ctx, exec, tournament.ID, finishedRound); err != nil {
		return 0, false, 0, err
	}

	created, final, err := s.createRoundRooms(ctx, exec, tournament, cfg, nextRound, winners)
	if err != nil {
		return 0, false, 0, err
	}
	return created, final, len(winners), nil
}

// createRoundRooms материализует комнаты раунда. Если все команды помещаются
// в одну комнату, раунд является финалом: создаётся одна комната без
// перемешивания, составы сохраняют текущий порядок.
func (s *bracketService) createRoundRooms(
	ctx context.Context,
	exec repositories.SQLExecutor,
	tournament *models.Tournament,
	cfg models.GameConfig,
	round int,
	teams []*models.Team,
) (int, bool, error) {
	teamIDs := make([]int, len(teams))
	for i, t := range teams {
		teamIDs[i] = t.ID
	}

	if len(teams) <= cfg.TeamsPerRoom {
		room := &models.Room{
			TournamentID: tournament.ID,
			RoundNumber:  round,
			RoomNumber:   1,
			Name:         "Finale",
			Status:       models.RoomStatusWaiting,
		}
		if err := s.roomRepo.CreateWithAssignments(ctx, exec, room, teamIDs); err != nil {
			return 0, false, err
		}
		if err := s.tournamentRepo.UpdateStatusAndRound(ctx, exec, tournament.ID, models.StatusFinale, round); err != nil {
			return 0, false, err
		}
		return 1, true, nil
	}

	// Первый раунд стартует по расписанию турнира; последующие раунды
	// планируются от текущего момента, иначе их время осталось бы в прошлом.
	baseTime := tournament.StartTime
	if round > 1 {
		baseTime = s.now()
	}

	distribution := s.distributor.Distribute(teamIDs, cfg.TeamsPerRoom, baseTime)
	for _, d := range distribution {
		scheduled := d.ScheduledTime
		room := &models.Room{
			TournamentID:  tournament.ID,
			RoundNumber:   round,
			RoomNumber:    d.RoomNumber,
			Name:          fmt.Sprintf("Round %d - Room %d", round, d.RoomNumber),
			ScheduledTime: &scheduled,
			Status:        models.RoomStatusWaiting,
		}
		if err := s.roomRepo.CreateWithAssignments(ctx, exec, room, d.TeamIDs); err != nil {
			return 0, false, err
		}
	}
	if err := s.tournamentRepo.UpdateStatusAndRound(ctx, exec, tournament.ID, models.RoundStatus(round), round); err != nil {
		return 0, false, err
	}
	return len(distribution), false, nil
}

// DeclareFinalWinners присваивает подиум (места 1..3) и завершает турнир.
// Все три команды обязаны быть участницами комнаты финала.
func (s *bracketService) DeclareFinalWinners(ctx context.Context, tournamentID, firstTeamID, secondTeamID, thirdTeamID int) error {
	podium := []int{firstTeamID, secondTeamID, thirdTeamID}
	seen := make(map[int]bool, 3)
	for _, id := range podium {
		if id <= 0 || seen[id] {
			return ErrFinalistsRequired
		}
		seen[id] = true
	}

	var tournament *models.Tournament
	err := s.runInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.tournamentRepo.AdvisoryLock(ctx, exec, tournamentID); err != nil {
			return err
		}
		t, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID)
		if err != nil {
			return mapRepoError(err)
		}
		tournament = t
		if t.Status == models.StatusCompleted {
			return ErrTournamentCompleted
		}
		if t.Status != models.StatusFinale {
			return ErrNotInFinaleStage
		}

		rooms, err := s.roomRepo.ListByRound(ctx, exec, t.ID, t.CurrentRound)
		if err != nil {
			return err
		}
		finalists := make(map[int]bool)
		var finaleRoom *models.Room
		for _, room := range rooms {
			assignments, err := s.roomRepo.ListAssignments(ctx, exec, room.ID)
			if err != nil {
				return err
			}
			for _, a := range assignments {
				finalists[a.TeamID] = true
			}
			finaleRoom = room
		}
		for _, id := range podium {
			if !finalists[id] {
				return fmt.Errorf("%w: team %d", ErrNotInFinale, id)
			}
		}

		for rank, id := range podium {
			if err := s.teamRepo.SetFinalRank(ctx, exec, id, rank+1); err != nil {
				return err
			}
		}
		if finaleRoom != nil && finaleRoom.Status != models.RoomStatusCompleted {
			if err := s.roomRepo.SetWinner(ctx, exec, finaleRoom.ID, firstTeamID); err != nil {
				return err
			}
			if err := s.roomRepo.MarkAssignmentWinner(ctx, exec, finaleRoom.ID, firstTeamID, 1); err != nil {
				return err
			}
		}
		return s.tournamentRepo.MarkCompleted(ctx, exec, t.ID, s.now())
	})
	if err != nil {
		return err
	}

	s.broadcast(tournamentID, brackets.EventTournamentCompleted, map[string]interface{}{
		"first":  firstTeamID,
		"second": secondTeamID,
		"third":  thirdTeamID,
	})
	s.archiveResults(ctx, tournament, podium)
	s.logger.Info("tournament completed",
		slog.Int("tournament_id", tournamentID),
		slog.Int("first_place_team_id", firstTeamID))
	return nil
}

// GetTournamentStats — агрегированный прогресс турнира, только чтение.
func (s *bracketService) GetTournamentStats(ctx context.Context, tournamentID int) (*models.TournamentStats, error) {
	stats := &models.TournamentStats{}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tournament, err := s.tournamentRepo.GetByID(gCtx, nil, tournamentID)
		if err != nil {
			return mapRepoError(err)
		}
		stats.Tournament = tournament
		return nil
	})
	g.Go(func() error {
		counts, err := s.teamRepo.GetCounts(gCtx, nil, tournamentID)
		if err != nil {
			return err
		}
		stats.TotalTeams = counts.Total
		stats.ActiveTeams = counts.Active
		stats.EliminatedTeams = counts.Eliminated
		return nil
	})
	g.Go(func() error {
		byRound, err := s.roomRepo.StatsByRound(gCtx, nil, tournamentID)
		if err != nil {
			return err
		}
		stats.RoomsByRound = byRound
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if stats.RoomsByRound == nil {
		stats.RoomsByRound = []models.RoundRoomStats{}
	}
	return stats, nil
}

// CurrentRooms возвращает комнаты активного раунда вместе с назначениями.
func (s *bracketService) CurrentRooms(ctx context.Context, tournamentID int) ([]*models.Room, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	rooms, err := s.roomRepo.ListByRound(ctx, nil, tournamentID, tournament.CurrentRound)
	if err != nil {
		return nil, err
	}
	for _, room := range rooms {
		assignments, err := s.roomRepo.ListAssignments(ctx, nil, room.ID)
		if err != nil {
			return nil, err
		}
		room.Assignments = assignments
	}
	return rooms, nil
}

func (s *bracketService) broadcast(tournamentID int, eventType string, payload interface{}) {
	if s.hub == nil || tournamentID == 0 {
		return
	}
	s.hub.BroadcastToTournament(brackets.TournamentChannel(tournamentID), brackets.ProgressEvent{
		Type:         eventType,
		TournamentID: tournamentID,
		Payload:      payload,
	})
}

// archiveResults выгружает итоговую таблицу в объектное хранилище.
// Лучшая попытка: сбой архивации не отменяет завершение турнира.
func (s *bracketService) archiveResults(ctx context.Context, tournament *models.Tournament, podium []int) {
	if s.archiver == nil || tournament == nil {
		return
	}
	if err := s.archiver.ArchiveFinalStandings(ctx, tournament, podium); err != nil {
		s.logger.Error("failed to archive final standings",
			slog.Int("tournament_id", tournament.ID),
			slog.Any("error", err))
	}
}

// mapRepoError переводит ошибки "не найдено" слоя репозиториев в сервисные.
func mapRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrRoomNotFound):
		return ErrRoomNotFound
	case errors.Is(err, repositories.ErrTeamNotFound):
		return ErrTeamNotFound
	}
	return err
}
