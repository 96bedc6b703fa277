package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arenaprime/bracket-engine/models"
	"github.com/lib/pq"
)

var (
	ErrRoomNotFound          = errors.New("room not found")
	ErrAssignmentNotFound    = errors.New("room assignment not found")
	ErrAssignmentConflict    = errors.New("team is already assigned to this room")
	ErrRoomTournamentInvalid = errors.New("room tournament conflict or invalid")
	ErrAssignmentTeamInvalid = errors.New("assignment team conflict or invalid")
)

type RoomRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Room, error)
	// CreateWithAssignments вставляет комнату и по одному назначению на команду
	// со слотами 1..len(teamIDs) в порядке среза.
	CreateWithAssignments(ctx context.Context, exec SQLExecutor, room *models.Room, teamIDs []int) error
	ListAssignments(ctx context.Context, exec SQLExecutor, roomID int) ([]models.RoomAssignment, error)
	ListByRound(ctx context.Context, exec SQLExecutor, tournamentID, round int) ([]*models.Room, error)
	CountPendingByRound(ctx context.Context, exec SQLExecutor, tournamentID, round int) (int, error)
	SetWinner(ctx context.Context, exec SQLExecutor, roomID, winnerTeamID int) error
	MarkAssignmentWinner(ctx context.Context, exec SQLExecutor, roomID, teamID, matchRank int) error
	// DeleteByRound удаляет комнаты раунда вместе с назначениями. Историю
	// хранят только записи команд.
	DeleteByRound(ctx context.Context, exec SQLExecutor, tournamentID, round int) error
	StatsByRound(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.RoundRoomStats, error)
}

type postgresRoomRepository struct {
	db *sql.DB
}

func NewPostgresRoomRepository(db *sql.DB) RoomRepository {
	return &postgresRoomRepository{db: db}
}

func (r *postgresRoomRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRoomRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Room, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, round_number, room_number, name, scheduled_time, status, winner_team_id, created_at
		FROM rooms
		WHERE id = $1`

	room := &models.Room{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&room.ID, &room.TournamentID, &room.RoundNumber, &room.RoomNumber,
		&room.Name, &room.ScheduledTime, &room.Status, &room.WinnerTeamID, &room.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return room, nil
}

func (r *postgresRoomRepository) CreateWithAssignments(ctx context.Context, exec SQLExecutor, room *models.Room, teamIDs []int) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO rooms (tournament_id, round_number, room_number, name, scheduled_time, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		room.TournamentID, room.RoundNumber, room.RoomNumber,
		room.Name, room.ScheduledTime, room.Status,
	).Scan(&room.ID, &room.CreatedAt)
	if err != nil {
		return r.handleRoomError(err)
	}

	assignQuery := `
		INSERT INTO room_assignments (room_id, team_id, slot_number)
		VALUES ($1, $2, $3)
		RETURNING id`
	room.Assignments = make([]models.RoomAssignment, 0, len(teamIDs))
	for slot, teamID := range teamIDs {
		a := models.RoomAssignment{RoomID: room.ID, TeamID: teamID, SlotNumber: slot + 1}
		if err := executor.QueryRowContext(ctx, assignQuery, a.RoomID, a.TeamID, a.SlotNumber).Scan(&a.ID); err != nil {
			return r.handleRoomError(err)
		}
		room.Assignments = append(room.Assignments, a)
	}
	return nil
}

func (r *postgresRoomRepository) ListAssignments(ctx context.Context, exec SQLExecutor, roomID int) ([]models.RoomAssignment, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, room_id, team_id, slot_number, is_winner, match_rank
		FROM room_assignments
		WHERE room_id = $1
		ORDER BY slot_number`

	rows, err := executor.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := make([]models.RoomAssignment, 0)
	for rows.Next() {
		var a models.RoomAssignment
		if scanErr := rows.Scan(&a.ID, &a.RoomID, &a.TeamID, &a.SlotNumber, &a.IsWinner, &a.MatchRank); scanErr != nil {
			return nil, scanErr
		}
		assignments = append(assignments, a)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *postgresRoomRepository) ListByRound(ctx context.Context, exec SQLExecutor, tournamentID, round int) ([]*models.Room, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, round_number, room_number, name, scheduled_time, status, winner_team_id, created_at
		FROM rooms
		WHERE tournament_id = $1 AND round_number = $2
		ORDER BY room_number`

	rows, err := executor.QueryContext(ctx, query, tournamentID, round)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := make([]*models.Room, 0)
	for rows.Next() {
		var room models.Room
		if scanErr := rows.Scan(
			&room.ID, &room.TournamentID, &room.RoundNumber, &room.RoomNumber,
			&room.Name, &room.ScheduledTime, &room.Status, &room.WinnerTeamID, &room.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		rooms = append(rooms, &room)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *postgresRoomRepository) CountPendingByRound(ctx context.Context, exec SQLExecutor, tournamentID, round int) (int, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT COUNT(*) FROM rooms
		WHERE tournament_id = $1 AND round_number = $2 AND status <> $3`

	var pending int
	err := executor.QueryRowContext(ctx, query, tournamentID, round, models.RoomStatusCompleted).Scan(&pending)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending rooms for tournament %d round %d: %w", tournamentID, round, err)
	}
	return pending, nil
}

func (r *postgresRoomRepository) SetWinner(ctx context.Context, exec SQLExecutor, roomID, winnerTeamID int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE rooms SET status = $1, winner_team_id = $2 WHERE id = $3`
	result, err := executor.ExecContext(ctx, query, models.RoomStatusCompleted, winnerTeamID, roomID)
	if err != nil {
		return r.handleRoomError(err)
	}
	return checkAffectedRows(result, ErrRoomNotFound)
}

func (r *postgresRoomRepository) MarkAssignmentWinner(ctx context.Context, exec SQLExecutor, roomID, teamID, matchRank int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE room_assignments SET is_winner = TRUE, match_rank = $1 WHERE room_id = $2 AND team_id = $3`
	result, err := executor.ExecContext(ctx, query, matchRank, roomID, teamID)
	if err != nil {
		return r.handleRoomError(err)
	}
	return checkAffectedRows(result, ErrAssignmentNotFound)
}

func (r *postgresRoomRepository) DeleteByRound(ctx context.Context, exec SQLExecutor, tournamentID, round int) error {
	executor := r.getExecutor(exec)
	// Сначала назначения, затем комнаты: FK без каскада.
	deleteAssignments := `
		DELETE FROM room_assignments
		WHERE room_id IN (SELECT id FROM rooms WHERE tournament_id = $1 AND round_number = $2)`
	if _, err := executor.ExecContext(ctx, deleteAssignments, tournamentID, round); err != nil {
		return fmt.Errorf("failed to delete assignments for tournament %d round %d: %w", tournamentID, round, err)
	}
	deleteRooms := `DELETE FROM rooms WHERE tournament_id = $1 AND round_number = $2`
	if _, err := executor.ExecContext(ctx, deleteRooms, tournamentID, round); err != nil {
		return fmt.Errorf("failed to delete rooms for tournament %d round %d: %w", tournamentID, round, err)
	}
	return nil
}

func (r *postgresRoomRepository) StatsByRound(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.RoundRoomStats, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT round_number,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE status = $2)
		FROM rooms
		WHERE tournament_id = $1
		GROUP BY round_number
		ORDER BY round_number`

	rows, err := executor.QueryContext(ctx, query, tournamentID, models.RoomStatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]models.RoundRoomStats, 0)
	for rows.Next() {
		var s models.RoundRoomStats
		if scanErr := rows.Scan(&s.RoundNumber, &s.TotalRooms, &s.CompletedRooms); scanErr != nil {
			return nil, scanErr
		}
		stats = append(stats, s)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *postgresRoomRepository) handleRoomError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505": // unique_violation
			if pqErr.Constraint == "room_assignments_room_id_team_id_key" {
				return ErrAssignmentConflict
			}
		case "23503": // foreign_key_violation
			switch pqErr.Constraint {
			case "rooms_tournament_id_fkey":
				return ErrRoomTournamentInvalid
			case "room_assignments_team_id_fkey":
				return ErrAssignmentTeamInvalid
			case "room_assignments_room_id_fkey":
				return ErrRoomNotFound
			}
		}
	}
	return err
}
