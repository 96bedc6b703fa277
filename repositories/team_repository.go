package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arenaprime/bracket-engine/models"
	"github.com/lib/pq"
)

var ErrTeamNotFound = errors.New("team not found")

// TeamCounts — агрегаты по командам турнира для статистики.
type TeamCounts struct {
	Total      int
	Active     int
	Eliminated int
}

type TeamRepository interface {
	// ListActiveByRound возвращает невыбывшие команды, допущенные к раунду.
	ListActiveByRound(ctx context.Context, exec SQLExecutor, tournamentID, round int) ([]*models.Team, error)
	// AdvanceTeam увеличивает current_round команды ровно на один.
	AdvanceTeam(ctx context.Context, exec SQLExecutor, teamID int) error
	// EliminateTeams помечает команды выбывшими в указанном раунде.
	EliminateTeams(ctx context.Context, exec SQLExecutor, teamIDs []int, round int) error
	SetFinalRank(ctx context.Context, exec SQLExecutor, teamID, rank int) error
	GetCounts(ctx context.Context, exec SQLExecutor, tournamentID int) (*TeamCounts, error)
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTeamRepository) ListActiveByRound(ctx context.Context, exec SQLExecutor, tournamentID, round int) ([]*models.Team, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, name, current_round, is_eliminated, eliminated_at_round, final_rank, created_at
		FROM teams
		WHERE tournament_id = $1 AND current_round = $2 AND is_eliminated = FALSE
		ORDER BY id`

	rows, err := executor.QueryContext(ctx, query, tournamentID, round)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		var t models.Team
		if scanErr := rows.Scan(
			&t.ID, &t.TournamentID, &t.Name, &t.CurrentRound,
			&t.IsEliminated, &t.EliminatedAtRound, &t.FinalRank, &t.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		teams = append(teams, &t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *postgresTeamRepository) AdvanceTeam(ctx context.Context, exec SQLExecutor, teamID int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE teams SET current_round = current_round + 1 WHERE id = $1 AND is_eliminated = FALSE`
	result, err := executor.ExecContext(ctx, query, teamID)
	if err != nil {
		return fmt.Errorf("failed to advance team %d: %w", teamID, err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) EliminateTeams(ctx context.Context, exec SQLExecutor, teamIDs []int, round int) error {
	if len(teamIDs) == 0 {
		return nil
	}
	executor := r.getExecutor(exec)
	query := `
		UPDATE teams
		SET is_eliminated = TRUE, eliminated_at_round = $1
		WHERE id = ANY($2)`
	if _, err := executor.ExecContext(ctx, query, round, pq.Array(teamIDs)); err != nil {
		return fmt.Errorf("failed to eliminate teams at round %d: %w", round, err)
	}
	return nil
}

func (r *postgresTeamRepository) SetFinalRank(ctx context.Context, exec SQLExecutor, teamID, rank int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE teams SET final_rank = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, rank, teamID)
	if err != nil {
		return fmt.Errorf("failed to set final rank for team %d: %w", teamID, err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) GetCounts(ctx context.Context, exec SQLExecutor, tournamentID int) (*TeamCounts, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE is_eliminated = FALSE),
			COUNT(*) FILTER (WHERE is_eliminated = TRUE)
		FROM teams
		WHERE tournament_id = $1`

	counts := &TeamCounts{}
	err := executor.QueryRowContext(ctx, query, tournamentID).Scan(&counts.Total, &counts.Active, &counts.Eliminated)
	if err != nil {
		return nil, fmt.Errorf("failed to count teams for tournament %d: %w", tournamentID, err)
	}
	return counts, nil
}
