package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/arenaprime/bracket-engine/models"
)

var ErrTournamentNotFound = errors.New("tournament not found")

type TournamentRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	UpdateStatusAndRound(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus, currentRound int) error
	MarkCompleted(ctx context.Context, exec SQLExecutor, id int, completedAt time.Time) error
	// AdvisoryLock берёт advisory-блокировку уровня транзакции на турнир,
	// сериализуя конкурентные объявления победителей (exec обязан быть *sql.Tx).
	AdvisoryLock(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, name, game, max_players, current_round, total_rounds, status, start_time, created_at, completed_at
		FROM tournaments
		WHERE id = $1`

	t := &models.Tournament{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.Game, &t.MaxPlayers, &t.CurrentRound, &t.TotalRounds,
		&t.Status, &t.StartTime, &t.CreatedAt, &t.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) UpdateStatusAndRound(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus, currentRound int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET status = $1, current_round = $2 WHERE id = $3`
	result, err := executor.ExecContext(ctx, query, status, currentRound, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament %d status: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) MarkCompleted(ctx context.Context, exec SQLExecutor, id int, completedAt time.Time) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET status = $1, completed_at = $2 WHERE id = $3`
	result, err := executor.ExecContext(ctx, query, models.StatusCompleted, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark tournament %d completed: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) AdvisoryLock(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	if _, err := executor.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, id); err != nil {
		return fmt.Errorf("failed to acquire advisory lock for tournament %d: %w", id, err)
	}
	return nil
}
