package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/arenaprime/bracket-engine/models"
	"github.com/google/uuid"
)

// ResultsArchiver выгружает итоговую таблицу завершённого турнира
// в объектное хранилище для страницы истории.
type ResultsArchiver interface {
	ArchiveFinalStandings(ctx context.Context, tournament *models.Tournament, podium []int) error
}

type finalStandingsDocument struct {
	TournamentID   int       `json:"tournament_id"`
	TournamentName string    `json:"tournament_name"`
	Game           string    `json:"game"`
	TotalRounds    int       `json:"total_rounds"`
	PodiumTeamIDs  []int     `json:"podium_team_ids"` // места 1..3 по порядку
	ArchivedAt     time.Time `json:"archived_at"`
}

type uploaderArchiver struct {
	uploader FileUploader
}

func NewResultsArchiver(uploader FileUploader) ResultsArchiver {
	return &uploaderArchiver{uploader: uploader}
}

func (a *uploaderArchiver) ArchiveFinalStandings(ctx context.Context, tournament *models.Tournament, podium []int) error {
	doc := finalStandingsDocument{
		TournamentID:   tournament.ID,
		TournamentName: tournament.Name,
		Game:           tournament.Game,
		TotalRounds:    tournament.TotalRounds,
		PodiumTeamIDs:  podium,
		ArchivedAt:     time.Now().UTC(),
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal standings for tournament %d: %w", tournament.ID, err)
	}

	key := fmt.Sprintf("results/tournament_%d/%s.json", tournament.ID, uuid.NewString())
	if _, err := a.uploader.Upload(ctx, key, "application/json", bytes.NewReader(payload)); err != nil {
		return err
	}
	return nil
}
