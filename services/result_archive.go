package services

import (
	"context"
	"fmt"

	"livequiz/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ResultArchive writes finished games to Postgres. A nil archive or one
// without a database drops results.
type ResultArchive struct {
	db *gorm.DB
}

func NewResultArchive(db *gorm.DB) *ResultArchive {
	return &ResultArchive{db: db}
}

func (a *ResultArchive) Save(ctx context.Context, result RoomResult) (*models.Game, error) {
	if a == nil || a.db == nil {
		return nil, nil
	}

	game := models.Game{
		Code:      result.Code,
		Rounds:    result.Rounds,
		StartedAt: result.StartedAt,
		EndedAt:   result.EndedAt,
	}
	if result.QuizID != 0 {
		quizID := result.QuizID
		game.QuizID = &quizID
	}
	for i, entry := range result.Standings {
		game.Players = append(game.Players, models.Player{
			PlayerID: entry.ID,
			Name:     entry.Name,
			Score:    entry.Score,
			Rank:     i + 1,
		})
	}
	for _, ans := range result.Answers {
		game.Answers = append(game.Answers, models.GameAnswer{
			PlayerID:    ans.PlayerID,
			PlayerName:  ans.PlayerName,
			Round:       ans.Round,
			Option:      ans.Option,
			IsCorrect:   ans.Correct,
			TimeSpentMs: ans.Elapsed.Milliseconds(),
			Points:      ans.Points,
			AnsweredAt:  ans.SubmittedAt,
		})
	}

	if err := a.db.WithContext(ctx).Create(&game).Error; err != nil {
		return nil, fmt.Errorf("archive game %s: %w", result.Code, err)
	}

	log.Info().
		Str("room", result.Code).
		Uint("game_id", game.ID).
		Int("players", len(game.Players)).
		Int("answers", len(game.Answers)).
		Msg("game archived")
	return &game, nil
}

// RecentGames lists archived games for a quiz, newest first.
func (a *ResultArchive) RecentGames(ctx context.Context, quizID uint, limit int) ([]models.Game, error) {
	if a == nil || a.db == nil {
		return nil, nil
	}
	var games []models.Game
	err := a.db.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Preload("Players", func(db *gorm.DB) *gorm.DB {
			return db.Order("players.rank")
		}).
		Order("ended_at DESC").
		Limit(limit).
		Find(&games).Error
	return games, err
}
