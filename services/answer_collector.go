package services

import (
	"time"

	"github.com/rs/zerolog/log"
)

const (
	basePoints    = 100
	maxSpeedBonus = 50
)

// Score returns the points for one answer. It depends only on correctness
// and how long the player took, so replaying a submission gives the same
// result.
func Score(correct bool, elapsed time.Duration, timeLimit int) int {
	if !correct {
		return 0
	}
	limit := time.Duration(timeLimit) * time.Second
	if limit <= 0 {
		return basePoints
	}
	left := limit - elapsed
	if left < 0 {
		left = 0
	}
	if left > limit {
		left = limit
	}
	bonus := int(int64(maxSpeedBonus) * left.Milliseconds() / limit.Milliseconds())
	return basePoints + bonus
}

// SubmitAnswer records a player's answer to the active question and scores
// it. Once every eligible player has answered the question closes.
func (r *Room) SubmitAnswer(playerID, option string) (AnswerRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateQuestionActive {
		return AnswerRecord{}, ErrNoActiveQuestion
	}
	p, ok := r.players[playerID]
	if !ok {
		return AnswerRecord{}, ErrNotInRoom
	}
	if p.Host {
		return AnswerRecord{}, ErrNotEligible
	}
	if _, answered := r.answers[playerID]; answered {
		return AnswerRecord{}, ErrAlreadyAnswered
	}
	if !r.current.HasOption(option) {
		return AnswerRecord{}, ErrInvalidOption
	}

	now := r.deps.clock.Now()
	elapsed := now.Sub(r.openedAt)
	correct := option == r.current.Correct
	record := AnswerRecord{
		Round:       r.round,
		PlayerID:    p.ID,
		PlayerName:  p.Name,
		Option:      option,
		Correct:     correct,
		Points:      Score(correct, elapsed, r.current.TimeLimit),
		Elapsed:     elapsed,
		SubmittedAt: now,
	}
	r.answers[playerID] = record
	r.history = append(r.history, record)
	p.Score += record.Points
	r.lastActive = now

	log.Debug().
		Str("room", r.code).
		Str("player_id", p.ID).
		Int("question_index", r.round).
		Bool("correct", correct).
		Int("points", record.Points).
		Dur("elapsed", elapsed).
		Msg("answer accepted")

	r.deps.broadcaster.SendTo(r.code, playerID, NewMessage(EventAnswerAccepted, AnswerAcceptedPayload{Option: option}))

	if r.allAnsweredLocked() {
		r.closeQuestionLocked(ReasonAllAnswered)
	}
	r.notifyChangedLocked()
	return record, nil
}

// allAnsweredLocked compares against the roster as it stands now.
func (r *Room) allAnsweredLocked() bool {
	eligible := 0
	for id, p := range r.players {
		if p.Host {
			continue
		}
		eligible++
		if _, ok := r.answers[id]; !ok {
			return false
		}
	}
	return eligible > 0
}
