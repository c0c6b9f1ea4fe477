package services

import (
	"time"

	"github.com/rs/zerolog/log"
)

// StartQuiz opens the first question. It is only valid in the lobby.
func (r *Room) StartQuiz() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateLobby {
		return ErrQuizStarted
	}
	return r.nextLocked()
}

// NextQuestion advances the session: lobby and reveal both move to the next
// question. Running out of questions ends the quiz and returns
// ErrNoMoreQuestions.
func (r *Room) NextQuestion() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nextLocked()
}

// EndQuiz ends the session from any non-terminal state.
func (r *Room) EndQuiz() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateEnded {
		return ErrQuizEnded
	}
	r.endLocked()
	r.notifyChangedLocked()
	return nil
}

// close ends the quiz if needed, tells everyone the room is gone and stops
// every scheduled task. The room rejects joins afterwards.
func (r *Room) close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	if r.state != StateEnded {
		r.endLocked()
	}
	r.stopTasksLocked()
	r.closed = true
	r.deps.broadcaster.Broadcast(r.code, NewMessage(EventRoomClosed, nil))
	for _, id := range r.order {
		r.deps.broadcaster.Evict(r.code, id)
	}
	log.Info().Str("room", r.code).Msg("room closed")
}

func (r *Room) nextLocked() error {
	switch r.state {
	case StateQuestionActive:
		return ErrQuestionActive
	case StateEnded:
		return ErrQuizEnded
	}

	next := r.round + 1
	if next >= len(r.bank) {
		r.endLocked()
		r.notifyChangedLocked()
		return ErrNoMoreQuestions
	}
	if r.eligibleCountLocked() == 0 {
		return ErrEmptyRoom
	}

	r.openQuestionLocked(next)
	r.notifyChangedLocked()
	return nil
}

func (r *Room) openQuestionLocked(index int) {
	r.stopTasksLocked()

	now := r.deps.clock.Now()
	if r.round < 0 {
		r.startedAt = now
	}

	r.round = index
	r.current = &r.bank[index]
	r.generation++
	r.openedAt = now
	r.answers = make(map[string]AnswerRecord)
	r.state = StateQuestionActive
	r.lastActive = now

	log.Info().
		Str("room", r.code).
		Int("question_index", index).
		Int("total_questions", len(r.bank)).
		Int("time_limit", r.current.TimeLimit).
		Msg("question opened")

	r.deps.broadcaster.Broadcast(r.code, NewMessage(EventQuestion, r.questionPayloadLocked()))

	generation := r.generation
	deadline := now.Add(time.Duration(r.current.TimeLimit) * time.Second)
	r.timer = StartQuestionTimer(r.deps.clock, r.deps.tickInterval, deadline, func(remaining int) bool {
		return r.onTick(generation, remaining)
	})
}

// onTick runs on the timer goroutine. Returning false stops the timer.
func (r *Room) onTick(generation uint64, remaining int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateQuestionActive || r.generation != generation {
		return false
	}

	r.deps.broadcaster.Broadcast(r.code, NewMessage(EventTimeLeft, remaining))

	if remaining <= 0 {
		log.Info().
			Str("room", r.code).
			Int("question_index", r.round).
			Int("answered", len(r.answers)).
			Int("eligible", r.eligibleCountLocked()).
			Msg("timer expired")
		r.closeQuestionLocked(ReasonTimeout)
		r.notifyChangedLocked()
		return false
	}
	return true
}

// closeQuestionLocked moves an active question to the reveal. Whichever of
// timer expiry or all-answered gets here first wins; the other is a no-op.
func (r *Room) closeQuestionLocked(reason string) {
	if r.state != StateQuestionActive {
		return
	}
	r.state = StateQuestionClosed
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}

	log.Info().
		Str("room", r.code).
		Int("question_index", r.round).
		Str("reason", reason).
		Msg("question closed")

	r.deps.broadcaster.Broadcast(r.code, NewMessage(EventAllAnswered, AllAnsweredPayload{
		Correct: r.current.Correct,
		Reason:  reason,
	}))
	r.deps.broadcaster.Broadcast(r.code, NewMessage(EventLeaderboard, ComputeLeaderboard(r.rosterLocked())))

	if r.deps.revealDuration > 0 {
		generation := r.generation
		r.reveal = r.deps.clock.AfterFunc(r.deps.revealDuration, func() {
			r.onRevealElapsed(generation)
		})
	}
}

// onRevealElapsed advances past the reveal when auto-advance is on.
func (r *Room) onRevealElapsed(generation uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.state != StateQuestionClosed || r.generation != generation {
		return
	}
	r.reveal = nil
	if err := r.nextLocked(); err != nil {
		log.Info().Err(err).Str("room", r.code).Msg("auto-advance stopped")
	}
}

func (r *Room) endLocked() {
	r.stopTasksLocked()

	now := r.deps.clock.Now()
	r.state = StateEnded
	r.current = nil
	r.lastActive = now

	standings := ComputeLeaderboard(r.rosterLocked())

	log.Info().
		Str("room", r.code).
		Int("rounds", r.round+1).
		Int("players", len(standings)).
		Msg("quiz ended")

	r.deps.broadcaster.Broadcast(r.code, NewMessage(EventFinalLeaderboard, standings))
	r.deps.broadcaster.Broadcast(r.code, NewMessage(EventQuizEnd, nil))

	if r.deps.observer != nil && r.round >= 0 {
		r.deps.observer.RoomEnded(RoomResult{
			Code:      r.code,
			QuizID:    r.quizID,
			Rounds:    r.round + 1,
			StartedAt: r.startedAt,
			EndedAt:   now,
			Standings: standings,
			Answers:   append([]AnswerRecord(nil), r.history...),
		})
	}
}

func (r *Room) stopTasksLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	if r.reveal != nil {
		r.reveal.Stop()
		r.reveal = nil
	}
}
