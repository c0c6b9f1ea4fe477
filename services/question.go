package services

import (
	"fmt"
	"strings"
)

const (
	MinTimeLimit = 1
	MaxTimeLimit = 300
)

// Question is immutable once issued to a room. Options are opaque and
// compared by exact string equality.
type Question struct {
	Text      string   `json:"text" yaml:"text"`
	Options   []string `json:"options" yaml:"options"`
	TimeLimit int      `json:"timeLimit" yaml:"time_limit"`
	Correct   string   `json:"correct" yaml:"correct"`
}

func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: text is required", ErrInvalidQuestion)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: %q needs at least two options", ErrInvalidQuestion, q.Text)
	}
	seen := make(map[string]bool, len(q.Options))
	for _, opt := range q.Options {
		if seen[opt] {
			return fmt.Errorf("%w: %q has duplicate option %q", ErrInvalidQuestion, q.Text, opt)
		}
		seen[opt] = true
	}
	if !seen[q.Correct] {
		return fmt.Errorf("%w: %q correct option %q is not an option", ErrInvalidQuestion, q.Text, q.Correct)
	}
	if q.TimeLimit < MinTimeLimit || q.TimeLimit > MaxTimeLimit {
		return fmt.Errorf("%w: %q time limit must be between %d and %d seconds", ErrInvalidQuestion, q.Text, MinTimeLimit, MaxTimeLimit)
	}
	return nil
}

func (q Question) HasOption(option string) bool {
	for _, opt := range q.Options {
		if opt == option {
			return true
		}
	}
	return false
}

// ValidateBank checks every question and that the bank is not empty.
func ValidateBank(questions []Question) error {
	if len(questions) == 0 {
		return fmt.Errorf("%w: question bank is empty", ErrInvalidQuestion)
	}
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return nil
}

// cloneBank copies the bank so a room never shares option slices with its
// source.
func cloneBank(questions []Question) []Question {
	out := make([]Question, len(questions))
	for i, q := range questions {
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	return out
}
