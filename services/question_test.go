package services

import (
	"errors"
	"testing"
)

func TestQuestionValidate(t *testing.T) {
	valid := Question{Text: "2+2?", Options: []string{"3", "4"}, Correct: "4", TimeLimit: 10}

	tests := []struct {
		name   string
		mutate func(q *Question)
		ok     bool
	}{
		{"valid", func(q *Question) {}, true},
		{"blank text", func(q *Question) { q.Text = "  " }, false},
		{"one option", func(q *Question) { q.Options = []string{"4"} }, false},
		{"duplicate option", func(q *Question) { q.Options = []string{"4", "4"} }, false},
		{"correct not an option", func(q *Question) { q.Correct = "5" }, false},
		{"zero time limit", func(q *Question) { q.TimeLimit = 0 }, false},
		{"time limit too long", func(q *Question) { q.TimeLimit = MaxTimeLimit + 1 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := valid
			q.Options = append([]string(nil), valid.Options...)
			tt.mutate(&q)
			err := q.Validate()
			if tt.ok && err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidQuestion) {
				t.Fatalf("Validate() = %v, want ErrInvalidQuestion", err)
			}
		})
	}
}

func TestValidateBankEmpty(t *testing.T) {
	if err := ValidateBank(nil); !errors.Is(err, ErrInvalidQuestion) {
		t.Errorf("ValidateBank(nil) = %v, want ErrInvalidQuestion", err)
	}
}

func TestCloneBankCopiesOptions(t *testing.T) {
	bank := sampleBank()
	clone := cloneBank(bank)
	clone[0].Options[0] = "changed"
	if bank[0].Options[0] == "changed" {
		t.Error("clone shares option slices with the original")
	}
}
