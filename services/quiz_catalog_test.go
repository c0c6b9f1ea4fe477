package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"livequiz/models"

	"github.com/google/go-cmp/cmp"
)

const sampleQuizYAML = `title: Basics
description: Warm-up questions
questions:
  - text: "2 + 2?"
    options: ["3", "4", "5"]
    correct: "4"
    time_limit: 10
  - text: Capital of France?
    options: [Paris, Rome]
    correct: Paris
`

func TestParseQuizFile(t *testing.T) {
	file, err := ParseQuizFile(strings.NewReader(sampleQuizYAML))
	if err != nil {
		t.Fatalf("ParseQuizFile: %v", err)
	}
	want := &QuizFile{
		Title:       "Basics",
		Description: "Warm-up questions",
		Questions: []Question{
			{Text: "2 + 2?", Options: []string{"3", "4", "5"}, Correct: "4", TimeLimit: 10},
			{Text: "Capital of France?", Options: []string{"Paris", "Rome"}, Correct: "Paris", TimeLimit: DefaultTimeLimit},
		},
	}
	if diff := cmp.Diff(want, file); diff != "" {
		t.Errorf("ParseQuizFile mismatch (-want +got):\n%s", diff)
	}
}

func TestParseQuizFileErrors(t *testing.T) {
	tests := map[string]string{
		"no title":      "questions:\n  - text: a\n    options: [x, y]\n    correct: x\n",
		"unknown field": "title: T\nrounds: 3\nquestions: []\n",
		"no questions":  "title: T\n",
		"bad correct":   "title: T\nquestions:\n  - text: a\n    options: [x, y]\n    correct: z\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseQuizFile(strings.NewReader(doc)); err == nil {
				t.Error("ParseQuizFile succeeded, want an error")
			}
		})
	}
}

func TestQuizFileRequestRoundTrip(t *testing.T) {
	file, err := ParseQuizFile(strings.NewReader(sampleQuizYAML))
	if err != nil {
		t.Fatalf("ParseQuizFile: %v", err)
	}
	quiz := &models.Quiz{ID: 7, Questions: buildQuestions(file.Request().Questions)}
	// Stored rows come back in any order.
	quiz.Questions[0], quiz.Questions[1] = quiz.Questions[1], quiz.Questions[0]

	bank, err := QuestionsFromQuiz(quiz)
	if err != nil {
		t.Fatalf("QuestionsFromQuiz: %v", err)
	}
	if diff := cmp.Diff(file.Questions, bank); diff != "" {
		t.Errorf("bank mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryCatalog(t *testing.T) {
	ctx := context.Background()
	catalog := NewMemoryCatalog()

	file, err := ParseQuizFile(strings.NewReader(sampleQuizYAML))
	if err != nil {
		t.Fatalf("ParseQuizFile: %v", err)
	}
	quiz, err := catalog.CreateQuiz(ctx, file.Request())
	if err != nil {
		t.Fatalf("CreateQuiz: %v", err)
	}
	if quiz.ID != 1 || len(quiz.Questions) != 2 {
		t.Fatalf("CreateQuiz = %+v, want id 1 with two questions", quiz)
	}

	bank, err := catalog.LoadQuestions(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("LoadQuestions: %v", err)
	}
	if diff := cmp.Diff(file.Questions, bank); diff != "" {
		t.Errorf("LoadQuestions mismatch (-want +got):\n%s", diff)
	}

	updated, err := catalog.UpdateQuiz(ctx, quiz.ID, &UpdateQuizRequest{Title: "Renamed"})
	if err != nil {
		t.Fatalf("UpdateQuiz: %v", err)
	}
	if updated.Title != "Renamed" || updated.Description != "Warm-up questions" || len(updated.Questions) != 2 {
		t.Errorf("UpdateQuiz = %+v, want only the title changed", updated)
	}

	list, err := catalog.ListQuizzes(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListQuizzes = %v, %v; want one quiz", list, err)
	}

	if err := catalog.DeleteQuiz(ctx, quiz.ID); err != nil {
		t.Fatalf("DeleteQuiz: %v", err)
	}
	if _, err := catalog.GetQuiz(ctx, quiz.ID); !errors.Is(err, ErrQuizNotFound) {
		t.Errorf("GetQuiz after delete err = %v, want not found", err)
	}
	if err := catalog.DeleteQuiz(ctx, quiz.ID); !errors.Is(err, ErrQuizNotFound) {
		t.Errorf("second DeleteQuiz err = %v, want ErrQuizNotFound", err)
	}
}

func TestMemoryCatalogRejectsAmbiguousAnswers(t *testing.T) {
	req := &CreateQuizRequest{
		Title: "Bad",
		Questions: []CreateQuestionRequest{{
			Text:      "Pick",
			TimeLimit: 10,
			Order:     1,
			Options: []CreateOptionRequest{
				{Text: "a", IsCorrect: true, Order: 1},
				{Text: "b", IsCorrect: true, Order: 2},
			},
		}},
	}
	if _, err := NewMemoryCatalog().CreateQuiz(context.Background(), req); !errors.Is(err, ErrInvalidQuestion) {
		t.Errorf("CreateQuiz err = %v, want ErrInvalidQuestion", err)
	}
}

func TestMemoryCatalogLoadQuizDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "basics.yaml"), []byte(sampleQuizYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	catalog := NewMemoryCatalog()
	n, err := catalog.LoadQuizDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("LoadQuizDir: %v", err)
	}
	if n != 1 {
		t.Fatalf("LoadQuizDir loaded %d files, want 1", n)
	}
	quiz, err := catalog.GetQuiz(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetQuiz: %v", err)
	}
	if quiz.Source != "basics.yaml" || quiz.Title != "Basics" {
		t.Errorf("quiz = %+v, want Basics from basics.yaml", quiz)
	}
}

func TestMemoryCatalogLoadQuizDirInvalidFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.yml"), []byte("title: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewMemoryCatalog().LoadQuizDir(context.Background(), dir); err == nil {
		t.Error("LoadQuizDir accepted a broken file")
	}
}
