package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"livequiz/models"

	"gopkg.in/yaml.v3"
)

// DefaultTimeLimit applies to bank questions that do not set one.
const DefaultTimeLimit = 15

// QuizCatalog stores question banks. QuizService backs it with Postgres and
// MemoryCatalog with YAML files.
type QuizCatalog interface {
	ListQuizzes(ctx context.Context) ([]models.Quiz, error)
	GetQuiz(ctx context.Context, quizID uint) (*models.Quiz, error)
	CreateQuiz(ctx context.Context, req *CreateQuizRequest) (*models.Quiz, error)
	UpdateQuiz(ctx context.Context, quizID uint, req *UpdateQuizRequest) (*models.Quiz, error)
	DeleteQuiz(ctx context.Context, quizID uint) error
	LoadQuestions(ctx context.Context, quizID uint) ([]Question, error)
}

type CreateQuizRequest struct {
	Title       string                  `json:"title" binding:"required"`
	Description string                  `json:"description"`
	Questions   []CreateQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

type CreateQuestionRequest struct {
	Text      string                `json:"text" binding:"required"`
	TimeLimit int                   `json:"time_limit" binding:"required,min=1,max=300"`
	Order     int                   `json:"order" binding:"required"`
	Options   []CreateOptionRequest `json:"options" binding:"required,min=2,max=6,dive"`
}

type CreateOptionRequest struct {
	Text      string `json:"text" binding:"required"`
	IsCorrect bool   `json:"is_correct"`
	Order     int    `json:"order" binding:"required"`
}

type UpdateQuizRequest struct {
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	Questions   []CreateQuestionRequest `json:"questions"`
}

// QuizFile is the YAML layout of a question bank.
type QuizFile struct {
	Title       string     `yaml:"title"`
	Description string     `yaml:"description"`
	Questions   []Question `yaml:"questions"`
}

// ParseQuizFile decodes and validates a YAML question bank.
func ParseQuizFile(r io.Reader) (*QuizFile, error) {
	var file QuizFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode quiz file: %w", err)
	}
	if strings.TrimSpace(file.Title) == "" {
		return nil, fmt.Errorf("%w: quiz title is required", ErrInvalidQuestion)
	}
	for i := range file.Questions {
		if file.Questions[i].TimeLimit == 0 {
			file.Questions[i].TimeLimit = DefaultTimeLimit
		}
	}
	if err := ValidateBank(file.Questions); err != nil {
		return nil, err
	}
	return &file, nil
}

func LoadQuizFile(path string) (*QuizFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	file, err := ParseQuizFile(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return file, nil
}

// Request converts the file into a create request.
func (f *QuizFile) Request() *CreateQuizRequest {
	req := &CreateQuizRequest{Title: f.Title, Description: f.Description}
	for i, q := range f.Questions {
		qReq := CreateQuestionRequest{Text: q.Text, TimeLimit: q.TimeLimit, Order: i + 1}
		for j, opt := range q.Options {
			qReq.Options = append(qReq.Options, CreateOptionRequest{
				Text:      opt,
				IsCorrect: opt == q.Correct,
				Order:     j + 1,
			})
		}
		req.Questions = append(req.Questions, qReq)
	}
	return req
}

func validateQuestionRequests(questions []CreateQuestionRequest) error {
	for _, qReq := range questions {
		correctCount := 0
		for _, optReq := range qReq.Options {
			if optReq.IsCorrect {
				correctCount++
			}
		}
		if correctCount != 1 {
			return fmt.Errorf("%w: each question must have exactly one correct answer", ErrInvalidQuestion)
		}
	}
	return nil
}

func buildQuestions(questions []CreateQuestionRequest) []models.Question {
	out := make([]models.Question, 0, len(questions))
	for _, qReq := range questions {
		question := models.Question{
			Text:      qReq.Text,
			TimeLimit: qReq.TimeLimit,
			Order:     qReq.Order,
		}
		for _, optReq := range qReq.Options {
			question.Options = append(question.Options, models.Option{
				Text:      optReq.Text,
				IsCorrect: optReq.IsCorrect,
				Order:     optReq.Order,
			})
		}
		out = append(out, question)
	}
	return out
}

// QuestionsFromQuiz turns a stored quiz into a room's question bank, in
// question and option order.
func QuestionsFromQuiz(quiz *models.Quiz) ([]Question, error) {
	stored := append([]models.Question(nil), quiz.Questions...)
	sort.SliceStable(stored, func(i, j int) bool { return stored[i].Order < stored[j].Order })

	bank := make([]Question, 0, len(stored))
	for _, sq := range stored {
		opts := append([]models.Option(nil), sq.Options...)
		sort.SliceStable(opts, func(i, j int) bool { return opts[i].Order < opts[j].Order })

		q := Question{Text: sq.Text, TimeLimit: sq.TimeLimit}
		for _, o := range opts {
			q.Options = append(q.Options, o.Text)
			if o.IsCorrect {
				q.Correct = o.Text
			}
		}
		if q.TimeLimit == 0 {
			q.TimeLimit = DefaultTimeLimit
		}
		bank = append(bank, q)
	}
	if err := ValidateBank(bank); err != nil {
		return nil, fmt.Errorf("quiz %d: %w", quiz.ID, err)
	}
	return bank, nil
}

// MemoryCatalog keeps quizzes in process. It is used when no database is
// configured and in tests.
type MemoryCatalog struct {
	mu      sync.RWMutex
	quizzes map[uint]*models.Quiz
	nextID  uint
	now     func() time.Time
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		quizzes: make(map[uint]*models.Quiz),
		nextID:  1,
		now:     time.Now,
	}
}

// LoadQuizDir imports every *.yaml and *.yml file in dir, in name order.
func (c *MemoryCatalog) LoadQuizDir(ctx context.Context, dir string) (int, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return 0, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	for _, path := range paths {
		file, err := LoadQuizFile(path)
		if err != nil {
			return 0, err
		}
		quiz, err := c.CreateQuiz(ctx, file.Request())
		if err != nil {
			return 0, fmt.Errorf("%s: %w", path, err)
		}
		c.mu.Lock()
		quiz.Source = filepath.Base(path)
		c.quizzes[quiz.ID].Source = quiz.Source
		c.mu.Unlock()
	}
	return len(paths), nil
}

func (c *MemoryCatalog) ListQuizzes(ctx context.Context) ([]models.Quiz, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Quiz, 0, len(c.quizzes))
	for _, q := range c.quizzes {
		out = append(out, *q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *MemoryCatalog) GetQuiz(ctx context.Context, quizID uint) (*models.Quiz, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	q, ok := c.quizzes[quizID]
	if !ok {
		return nil, ErrQuizNotFound
	}
	cp := *q
	return &cp, nil
}

func (c *MemoryCatalog) CreateQuiz(ctx context.Context, req *CreateQuizRequest) (*models.Quiz, error) {
	if err := validateQuestionRequests(req.Questions); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	quiz := &models.Quiz{
		ID:          c.nextID,
		Title:       req.Title,
		Description: req.Description,
		Questions:   buildQuestions(req.Questions),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	c.nextID++
	for i := range quiz.Questions {
		quiz.Questions[i].QuizID = quiz.ID
	}
	c.quizzes[quiz.ID] = quiz

	cp := *quiz
	return &cp, nil
}

func (c *MemoryCatalog) UpdateQuiz(ctx context.Context, quizID uint, req *UpdateQuizRequest) (*models.Quiz, error) {
	if req.Questions != nil {
		if err := validateQuestionRequests(req.Questions); err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	quiz, ok := c.quizzes[quizID]
	if !ok {
		return nil, ErrQuizNotFound
	}
	if req.Title != "" {
		quiz.Title = req.Title
	}
	if req.Description != "" {
		quiz.Description = req.Description
	}
	if req.Questions != nil {
		quiz.Questions = buildQuestions(req.Questions)
		for i := range quiz.Questions {
			quiz.Questions[i].QuizID = quiz.ID
		}
	}
	quiz.UpdatedAt = c.now()

	cp := *quiz
	return &cp, nil
}

func (c *MemoryCatalog) DeleteQuiz(ctx context.Context, quizID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.quizzes[quizID]; !ok {
		return ErrQuizNotFound
	}
	delete(c.quizzes, quizID)
	return nil
}

func (c *MemoryCatalog) LoadQuestions(ctx context.Context, quizID uint) ([]Question, error) {
	quiz, err := c.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	return QuestionsFromQuiz(quiz)
}
