package services

import (
	"context"
	"errors"
	"fmt"

	"livequiz/models"

	"gorm.io/gorm"
)

// QuizService is the Postgres-backed QuizCatalog.
type QuizService struct {
	db *gorm.DB
}

func NewQuizService(db *gorm.DB) *QuizService {
	return &QuizService{db: db}
}

func preloadQuestions(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.order")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("options.order")
		})
}

func (s *QuizService) CreateQuiz(ctx context.Context, req *CreateQuizRequest) (*models.Quiz, error) {
	return s.createQuiz(ctx, req, "")
}

// ImportQuizFile stores a parsed YAML bank, remembering where it came from.
func (s *QuizService) ImportQuizFile(ctx context.Context, file *QuizFile, source string) (*models.Quiz, error) {
	return s.createQuiz(ctx, file.Request(), source)
}

func (s *QuizService) createQuiz(ctx context.Context, req *CreateQuizRequest, source string) (*models.Quiz, error) {
	if err := validateQuestionRequests(req.Questions); err != nil {
		return nil, err
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	quiz := models.Quiz{
		Title:       req.Title,
		Description: req.Description,
		Source:      source,
	}
	if err := tx.Omit("Questions").Create(&quiz).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := createQuestions(tx, quiz.ID, req.Questions); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return s.GetQuiz(ctx, quiz.ID)
}

func createQuestions(tx *gorm.DB, quizID uint, questions []CreateQuestionRequest) error {
	for _, question := range buildQuestions(questions) {
		question.QuizID = quizID
		if err := tx.Create(&question).Error; err != nil {
			return fmt.Errorf("create question %q: %w", question.Text, err)
		}
	}
	return nil
}

func (s *QuizService) ListQuizzes(ctx context.Context) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	err := preloadQuestions(s.db.WithContext(ctx)).
		Order("created_at DESC").
		Find(&quizzes).Error
	return quizzes, err
}

func (s *QuizService) GetQuiz(ctx context.Context, quizID uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := preloadQuestions(s.db.WithContext(ctx)).
		Where("id = ?", quizID).
		First(&quiz).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrQuizNotFound
	}
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (s *QuizService) UpdateQuiz(ctx context.Context, quizID uint, req *UpdateQuizRequest) (*models.Quiz, error) {
	if req.Questions != nil {
		if err := validateQuestionRequests(req.Questions); err != nil {
			return nil, err
		}
	}

	quiz, err := s.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if req.Title != "" {
		quiz.Title = req.Title
	}
	if req.Description != "" {
		quiz.Description = req.Description
	}
	if err := tx.Omit("Questions").Save(quiz).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if req.Questions != nil {
		if err := tx.Where("quiz_id = ?", quizID).Delete(&models.Question{}).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := createQuestions(tx, quizID, req.Questions); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return s.GetQuiz(ctx, quizID)
}

func (s *QuizService) DeleteQuiz(ctx context.Context, quizID uint) error {
	if _, err := s.GetQuiz(ctx, quizID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(&models.Quiz{}, quizID).Error
}

func (s *QuizService) LoadQuestions(ctx context.Context, quizID uint) ([]Question, error) {
	quiz, err := s.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	return QuestionsFromQuiz(quiz)
}
