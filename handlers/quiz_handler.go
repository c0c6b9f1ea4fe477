package handlers

import (
	"net/http"
	"strconv"

	"livequiz/services"

	"github.com/gin-gonic/gin"
)

const recentGamesLimit = 20

type QuizHandler struct {
	catalog services.QuizCatalog
	archive *services.ResultArchive
}

func NewQuizHandler(catalog services.QuizCatalog, archive *services.ResultArchive) *QuizHandler {
	return &QuizHandler{
		catalog: catalog,
		archive: archive,
	}
}

func quizID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quiz ID", "code": services.CodeBadRequest})
		return 0, false
	}
	return uint(id), true
}

func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	var req services.CreateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": services.CodeBadRequest})
		return
	}

	quiz, err := h.catalog.CreateQuiz(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, quiz)
}

func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	quizzes, err := h.catalog.ListQuizzes(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, quizzes)
}

func (h *QuizHandler) GetQuiz(c *gin.Context) {
	id, ok := quizID(c)
	if !ok {
		return
	}

	quiz, err := h.catalog.GetQuiz(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

func (h *QuizHandler) UpdateQuiz(c *gin.Context) {
	id, ok := quizID(c)
	if !ok {
		return
	}

	var req services.UpdateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": services.CodeBadRequest})
		return
	}

	quiz, err := h.catalog.UpdateQuiz(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	id, ok := quizID(c)
	if !ok {
		return
	}

	if err := h.catalog.DeleteQuiz(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Quiz deleted successfully"})
}

// GetQuizGames lists archived results for a quiz.
func (h *QuizHandler) GetQuizGames(c *gin.Context) {
	id, ok := quizID(c)
	if !ok {
		return
	}

	games, err := h.archive.RecentGames(c.Request.Context(), id, recentGamesLimit)
	if err != nil {
		respondError(c, err)
		return
	}
	if games == nil {
		c.JSON(http.StatusOK, []interface{}{})
		return
	}
	c.JSON(http.StatusOK, games)
}
