package handlers

import (
	"errors"
	"net/http"

	"livequiz/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrRoomNotFound), errors.Is(err, services.ErrQuizNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrNotHost):
		return http.StatusForbidden
	case errors.Is(err, services.ErrRoomFull),
		errors.Is(err, services.ErrEmptyRoom),
		errors.Is(err, services.ErrNameTaken),
		errors.Is(err, services.ErrHostTaken),
		errors.Is(err, services.ErrAlreadyAnswered),
		errors.Is(err, services.ErrQuestionActive),
		errors.Is(err, services.ErrQuizStarted),
		errors.Is(err, services.ErrQuizEnded),
		errors.Is(err, services.ErrNoMoreQuestions):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidQuestion),
		errors.Is(err, services.ErrInvalidOption),
		errors.Is(err, services.ErrInvalidName),
		errors.Is(err, services.ErrNotInRoom),
		errors.Is(err, services.ErrNotEligible),
		errors.Is(err, services.ErrNoActiveQuestion),
		errors.Is(err, services.ErrBadRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": services.ErrorCode(err)})
}
