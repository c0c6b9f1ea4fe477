package services

import "errors"

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room is full")
	ErrEmptyRoom        = errors.New("room has no eligible players")
	ErrAlreadyAnswered  = errors.New("answer already submitted")
	ErrInvalidOption    = errors.New("option is not part of the current question")
	ErrNoMoreQuestions  = errors.New("no more questions")
	ErrNameTaken        = errors.New("player name already taken")
	ErrInvalidName      = errors.New("player name is invalid")
	ErrHostTaken        = errors.New("room already has a host")
	ErrNotHost          = errors.New("only the host can do this")
	ErrNotInRoom        = errors.New("player is not in this room")
	ErrNotEligible      = errors.New("host cannot answer questions")
	ErrNoActiveQuestion = errors.New("no active question")
	ErrQuestionActive   = errors.New("a question is already active")
	ErrQuizStarted      = errors.New("quiz already started")
	ErrQuizEnded        = errors.New("quiz has ended")
	ErrInvalidQuestion  = errors.New("invalid question")
	ErrQuizNotFound     = errors.New("quiz not found")
	ErrBadRequest       = errors.New("bad request")
)

// Wire codes sent in room-error payloads.
const (
	CodeBadRequest = "BAD_REQUEST"
	CodeInternal   = "INTERNAL"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrRoomNotFound, "ROOM_NOT_FOUND"},
	{ErrRoomFull, "ROOM_FULL"},
	{ErrEmptyRoom, "EMPTY_ROOM"},
	{ErrAlreadyAnswered, "ALREADY_ANSWERED"},
	{ErrInvalidOption, "INVALID_OPTION"},
	{ErrNoMoreQuestions, "NO_MORE_QUESTIONS"},
	{ErrNameTaken, "NAME_TAKEN"},
	{ErrInvalidName, "INVALID_NAME"},
	{ErrHostTaken, "HOST_TAKEN"},
	{ErrNotHost, "NOT_HOST"},
	{ErrNotInRoom, "NOT_IN_ROOM"},
	{ErrNotEligible, "NOT_ELIGIBLE"},
	{ErrNoActiveQuestion, "NO_ACTIVE_QUESTION"},
	{ErrQuestionActive, "QUESTION_ACTIVE"},
	{ErrQuizStarted, "QUIZ_STARTED"},
	{ErrQuizEnded, "QUIZ_ENDED"},
	{ErrInvalidQuestion, "INVALID_QUESTION"},
	{ErrQuizNotFound, "QUIZ_NOT_FOUND"},
	{ErrBadRequest, CodeBadRequest},
}

// ErrorCode maps err to the code reported to clients. Unknown errors map to
// CodeInternal.
func ErrorCode(err error) string {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return CodeInternal
}
