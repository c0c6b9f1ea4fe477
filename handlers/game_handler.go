package handlers

import (
	"net/http"

	"livequiz/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
)

const qrSize = 320

type GameHandler struct {
	gameService *services.GameService
	hub         *services.Hub
}

func NewGameHandler(gameService *services.GameService, hub *services.Hub) *GameHandler {
	return &GameHandler{
		gameService: gameService,
		hub:         hub,
	}
}

// requestBaseURL rebuilds the public base URL of the request, respecting
// TLS and X-Forwarded-Proto.
func requestBaseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + c.Request.Host
}

func roomCode(c *gin.Context) string {
	if code := c.GetString("room_code"); code != "" {
		return code
	}
	return services.NormalizeCode(c.Param("code"))
}

func (h *GameHandler) CreateRoom(c *gin.Context) {
	var req services.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": services.CodeBadRequest})
		return
	}

	resp, err := h.gameService.CreateRoom(c.Request.Context(), req, requestBaseURL(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *GameHandler) GetRoom(c *gin.Context) {
	snap, err := h.gameService.GetRoom(c.Request.Context(), roomCode(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *GameHandler) GetLeaderboard(c *gin.Context) {
	entries, err := h.gameService.Leaderboard(roomCode(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}

// RoomQR serves a PNG QR code of the room's join link.
func (h *GameHandler) RoomQR(c *gin.Context) {
	code := roomCode(c)
	if _, err := h.gameService.GetRoom(c.Request.Context(), code); err != nil {
		respondError(c, err)
		return
	}

	png, err := qrcode.Encode(h.gameService.JoinURL(code, requestBaseURL(c)), qrcode.Medium, qrSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "qr generation failed", "code": services.CodeInternal})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *GameHandler) StartQuiz(c *gin.Context) {
	h.roomAction(c, h.gameService.StartQuiz, "Quiz started")
}

func (h *GameHandler) NextQuestion(c *gin.Context) {
	h.roomAction(c, h.gameService.NextQuestion, "Advanced to next question")
}

func (h *GameHandler) EndQuiz(c *gin.Context) {
	h.roomAction(c, h.gameService.EndQuiz, "Quiz ended")
}

func (h *GameHandler) roomAction(c *gin.Context, action func(code string) error, message string) {
	code := roomCode(c)
	if err := action(code); err != nil {
		respondError(c, err)
		return
	}

	snap, err := h.gameService.GetRoom(c.Request.Context(), code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "room": snap})
}

func (h *GameHandler) KickPlayer(c *gin.Context) {
	code := roomCode(c)
	if err := h.gameService.Kick(code, c.Param("playerId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Player kicked"})
}

func (h *GameHandler) CloseRoom(c *gin.Context) {
	if err := h.gameService.CloseRoom(roomCode(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ServeWS upgrades to the room protocol. Rooms are joined with a join-room
// message, not through the URL.
func (h *GameHandler) ServeWS(c *gin.Context) {
	if err := h.hub.ServeWS(c.Writer, c.Request); err != nil {
		log.Warn().Err(err).Str("remote", c.ClientIP()).Msg("websocket upgrade failed")
	}
}

func (h *GameHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"rooms":       h.gameService.Rooms(),
		"connections": h.hub.Stats(),
	})
}
