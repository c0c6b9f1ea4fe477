package routes

import (
	"livequiz/handlers"
	"livequiz/middleware"
	"livequiz/services"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	quizHandler *handlers.QuizHandler,
	gameHandler *handlers.GameHandler,
	gameService *services.GameService,
) {
	api := router.Group("/api")
	{
		quizzes := api.Group("/quizzes")
		{
			quizzes.GET("", quizHandler.ListQuizzes)
			quizzes.POST("", quizHandler.CreateQuiz)
			quizzes.GET("/:id", quizHandler.GetQuiz)
			quizzes.PUT("/:id", quizHandler.UpdateQuiz)
			quizzes.DELETE("/:id", quizHandler.DeleteQuiz)
			quizzes.GET("/:id/games", quizHandler.GetQuizGames)
		}

		rooms := api.Group("/rooms")
		{
			rooms.POST("", gameHandler.CreateRoom)
			rooms.GET("/:code", gameHandler.GetRoom)
			rooms.GET("/:code/qr", gameHandler.RoomQR)
			rooms.GET("/:code/leaderboard", gameHandler.GetLeaderboard)

			host := rooms.Group("/:code")
			host.Use(middleware.HostAuth(gameService))
			{
				host.POST("/start", gameHandler.StartQuiz)
				host.POST("/next", gameHandler.NextQuestion)
				host.POST("/end", gameHandler.EndQuiz)
				host.DELETE("/players/:playerId", gameHandler.KickPlayer)
				host.DELETE("", gameHandler.CloseRoom)
			}
		}
	}

	router.GET("/ws", gameHandler.ServeWS)
	router.GET("/health", gameHandler.Health)
}
