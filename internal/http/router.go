// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nest/internal/ai"
	"nest/internal/http/handlers"
	"nest/internal/http/middleware"
	"nest/internal/infra"
	"nest/internal/logger"
	"nest/internal/modules/assistant"
	"nest/internal/modules/trip"
)

// Deps are the services the API exposes.
type Deps struct {
	Verifier infra.TokenVerifier
	// Quota is optional; nil disables the AI allowance.
	Quota middleware.TokenSpender

	Planner handlers.TripCreator
	Trips   *trip.Service
	AI      handlers.AIDeps
	Chats   *assistant.Chats

	Creds          ai.CredentialProvider
	Factory        ai.ClientFactory
	VoiceQueueSize int
	Log            logger.Logger
}

func NewRouter(deps Deps) *gin.Engine {
	log := deps.Log
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	deps.AI.Log = log

	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.Logging(log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", middleware.Auth(deps.Verifier))
	quota := middleware.Quota(deps.Quota, log)

	tripHandler := handlers.NewTripHandler(deps.Planner, deps.Trips, deps.AI.Media, log)
	api.POST("/trips", quota, tripHandler.Create)
	api.GET("/trips", tripHandler.List)
	api.GET("/trips/:id", tripHandler.Get)
	api.PATCH("/trips/:id/status", tripHandler.UpdateStatus)
	api.POST("/trips/:id/cover/edit", quota, tripHandler.EditCover)
	api.POST("/trips/:id/days/:n/activities", tripHandler.AddActivity)
	api.GET("/trips/:id/days/:n/route", tripHandler.DayRoute)
	api.DELETE("/activities/:id", tripHandler.DeleteActivity)
	api.POST("/activities/:id/booking", tripHandler.ToggleBooking)

	aiHandler := handlers.NewAIHandler(deps.AI)
	gen := api.Group("/ai")
	gen.POST("/suggestions", quota, aiHandler.Suggestions)
	gen.POST("/itinerary", quota, aiHandler.Itinerary)
	gen.POST("/cover", quota, aiHandler.Cover)
	gen.POST("/teaser", quota, aiHandler.Teaser)
	gen.POST("/edit", quota, aiHandler.Edit)
	gen.POST("/ask", quota, aiHandler.Ask)
	gen.POST("/details", quota, aiHandler.Details)
	gen.GET("/tip", quota, aiHandler.Tip)

	chatHandler := handlers.NewChatHandler(deps.Chats, log)
	gen.POST("/chat", quota, chatHandler.Chat)
	gen.DELETE("/chat", chatHandler.Reset)

	voiceHandler := handlers.NewVoiceHandler(deps.Creds, deps.Factory, log, deps.VoiceQueueSize)
	gen.GET("/voice", quota, voiceHandler.Stream)

	return r
}
