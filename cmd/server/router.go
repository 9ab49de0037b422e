package main

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"onboarding-hub/internal/advice"
	"onboarding-hub/internal/config"
	"onboarding-hub/internal/health"
	"onboarding-hub/internal/middleware"
	"onboarding-hub/internal/state"
)

type routes struct {
	state  *state.Handler
	advice *advice.Handler
	health *health.Handler
}

func newHealthHandler(cfg config.Config, geminiConfigured bool) *health.Handler {
	return health.NewHandler(geminiConfigured, cfg.DemoFile)
}

func setupRouter(cfg config.Config, r routes) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.ErrorHandler())

	// cors setting
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
	}
	if cfg.Environment == "development" {
		// Allow all origins in development
		corsConfig.AllowAllOrigins = true
	} else {
		// Restrict origins in production
		corsConfig.AllowOrigins = []string{cfg.FrontendAddress}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", r.health.Check)
	router.GET("/demo", r.health.Demo)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.GET("/state", r.state.ShowState)
	api.POST("/state", r.state.UpdateState)
	api.GET("/state/history", r.state.ShowHistory)
	api.GET("/events", r.state.StreamEvents)
	api.GET("/ws", r.state.StreamSocket)
	api.POST("/gemini", r.advice.CreateAdvice)

	return router
}

// newServer wraps the router. Open event streams and sockets are ended as
// soon as Shutdown starts so it does not wait out its deadline on them.
func newServer(addr string, router *gin.Engine, r routes) *http.Server {
	server := &http.Server{
		Addr:    addr,
		Handler: router.Handler(),
	}
	server.RegisterOnShutdown(r.state.Shutdown)
	return server
}
