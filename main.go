package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ginGzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	cachecontrol "go.eigsys.de/gin-cachecontrol/v2"
	"golang.org/x/time/rate"

	"wordstake/internal/dictionary"
	"wordstake/internal/game"
	"wordstake/internal/identity"
	"wordstake/internal/multiplayer"
	"wordstake/internal/powerup"
	"wordstake/internal/snapshot"
)

func main() {
	_ = godotenv.Load()

	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	isProduction := os.Getenv("GIN_MODE") == "release" || os.Getenv("ENV") == "production"
	log.Info().Bool("production", isProduction).Msg("starting wordstake")

	oracle, err := dictionary.Load(getEnv("WORDS_PATH", "data/words.json"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load dictionary")
	}

	db, err := openDB(getEnv("DB_PATH", "data/wordstake.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	profiles, err := powerup.NewProfileStore(db)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to prepare power-up store")
	}
	records, err := multiplayer.NewSQLiteStore(db)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to prepare game record store")
	}

	sessionTimeout := getEnvDuration("SESSION_TIMEOUT", 2*time.Hour)
	app := &App{
		Oracle:         oracle,
		Snapshots:      snapshot.NewStore(getEnv("SNAPSHOT_DIR", "data/sessions"), sessionTimeout),
		Economy:        powerup.NewEconomy(oracle),
		Profiles:       profiles,
		Coordinator:    multiplayer.NewCoordinator(records, multiplayer.NewHub()),
		Issuer:         identity.NewIssuer([]byte(getEnv("JWT_SECRET", "dev-only-secret")), getEnvDuration("TOKEN_TTL", 24*time.Hour)),
		Sessions:       make(map[string]*game.Session),
		LimiterMap:     make(map[string]*rate.Limiter),
		RoundDuration:  getEnvDuration("ROUND_DURATION", game.DefaultDuration),
		CookieMaxAge:   getEnvDuration("COOKIE_MAX_AGE", 2*time.Hour),
		SessionTimeout: sessionTimeout,
		RateLimitRPS:   getEnvInt("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 10),
		IsProduction:   isProduction,
		StartTime:      time.Now(),
	}

	stopCleanup := make(chan struct{})
	app.startCleanupLoop(getEnvDuration("CLEANUP_INTERVAL", 15*time.Minute), stopCleanup)
	defer close(stopCleanup)

	router := app.buildRouter()
	startServer(router)
}

// buildRouter wires middleware and routes.
func (app *App) buildRouter() *gin.Engine {
	if app.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	router.Use(ginGzip.Gzip(ginGzip.DefaultCompression))
	if err := router.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		log.Warn().Err(err).Msg("failed to set trusted proxies")
	}
	router.Use(cachecontrol.New(cachecontrol.Config{
		NoStore:        true,
		NoCache:        true,
		MustRevalidate: true,
	}))
	router.Use(requestIDMiddleware())
	router.Use(app.identityMiddleware(false))

	limited := app.rateLimitMiddleware()

	// Solo session engine
	router.POST(RouteSessionStart, limited, app.startSessionHandler)
	router.GET(RouteSession, app.getSessionHandler)
	router.POST(RouteSessionSelect, app.selectTileHandler)
	router.POST(RouteSessionClear, app.clearSelectionHandler)
	router.POST(RouteSessionSubmit, limited, app.submitWordHandler)
	router.POST(RoutePowerupDict, limited, app.dictionaryPowerupHandler)
	router.POST(RoutePowerupRobot, limited, app.robotPowerupHandler)
	router.POST(RouteSessionCancel, app.cancelSessionHandler)
	router.POST(RouteSessionEnd, app.endSessionHandler)
	router.GET(RouteSessionReport, app.sessionReportHandler)

	// Identity
	router.POST(RouteGuestIdentity, limited, app.guestIdentityHandler)

	// Multiplayer coordinator
	authed := app.identityMiddleware(true)
	router.POST(RouteGames, authed, limited, app.createGameHandler)
	router.GET(RouteGame, app.getGameHandler)
	router.POST(RouteGameJoin, authed, limited, app.joinGameHandler)
	router.POST(RouteGamePay, authed, app.confirmPaymentHandler)
	router.POST(RouteGameStart, authed, app.startGameHandler)
	router.POST(RouteGameScore, authed, limited, app.submitScoreHandler)
	router.DELETE(RouteGame, authed, app.deleteGameHandler)
	router.GET(RouteGamePlay, authed, app.playStatusHandler)
	router.GET(RouteGameEvents, app.gameEventsHandler)

	router.GET(RouteHealth, app.healthHandler)
	return router
}

func startServer(router *gin.Engine) {
	port := getEnv("PORT", "8080")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
		<-sigint
		log.Info().Msg("shutdown signal received, shutting down gracefully")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("HTTP server shutdown")
		}
		close(idleConnsClosed)
	}()

	log.Info().Str("port", port).Msg("server starting")
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server failed to start")
	}
	<-idleConnsClosed
	log.Info().Msg("server shutdown complete")
}
