package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rbenhadj/locadash/api"
	"github.com/rbenhadj/locadash/database"
	"github.com/rbenhadj/locadash/integrations"
	"github.com/rbenhadj/locadash/internal/config"
)

func main() {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))
	if levelStr == "" {
		levelStr = "debug"
	}
	level, err := zapcore.ParseLevel(levelStr)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      true,
		Encoding:         "console",
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, _ := zapConfig.Build()
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	cfg := config.Load()
	if cfg.TrelloKey == "" || cfg.TrelloToken == "" || cfg.BoardRef == "" {
		zap.L().Fatal("Trello credentials are not configured (TRELLO_KEY, TRELLO_TOKEN, TRELLO_BOARD)")
	}

	db := database.Init(cfg.ContractsDB)
	sqlDB, _ := db.DB()

	router := gin.New()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	router.Use(sessions.Sessions("locadash", store))

	router.LoadHTMLGlob("templates/*.html")

	handler := &api.Handler{
		Cfg: cfg,
		DB:  db,
		NewTrello: func() (*integrations.TrelloClient, error) {
			return integrations.NewTrelloClient(cfg.TrelloKey, cfg.TrelloToken, cfg.BoardRef)
		},
	}
	handler.Register(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	zap.L().Info("Starting server", zap.String("port", cfg.Port))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("Server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	zap.L().Info("Shutdown initiated", zap.String("reason", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Error("Error shutting down server", zap.Error(err))
	} else {
		zap.L().Info("HTTP server shut down gracefully.")
	}

	if sqlDB != nil {
		if err := sqlDB.Close(); err != nil {
			zap.L().Error("Error closing database", zap.Error(err))
		} else {
			zap.L().Info("Database connection closed.")
		}
	}

	zap.L().Info("Exiting...")
}
