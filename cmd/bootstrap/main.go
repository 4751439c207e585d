// Command bootstrap prepares a fresh Trello board for the dashboard: it
// creates the workflow, registry and finance lists plus the status and
// payment labels, skipping anything the board already has. Safe to run more
// than once.
package main

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rbenhadj/locadash/integrations"
	"github.com/rbenhadj/locadash/internal/config"
)

// Trello rejects unknown label colors outright.
var validLabelColors = map[string]bool{
	"green": true, "yellow": true, "orange": true, "red": true, "purple": true,
	"blue": true, "sky": true, "lime": true, "pink": true, "black": true, "none": true,
}

func main() {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))
	if levelStr == "" {
		levelStr = "info"
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

	tc, err := integrations.NewTrelloClient(cfg.TrelloKey, cfg.TrelloToken, cfg.BoardRef)
	if err != nil {
		zap.L().Fatal("Failed to resolve board", zap.Error(err))
	}
	zap.L().Info("Board resolved",
		zap.String("name", tc.Board.Name),
		zap.String("url", tc.Board.URL))

	lists := cfg.Lists
	for _, l := range []struct {
		name string
		pos  string
	}{
		{lists.Requests, "top"},
		{lists.Reserved, "bottom"},
		{lists.Ongoing, "bottom"},
		{lists.Done, "bottom"},
		{lists.Canceled, "bottom"},
		{lists.Vehicles, "bottom"},
		{lists.Clients, "bottom"},
		{lists.InvoicesOpen, "bottom"},
		{lists.InvoicesPaid, "bottom"},
		{lists.Expenses, "bottom"},
	} {
		id, err := tc.EnsureList(l.name, l.pos)
		if err != nil {
			zap.L().Fatal("Failed to ensure list", zap.String("list", l.name), zap.Error(err))
		}
		zap.L().Info("List ready", zap.String("list", l.name), zap.String("id", id))
	}

	for _, lb := range []struct {
		name  string
		color string
	}{
		{"DEMANDE", "yellow"},
		{"RESERVE", "sky"},
		{"EN_COURS", "orange"},
		{"TERMINE", "green"},
		{"ANNULE", "red"},
		{"PAIEMENT_CASH", "lime"},
		{"PAIEMENT_VIREMENT", "blue"},
		{"PAIEMENT_CARTE", "purple"},
	} {
		color := lb.color
		if !validLabelColors[color] {
			zap.L().Warn("Invalid label color, using blue", zap.String("label", lb.name), zap.String("color", color))
			color = "blue"
		}
		id, err := tc.EnsureLabel(lb.name, color)
		if err != nil {
			zap.L().Fatal("Failed to ensure label", zap.String("label", lb.name), zap.Error(err))
		}
		zap.L().Info("Label ready", zap.String("label", lb.name), zap.String("id", id))
	}

	zap.L().Info("Board bootstrap complete")
}
