package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rbenhadj/locadash/integrations"
)

// Dashboard shows per-list card counts. Finance lists may not exist yet on
// an older board; those counts degrade to zero without a notice. When the
// Trello client itself cannot be built the page still renders, with zeroed
// counts and an error notice: every other page redirects here on that
// failure, so the dashboard must never bounce the browser back to itself.
func (h *Handler) Dashboard(c *gin.Context) {
	t, err := h.NewTrello()
	if err != nil {
		zap.L().Error("Failed to initialise Trello client", zap.Error(err))
		c.HTML(http.StatusOK, "dashboard.html", gin.H{
			"Role":    c.GetString(ctxRoleKey),
			"Name":    c.GetString(ctxNameKey),
			"Stats":   zeroStats(),
			"Board":   integrations.Board{},
			"Flashes": append(takeFlashes(c), Flash{Kind: "error", Message: "Connexion Trello impossible: " + err.Error()}),
		})
		return
	}

	count := func(listName string) int {
		cards, err := t.ListCards(listName)
		if err != nil {
			zap.L().Warn("Failed to count cards", zap.String("list", listName), zap.Error(err))
			return 0
		}
		return len(cards)
	}

	lists := h.Cfg.Lists
	stats := gin.H{
		"Demandes":     count(lists.Requests),
		"Reserved":     count(lists.Reserved),
		"Ongoing":      count(lists.Ongoing),
		"Done":         count(lists.Done),
		"Canceled":     count(lists.Canceled),
		"Vehicles":     count(lists.Vehicles),
		"Clients":      count(lists.Clients),
		"InvoicesOpen": count(lists.InvoicesOpen),
		"InvoicesPaid": count(lists.InvoicesPaid),
		"Expenses":     count(lists.Expenses),
	}

	c.HTML(http.StatusOK, "dashboard.html", gin.H{
		"Role":    c.GetString(ctxRoleKey),
		"Name":    c.GetString(ctxNameKey),
		"Stats":   stats,
		"Board":   t.Board,
		"Flashes": takeFlashes(c),
	})
}

func zeroStats() gin.H {
	return gin.H{
		"Demandes":     0,
		"Reserved":     0,
		"Ongoing":      0,
		"Done":         0,
		"Canceled":     0,
		"Vehicles":     0,
		"Clients":      0,
		"InvoicesOpen": 0,
		"InvoicesPaid": 0,
		"Expenses":     0,
	}
}
