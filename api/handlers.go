package api

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rbenhadj/locadash/integrations"
	"github.com/rbenhadj/locadash/internal/config"
	"github.com/rbenhadj/locadash/internal/payload"
)

// Handler carries the shared collaborators. A fresh Trello client is built
// per request through NewTrello so the list-id cache never outlives one
// request.
type Handler struct {
	Cfg       *config.Config
	DB        *gorm.DB
	NewTrello func() (*integrations.TrelloClient, error)
}

const (
	sessionRoleKey = "user_role"
	sessionNameKey = "user_name"

	ctxRoleKey = "role"
	ctxNameKey = "name"
)

// Flash is a one-shot notice rendered on the next page.
type Flash struct {
	Kind    string
	Message string
}

func addFlash(c *gin.Context, kind, message string) {
	s := sessions.Default(c)
	s.AddFlash(kind + "|" + message)
	if err := s.Save(); err != nil {
		zap.L().Warn("Failed to save session flash", zap.Error(err))
	}
}

func takeFlashes(c *gin.Context) []Flash {
	s := sessions.Default(c)
	raw := s.Flashes()
	if len(raw) > 0 {
		if err := s.Save(); err != nil {
			zap.L().Warn("Failed to clear session flashes", zap.Error(err))
		}
	}
	out := make([]Flash, 0, len(raw))
	for _, f := range raw {
		str, ok := f.(string)
		if !ok {
			continue
		}
		kind, msg, found := strings.Cut(str, "|")
		if !found {
			kind, msg = "info", str
		}
		out = append(out, Flash{Kind: kind, Message: msg})
	}
	return out
}

// LoginRequired gates every page behind a session role and copies role and
// display name into the request context.
func (h *Handler) LoginRequired(c *gin.Context) {
	s := sessions.Default(c)
	role, _ := s.Get(sessionRoleKey).(string)
	if role == "" {
		c.Redirect(http.StatusFound, "/auth/login")
		c.Abort()
		return
	}
	name, _ := s.Get(sessionNameKey).(string)
	c.Set(ctxRoleKey, role)
	c.Set(ctxNameKey, name)
	c.Next()
}

// AdminRequired sends non-admins back to the bookings board with a notice
// rather than an error page.
func (h *Handler) AdminRequired(c *gin.Context) {
	if c.GetString(ctxRoleKey) != "admin" {
		addFlash(c, "error", "Accès réservé à l'administrateur.")
		c.Redirect(http.StatusFound, "/bookings")
		c.Abort()
		return
	}
	c.Next()
}

// trello builds the per-request client. A nil client means the response has
// already been written (notice + redirect to the dashboard, which renders
// without board data rather than calling this helper).
func (h *Handler) trello(c *gin.Context) *integrations.TrelloClient {
	t, err := h.NewTrello()
	if err != nil {
		zap.L().Error("Failed to initialise Trello client", zap.Error(err))
		addFlash(c, "error", "Connexion Trello impossible: "+err.Error())
		c.Redirect(http.StatusFound, "/dashboard")
		c.Abort()
		return nil
	}
	return t
}

// listCards is the tolerant fetch used by index pages: a remote failure
// becomes a notice and an empty column, the page still renders.
func (h *Handler) listCards(c *gin.Context, t *integrations.TrelloClient, listName string) []integrations.Card {
	cards, err := t.ListCards(listName)
	if err != nil {
		zap.L().Warn("Failed to list cards", zap.String("list", listName), zap.Error(err))
		addFlash(c, "error", "Lecture Trello impossible pour « "+listName+" »")
		return nil
	}
	return cards
}

// cardView is a card with its decoded payload, as handed to templates.
type cardView struct {
	ID      string
	Name    string
	URL     string
	Payload payload.Payload
}

func asViews(cards []integrations.Card) []cardView {
	views := make([]cardView, 0, len(cards))
	for _, card := range cards {
		views = append(views, cardView{
			ID:      card.ID,
			Name:    card.Name,
			URL:     card.URL,
			Payload: payload.ParseLenient(card.Desc),
		})
	}
	return views
}

func formValue(c *gin.Context, key string) string {
	return strings.TrimSpace(c.PostForm(key))
}

func (h *Handler) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
