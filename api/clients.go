package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rbenhadj/locadash/internal/payload"
)

func (h *Handler) ClientsIndex(c *gin.Context) {
	t := h.trello(c)
	if t == nil {
		return
	}
	clients := asViews(h.listCards(c, t, h.Cfg.Lists.Clients))
	c.HTML(http.StatusOK, "clients.html", gin.H{
		"Role":    c.GetString(ctxRoleKey),
		"Name":    c.GetString(ctxNameKey),
		"Clients": clients,
		"Flashes": takeFlashes(c),
	})
}

// ClientCreate is open to agents as well; the registry has to be fillable at
// the counter.
func (h *Handler) ClientCreate(c *gin.Context) {
	t := h.trello(c)
	if t == nil {
		return
	}

	fullName := formValue(c, "full_name")
	p := payload.Payload{
		"type":           "client",
		"full_name":      fullName,
		"phone":          formValue(c, "phone"),
		"doc_id":         formValue(c, "doc_id"),
		"driver_license": formValue(c, "driver_license"),
		"address":        formValue(c, "address"),
		"notes":          formValue(c, "notes"),
		"blacklisted":    false,
	}
	payload.AddAudit(p, c.GetString(ctxNameKey), "client_create", map[string]any{"full_name": fullName})

	title := fullName
	if title == "" {
		title = "Nouveau client"
	}
	if _, err := t.CreateCard(h.Cfg.Lists.Clients, title, payload.Dump(p)); err != nil {
		zap.L().Error("Failed to create client card", zap.Error(err))
		addFlash(c, "error", "Création impossible: "+err.Error())
	} else {
		addFlash(c, "success", "Client ajouté")
	}
	c.Redirect(http.StatusFound, "/clients")
}
