package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rbenhadj/locadash/internal/payload"
)

func (h *Handler) VehiclesIndex(c *gin.Context) {
	t := h.trello(c)
	if t == nil {
		return
	}
	vehicles := asViews(h.listCards(c, t, h.Cfg.Lists.Vehicles))
	c.HTML(http.StatusOK, "vehicles.html", gin.H{
		"Role":     c.GetString(ctxRoleKey),
		"Name":     c.GetString(ctxNameKey),
		"Vehicles": vehicles,
		"Flashes":  takeFlashes(c),
	})
}

func (h *Handler) VehicleCreate(c *gin.Context) {
	t := h.trello(c)
	if t == nil {
		return
	}

	plate := formValue(c, "plate")
	brand := formValue(c, "brand")
	model := formValue(c, "model")

	var year any
	if y, err := strconv.Atoi(formValue(c, "year")); err == nil {
		year = y
	}
	km, _ := strconv.Atoi(formValue(c, "km"))

	p := payload.Payload{
		"type":                     "vehicle",
		"plate":                    plate,
		"brand":                    brand,
		"model":                    model,
		"year":                     year,
		"color":                    formValue(c, "color"),
		"km":                       km,
		"insurance_expiry":         formValue(c, "insurance_expiry"),
		"technical_control_expiry": formValue(c, "technical_control_expiry"),
		"notes":                    formValue(c, "notes"),
	}
	payload.AddAudit(p, c.GetString(ctxNameKey), "vehicle_create", map[string]any{"plate": plate})

	title := joinTitle(plate, brand+" "+model)
	if _, err := t.CreateCard(h.Cfg.Lists.Vehicles, title, payload.Dump(p)); err != nil {
		zap.L().Error("Failed to create vehicle card", zap.Error(err))
		addFlash(c, "error", "Création impossible: "+err.Error())
	} else {
		addFlash(c, "success", "Véhicule ajouté")
	}
	c.Redirect(http.StatusFound, "/vehicles")
}
