package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rbenhadj/locadash/internal/models"
	"github.com/rbenhadj/locadash/internal/payload"
	"github.com/rbenhadj/locadash/internal/pdfgen"
)

// defaultDraftModel seeds the editable contract model from the booking card.
func (h *Handler) defaultDraftModel(cardID, cardName string, p payload.Payload) payload.Payload {
	title := strings.TrimSpace(cardName)
	if title == "" {
		title = "Contrat de location"
	}
	return payload.Payload{
		"meta": map[string]any{
			"booking_id":   cardID,
			"generated_at": time.Now().Format("2006-01-02 15:04"),
			"version":      1,
		},
		"header": map[string]any{
			"company_name":    h.Cfg.Lessor.Name,
			"company_address": h.Cfg.Lessor.Address,
			"company_phone":   h.Cfg.Lessor.Phone,
			"title_fr":        "CONTRAT DE LOCATION DE VÉHICULE",
			"title_ar":        "عقد كراء سيارة",
		},
		"booking": map[string]any{
			"title":        title,
			"start":        p.Str("start_date"),
			"end":          p.Str("end_date"),
			"pickup":       p.Str("pickup_location"),
			"return_place": p.Str("return_location"),
			"ppd":          p.Str("price_per_day"),
			"deposit":      p.Str("deposit"),
			"paid":         p.Str("paid_amount"),
			"method":       p.Str("payment_method"),
			"notes":        p.Str("notes"),
		},
		"client": map[string]any{
			"name":    p.Str("client_name"),
			"phone":   p.Str("client_phone"),
			"doc_id":  p.Str("doc_id"),
			"license": p.Str("driver_license"),
			"address": p.Str("client_address"),
		},
		"vehicle": map[string]any{
			"name":  p.Str("vehicle_name"),
			"plate": p.Str("vehicle_plate"),
			"brand": "",
			"model": p.Str("vehicle_model"),
			"color": "",
		},
		"body_fr": "Le présent contrat définit les conditions de location du véhicule.\n" +
			"Le locataire s'engage à respecter les conditions ci-dessous.",
		"clauses_fr": []any{
			"Le locataire est responsable des infractions, amendes et dommages durant la période de location.",
			"Le véhicule doit être rendu avec le même niveau de carburant qu'au départ.",
			"Interdiction de sous-location sans accord écrit du loueur.",
		},
		"signature": map[string]any{
			"place":       "",
			"date":        time.Now().Format("2006-01-02"),
			"lessor_name": h.Cfg.Lessor.Name,
			"lessee_name": p.Str("client_name"),
		},
	}
}

func (h *Handler) loadDraft(bookingID string) (payload.Payload, bool, error) {
	var draft models.ContractDraft
	err := h.DB.First(&draft, "booking_id = ?", bookingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload.ParseLenient(draft.Model), true, nil
}

func (h *Handler) saveDraft(bookingID string, model payload.Payload) error {
	draft := models.ContractDraft{
		BookingID: bookingID,
		Model:     payload.Dump(model),
	}
	return h.DB.Save(&draft).Error
}

// ContractEdit loads the stored draft, seeding it from the booking card on
// first visit.
func (h *Handler) ContractEdit(c *gin.Context) {
	bookingID := c.Param("id")

	model, found, err := h.loadDraft(bookingID)
	if err != nil {
		zap.L().Error("Failed to load contract draft", zap.String("booking", bookingID), zap.Error(err))
		addFlash(c, "error", "Lecture du contrat impossible")
		c.Redirect(http.StatusFound, "/bookings")
		return
	}
	if !found {
		t := h.trello(c)
		if t == nil {
			return
		}
		card, err := t.GetCard(bookingID)
		if err != nil {
			zap.L().Error("Failed to fetch booking card", zap.String("card", bookingID), zap.Error(err))
			addFlash(c, "error", "Carte introuvable: "+err.Error())
			c.Redirect(http.StatusFound, "/bookings")
			return
		}
		model = h.defaultDraftModel(bookingID, card.Name, payload.ParseLenient(card.Desc))
		if err := h.saveDraft(bookingID, model); err != nil {
			zap.L().Error("Failed to save contract draft", zap.String("booking", bookingID), zap.Error(err))
		}
	}

	c.HTML(http.StatusOK, "contract_edit.html", gin.H{
		"Role":      c.GetString(ctxRoleKey),
		"Name":      c.GetString(ctxNameKey),
		"BookingID": bookingID,
		"Model":     model,
		"Header":    model.Sub("header"),
		"Signature": model.Sub("signature"),
		"ClausesFR": joinClauses(model, "clauses_fr"),
		"ClausesAR": joinClauses(model, "clauses_ar"),
		"Flashes":   takeFlashes(c),
	})
}

// ContractSave rebuilds the draft from the form and overwrites it.
func (h *Handler) ContractSave(c *gin.Context) {
	bookingID := c.Param("id")

	model, found, err := h.loadDraft(bookingID)
	if err != nil {
		zap.L().Error("Failed to load contract draft", zap.String("booking", bookingID), zap.Error(err))
		addFlash(c, "error", "Lecture du contrat impossible")
		c.Redirect(http.StatusFound, "/bookings")
		return
	}
	if !found {
		model = payload.Payload{"meta": map[string]any{"booking_id": bookingID, "version": 1}}
	}

	header := map[string]any(model.Sub("header"))
	header["company_name"] = formValue(c, "company_name")
	header["company_address"] = formValue(c, "company_address")
	header["company_phone"] = formValue(c, "company_phone")
	header["title_fr"] = formValue(c, "title_fr")
	header["title_ar"] = formValue(c, "title_ar")
	model["header"] = header

	model["body_fr"] = c.PostForm("body_fr")
	model["body_ar"] = c.PostForm("body_ar")
	model["clauses_fr"] = splitClauses(c.PostForm("clauses_fr"))
	model["clauses_ar"] = splitClauses(c.PostForm("clauses_ar"))

	sig := map[string]any(model.Sub("signature"))
	sig["place"] = formValue(c, "sig_place")
	sig["date"] = formValue(c, "sig_date")
	sig["lessor_name"] = formValue(c, "sig_lessor")
	sig["lessee_name"] = formValue(c, "sig_lessee")
	model["signature"] = sig

	meta := map[string]any(model.Sub("meta"))
	meta["generated_at"] = time.Now().Format("2006-01-02 15:04")
	model["meta"] = meta

	if err := h.saveDraft(bookingID, model); err != nil {
		zap.L().Error("Failed to save contract draft", zap.String("booking", bookingID), zap.Error(err))
		addFlash(c, "error", "Enregistrement impossible")
	} else {
		addFlash(c, "success", "Contrat enregistré.")
	}
	c.Redirect(http.StatusFound, "/bookings/contract/edit/"+bookingID)
}

// ContractPDF renders the stored draft inline; a missing draft bounces to
// the editor which will seed it.
func (h *Handler) ContractPDF(c *gin.Context) {
	bookingID := c.Param("id")

	model, found, err := h.loadDraft(bookingID)
	if err != nil || !found {
		c.Redirect(http.StatusFound, "/bookings/contract/edit/"+bookingID)
		return
	}

	pdfBytes := pdfgen.BuildDraftPDF(model)
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", "contrat_"+bookingID+".pdf"))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

func splitClauses(text string) []any {
	var out []any
	for _, line := range strings.Split(text, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func joinClauses(model payload.Payload, key string) string {
	raw, _ := model[key].([]any)
	var lines []string
	for _, cl := range raw {
		if s, ok := cl.(string); ok {
			lines = append(lines, s)
		}
	}
	return strings.Join(lines, "\n")
}
