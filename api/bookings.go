package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rbenhadj/locadash/integrations"
	"github.com/rbenhadj/locadash/internal/payload"
	"github.com/rbenhadj/locadash/internal/pdfgen"
)

// bookingUpdateKeys are the fields an edit form may amend on an existing
// booking payload.
var bookingUpdateKeys = []string{
	"client_name", "client_phone", "client_address", "doc_id", "driver_license",
	"vehicle_name", "vehicle_plate", "vehicle_model", "vehicle_vin",
	"start_date", "end_date", "pickup_location", "return_location",
	"price_per_day", "deposit", "paid_amount", "payment_method", "notes",
}

func (h *Handler) BookingsIndex(c *gin.Context) {
	t := h.trello(c)
	if t == nil {
		return
	}
	lists := h.Cfg.Lists

	demandes := asViews(h.listCards(c, t, lists.Requests))
	reserved := asViews(h.listCards(c, t, lists.Reserved))
	ongoing := asViews(h.listCards(c, t, lists.Ongoing))
	done := asViews(h.listCards(c, t, lists.Done))
	canceled := asViews(h.listCards(c, t, lists.Canceled))

	clients := asViews(h.listCards(c, t, lists.Clients))
	vehicles := asViews(h.listCards(c, t, lists.Vehicles))

	c.HTML(http.StatusOK, "bookings.html", gin.H{
		"Role":     c.GetString(ctxRoleKey),
		"Name":     c.GetString(ctxNameKey),
		"Demandes": demandes,
		"Reserved": reserved,
		"Ongoing":  ongoing,
		"Done":     done,
		"Canceled": canceled,
		"Clients":  clients,
		"Vehicles": vehicles,
		"Stats": gin.H{
			"Demandes": len(demandes),
			"Reserved": len(reserved),
			"Ongoing":  len(ongoing),
			"Done":     len(done),
			"Canceled": len(canceled),
		},
		"Flashes": takeFlashes(c),
	})
}

// BookingCreate builds the booking payload from the form and creates one
// card in the requests list. Missing fields default to empty strings.
func (h *Handler) BookingCreate(c *gin.Context) {
	t := h.trello(c)
	if t == nil {
		return
	}

	clientName := formValue(c, "client_name")
	vehicleName := formValue(c, "vehicle_name")

	p := payload.Payload{
		"_type":           "booking",
		"client_name":     clientName,
		"client_phone":    formValue(c, "client_phone"),
		"client_address":  formValue(c, "client_address"),
		"doc_id":          formValue(c, "doc_id"),
		"driver_license":  formValue(c, "driver_license"),
		"vehicle_name":    vehicleName,
		"vehicle_plate":   formValue(c, "vehicle_plate"),
		"vehicle_model":   formValue(c, "vehicle_model"),
		"vehicle_vin":     formValue(c, "vehicle_vin"),
		"start_date":      formValue(c, "start_date"),
		"end_date":        formValue(c, "end_date"),
		"pickup_location": formValue(c, "pickup_location"),
		"return_location": formValue(c, "return_location"),
		"notes":           formValue(c, "notes"),
		"options": map[string]any{
			"gps":       c.PostForm("opt_gps") != "",
			"chauffeur": c.PostForm("opt_driver") != "",
			"baby_seat": c.PostForm("opt_baby_seat") != "",
		},
	}
	payload.AddAudit(p, c.GetString(ctxNameKey), "booking_create", map[string]any{
		"client_name":  clientName,
		"vehicle_name": vehicleName,
	})

	title := joinTitle(clientName, vehicleName)
	if title == "" {
		title = "Nouvelle réservation"
	}

	if _, err := t.CreateCard(h.Cfg.Lists.Requests, title, payload.Dump(p)); err != nil {
		zap.L().Error("Failed to create booking card", zap.Error(err))
		addFlash(c, "error", "Création impossible: "+err.Error())
	} else {
		addFlash(c, "success", "Réservation créée dans DEMANDES")
	}
	c.Redirect(http.StatusFound, "/bookings")
}

// BookingUpdate amends the fields present in the form, appends one audit
// entry and writes the whole payload back. Last writer wins.
func (h *Handler) BookingUpdate(c *gin.Context) {
	t := h.trello(c)
	if t == nil {
		return
	}
	cardID := c.Param("id")

	card, err := t.GetCard(cardID)
	if err != nil {
		zap.L().Error("Failed to fetch booking card", zap.String("card", cardID), zap.Error(err))
		addFlash(c, "error", "Carte introuvable: "+err.Error())
		c.Redirect(http.StatusFound, "/bookings")
		return
	}

	p := payload.ParseLenient(card.Desc)
	changed := map[string]any{}
	for _, k := range bookingUpdateKeys {
		if _, ok := c.GetPostForm(k); ok {
			p[k] = formValue(c, k)
			changed[k] = p[k]
		}
	}
	payload.AddAudit(p, c.GetString(ctxNameKey), "booking_update", changed)

	desc := payload.Dump(p)
	if _, err := t.UpdateCard(cardID, integrations.CardPatch{Desc: &desc}); err != nil {
		zap.L().Error("Failed to update booking card", zap.String("card", cardID), zap.Error(err))
		addFlash(c, "error", "Mise à jour impossible: "+err.Error())
	} else {
		addFlash(c, "success", "Réservation mise à jour")
	}
	c.Redirect(http.StatusFound, "/bookings")
}

// BookingMove maps a workflow action onto a target list. List membership is
// the booking's status; nothing is written into the payload.
func (h *Handler) BookingMove(c *gin.Context) {
	t := h.trello(c)
	if t == nil {
		return
	}
	lists := h.Cfg.Lists
	mapping := map[string]string{
		"demandes": lists.Requests,
		"reserved": lists.Reserved,
		"ongoing":  lists.Ongoing,
		"done":     lists.Done,
		"cancel":   lists.Canceled,
		"canceled": lists.Canceled,
	}
	action := c.Param("action")
	target, ok := mapping[action]
	if !ok {
		addFlash(c, "error", "Action inconnue: "+action)
		c.Redirect(http.StatusFound, "/bookings")
		return
	}

	if _, err := t.MoveCard(c.Param("id"), target); err != nil {
		zap.L().Error("Failed to move booking card", zap.String("card", c.Param("id")), zap.Error(err))
		addFlash(c, "error", "Déplacement impossible: "+err.Error())
	} else {
		addFlash(c, "success", "Carte déplacée")
	}
	c.Redirect(http.StatusFound, "/bookings")
}

// BookingArchive is the delete: closed=true on the far side, recoverable
// from Trello itself.
func (h *Handler) BookingArchive(c *gin.Context) {
	t := h.trello(c)
	if t == nil {
		return
	}
	if err := t.ArchiveCard(c.Param("id")); err != nil {
		zap.L().Error("Failed to archive card", zap.String("card", c.Param("id")), zap.Error(err))
		addFlash(c, "error", "Archivage impossible: "+err.Error())
	} else {
		addFlash(c, "success", "Carte archivée")
	}
	c.Redirect(http.StatusFound, "/bookings")
}

// BookingContractAndMove generates the contract PDF, attaches it to the
// card and moves the booking to the ongoing list. The description update
// lands before the move, so an interruption leaves an audited card in its
// previous list rather than an unaudited one in the new list.
func (h *Handler) BookingContractAndMove(c *gin.Context) {
	t := h.trello(c)
	if t == nil {
		return
	}
	cardID := c.Param("id")

	card, err := t.GetCard(cardID)
	if err != nil {
		zap.L().Error("Failed to fetch booking card", zap.String("card", cardID), zap.Error(err))
		addFlash(c, "error", "Carte introuvable: "+err.Error())
		c.Redirect(http.StatusFound, "/bookings")
		return
	}

	p := payload.ParseLenient(card.Desc)
	if p.Type() != "booking" {
		addFlash(c, "error", "La carte n'a pas une desc JSON _type=booking.")
		c.Redirect(http.StatusFound, "/bookings")
		return
	}

	payload.AddAudit(p, c.GetString(ctxNameKey), "contract_generated", map[string]any{
		"card_id": cardID,
	})
	desc := payload.Dump(p)
	if _, err := t.UpdateCard(cardID, integrations.CardPatch{Desc: &desc}); err != nil {
		zap.L().Error("Failed to update booking card", zap.String("card", cardID), zap.Error(err))
		addFlash(c, "error", "Mise à jour impossible: "+err.Error())
		c.Redirect(http.StatusFound, "/bookings")
		return
	}

	pdfBytes := pdfgen.BuildContractPDF(p, h.Cfg.Lessor)
	filename := fmt.Sprintf("contrat_%s.pdf", cardID)
	if err := t.AttachFile(cardID, filename, pdfBytes); err != nil {
		zap.L().Error("Failed to attach contract", zap.String("card", cardID), zap.Error(err))
		addFlash(c, "error", "Pièce jointe impossible: "+err.Error())
		c.Redirect(http.StatusFound, "/bookings")
		return
	}

	if _, err := t.MoveCard(cardID, h.Cfg.Lists.Ongoing); err != nil {
		zap.L().Error("Failed to move booking card", zap.String("card", cardID), zap.Error(err))
		addFlash(c, "error", "Déplacement impossible: "+err.Error())
	} else {
		addFlash(c, "success", "Contrat généré + attaché + passé en location")
	}
	c.Redirect(http.StatusFound, "/bookings")
}

// BookingCardJSON feeds the browser detail modal.
func (h *Handler) BookingCardJSON(c *gin.Context) {
	t := h.trello(c)
	if t == nil {
		return
	}
	cardID := c.Param("id")
	card, err := t.GetCard(cardID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":      cardID,
		"name":    card.Name,
		"url":     card.URL,
		"payload": payload.ParseLenient(card.Desc),
	})
}

// BookingEventsJSON feeds the calendar: reserved and ongoing bookings only.
func (h *Handler) BookingEventsJSON(c *gin.Context) {
	t := h.trello(c)
	if t == nil {
		return
	}
	events := []gin.H{}
	for _, src := range []struct {
		list   string
		status string
	}{
		{h.Cfg.Lists.Reserved, "reserved"},
		{h.Cfg.Lists.Ongoing, "ongoing"},
	} {
		cards, err := t.ListCards(src.list)
		if err != nil {
			zap.L().Warn("Failed to list cards for calendar", zap.String("list", src.list), zap.Error(err))
			continue
		}
		events = append(events, calendarEvents(cards, src.status)...)
	}
	c.JSON(http.StatusOK, events)
}

func calendarEvents(cards []integrations.Card, status string) []gin.H {
	var events []gin.H
	for _, card := range cards {
		p := payload.ParseLenient(card.Desc)
		if p.Type() != "booking" {
			continue
		}
		client := strings.TrimSpace(p.Str("client_name"))
		vehicle := strings.TrimSpace(p.Str("vehicle_name"))
		title := joinTitle(client, vehicle)
		if title == "" {
			title = strings.TrimSpace(card.Name)
		}
		if title == "" {
			title = "Booking " + card.ID
		}
		events = append(events, gin.H{
			"id":    card.ID,
			"title": title,
			"start": safeISO(p.Str("start_date")),
			"end":   safeISO(p.Str("end_date")),
			"extendedProps": gin.H{
				"status":  status,
				"client":  client,
				"vehicle": vehicle,
			},
		})
	}
	return events
}

// safeISO normalises the datetime-local flavours the forms produce:
// "2026-01-29T10:00", "2026-01-29 10:00" or a bare date. Anything else
// yields "" and the event simply has no position on the grid.
func safeISO(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"} {
		if _, err := time.Parse(layout, s); err == nil {
			return s
		}
	}
	if d, err := time.Parse("2006-01-02 15:04", s); err == nil {
		return d.Format("2006-01-02T15:04")
	}
	return ""
}

func joinTitle(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, strings.TrimSpace(p))
		}
	}
	return strings.Join(kept, " — ")
}
