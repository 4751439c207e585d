package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rbenhadj/locadash/integrations"
	"github.com/rbenhadj/locadash/internal/payload"
	"github.com/rbenhadj/locadash/internal/pdfgen"
)

func sumAmount(cards []integrations.Card, field, fallback string) float64 {
	var total float64
	for _, card := range cards {
		p := payload.ParseLenient(card.Desc)
		v := p.Num(field)
		if v == 0 && fallback != "" {
			v = p.Num(fallback)
		}
		total += v
	}
	return total
}

func (h *Handler) financeTotals(open, paid, expenses []integrations.Card) gin.H {
	paidTotal := sumAmount(paid, "paid_amount", "total")
	openTotal := sumAmount(open, "total", "")
	expTotal := sumAmount(expenses, "amount", "")
	return gin.H{
		"Paid":     paidTotal,
		"Open":     openTotal,
		"Expenses": expTotal,
		"Profit":   paidTotal - expTotal,
	}
}

func (h *Handler) FinanceIndex(c *gin.Context) {
	t := h.trello(c)
	if t == nil {
		return
	}
	lists := h.Cfg.Lists

	open := h.listCards(c, t, lists.InvoicesOpen)
	paid := h.listCards(c, t, lists.InvoicesPaid)
	expenses := h.listCards(c, t, lists.Expenses)

	c.HTML(http.StatusOK, "finance.html", gin.H{
		"Role":         c.GetString(ctxRoleKey),
		"Name":         c.GetString(ctxNameKey),
		"InvoicesOpen": asViews(open),
		"InvoicesPaid": asViews(paid),
		"Expenses":     asViews(expenses),
		"Totals":       h.financeTotals(open, paid, expenses),
		"Flashes":      takeFlashes(c),
	})
}

// InvoiceCreate decides the invoice's list once, at creation time: paid when
// the amount received covers a positive total, open otherwise. The status is
// never recomputed afterwards.
func (h *Handler) InvoiceCreate(c *gin.Context) {
	t := h.trello(c)
	if t == nil {
		return
	}

	clientName := formValue(c, "client_name")
	total := parseAmount(formValue(c, "total"))
	paidAmount := parseAmount(formValue(c, "paid_amount"))

	p := payload.Payload{
		"type":            "invoice",
		"client_name":     clientName,
		"booking_card_id": formValue(c, "booking_card_id"),
		"date":            formValue(c, "date"),
		"total":           total,
		"paid_amount":     paidAmount,
		"payment_method":  formValue(c, "payment_method"),
		"notes":           formValue(c, "notes"),
	}
	payload.AddAudit(p, c.GetString(ctxNameKey), "invoice_create", map[string]any{
		"client_name": clientName,
		"total":       total,
		"paid_amount": paidAmount,
	})

	target := h.Cfg.Lists.InvoicesOpen
	if paidAmount >= total && total > 0 {
		target = h.Cfg.Lists.InvoicesPaid
	}

	title := joinTitle(clientName, fmt.Sprintf("%.2f", total))
	if _, err := t.CreateCard(target, title, payload.Dump(p)); err != nil {
		zap.L().Error("Failed to create invoice card", zap.Error(err))
		addFlash(c, "error", "Création impossible: "+err.Error())
	} else {
		addFlash(c, "success", "Facture créée")
	}
	c.Redirect(http.StatusFound, "/finance")
}

func (h *Handler) ExpenseCreate(c *gin.Context) {
	t := h.trello(c)
	if t == nil {
		return
	}

	date := formValue(c, "date")
	category := c.DefaultPostForm("category", "fuel")
	amount := parseAmount(formValue(c, "amount"))

	p := payload.Payload{
		"type":                   "expense",
		"date":                   date,
		"category":               category,
		"amount":                 amount,
		"payment_method":         c.DefaultPostForm("payment_method", "cash"),
		"notes":                  formValue(c, "notes"),
		"linked_vehicle_card_id": formValue(c, "linked_vehicle_card_id"),
	}
	payload.AddAudit(p, c.GetString(ctxNameKey), "expense_create", map[string]any{
		"amount":   amount,
		"category": category,
	})

	title := joinTitle(date, category, fmt.Sprintf("%.2f", amount))
	if _, err := t.CreateCard(h.Cfg.Lists.Expenses, title, payload.Dump(p)); err != nil {
		zap.L().Error("Failed to create expense card", zap.Error(err))
		addFlash(c, "error", "Création impossible: "+err.Error())
	} else {
		addFlash(c, "success", "Dépense enregistrée")
	}
	c.Redirect(http.StatusFound, "/finance")
}

// MonthReportPDF aggregates the finance lists into a one-page summary
// served as an attachment.
func (h *Handler) MonthReportPDF(c *gin.Context) {
	t := h.trello(c)
	if t == nil {
		return
	}
	lists := h.Cfg.Lists

	open := h.listCards(c, t, lists.InvoicesOpen)
	paid := h.listCards(c, t, lists.InvoicesPaid)
	expenses := h.listCards(c, t, lists.Expenses)

	paidTotal := sumAmount(paid, "paid_amount", "total")
	openTotal := sumAmount(open, "total", "")
	expTotal := sumAmount(expenses, "amount", "")

	title := "Rapport Fin de Mois — " + time.Now().Format("2006-01")
	lines := []string{
		fmt.Sprintf("Encaissements (payés): %.2f", paidTotal),
		fmt.Sprintf("A encaisser (ouverts): %.2f", openTotal),
		fmt.Sprintf("Dépenses: %.2f", expTotal),
		fmt.Sprintf("Bénéfice estimé: %.2f", paidTotal-expTotal),
		"",
		"Notes:",
		"- Ce rapport est basé sur les cartes Trello (Factures Payées/Ouvertes + Dépenses).",
	}

	pdfBytes := pdfgen.BuildMonthReportPDF(title, lines)
	c.Header("Content-Disposition", `attachment; filename="rapport_fin_de_mois.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

func parseAmount(s string) float64 {
	return payload.Payload{"v": s}.Num("v")
}
