// Package pdfgen renders rental contracts and finance reports as flat-text
// PDF documents.
package pdfgen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/rbenhadj/locadash/internal/config"
	"github.com/rbenhadj/locadash/internal/payload"
)

// Field orders are fixed; a section prints its keys in this sequence and
// skips empty values.
var (
	contractClientKeys  = []string{"client_name", "client_phone", "client_address", "doc_id", "driver_license"}
	contractVehicleKeys = []string{"vehicle_name", "vehicle_plate", "vehicle_model", "vehicle_vin"}
	contractRentalKeys  = []string{"start_date", "end_date", "pickup_location", "return_location", "price_per_day", "deposit", "paid_amount", "payment_method", "notes"}

	draftBookingKeys = []string{"title", "start", "end", "pickup", "return_place", "ppd", "deposit", "paid", "method", "notes"}
	draftClientKeys  = []string{"name", "phone", "doc_id", "license", "address"}
	draftVehicleKeys = []string{"name", "plate", "brand", "model", "color"}
)

var contractConditions = []string{
	"- Le véhicule doit être rendu dans le même état.",
	"- Toute infraction/amende est à la charge du locataire.",
	"- En cas de dommages, la franchise/dépôt peut être retenue.",
	"- Paiement restant dû à la restitution si non réglé.",
}

// SectionLines formats the non-empty fields of a payload in the given key
// order. Empty strings, zero numbers and false booleans are skipped.
func SectionLines(p payload.Payload, keys []string) []string {
	var lines []string
	for _, k := range keys {
		v := formatValue(p[k])
		if v == "" {
			continue
		}
		lines = append(lines, k+": "+v)
	}
	return lines
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		if x == 0 {
			return ""
		}
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", x), "0"), ".")
	case bool:
		if !x {
			return ""
		}
		return "oui"
	}
	return ""
}

// doc tracks a vertical cursor the way the original canvas code did: every
// line moves the cursor down, crossing the margin starts a new page.
type doc struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
	y   float64
}

const (
	pageTop    = 20.0
	pageBottom = 272.0
	leftX      = 15.0
)

func newDoc() *doc {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	d := &doc{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	d.newPage()
	return d
}

func (d *doc) newPage() {
	d.pdf.AddPage()
	d.y = pageTop
}

func (d *doc) line(s string, style string, size, dy float64) {
	if d.y > pageBottom {
		d.newPage()
	}
	d.pdf.SetFont("Helvetica", style, size)
	d.pdf.Text(leftX, d.y, d.tr(s))
	d.y += dy
}

func (d *doc) text(s string)    { d.line(s, "", 11, 6) }
func (d *doc) heading(s string) { d.line(s, "B", 12, 7) }
func (d *doc) space(mm float64) { d.y += mm }

func (d *doc) bytes() []byte {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil
	}
	return buf.Bytes()
}

// BuildContractPDF renders the simple rental contract from a flat booking
// payload: lessor header, client, vehicle and rental sections, conditions,
// then a signature page.
func BuildContractPDF(p payload.Payload, lessor config.Lessor) []byte {
	d := newDoc()

	d.line("CONTRAT DE LOCATION", "B", 16, 10)
	d.pdf.SetFont("Helvetica", "", 10)
	if lessor.Name != "" || lessor.Phone != "" {
		d.line(fmt.Sprintf("Loueur: %s | %s", lessor.Name, lessor.Phone), "", 10, 5)
	}
	if lessor.Address != "" {
		d.line("Adresse: "+lessor.Address, "", 10, 5)
	}
	d.space(6)

	d.heading("Client")
	for _, ln := range SectionLines(p, contractClientKeys) {
		d.text(ln)
	}
	d.space(3)

	d.heading("Véhicule")
	for _, ln := range SectionLines(p, contractVehicleKeys) {
		d.text(ln)
	}
	d.space(3)

	d.heading("Location")
	for _, ln := range SectionLines(p, contractRentalKeys) {
		d.text(ln)
	}
	if opts := selectedOptions(p.Sub("options")); len(opts) > 0 {
		d.text("options: " + strings.Join(opts, ", "))
	}
	d.space(4)

	d.heading("Conditions (résumé)")
	for _, ln := range contractConditions {
		d.line(ln, "", 10, 5)
	}

	d.newPage()
	d.line("Signature", "B", 14, 12)
	d.text("Client: _______________________")
	d.space(4)
	d.text("Loueur: _______________________")

	return d.bytes()
}

func selectedOptions(opts payload.Payload) []string {
	var out []string
	for _, k := range []string{"gps", "chauffeur", "baby_seat"} {
		if opts.Bool(k) {
			out = append(out, k)
		}
	}
	return out
}

// BuildDraftPDF renders the editable contract model saved per booking.
func BuildDraftPDF(model payload.Payload) []byte {
	d := newDoc()

	header := model.Sub("header")
	d.line(header.Str("company_name"), "B", 16, 9)
	if v := header.Str("company_address"); v != "" {
		d.line(v, "", 10, 5)
	}
	if v := header.Str("company_phone"); v != "" {
		d.line(v, "", 10, 5)
	}
	d.space(4)
	title := header.Str("title_fr")
	if title == "" {
		title = "CONTRAT DE LOCATION DE VÉHICULE"
	}
	d.line(title, "B", 14, 10)

	d.heading("=== Location ===")
	for _, ln := range SectionLines(model.Sub("booking"), draftBookingKeys) {
		d.text(ln)
	}
	d.space(3)

	d.heading("=== Client ===")
	for _, ln := range SectionLines(model.Sub("client"), draftClientKeys) {
		d.text(ln)
	}
	d.space(3)

	d.heading("=== Véhicule ===")
	for _, ln := range SectionLines(model.Sub("vehicle"), draftVehicleKeys) {
		d.text(ln)
	}
	d.space(3)

	if body := strings.TrimSpace(model.Str("body_fr")); body != "" {
		d.heading("=== Texte ===")
		for _, part := range strings.Split(body, "\n") {
			if s := strings.TrimSpace(part); s != "" {
				d.line(s, "", 10, 5)
			}
		}
		d.space(3)
	}

	if clauses, ok := model["clauses_fr"].([]any); ok && len(clauses) > 0 {
		d.heading("=== Conditions ===")
		for i, cl := range clauses {
			if s, ok := cl.(string); ok && strings.TrimSpace(s) != "" {
				d.line(fmt.Sprintf("%d. %s", i+1, strings.TrimSpace(s)), "", 10, 5)
			}
		}
		d.space(3)
	}

	sig := model.Sub("signature")
	d.heading("=== Signature ===")
	d.text(fmt.Sprintf("Lieu: %s | Date: %s", sig.Str("place"), sig.Str("date")))
	d.text("Le Loueur: " + sig.Str("lessor_name"))
	d.text("Le Locataire: " + sig.Str("lessee_name"))

	return d.bytes()
}

// BuildMonthReportPDF renders a title followed by plain lines, paginating as
// the cursor crosses the bottom margin.
func BuildMonthReportPDF(title string, lines []string) []byte {
	d := newDoc()
	d.line(title, "B", 16, 12)
	for _, ln := range lines {
		d.text(ln)
	}
	return d.bytes()
}
