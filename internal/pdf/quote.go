// Package pdf renders quotes as downloadable documents.
package pdf

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
	"github.com/phpdave11/gofpdf"

	"github.com/diewo77/procurement/internal/models"
)

// Header is the issuing company printed at the top of the document.
type Header struct {
	CompanyName string
	ClientName  string
	ClientEmail string
}

// QuoteFilename is quote-<slug(projectName)>-<id>.pdf.
func QuoteFilename(q *models.Quote) string {
	s := slug.Make(q.ProjectName)
	if s == "" {
		return fmt.Sprintf("quote-%d.pdf", q.ID)
	}
	return fmt.Sprintf("quote-%s-%d.pdf", s, q.ID)
}

func money(v float64) string { return "$" + strconv.FormatFloat(v, 'f', 2, 64) }

func quantity(it models.QuoteItem) string {
	s := strconv.FormatFloat(it.Quantity, 'f', -1, 64)
	if it.Unit == models.UnitHourly {
		s += " h"
	}
	return s
}

// WriteQuote renders q (with its items loaded) to w.
func WriteQuote(w io.Writer, q *models.Quote, h Header) error {
	doc := gofpdf.New("P", "mm", "A4", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetTitle(tr(fmt.Sprintf("Quote #%d", q.ID)), false)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 16)
	title := "Quote"
	if h.CompanyName != "" {
		title = h.CompanyName + " - Quote"
	}
	doc.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")

	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(0, 6, tr(fmt.Sprintf("Quote #%d  |  %s  |  %s", q.ID, strings.ToUpper(string(q.Status)), q.CreatedAt.Format("2006-01-02"))), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, tr("Project: "+q.ProjectName), "", 1, "L", false, 0, "")
	if h.ClientName != "" || h.ClientEmail != "" {
		doc.CellFormat(0, 6, tr(strings.TrimSpace("Client: "+h.ClientName+" "+h.ClientEmail)), "", 1, "L", false, 0, "")
	}
	doc.Ln(4)

	widths := []float64{90, 25, 35, 40}
	doc.SetFont("Helvetica", "B", 10)
	doc.SetFillColor(235, 235, 235)
	for i, head := range []string{"Item", "Qty", "Unit price", "Price"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		doc.CellFormat(widths[i], 8, head, "1", 0, align, true, 0, "")
	}
	doc.Ln(-1)

	doc.SetFont("Helvetica", "", 10)
	for _, it := range q.Items {
		label := it.ServiceName
		if label == "" {
			label = it.Description
		} else if it.Description != "" {
			label += " - " + it.Description
		}
		doc.CellFormat(widths[0], 7, tr(truncate(label, 55)), "1", 0, "L", false, 0, "")
		doc.CellFormat(widths[1], 7, quantity(it), "1", 0, "R", false, 0, "")
		doc.CellFormat(widths[2], 7, money(it.UnitPrice), "1", 0, "R", false, 0, "")
		doc.CellFormat(widths[3], 7, money(it.Price), "1", 1, "R", false, 0, "")
	}

	total := func(label, value string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		doc.SetFont("Helvetica", style, 10)
		doc.CellFormat(widths[0]+widths[1]+widths[2], 7, tr(label), "", 0, "R", false, 0, "")
		doc.CellFormat(widths[3], 7, value, "", 1, "R", false, 0, "")
	}
	doc.Ln(2)
	total("Net", money(q.NetPrice), false)
	taxLabel := fmt.Sprintf("Tax (%s%%)", strconv.FormatFloat(q.TaxRate*100, 'f', -1, 64))
	if q.TaxLocation != "" && q.TaxLocation != "custom" {
		taxLabel += " " + q.TaxLocation
	}
	total(taxLabel, money(q.TaxAmount), false)
	total("Delivery", money(q.DeliveryFee), false)
	total("Total", money(q.TotalPrice), true)

	if q.Notes != "" {
		doc.Ln(6)
		doc.SetFont("Helvetica", "I", 9)
		doc.MultiCell(0, 5, tr(q.Notes), "", "L", false)
	}
	return doc.Output(w)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
