// Package report renders the theater sales report as a PDF document.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// Header describes the report being rendered.
type Header struct {
	TheaterID   uint64
	Start, End  time.Time
	GeneratedAt time.Time
}

var columns = []struct {
	title string
	width float64
	align string
}{
	{"Showtime", 20, "L"},
	{"Movie", 62, "L"},
	{"Date", 22, "L"},
	{"Tickets", 16, "R"},
	{"Tickets (rev)", 24, "R"},
	{"F&B (rev)", 22, "R"},
	{"Total", 24, "R"},
}

// SalesPDF renders rows as an A4 portrait table with a totals line and
// returns the document together with a download filename.
func SalesPDF(h Header, rows []model.SalesRow) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Sales report", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, fmt.Sprintf("Sales report - theater #%d", h.TheaterID))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s to %s", h.Start.Format(time.DateOnly), h.End.Format(time.DateOnly)))
	pdf.Ln(6)
	pdf.Cell(0, 6, "Generated: "+h.GeneratedAt.Format("2006-01-02 15:04"))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range columns {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, c.align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	tickets := 0
	ticketRev, fwbRev, total := decimal.Zero, decimal.Zero, decimal.Zero
	for _, r := range rows {
		cells := []string{
			fmt.Sprintf("#%d", r.ShowtimeID),
			truncate(pdf, r.MovieName, columns[1].width-2),
			r.Date.Format(time.DateOnly),
			fmt.Sprintf("%d", r.TicketsSold),
			r.TicketRevenue.StringFixed(2),
			r.FwbRevenue.StringFixed(2),
			r.TotalRevenue.StringFixed(2),
		}
		for i, c := range columns {
			pdf.CellFormat(c.width, 6, cells[i], "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
		tickets += r.TicketsSold
		ticketRev = ticketRev.Add(r.TicketRevenue)
		fwbRev = fwbRev.Add(r.FwbRevenue)
		total = total.Add(r.TotalRevenue)
	}

	pdf.SetFont("Helvetica", "B", 9)
	labelWidth := columns[0].width + columns[1].width + columns[2].width
	pdf.CellFormat(labelWidth, 7, "Total", "1", 0, "L", true, 0, "")
	pdf.CellFormat(columns[3].width, 7, fmt.Sprintf("%d", tickets), "1", 0, "R", true, 0, "")
	pdf.CellFormat(columns[4].width, 7, ticketRev.StringFixed(2), "1", 0, "R", true, 0, "")
	pdf.CellFormat(columns[5].width, 7, fwbRev.StringFixed(2), "1", 0, "R", true, 0, "")
	pdf.CellFormat(columns[6].width, 7, total.StringFixed(2), "1", 0, "R", true, 0, "")
	pdf.Ln(-1)

	if len(rows) == 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.Cell(0, 6, "No tickets were sold in this period.")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	name := fmt.Sprintf("sales_%d_%s_%s.pdf", h.TheaterID, h.Start.Format("20060102"), h.End.Format("20060102"))
	return buf.Bytes(), name, nil
}

// truncate shortens s with an ellipsis until it fits width at the current font.
func truncate(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > width {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}
