package export

import (
	"fmt"
	"io"

	"studentrecords/internal/models"

	"github.com/go-pdf/fpdf"
)

// Layout in points on an A4 portrait page.
const (
	pageMargin   = 30.0
	tableLeft    = 30.0
	tableRight   = 570.0
	tableTop     = 150.0
	rowHeight    = 30.0
	headerRule   = 15.0
	rowRule      = 20.0
	pageBreakY   = 700.0
	continuedTop = 50.0
	footerOffset = 50.0
	lineHeight   = 12.0
	cellPadding  = 4.0
	ellipsis     = "..."
)

var (
	pdfHeaders   = []string{"Name", "Email", "Phone", "Gender", "Status"}
	pdfColWidths = []float64{120, 150, 100, 70, 70}
)

// PDF writes a paginated student table to w.
func (e *Exporter) PDF(w io.Writer, students []models.Student) error {
	doc := e.render(students)
	if err := doc.Output(w); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return nil
}

func (e *Exporter) render(students []models.Student) *fpdf.Fpdf {
	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetMargins(pageMargin, pageMargin, pageMargin)
	doc.SetAutoPageBreak(false, 0)
	doc.SetTitle("Student Records", false)
	tr := doc.UnicodeTranslatorFromDescriptor("")

	pageW, pageH := doc.GetPageSize()
	contentW := pageW - 2*pageMargin

	doc.AddPage()
	centered := func(y float64, style string, size float64, text string) {
		doc.SetFont("Helvetica", style, size)
		doc.SetXY(pageMargin, y)
		doc.CellFormat(contentW, size+4, tr(text), "", 0, "CT", false, 0, "")
	}
	centered(pageMargin, "B", 20, "Student Management System")
	centered(76, "B", 16, "Student Records")
	centered(114, "", 10, "Generated on: "+e.now().In(e.loc).Format(stampLayout))

	drawHeader := func(y float64) {
		doc.SetFont("Helvetica", "B", 10)
		x := tableLeft
		for i, h := range pdfHeaders {
			doc.SetXY(x, y)
			doc.CellFormat(pdfColWidths[i], lineHeight, h, "", 0, "LT", false, 0, "")
			x += pdfColWidths[i]
		}
		doc.Line(tableLeft, y+headerRule, tableRight, y+headerRule)
		doc.SetFont("Helvetica", "", 9)
	}

	y := tableTop
	drawHeader(y)
	y += rowHeight

	for i := range students {
		s := &students[i]
		if y > pageBreakY {
			doc.AddPage()
			y = continuedTop
			drawHeader(y)
			y += rowHeight
		}

		row := []string{s.FullName(), s.Email, phone(s), s.Gender, string(s.Status())}
		x := tableLeft
		for col, text := range row {
			doc.SetXY(x, y)
			doc.CellFormat(pdfColWidths[col], lineHeight, truncate(doc, tr(text), pdfColWidths[col]-cellPadding), "", 0, "LT", false, 0, "")
			x += pdfColWidths[col]
		}
		if i < len(students)-1 {
			doc.Line(tableLeft, y+rowRule, tableRight, y+rowRule)
		}
		y += rowHeight
	}

	last := doc.PageNo()
	doc.SetPage(1)
	doc.SetFont("Helvetica", "", 8)
	doc.SetXY(pageMargin, pageH-footerOffset)
	doc.CellFormat(contentW, lineHeight, fmt.Sprintf("Total Students: %d", len(students)), "", 0, "CT", false, 0, "")
	doc.SetPage(last)

	return doc
}

// truncate shortens text with an ellipsis until it fits in width at the
// current font.
func truncate(doc *fpdf.Fpdf, text string, width float64) string {
	if doc.GetStringWidth(text) <= width {
		return text
	}
	b := []byte(text)
	for len(b) > 0 {
		b = b[:len(b)-1]
		candidate := string(b) + ellipsis
		if doc.GetStringWidth(candidate) <= width {
			return candidate
		}
	}
	return ellipsis
}
