package render

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"github.com/banshee-data/airwrite/internal/stroke"
)

const pdfMargin = 10.0 // mm

// PDF writes the stroke as a one-page vector PDF, scaled to fit an A4 page
// whose orientation follows the screen. Single-point runs become dots.
func PDF(w io.Writer, segments []stroke.Segment, screenWidth, screenHeight float64) error {
	if !(screenWidth > 0) || !(screenHeight > 0) {
		return fmt.Errorf("invalid screen size %gx%g", screenWidth, screenHeight)
	}
	orientation := "P"
	if screenWidth > screenHeight {
		orientation = "L"
	}
	doc := gofpdf.New(orientation, "mm", "A4", "")
	doc.SetTitle("airwrite stroke", true)
	doc.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	doc.SetAutoPageBreak(false, 0)
	doc.AddPage()

	pageW, pageH := doc.GetPageSize()
	scale := min((pageW-2*pdfMargin)/screenWidth, (pageH-2*pdfMargin)/screenHeight)
	at := func(p stroke.Point) (float64, float64) {
		return pdfMargin + p.X*scale, pdfMargin + p.Y*scale
	}

	// Screen outline.
	doc.SetDrawColor(200, 200, 200)
	doc.SetLineWidth(0.2)
	doc.Rect(pdfMargin, pdfMargin, screenWidth*scale, screenHeight*scale, "D")

	doc.SetDrawColor(20, 20, 160)
	doc.SetFillColor(20, 20, 160)
	doc.SetLineWidth(0.8)
	doc.SetLineCapStyle("round")
	doc.SetLineJoinStyle("round")

	for _, run := range Runs(segments) {
		if len(run) == 1 {
			x, y := at(run[0])
			doc.Circle(x, y, 0.6, "F")
			continue
		}
		for i := 1; i < len(run); i++ {
			x1, y1 := at(run[i-1])
			x2, y2 := at(run[i])
			doc.Line(x1, y1, x2, y2)
		}
	}

	if err := doc.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
