package report

import (
	"io"
	"os"

	"github.com/go-pdf/fpdf"
)

// WritePDF renders the table as an A4 portrait PDF: colored header
// band, alternating row shading, optional logo in the top-left corner.
func WritePDF(w io.Writer, t Table, logoPath string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(t.Titulo, true)
	pdf.AddPage()

	// Core fonts are cp1252, so accented text goes through the
	// translator.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if logoPath != "" {
		if _, err := os.Stat(logoPath); err == nil {
			pdf.ImageOptions(logoPath, 10, 8, 24, 0, false, fpdf.ImageOptions{}, 0, "")
		}
	}

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 12, tr(t.Titulo), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	ancho := 190.0 / float64(len(t.Headers))

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(41, 128, 185)
	pdf.SetTextColor(255, 255, 255)
	for _, h := range t.Headers {
		pdf.CellFormat(ancho, 8, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(0, 0, 0)
	for i, row := range t.Rows {
		if i%2 == 1 {
			pdf.SetFillColor(236, 240, 241)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		for _, celda := range row {
			pdf.CellFormat(ancho, 7, tr(celda), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdf.Output(w)
}
