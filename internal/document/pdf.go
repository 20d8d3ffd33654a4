package document

import (
	"github.com/go-pdf/fpdf"
)

func writePDF(path, title string, blocks []Block) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle(title, true)
	pdf.SetCreator("vocaleye", true)
	pdf.AddPage()

	// Core fonts are cp1252; translate so quotes and bullets render.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, b := range blocks {
		switch b.Type {
		case Heading1:
			pdf.SetFont("Helvetica", "B", 20)
			pdf.MultiCell(0, 10, tr(b.Text), "", "L", false)
			pdf.Ln(3)
		case Heading2:
			pdf.SetFont("Helvetica", "B", 15)
			pdf.Ln(2)
			pdf.MultiCell(0, 8, tr(b.Text), "", "L", false)
			pdf.Ln(1)
		case Heading3:
			pdf.SetFont("Helvetica", "B", 12)
			pdf.MultiCell(0, 7, tr(b.Text), "", "L", false)
		case Bullet:
			pdf.SetFont("Helvetica", "", 11)
			pdf.SetX(26)
			pdf.MultiCell(0, 6, tr("• "+b.Text), "", "L", false)
		default:
			pdf.SetFont("Helvetica", "", 11)
			pdf.MultiCell(0, 6, tr(b.Text), "", "J", false)
			pdf.Ln(2)
		}
	}

	return pdf.OutputFileAndClose(path)
}
