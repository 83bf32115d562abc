package report

import (
	"io"

	"github.com/jung-kurt/gofpdf"
)

// FPDFEngine renders with the built-in Helvetica family, so it needs no font
// files. Text is converted to cp1252; characters outside it are lost.
type FPDFEngine struct{}

func NewFPDFEngine() *FPDFEngine {
	return &FPDFEngine{}
}

func (e *FPDFEngine) Write(w io.Writer, doc Document) error {
	return e.layout(doc).Output(w)
}

func (e *FPDFEngine) layout(doc Document) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, pageBreakMargin)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(doc.Title), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, tr(doc.Subtitle), "", 1, "", false, 0, "")
	pdf.Ln(4)

	for _, s := range doc.Sections {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 10, tr(s.Title+":"), "", 1, "", false, 0, "")

		pdf.SetFont("Helvetica", "", 12)
		for _, b := range s.Bullets {
			pdf.MultiCell(0, 8, tr("- "+b), "", "", false)
		}
		pdf.Ln(4)
	}

	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 7, tr(doc.Disclaimer), "", "", false)

	return pdf
}
