// Package report renders the printable PDF for a finished prediction.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/go-pdf/fpdf"

	"github.com/Brownie44l1/alzdetect/internal/cache"
)

const title = "Alzheimer Detection Report"

// Render writes an A4 report for e to w.
func Render(w io.Writer, e cache.Entry) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(1)
	pdf.Rect(5, 5, 200, 287, "D")

	pdf.SetFont("Times", "B", 24)
	pdf.CellFormat(190, 20, title, "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(190, 10, "Patient Details", "", 1, "", false, 0, "")

	r := e.Record
	pdf.SetFont("Helvetica", "", 12)
	for _, line := range []string{
		"Name: " + r.Name,
		"Age: " + strconv.Itoa(r.Age),
		"Gender: " + r.Gender,
		"Contact: " + r.Contact,
	} {
		pdf.CellFormat(190, 10, tr(line), "", 1, "", false, 0, "")
	}

	if len(e.ImagePNG) > 0 {
		pdf.CellFormat(190, 10, "MRI scan:", "", 1, "", false, 0, "")
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("scan", opts, bytes.NewReader(e.ImagePNG))
		pdf.ImageOptions("scan", 40, pdf.GetY()+2, 50, 50, false, opts, 0, "")
		pdf.SetY(pdf.GetY() + 56)
	}

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(190, 10, tr("Prediction for Alzheimer: "+r.Prediction), "", 1, "", false, 0, "")

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Filename returns the download name for a record's report.
func Filename(recordID string) string {
	return "report-" + recordID + ".pdf"
}
