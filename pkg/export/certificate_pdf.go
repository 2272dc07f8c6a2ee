package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// CertificateDocument carries everything printed on a completion certificate.
type CertificateDocument struct {
	StudentName   string
	CourseTitle   string
	TotalDuration string
	Code          string
	CompletedAt   time.Time
	InstructorSig string
	InstructorTag string
	ValidationURL string
}

// CertificateRenderer renders completion certificates as landscape A4 PDFs.
type CertificateRenderer struct {
	issuer string
}

// NewCertificateRenderer constructs a renderer printing issuer in the header.
func NewCertificateRenderer(issuer string) *CertificateRenderer {
	if issuer == "" {
		issuer = "Academy"
	}
	return &CertificateRenderer{issuer: issuer}
}

// Render produces the PDF bytes for doc.
func (r *CertificateRenderer) Render(doc CertificateDocument) ([]byte, error) {
	if doc.Code == "" || doc.CourseTitle == "" {
		return nil, fmt.Errorf("certificate requires code and course title")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	pdf.SetDrawColor(184, 134, 11)
	pdf.SetLineWidth(1.5)
	pdf.Rect(10, 10, 277, 190, "D")
	pdf.SetLineWidth(0.4)
	pdf.Rect(14, 14, 269, 182, "D")

	pdf.SetY(30)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 8, tr(strings.ToUpper(r.issuer)), "", 1, "C", false, 0, "")

	pdf.SetFont("Times", "B", 34)
	pdf.SetTextColor(30, 30, 30)
	pdf.CellFormat(0, 18, tr("Certificado de Conclusão"), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 13)
	pdf.CellFormat(0, 8, tr("Certificamos que"), "", 1, "C", false, 0, "")
	pdf.SetFont("Times", "BI", 26)
	pdf.CellFormat(0, 14, tr(doc.StudentName), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 13)
	line := "concluiu com êxito o curso"
	pdf.CellFormat(0, 8, tr(line), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, tr(doc.CourseTitle), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	details := fmt.Sprintf("Concluído em %s", doc.CompletedAt.Format("02/01/2006"))
	if doc.TotalDuration != "" {
		details += fmt.Sprintf(" - Carga horária %s", doc.TotalDuration)
	}
	pdf.CellFormat(0, 8, tr(details), "", 1, "C", false, 0, "")

	pdf.SetY(150)
	pdf.SetFont("Times", "I", 22)
	pdf.CellFormat(0, 10, tr(doc.InstructorSig), "", 1, "C", false, 0, "")
	pdf.Line(108, 161, 189, 161)
	pdf.SetFont("Helvetica", "", 10)
	tag := doc.InstructorTag
	if tag == "" {
		tag = "Instrutor"
	}
	pdf.CellFormat(0, 7, tr(tag), "", 1, "C", false, 0, "")

	pdf.SetY(182)
	pdf.SetFont("Courier", "", 9)
	pdf.SetTextColor(100, 100, 100)
	footer := "Código de validação: " + doc.Code
	if doc.ValidationURL != "" {
		footer += "  |  " + doc.ValidationURL
	}
	pdf.CellFormat(0, 6, tr(footer), "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}
