package report

import (
	"fmt"
	"io"
	"strconv"

	gofpdf "github.com/go-pdf/fpdf"

	"github.com/waftester/bountyscout/pkg/defaults"
	"github.com/waftester/bountyscout/pkg/store"
)

const (
	pdfTitle     = "HackerOne Program Scan Report"
	pdfMargin    = 50.0
	targetIndent = 20.0
)

// accent is #00ff88.
var accent = [3]int{0, 255, 136}

// pdfWriter wraps the document with the cp1252 translator the core fonts
// need and the usable page width.
type pdfWriter struct {
	pdf   *gofpdf.Fpdf
	tr    func(string) string
	width float64
}

// PDF renders a title page header followed by one page per program.
func PDF(w io.Writer, programs []store.ProgramView, opts Options) error {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetTitle(pdfTitle, true)
	pdf.SetCreator(defaults.ToolName+" "+defaults.Version, true)
	generated := opts.generated()
	pdf.SetCreationDate(generated)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	pw := &pdfWriter{
		pdf:   pdf,
		tr:    pdf.UnicodeTranslatorFromDescriptor(""),
		width: pageW - 2*pdfMargin,
	}

	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 24, pw.tr(pdfTitle), "", 1, "C", false, 0, "")
	pw.text(12, "", 0, "Generated: "+generated.Format("2006-01-02 15:04:05 MST"))
	pdf.Ln(14)

	for i, p := range programs {
		if i > 0 {
			pdf.AddPage()
		}
		pw.program(p)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("report: render pdf: %w", err)
	}
	return pdf.Output(w)
}

func (pw *pdfWriter) program(p store.ProgramView) {
	pw.pdf.SetTextColor(accent[0], accent[1], accent[2])
	pw.text(16, "U", 0, p.DisplayName())
	pw.pdf.SetTextColor(0, 0, 0)
	pw.pdf.Ln(4)

	pw.text(10, "", 0, "Handle: "+orNA(p.Handle))
	pw.text(10, "", 0, "State: "+orNA(p.State))
	pw.text(10, "", 0, "Submission State: "+orNA(p.SubmissionState))
	pw.text(10, "", 0, "Offers Bounties: "+yesNo(p.OffersBounties))
	pw.text(10, "", 0, "Open Scope: "+yesNo(p.OpenScope))
	pw.text(10, "", 0, "Fast Payments: "+yesNo(p.FastPayments))
	pw.text(10, "", 0, "Safe Harbor: "+yesNo(p.GoldStandardSafeHarbor))
	pw.pdf.Ln(8)

	if len(p.ScopeTargets) == 0 {
		pw.text(10, "", 0, "No scope targets available")
		return
	}

	pw.pdf.SetTextColor(accent[0], accent[1], accent[2])
	pw.text(12, "B", 0, "Scope Targets:")
	pw.pdf.SetTextColor(0, 0, 0)
	pw.pdf.Ln(4)

	for _, t := range p.ScopeTargets {
		typ := t.AssetType
		if typ == "" {
			typ = "Unknown"
		}
		pw.text(9, "B", targetIndent, "Type: "+typ)
		pw.text(9, "", targetIndent, "Target: "+orNA(t.Target))
		pw.text(9, "", targetIndent, "Bounty Eligible: "+yesNo(t.EligibleForBounty))
		pw.text(9, "", targetIndent, "Submission Eligible: "+yesNo(t.EligibleForSubmission))
		if r := t.TestResult; r != nil {
			if r.StatusCode != nil {
				pw.text(9, "", targetIndent, "Status Code: "+strconv.Itoa(*r.StatusCode))
			}
			pw.text(9, "", targetIndent, "Has Auth: "+yesNo(r.HasAuthIndicators))
		}
		if a := t.XSSAnalysis; a != nil {
			pw.text(9, "", targetIndent, fmt.Sprintf("XSS: reflected/stored %d (%s), DOM %d (%s)",
				a.ReflectedStoredScore, yesNo(a.GoodReflectedStored), a.DOMScore, yesNo(a.GoodDOM)))
		}
		if t.SeverityRating != "" {
			pw.text(9, "", targetIndent, "Severity: "+t.SeverityRating)
		}
		pw.pdf.Ln(6)
	}
}

// text writes one wrapped paragraph at size points, indented from the
// left margin.
func (pw *pdfWriter) text(size float64, style string, indent float64, s string) {
	pw.pdf.SetFont("Helvetica", style, size)
	pw.pdf.SetX(pdfMargin + indent)
	pw.pdf.MultiCell(pw.width-indent, size*1.3, pw.tr(s), "", "L", false)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
