package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/waftester/bountyscout/pkg/store"
)

// UTF-8 BOM for Excel compatibility.
const utf8BOM = "\xEF\xBB\xBF"

var csvColumns = []string{
	"Program Handle",
	"Program Name",
	"State",
	"Submission State",
	"Offers Bounties",
	"Open Scope",
	"Fast Payments",
	"Safe Harbor",
	"Scope Target Type",
	"Scope Target",
	"Bounty Eligible",
	"Submission Eligible",
	"Status Code",
	"Has Auth Indicators",
	"Severity Rating",
}

// CSV writes one row per scope target. A program without scope gets a
// single row whose scope cells are empty.
func CSV(w io.Writer, programs []store.ProgramView) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return err
	}

	for _, p := range programs {
		head := []string{
			p.Handle,
			p.Name,
			p.State,
			p.SubmissionState,
			yesNo(p.OffersBounties),
			yesNo(p.OpenScope),
			yesNo(p.FastPayments),
			yesNo(p.GoldStandardSafeHarbor),
		}

		if len(p.ScopeTargets) == 0 {
			if err := writeRow(cw, append(head, make([]string, 7)...)); err != nil {
				return err
			}
			continue
		}

		for _, t := range p.ScopeTargets {
			status, auth := "", yesNo(false)
			if t.TestResult != nil {
				if t.TestResult.StatusCode != nil {
					status = strconv.Itoa(*t.TestResult.StatusCode)
				}
				auth = yesNo(t.TestResult.HasAuthIndicators)
			}
			row := append(append([]string{}, head...),
				t.AssetType,
				t.Target,
				yesNo(t.EligibleForBounty),
				yesNo(t.EligibleForSubmission),
				status,
				auth,
				t.SeverityRating,
			)
			if err := writeRow(cw, row); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func writeRow(cw *csv.Writer, row []string) error {
	for i := range row {
		row[i] = sanitizeForCSV(row[i])
	}
	return cw.Write(row)
}

// sanitizeForCSV prevents CSV injection by prefixing formula characters.
func sanitizeForCSV(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
