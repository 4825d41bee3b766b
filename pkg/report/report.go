package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/waftester/bountyscout/pkg/defaults"
	"github.com/waftester/bountyscout/pkg/store"
)

// BaseName is the attachment name without extension.
const BaseName = "hackerone-scan-report"

// ErrUnknownFormat is returned for formats other than csv, pdf and text.
var ErrUnknownFormat = errors.New("report: unknown format")

// Format identifies an export format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
	FormatText Format = "text"
)

// ParseFormat maps a query or flag value to a Format. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatPDF, FormatText:
		return f, nil
	case "txt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Filename returns the attachment file name, e.g. hackerone-scan-report.csv.
func (f Format) Filename() string {
	ext := string(f)
	if f == FormatText {
		ext = "txt"
	}
	return BaseName + "." + ext
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return defaults.ContentTypePDF
	case FormatText:
		return defaults.ContentTypeText
	default:
		return defaults.ContentTypeCSV
	}
}

// Options tune rendering.
type Options struct {
	// Generated is the timestamp printed in headers. Zero means now.
	Generated time.Time

	// TemplateText overrides the built-in text summary.
	TemplateText string
}

func (o Options) generated() time.Time {
	if o.Generated.IsZero() {
		return time.Now()
	}
	return o.Generated
}

// Write renders programs in format f to w.
func Write(w io.Writer, f Format, programs []store.ProgramView, opts Options) error {
	switch f {
	case FormatCSV:
		return CSV(w, programs)
	case FormatPDF:
		return PDF(w, programs, opts)
	case FormatText:
		return Template(w, programs, opts)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
