// Package export renders already filtered history rows as CSV or PDF.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/mamadbah2/fleetstock/internal/domain/models"
)

// Format is an export file format.
type Format string

const (
	CSV Format = "csv"
	PDF Format = "pdf"
)

// ParseFormat accepts csv or pdf, defaulting to csv.
func ParseFormat(raw string) (Format, error) {
	switch raw {
	case "", "csv":
		return CSV, nil
	case "pdf":
		return PDF, nil
	default:
		return "", models.NewValidationError(fmt.Sprintf("unsupported export format %q", raw))
	}
}

// ContentType is the HTTP media type of the format.
func (f Format) ContentType() string {
	if f == PDF {
		return "application/pdf"
	}
	return "text/csv"
}

// Filename names the download.
func (f Format) Filename(now time.Time) string {
	return fmt.Sprintf("stock-history-%s.%s", now.Format("2006-01-02"), f)
}

// Header is the column row shared by every format.
var Header = []string{"Date", "Part #", "Description", "Location", "Qty", "User", "Change", "Type", "Fleet", "Category", "Cost"}

const dateLayout = "2006-01-02 15:04"

// Record flattens one row into the Header columns.
func Record(row models.HistoryRow) []string {
	qty := ""
	if row.Quantity != nil {
		qty = strconv.Itoa(*row.Quantity)
	}
	movement := string(row.Type)
	if row.Reason != models.ReasonNone {
		movement += " (" + string(row.Reason) + ")"
	}
	return []string{
		row.Date.Format(dateLayout),
		row.PartNumber,
		row.Description,
		row.Location,
		qty,
		row.User,
		strconv.Itoa(row.Change),
		movement,
		row.FleetNumber,
		row.Category,
		row.Cost.StringFixed(2),
	}
}

// Write renders rows in format f to w.
func Write(w io.Writer, f Format, rows []models.HistoryRow) error {
	if f == PDF {
		return WritePDF(w, rows)
	}
	return WriteCSV(w, rows)
}

// WriteCSV writes the header then one record per row.
func WriteCSV(w io.Writer, rows []models.HistoryRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(Record(row)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

var pdfWidths = []float64{28, 24, 50, 20, 12, 40, 14, 34, 14, 22, 18}

// WritePDF renders a landscape A4 table.
func WritePDF(w io.Writer, rows []models.HistoryRow) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Stock History", true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Stock History", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range Header {
		pdf.CellFormat(pdfWidths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 7)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, row := range rows {
		for i, cell := range Record(row) {
			align := "L"
			if i == 4 || i == 6 || i == 10 {
				align = "R"
			}
			pdf.CellFormat(pdfWidths[i], 6, truncate(tr(cell), pdfWidths[i]), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

// truncate keeps text inside a cell of width mm at the body font size.
func truncate(s string, width float64) string {
	limit := int(width / 1.4)
	if len(s) <= limit || limit < 2 {
		return s
	}
	return s[:limit-1] + "."
}
