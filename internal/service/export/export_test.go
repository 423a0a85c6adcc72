package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/fleetstock/internal/domain/models"
)

func sampleRows() []models.HistoryRow {
	qty := 7
	return []models.HistoryRow{
		{
			Date:        time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC),
			PartNumber:  "FF-100",
			Description: "Fuel filter, primary",
			Location:    "A1",
			Quantity:    &qty,
			User:        "ops@fleet.test",
			Change:      -3,
			Type:        models.StockOut,
			Reason:      models.ReasonIssuance,
			FleetNumber: "T13",
			Category:    "Filters",
			Cost:        decimal.NewFromInt(15),
		},
		{
			Date:        time.Date(2026, 5, 3, 8, 0, 0, 0, time.UTC),
			PartNumber:  models.UnknownLabel,
			Description: models.UnknownLabel,
			Location:    models.UnknownLabel,
			User:        models.UnknownUser,
			Change:      2,
			Type:        models.StockIn,
			Category:    models.UnknownLabel,
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRows()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, Header, records[0])
	assert.Equal(t, []string{
		"2026-05-04 09:30", "FF-100", "Fuel filter, primary", "A1", "7", "ops@fleet.test",
		"-3", "stock-out (issuance)", "T13", "Filters", "15.00",
	}, records[1])
	assert.Equal(t, "", records[2][4])
	assert.Equal(t, "0.00", records[2][10])
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, PDF, sampleRows()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, CSV, f)

	f, err = ParseFormat("pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", f.ContentType())
	assert.Equal(t, "stock-history-2026-01-02.pdf", f.Filename(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)))

	_, err = ParseFormat("xlsx")
	assert.ErrorIs(t, err, models.ErrValidation)
}
