package services

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kurniadi/uw-tracker-backend/models"
)

func buildSheet(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()

	workbook := excelize.NewFile()
	defer workbook.Close()

	sheet := workbook.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, workbook.SetSheetRow(sheet, cell, &row))
	}

	buffer, err := workbook.WriteToBuffer()
	require.NoError(t, err)
	return buffer
}

func TestParseXLSXFlatExport(t *testing.T) {
	buffer := buildSheet(t, [][]interface{}{
		{"UW", "Code", "Company Name", "IPO Price", "Return D1", "Return D2", "Listing Board", "Listing Date", "Record"},
		{"az", "GOTO", "PT GoTo Gojek Tokopedia Tbk", "338", "13.02%", "-", "Utama", "2022-04-11", "ATH 400"},
		{"lg", "GOTO", "PT GoTo Gojek Tokopedia Tbk", "338", "13.02%", "", "Utama", "2022-04-11", ""},
		{"cc", "BUKA", "PT Bukalapak.com Tbk", "850", "-4.94", "", "Pengembangan", "06/08/2021", ""},
	})

	rows, err := ParseXLSX(buffer)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	first := rows[0]
	assert.Equal(t, models.UnderwriterList{"az"}, first.UW)
	assert.Equal(t, "GOTO", first.Code)
	assert.Equal(t, "PT GoTo Gojek Tokopedia Tbk", first.CompanyName)
	assert.Equal(t, 338.0, first.IPOPrice)
	require.NotNil(t, first.ReturnD1)
	assert.InDelta(t, 13.02, *first.ReturnD1, 0.001)
	assert.Nil(t, first.ReturnD2)
	assert.Equal(t, models.BoardUtama, first.ListingBoard)
	assert.Equal(t, 2022, first.ListingDate.Year())
	require.NotNil(t, first.Record)
	assert.Equal(t, "ATH 400", *first.Record)

	third := rows[2]
	assert.Equal(t, models.BoardPengembangan, third.ListingBoard)
	assert.Equal(t, 2021, third.ListingDate.Year())
	require.NotNil(t, third.ReturnD1)
	assert.InDelta(t, -4.94, *third.ReturnD1, 0.001)
}

func TestParseXLSXSkipsRowsWithoutCode(t *testing.T) {
	buffer := buildSheet(t, [][]interface{}{
		{"UW", "Code", "Company Name", "IPO Price"},
		{"az", "", "No code", "100"},
		{"lg", "BBCA", "PT Bank Central Asia Tbk", "1400"},
	})

	rows, err := ParseXLSX(buffer)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "BBCA", rows[0].Code)
}

func TestParseXLSXRequiresCodeColumn(t *testing.T) {
	buffer := buildSheet(t, [][]interface{}{
		{"Ticker", "Name"},
		{"BBCA", "PT Bank Central Asia Tbk"},
	})

	_, err := ParseXLSX(buffer)
	assert.Error(t, err)
}

func TestParseXLSXRejectsEmptySheet(t *testing.T) {
	buffer := buildSheet(t, [][]interface{}{
		{"UW", "Code", "Company Name"},
	})

	_, err := ParseXLSX(buffer)
	assert.Error(t, err)
}

func TestParseXLSXUnknownBoardDefaultsToDevelopment(t *testing.T) {
	buffer := buildSheet(t, [][]interface{}{
		{"UW", "Code", "Company Name", "IPO Price", "Listing Board", "Listing Date"},
		{"az", "WIFI", "PT Solusi Sinergi Digital Tbk", "100", "???", "2021-01-15"},
	})

	rows, err := ParseXLSX(buffer)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.BoardPengembangan, rows[0].ListingBoard)
}

func TestParseJSONAcceptsBothShapes(t *testing.T) {
	payload := `[
		{"uw": "CC", "code": "BBCA", "companyName": "PT Bank Central Asia Tbk", "ipoPrice": 1400, "listingDate": "2000-05-31"},
		{"underwriters": ["AZ", "LG"], "code": "GOTO", "companyName": "PT GoTo Gojek Tokopedia Tbk", "ipoPrice": 338, "listingDate": "2022-04-11"}
	]`

	rows, err := ParseJSON(strings.NewReader(payload))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, models.UnderwriterList{"CC"}, rows[0].UnderwriterTokens())
	assert.Equal(t, models.UnderwriterList{"AZ", "LG"}, rows[1].UnderwriterTokens())
}

func TestParseJSONRejectsMalformedPayload(t *testing.T) {
	_, err := ParseJSON(strings.NewReader(`{"not": "an array"}`))
	assert.Error(t, err)
}

func TestParseSheetReturn(t *testing.T) {
	assert.Nil(t, parseSheetReturn(""))
	assert.Nil(t, parseSheetReturn("-"))
	assert.Nil(t, parseSheetReturn("n/a"))

	value := parseSheetReturn("12.5%")
	require.NotNil(t, value)
	assert.InDelta(t, 12.5, *value, 0.001)

	negative := parseSheetReturn("-3.4")
	require.NotNil(t, negative)
	assert.InDelta(t, -3.4, *negative, 0.001)
}
