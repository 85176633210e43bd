package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/JakeFAU/speech-scraper/internal/crawler"
)

// ErrEmptyInput is returned when an exporter receives no records.
var ErrEmptyInput = errors.New("export: no records to export")

// SheetName is the worksheet holding the metadata table.
const SheetName = "metadata"

// Dataframe is the tabular view of a record list.
type Dataframe struct {
	CSV  []byte
	XLSX []byte
}

// ExportDataframe renders one row per record with one column per metadata key
// in crawler.MetadataKeys order. Values are written untransformed, so the CSV
// is byte-identical for identical input.
func ExportDataframe(records []crawler.Record) (Dataframe, error) {
	if len(records) == 0 {
		return Dataframe{}, ErrEmptyInput
	}
	rows := metadataRows(records)

	csvBytes, err := encodeCSV(rows)
	if err != nil {
		return Dataframe{}, err
	}
	xlsxBytes, err := encodeXLSX(rows)
	if err != nil {
		return Dataframe{}, err
	}
	return Dataframe{CSV: csvBytes, XLSX: xlsxBytes}, nil
}

func metadataRows(records []crawler.Record) [][]string {
	keys := crawler.MetadataKeys()
	header := make([]string, len(keys))
	for i, k := range keys {
		header[i] = string(k)
	}
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, header)
	for _, r := range records {
		row := make([]string, len(keys))
		for i, k := range keys {
			row[i] = r.Metadata.Get(k)
		}
		rows = append(rows, row)
	}
	return rows
}

func encodeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeXLSX(rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck // in-memory workbook

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, fmt.Errorf("cell name for row %d: %w", i+1, err)
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
