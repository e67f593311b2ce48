package invoice

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ErrNoExportableRecords is returned when no COMPLETED record exists to export
var ErrNoExportableRecords = errors.New("no hay datos válidos para exportar")

const (
	exportSheet      = "Monday Import"
	exportFilePrefix = "Reporte_Gastos_"
)

// exportHeaders is the fixed column layout the Monday board import expects.
// Order and wording must not change.
var exportHeaders = []string{
	"Nombre del item",
	"Clasificacion",
	"Fecha de FC",
	"Fecha de vencimiento",
	"Recibido",
	"N de factura",
	"OC",
	"TC FC",
	"Importe en ARS",
	"Importe en USD",
	"PDF",
}

// exportRow is the flattened shape of one COMPLETED record
type exportRow struct {
	ItemName       string
	Classification Classification
	InvoiceDate    string
	DueDate        string
	ReceivedDate   string
	InvoiceNumber  string
	PurchaseOrder  string
	ExchangeRate   *float64
	AmountARS      float64
	AmountUSD      float64
	FileName       string
}

// projectRows filters the collection to COMPLETED records and maps each one to
// its export row. The amount lands in exactly one column: Importe en ARS when
// the currency is ARS, Importe en USD for every other currency.
func projectRows(records []Record) []exportRow {
	rows := make([]exportRow, 0, len(records))
	for _, r := range records {
		if r.Status != StatusCompleted {
			continue
		}

		item := r.Vendor
		if item == "" {
			item = "Factura"
		}

		var amount float64
		if r.TotalAmount != nil {
			amount = *r.TotalAmount
		}
		row := exportRow{
			ItemName:       item,
			Classification: r.Classification,
			InvoiceDate:    r.Date,
			DueDate:        r.DueDate,
			ReceivedDate:   r.ReceivedDate,
			InvoiceNumber:  r.InvoiceNumber,
			PurchaseOrder:  r.PurchaseOrder,
			ExchangeRate:   r.ExchangeRate,
			FileName:       r.FileName,
		}
		if r.Currency == "ARS" {
			row.AmountARS = amount
		} else {
			row.AmountUSD = amount
		}
		rows = append(rows, row)
	}
	return rows
}

// Exporter produces the Monday import workbook from a record collection
type Exporter struct {
	timeSource TimeSource
}

// NewExporter creates an Exporter
func NewExporter() *Exporter {
	return &Exporter{timeSource: &defaultTimeSource{}}
}

// NewExporterWithDeps creates an Exporter with a custom time source for testing
func NewExporterWithDeps(timeSource TimeSource) *Exporter {
	return &Exporter{timeSource: timeSource}
}

// FileName returns the export file name for the current date
func (e *Exporter) FileName() string {
	return exportFilePrefix + e.timeSource.Now().Format("2006-01-02") + ".xlsx"
}

// Export builds the XLSX workbook for the COMPLETED records in the collection.
// With zero exportable records it fails fast with ErrNoExportableRecords and
// writes nothing.
func (e *Exporter) Export(records []Record) ([]byte, error) {
	rows := projectRows(records)
	if len(rows) == 0 {
		return nil, ErrNoExportableRecords
	}

	f := excelize.NewFile()
	defer f.Close()

	// excelize starts every workbook with "Sheet1"
	f.SetSheetName("Sheet1", exportSheet)

	for i, h := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("naming header cell: %w", err)
		}
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return nil, fmt.Errorf("writing header: %w", err)
		}
	}

	for i, row := range rows {
		// The original sheet leaves TC FC blank when no exchange rate was
		// found; zero means "not on the invoice" here, not a real rate.
		var exchangeRate any = ""
		if row.ExchangeRate != nil && *row.ExchangeRate != 0 {
			exchangeRate = *row.ExchangeRate
		}

		values := []any{
			row.ItemName,
			string(row.Classification),
			row.InvoiceDate,
			row.DueDate,
			row.ReceivedDate,
			row.InvoiceNumber,
			row.PurchaseOrder,
			exchangeRate,
			row.AmountARS,
			row.AmountUSD,
			row.FileName,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("naming cell: %w", err)
			}
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				return nil, fmt.Errorf("writing row %d: %w", i+1, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}
