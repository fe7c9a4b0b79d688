// Package report renders landlord data as spreadsheet exports.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/R3E-Network/rentals/internal/domain"
	"github.com/R3E-Network/rentals/internal/stats"
)

// LedgerSheet is the worksheet holding one row per payment.
const LedgerSheet = "Payments"

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// LedgerHeader lists the ledger columns in order.
var LedgerHeader = []string{
	"Property", "Unit", "Due Date", "Paid Date", "Amount", "Late Fee", "Total", "Status", "Notes",
}

var ledgerWidths = []float64{28, 10, 12, 12, 12, 10, 12, 10, 40}

// WritePaymentLedger writes payments as an .xlsx workbook to w. The rows keep
// the order given; a summary of outstanding installments and collected revenue
// follows the last row.
func WritePaymentLedger(w io.Writer, payments []domain.Payment) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(LedgerSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("create money style: %w", err)
	}

	header := make([]interface{}, len(LedgerHeader))
	for i, h := range LedgerHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(LedgerSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(LedgerHeader), 1)
	if err := f.SetCellStyle(LedgerSheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	for i, width := range ledgerWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(LedgerSheet, col, col, width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	for i, p := range payments {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := ledgerRow(p)
		if err := f.SetSheetRow(LedgerSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	end := len(payments) + 1
	if len(payments) > 0 {
		if err := f.SetCellStyle(LedgerSheet, "E2", fmt.Sprintf("G%d", end), moneyStyle); err != nil {
			return fmt.Errorf("style amounts: %w", err)
		}
	}

	summary := stats.Fold(payments)
	summaryRow := end + 2
	rows := [][]interface{}{
		{"Outstanding installments", summary.PendingPayments},
		{"Collected revenue", summary.TotalRevenue},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, summaryRow+i)
		if err := f.SetSheetRow(LedgerSheet, cell, &r); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	revenueCell := fmt.Sprintf("B%d", summaryRow+1)
	if err := f.SetCellStyle(LedgerSheet, revenueCell, revenueCell, moneyStyle); err != nil {
		return fmt.Errorf("style summary: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func ledgerRow(p domain.Payment) []interface{} {
	var property, unit, paid, notes string
	if p.Lease != nil && p.Lease.Property != nil {
		property = p.Lease.Property.Name
		if p.Lease.Property.UnitNumber != nil {
			unit = *p.Lease.Property.UnitNumber
		}
	}
	if p.PaidDate != nil {
		paid = p.PaidDate.String()
	}
	if p.Notes != nil {
		notes = *p.Notes
	}
	return []interface{}{
		property, unit, p.DueDate.String(), paid,
		p.Amount, p.LateFee, p.Total(), string(p.Status), notes,
	}
}
