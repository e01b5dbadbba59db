package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/kendall-kelly/av-pipeline-api/domain"
	"github.com/xuri/excelize/v2"
)

// XLSXContentType is the MIME type of exported workbooks
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var exportHeadings = []string{"Stage", "Title", "Customer", "Project Number", "Status", "Created", "Last Modified", "Due Date"}

// typeColumns are the extra per-type columns appended after exportHeadings
func typeColumns(t domain.PipelineType) []string {
	switch t {
	case domain.TypeSales:
		return []string{"Estimate Value"}
	case domain.TypeDesign:
		return []string{"Estimated Hours", "Actual Hours"}
	case domain.TypeIntegration:
		return []string{"Approved Value", "Deposit", "Installation Date"}
	case domain.TypeService:
		return []string{"Service Type", "RMA Number"}
	case domain.TypeRental:
		return []string{"Quote Value", "Event Date"}
	case domain.TypeRepair:
		return []string{"Equipment", "Serial Number"}
	}
	return nil
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func typeValues(c *domain.Card) []interface{} {
	switch c.Type {
	case domain.TypeSales:
		return []interface{}{c.Sales.EstimateValue.InexactFloat64()}
	case domain.TypeDesign:
		return []interface{}{c.Design.EstimatedHours, c.Design.ActualHours}
	case domain.TypeIntegration:
		contract := c.Integration.Contract
		return []interface{}{
			contract.ApprovedProposalValue.InexactFloat64(),
			contract.DepositAmount.InexactFloat64(),
			formatDate(c.Integration.InstallationDate),
		}
	case domain.TypeService:
		return []interface{}{string(c.Service.ServiceType), c.Service.RMANumber}
	case domain.TypeRental:
		return []interface{}{c.Rental.QuoteValue.InexactFloat64(), formatDate(c.Rental.EventDate)}
	case domain.TypeRepair:
		return []interface{}{c.Repair.EquipmentDescription, c.Repair.SerialNumber}
	}
	return nil
}

// PipelineWorkbook renders a board as a spreadsheet with one row per card, in column order
func PipelineWorkbook(t domain.PipelineType, columns []domain.Column) (*excelize.File, error) {
	if !t.Valid() {
		return nil, ValidationError("INVALID_TYPE", fmt.Sprintf("Invalid pipeline type %q", t))
	}

	f := excelize.NewFile()
	sheet := strings.ToUpper(string(t[:1])) + string(t[1:])
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headings := append(append([]string{}, exportHeadings...), typeColumns(t)...)
	header := make([]interface{}, len(headings))
	for i, h := range headings {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return nil, err
	}

	rowNo := 2
	for _, column := range columns {
		for _, card := range column.Cards {
			customer := ""
			if card.Customer != nil {
				customer = card.Customer.Name
			}
			row := []interface{}{
				column.Title,
				card.Title,
				customer,
				card.ProjectNumber,
				string(card.Status),
				formatDate(&card.CreatedAt),
				formatDate(&card.LastModified),
				formatDate(card.DueDate),
			}
			row = append(row, typeValues(card)...)

			cell, err := excelize.CoordinatesToCellName(1, rowNo)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				return nil, err
			}
			rowNo++
		}
	}
	return f, nil
}
