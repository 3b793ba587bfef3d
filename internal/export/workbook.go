// Package export writes the filtered dashboard data as an XLSX workbook.
package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kjstillabower/bike-rental-dashboard/internal/models"
)

// Sheet names, in workbook order.
const (
	SheetSeasons = "Seasons"
	SheetDaily   = "Daily"
	SheetHourly  = "Hourly"
)

// Input is the filtered data to export.
type Input struct {
	Filter  models.FilterSpec
	Seasons []models.SeasonTotal
	Daily   []models.Record
	Hourly  []models.HourlyRecord
}

// Workbook builds the XLSX file and returns its bytes. Empty views still get
// a sheet with only the header row.
func Workbook(in Input, now time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:       "Bike Rentals",
		Subject:     "Filtered bike rental data",
		Creator:     "bike-rental-dashboard",
		Description: "Filter " + in.Filter.Key(),
		Created:     now.UTC().Format(time.RFC3339),
	}); err != nil {
		return nil, fmt.Errorf("set doc props: %w", err)
	}

	if err := f.SetSheetName("Sheet1", SheetSeasons); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeSeasons(f, in.Seasons); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(SheetDaily); err != nil {
		return nil, fmt.Errorf("create %s sheet: %w", SheetDaily, err)
	}
	if err := writeDaily(f, in.Daily); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(SheetHourly); err != nil {
		return nil, fmt.Errorf("create %s sheet: %w", SheetHourly, err)
	}
	if err := writeHourly(f, in.Hourly); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSeasons(f *excelize.File, totals []models.SeasonTotal) error {
	if err := setRow(f, SheetSeasons, 1, []interface{}{"season", "label", "total"}); err != nil {
		return err
	}
	for i, t := range totals {
		if err := setRow(f, SheetSeasons, i+2, []interface{}{int(t.Season), t.Label, t.Total}); err != nil {
			return err
		}
	}
	return nil
}

func writeDaily(f *excelize.File, records []models.Record) error {
	if err := setRow(f, SheetDaily, 1, []interface{}{"dteday", "season", "temp", "cnt"}); err != nil {
		return err
	}
	for i, r := range records {
		row := []interface{}{r.Date.Format(models.DateLayout), int(r.Season), r.Temperature, r.Count}
		if err := setRow(f, SheetDaily, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeHourly(f *excelize.File, records []models.HourlyRecord) error {
	if err := setRow(f, SheetHourly, 1, []interface{}{"dteday", "hr", "season", "temp", "cnt"}); err != nil {
		return err
	}
	for i, r := range records {
		row := []interface{}{r.Date.Format(models.DateLayout), r.Hour, int(r.Season), r.Temperature, r.Count}
		if err := setRow(f, SheetHourly, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
