package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/tia2694/paludario/internal/model"
)

// Sheet names of the exported workbook.
const (
	SheetWater    = "Water"
	SheetSchedule = "Schedule"
	SheetLights   = "Lights"
	SheetAnimals  = "Animals"
	SheetAir      = "Air"
)

type sheet struct {
	name    string
	headers []string
	widths  []float64
	rows    [][]any
}

func writeWorkbook(w io.Writer, agg model.Aggregate) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E8F5E9"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, s := range sheets(agg) {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				return fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", s.name, err)
		}
		if err := fillSheet(f, s, headerStyle); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func fillSheet(f *excelize.File, s sheet, headerStyle int) error {
	for col, header := range s.headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(s.name, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(s.name, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for col, width := range s.widths {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column: %w", err)
		}
		if err := f.SetColWidth(s.name, name, name, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for r, row := range s.rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(s.name, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", s.name, r+1, err)
		}
	}
	return nil
}

func sheets(agg model.Aggregate) []sheet {
	water := sheet{name: SheetWater, headers: []string{"ID", "Date"}, widths: []float64{38, 18}}
	for _, p := range model.Params {
		water.headers = append(water.headers, strings.ToUpper(string(p)))
	}
	for _, r := range model.Chronological(agg.Water) {
		row := []any{string(r.ID), r.Timestamp.String()}
		for _, p := range model.Params {
			row = append(row, optional(r.Value(p)))
		}
		water.rows = append(water.rows, row)
	}

	sched := sheet{name: SheetSchedule, headers: []string{"Device", "Start", "End"}, widths: []float64{12, 10, 10}}
	for _, iv := range agg.DayTemplate.Spray {
		sched.rows = append(sched.rows, []any{"spray", iv.Start.String(), iv.End.String()})
	}
	for _, iv := range agg.DayTemplate.Fan {
		sched.rows = append(sched.rows, []any{"fan", iv.Start.String(), iv.End.String()})
	}

	lights := sheet{name: SheetLights, headers: []string{"Time"}, widths: []float64{10}}
	for _, c := range model.Channels {
		lights.headers = append(lights.headers, fmt.Sprintf("Ch%d", c))
	}
	for _, k := range agg.DayTemplate.Lights {
		row := []any{k.Time.String()}
		for _, c := range model.Channels {
			row = append(row, optional(k.Get(c)))
		}
		lights.rows = append(lights.rows, row)
	}

	animals := sheet{
		name:    SheetAnimals,
		headers: []string{"ID", "Species", "Type", "Count", "Males", "Females", "Purchase date", "Status"},
		widths:  []float64{38, 24, 12, 8, 8, 8, 14, 10},
	}
	for _, a := range agg.Settings.Animals {
		animals.rows = append(animals.rows, []any{
			string(a.ID), a.Species, string(a.Type), a.Count, a.Males, a.Females, a.PurchaseDate, string(a.Status),
		})
	}

	air := sheet{
		name:    SheetAir,
		headers: []string{"ID", "Date", "Temp min", "Temp max", "Humidity min", "Humidity max"},
		widths:  []float64{38, 18, 10, 10, 13, 13},
	}
	for _, a := range agg.Settings.AirReadings {
		air.rows = append(air.rows, []any{
			string(a.ID), a.Datetime.String(), a.TempMin, a.TempMax, a.HumidityMin, a.HumidityMax,
		})
	}

	return []sheet{water, sched, lights, animals, air}
}

// optional leaves the cell empty for a missing value.
func optional(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
