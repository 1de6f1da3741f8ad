package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/tableturn/forecaster/common/models"
)

const planSheet = "Staffing Plan"

// PlanHeader is the first row of the workbook
var PlanHeader = []string{
	"Hour",
	"Guests",
	"Orders",
	"Revenue",
	"Hosts",
	"Servers",
	"Kitchen",
	"Confidence",
}

var planColumnWidths = []float64{22, 10, 10, 12, 8, 10, 10, 12}

// WriteWorkbook renders plan as a single-sheet workbook to w
func WriteWorkbook(w io.Writer, locationID string, plan []models.PlanRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(planSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range PlanHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(planSheet, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(planSheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}

		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(planSheet, name, name, planColumnWidths[col]); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, rec := range plan {
		row := []interface{}{
			rec.Timestamp.Format("2006-01-02 15:04 MST"),
			rec.GuestCount,
			rec.OrderCount,
			rec.Revenue,
			rec.Hosts,
			rec.Servers,
			rec.Kitchen,
			string(rec.Confidence),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(planSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   "Staffing plan " + locationID,
		Created: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return fmt.Errorf("failed to set document properties: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WorkbookBytes renders plan to memory, for HTTP downloads
func WorkbookBytes(locationID string, plan []models.PlanRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, locationID, plan); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// XLSXSink saves workbooks under a directory
type XLSXSink struct {
	dir string
}

// NewXLSXSink creates a workbook sink writing into dir
func NewXLSXSink(dir string) *XLSXSink {
	return &XLSXSink{dir: dir}
}

func (s *XLSXSink) Name() string { return SinkXLSX }

func (s *XLSXSink) Write(ctx context.Context, locationID string, plan []models.PlanRecord) (string, error) {
	dest := filepath.Join(s.dir, filepath.FromSlash(objectName(locationID, "xlsx")))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create workbook file: %w", err)
	}
	defer f.Close()

	if err := WriteWorkbook(f, locationID, plan); err != nil {
		return "", err
	}
	return dest, nil
}

func (s *XLSXSink) Close() error { return nil }
