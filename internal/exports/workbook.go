package exports

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/qrcourses/backend/internal/models"
)

const sheetName = "Attendees"

var header = []interface{}{
	"#", "National ID", "First name", "Second name", "Third name", "Last name",
	"Phone", "Job title", "Workplace", "Computer number", "Device", "Registered at",
}

// Workbook renders a course's attendees as an xlsx workbook, one row per
// attendee in the order given.
func Workbook(course *models.Course, attendees []models.Attendee) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("new sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}

	title := fmt.Sprintf("%s | %s | %s", course.Name, course.StartDate.Format(time.DateOnly), course.Location)
	if err := f.SetCellValue(sheetName, "A1", title); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(sheetName, "A2", &header); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(sheetName, 1, 2, bold); err != nil {
		return nil, err
	}

	for i, a := range attendees {
		computer := ""
		if a.ComputerNumber != nil {
			computer = *a.ComputerNumber
		}
		row := []interface{}{
			i + 1, a.NationalID, a.FirstName, a.SecondName, a.ThirdName, a.LastName,
			a.Phone, a.JobTitle, a.Workplace, computer, a.DeviceID, a.CreatedAt.UTC().Format(time.RFC3339),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+3)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := f.SetColWidth(sheetName, "B", "L", 18); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

// Filename returns a download name for a course export.
func Filename(course *models.Course) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '"', ':', '*', '?', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(course.Name))
	if name == "" {
		name = course.ID.String()
	}
	return fmt.Sprintf("attendees-%s-%s.xlsx", name, course.StartDate.Format(time.DateOnly))
}
