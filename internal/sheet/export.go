package sheet

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/AngelCh415/kpi-dashboard/internal/models"
	"github.com/AngelCh415/kpi-dashboard/internal/validate"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(s, "."))); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

const sheetName = "Marketing"

// columns are the exported fields, id first.
var columns = append([]string{"id"}, validate.Fields...)

func record(e models.Entry) []any {
	return []any{
		e.ID, e.DateRef, e.Channel, e.Campaign, e.Investment,
		e.Impressions, e.Clicks, e.Leads, e.Conversions, e.Revenue,
	}
}

func Export(w io.Writer, f Format, entries []models.Entry) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, entries)
	case FormatXLSX:
		return WriteXLSX(w, entries)
	}
	return fmt.Errorf("unknown export format %q", f)
}

func WriteXLSX(w io.Writer, entries []models.Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return err
	}
	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	last, _ := excelize.CoordinatesToCellName(len(columns), 1)
	f.SetCellStyle(sheetName, "A1", last, style)

	for i, e := range entries {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		rec := record(e)
		if err := f.SetSheetRow(sheetName, cell, &rec); err != nil {
			return err
		}
	}
	for i := range columns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, col, col, 15)
	}
	return f.Write(w)
}

func WriteCSV(w io.Writer, entries []models.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, e := range entries {
		rec := record(e)
		line := make([]string, len(rec))
		for i, v := range rec {
			switch x := v.(type) {
			case float64:
				line[i] = strconv.FormatFloat(x, 'f', 2, 64)
			default:
				line[i] = fmt.Sprint(x)
			}
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type Lister interface {
	ListEntries(ctx context.Context, q models.Query) (models.Page, error)
}

// Collect pages through every entry matching q.
func Collect(ctx context.Context, l Lister, q models.Query) ([]models.Entry, error) {
	q.Page, q.PerPage = 1, 100
	var out []models.Entry
	for {
		p, err := l.ListEntries(ctx, q)
		if err != nil {
			return nil, err
		}
		out = append(out, p.Items...)
		if len(p.Items) == 0 || q.Page >= p.TotalPages {
			return out, nil
		}
		q.Page++
	}
}
