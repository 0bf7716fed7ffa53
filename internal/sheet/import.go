// Package sheet imports campaign entries from spreadsheets and exports them
// back as xlsx or csv.
package sheet

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/AngelCh415/kpi-dashboard/internal/api"
	"github.com/AngelCh415/kpi-dashboard/internal/models"
	"github.com/AngelCh415/kpi-dashboard/internal/utils"
	"github.com/AngelCh415/kpi-dashboard/internal/validate"
)

// PreviewRows is how many data lines the result previews.
const PreviewRows = 10

type RowPreview struct {
	Line        int      `json:"linha"`
	DateRef     string   `json:"data_ref"`
	Channel     string   `json:"canal"`
	Campaign    string   `json:"campanha"`
	Investment  float64  `json:"investimento"`
	Leads       int      `json:"leads_gerados"`
	Conversions int      `json:"conversoes"`
	Revenue     float64  `json:"receita_gerada"`
	Impressions int      `json:"impressoes"`
	Clicks      int      `json:"cliques"`
	Errors      []string `json:"erros,omitempty"`
	Valid       bool     `json:"valido"`
}

type LineError struct {
	Line    int    `json:"linha"`
	Message string `json:"mensagem"`
}

type UploadResult struct {
	Total     int          `json:"total_linhas"`
	Valid     int          `json:"linhas_validas"`
	Invalid   int          `json:"linhas_invalidas"`
	Duplicate int          `json:"linhas_duplicadas"`
	Inserted  int          `json:"linhas_inseridas"`
	Errors    []LineError  `json:"erros"`
	Preview   []RowPreview `json:"preview,omitempty"`
}

type row struct {
	line  int
	entry models.Entry
}

// Batch is a parsed sheet: the counts so far plus the rows ready to upload.
type Batch struct {
	Result UploadResult
	rows   []row
}

func (b *Batch) Entries() []models.Entry {
	out := make([]models.Entry, len(b.rows))
	for i, r := range b.rows {
		out[i] = r.entry
	}
	return out
}

// header aliases, normalised to lower case without spaces
var aliases = map[string]string{
	"data":           validate.FieldDateRef,
	"data_ref":       validate.FieldDateRef,
	"canal":          validate.FieldChannel,
	"campanha":       validate.FieldCampaign,
	"investimento":   validate.FieldInvestment,
	"leads":          validate.FieldLeads,
	"leads_gerados":  validate.FieldLeads,
	"conversoes":     validate.FieldConversions,
	"conversões":     validate.FieldConversions,
	"receita":        validate.FieldRevenue,
	"receita_gerada": validate.FieldRevenue,
	"impressoes":     validate.FieldImpressions,
	"impressões":     validate.FieldImpressions,
	"cliques":        validate.FieldClicks,
}

func headerKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, " ", "_")
}

// ReadXLSX returns the raw cell values of the first sheet.
func ReadXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("no sheets found")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return rows, nil
}

func ReadCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

// Parse validates every data row with v. The first row is the header; line
// numbers follow the spreadsheet (the first data row is line 2).
func Parse(rows [][]string, v validate.Validator) (*Batch, error) {
	if len(rows) == 0 {
		return nil, errors.New("empty sheet")
	}
	cols := map[string]int{}
	for i, h := range rows[0] {
		if f, ok := aliases[headerKey(h)]; ok {
			cols[f] = i
		}
	}
	var missing []string
	for _, f := range validate.Fields {
		if _, ok := cols[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}

	b := &Batch{Result: UploadResult{Errors: []LineError{}}}
	seen := map[models.EntryKey]int{}
	for i, cells := range rows[1:] {
		line := i + 2
		if blank(cells) {
			continue
		}
		b.Result.Total++

		var in validate.Input
		for f, c := range cols {
			val := ""
			if c < len(cells) {
				val = strings.TrimSpace(cells[c])
			}
			if f == validate.FieldDateRef {
				val = serialDate(val)
			}
			in.Set(f, val)
		}
		e, errs := v.Validate(in)

		pv := RowPreview{
			Line: line, DateRef: e.DateRef, Channel: e.Channel, Campaign: e.Campaign,
			Investment: e.Investment, Leads: e.Leads, Conversions: e.Conversions,
			Revenue: e.Revenue, Impressions: e.Impressions, Clicks: e.Clicks,
			Valid: errs.OK(),
		}
		if !errs.OK() {
			b.Result.Invalid++
			for _, f := range validate.Fields {
				if msg, ok := errs[f]; ok {
					pv.Errors = append(pv.Errors, msg)
					b.Result.Errors = append(b.Result.Errors, LineError{Line: line, Message: f + ": " + msg})
				}
			}
		} else if first, dup := seen[e.Key()]; dup {
			b.Result.Duplicate++
			msg := fmt.Sprintf("Linha duplicada (igual à linha %d)", first)
			pv.Valid = false
			pv.Errors = append(pv.Errors, msg)
			b.Result.Errors = append(b.Result.Errors, LineError{Line: line, Message: msg})
		} else {
			seen[e.Key()] = line
			b.Result.Valid++
			b.rows = append(b.rows, row{line: line, entry: e})
		}
		if len(b.Result.Preview) < PreviewRows {
			b.Result.Preview = append(b.Result.Preview, pv)
		}
	}
	return b, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// serialDate turns an Excel date serial ("45306") into an ISO date; other
// values are returned unchanged.
func serialDate(s string) string {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || n < 1 {
		return s
	}
	t, err := excelize.ExcelDateToTime(n, false)
	if err != nil {
		return s
	}
	return t.Format(models.DateLayout)
}

type Creator interface {
	CreateEntry(ctx context.Context, e models.Entry) (models.Entry, error)
}

// Upload sends the valid rows of b one by one. Network failures are retried
// with exponential backoff; a conflict counts the row as duplicate.
func Upload(ctx context.Context, c Creator, b *Batch, log *zap.Logger) UploadResult {
	res := b.Result
	res.Errors = append([]LineError(nil), b.Result.Errors...)
	bo := utils.NewBackoff(200*time.Millisecond, 2)

	for _, r := range b.rows {
		err := bo.Do(ctx, func(int) error {
			_, err := c.CreateEntry(ctx, r.entry)
			if err != nil && api.KindOf(err) != api.KindNetwork {
				return utils.Permanent(err)
			}
			return err
		})
		switch {
		case err == nil:
			res.Inserted++
		case api.KindOf(err) == api.KindConflict:
			res.Duplicate++
			res.Valid--
			res.Errors = append(res.Errors, LineError{Line: r.line, Message: or(api.DetailOf(err), "Registro já existe")})
		default:
			res.Errors = append(res.Errors, LineError{Line: r.line, Message: or(api.DetailOf(err), err.Error())})
		}
		if ctx.Err() != nil {
			break
		}
	}
	log.Info("sheet uploaded",
		zap.Int("total", res.Total), zap.Int("inserted", res.Inserted),
		zap.Int("invalid", res.Invalid), zap.Int("duplicate", res.Duplicate))
	return res
}

func or(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
