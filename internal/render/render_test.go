package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/AngelCh415/kpi-dashboard/internal/dashboard"
	"github.com/AngelCh415/kpi-dashboard/internal/models"
)

func TestNumberFormats(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"currency", Currency(1234.56), "R$ 1.234,56"},
		{"currency millions", Currency(1234567), "R$ 1.234.567,00"},
		{"currency negative", Currency(-10), "-R$ 10,00"},
		{"currency rounding", Currency(0.005), "R$ 0,01"},
		{"number", Number(10000, 0), "10.000"},
		{"number small", Number(999, 0), "999"},
		{"negative zero", Number(-0.001, 2), "0,00"},
		{"percent", Percent(12.5), "12,5%"},
		{"percent roi", Percent(200), "200,0%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q want %q", tt.got, tt.want)
			}
		})
	}
}

func TestDates(t *testing.T) {
	if got := Date("2024-01-15"); got != "15/01/2024" {
		t.Fatalf("date=%q", got)
	}
	if got := Date("15/01/2024"); got != "Data inválida" {
		t.Fatalf("date=%q", got)
	}
	loc := time.FixedZone("BRT", -3*3600)
	ts := time.Date(2024, 1, 15, 13, 5, 0, 0, time.UTC)
	if got := DateTime(ts, loc); got != "15/01/2024 10:05" {
		t.Fatalf("datetime=%q", got)
	}
	if got := DateTime(time.Time{}, loc); got != "-" {
		t.Fatalf("zero datetime=%q", got)
	}
}

func TestCardsTrend(t *testing.T) {
	var buf bytes.Buffer
	Cards(&buf, models.KPIs{ROI: 200, CPL: 80, ConversionRate: 20, CTR: 0.5})
	lines := strings.Split(buf.String(), "\n")
	want := map[string]string{"ROI": "↑", "CPL": "↓", "Taxa de Conversão": "↑", "CTR": "↓"}
	for _, l := range lines {
		for title, arrow := range want {
			if strings.HasPrefix(l, title+" ") && !strings.HasSuffix(strings.TrimSpace(l), arrow) {
				t.Errorf("%s: %q", title, l)
			}
		}
	}
	if !strings.Contains(buf.String(), "R$ 80,00") {
		t.Fatalf("cards:\n%s", buf.String())
	}
}

func TestSnapshot(t *testing.T) {
	s := dashboard.Snapshot{
		Loaded: true,
		KPIs:   models.KPIs{ROI: 200},
		Page: models.Page{
			Items: []models.Entry{{DateRef: "2024-01-15", Channel: "Google Ads", Campaign: "Verão", Investment: 500, Leads: 1500, Revenue: 1500}},
			Page:  1, Total: 1, TotalPages: 1,
		},
		Err: errors.New("boom"),
	}
	var buf bytes.Buffer
	Snapshot(&buf, s, true, time.UTC)
	out := buf.String()
	for _, want := range []string{"● Conectado", dashboard.MsgLoadFailed, "15/01/2024", "1.500", "Página 1 de 1 (1 registros)", "Canal"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in\n%s", want, out)
		}
	}

	buf.Reset()
	Snapshot(&buf, dashboard.Snapshot{Loading: true}, false, time.UTC)
	if !strings.Contains(buf.String(), "Carregando") || !strings.Contains(buf.String(), "Desconectado") {
		t.Fatalf("loading:\n%s", buf.String())
	}
}

func TestEmptyTable(t *testing.T) {
	var buf bytes.Buffer
	Table(&buf, models.Page{Page: 1})
	if !strings.Contains(buf.String(), "Nenhum registro") || !strings.Contains(buf.String(), "Página 1 de 1") {
		t.Fatalf("table:\n%s", buf.String())
	}
}
