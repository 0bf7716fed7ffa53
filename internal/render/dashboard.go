package render

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/AngelCh415/kpi-dashboard/internal/dashboard"
	"github.com/AngelCh415/kpi-dashboard/internal/kpi"
	"github.com/AngelCh415/kpi-dashboard/internal/models"
)

type card struct {
	key, title, value string
}

func arrow(d kpi.Direction) string {
	if d == kpi.Up {
		return "↑"
	}
	return "↓"
}

// Cards prints the four headline KPIs with their trend.
func Cards(w io.Writer, k models.KPIs) {
	tr := kpi.Trends(k)
	cards := []card{
		{"roi", "ROI", Percent(k.ROI)},
		{"cpl", "CPL", Currency(k.CPL)},
		{"taxa_conversao", "Taxa de Conversão", Percent(k.ConversionRate)},
		{"ctr", "CTR", Percent(k.CTR)},
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range cards {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.title, c.value, arrow(tr[c.key]))
	}
	fmt.Fprintf(tw, "CPA\t%s\t\n", Currency(k.CPA))
	fmt.Fprintf(tw, "ROAS\t%s\t\n", Number(k.ROAS, 2))
	fmt.Fprintf(tw, "Ticket Médio\t%s\t\n", Currency(k.AvgTicket))
	tw.Flush()
}

// Table prints one page of entries and the pager line.
func Table(w io.Writer, p models.Page) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Data\tCanal\tCampanha\tInvestimento\tLeads\tConversões\tReceita\t")
	for _, e := range p.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			Date(e.DateRef), e.Channel, e.Campaign, Currency(e.Investment),
			Number(float64(e.Leads), 0), Number(float64(e.Conversions), 0), Currency(e.Revenue))
	}
	tw.Flush()
	if len(p.Items) == 0 {
		fmt.Fprintln(w, "Nenhum registro encontrado")
	}
	fmt.Fprintf(w, "Página %d de %d (%d registros)\n", p.Page, max(p.TotalPages, 1), p.Total)
}

// Channels prints a per-channel breakdown.
func Channels(w io.Writer, rows []models.ChannelBreakdown) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Canal\tInvestimento\tLeads\tReceita\tROI\tCPL\t")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n", r.Channel, Currency(r.Investment),
			Number(float64(r.Leads), 0), Currency(r.Revenue), Percent(r.ROI), Currency(r.CPL))
	}
	tw.Flush()
}

// Snapshot prints the whole dashboard.
func Snapshot(w io.Writer, s dashboard.Snapshot, connected bool, loc *time.Location) {
	fmt.Fprintf(w, "Marketing  %s  atualizado %s\n", Badge(connected), DateTime(s.LoadedAt, loc))
	if s.Loading && !s.Loaded {
		fmt.Fprintln(w, "Carregando...")
		return
	}
	if s.Err != nil {
		fmt.Fprintln(w, "! "+dashboard.MsgLoadFailed)
	}
	fmt.Fprintln(w)
	Cards(w, s.KPIs)
	fmt.Fprintln(w)
	Table(w, s.Page)
	if len(s.Page.Items) > 0 {
		fmt.Fprintln(w)
		Channels(w, kpi.ByChannel(s.Page.Items))
	}
	if u := s.LastUpdate; u != nil {
		fmt.Fprintf(w, "\nÚltima atualização em tempo real: %s (%s)\n", DateTime(u.Timestamp, loc), u.Action)
	}
}
