package metrics

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/AngelCh415/kpi-dashboard/internal/kpi"
	"github.com/AngelCh415/kpi-dashboard/internal/models"
	"github.com/AngelCh415/kpi-dashboard/internal/store"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

type Service struct{ st *store.MemoryStore }

func NewService(st *store.MemoryStore) *Service { return &Service{st: st} }
func norm(s string) string                      { return strings.ToLower(strings.TrimSpace(s)) }

type filter struct {
	from, to          string
	channel, campaign string
}

func parseFilter(v url.Values) (filter, error) {
	f := filter{
		from:     strings.TrimSpace(v.Get("data_inicio")),
		to:       strings.TrimSpace(v.Get("data_fim")),
		channel:  norm(v.Get("canal")),
		campaign: norm(v.Get("campanha")),
	}
	for _, d := range []string{f.from, f.to} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(models.DateLayout, d); err != nil {
			return f, fmt.Errorf("bad date %q", d)
		}
	}
	return f, nil
}

func (s *Service) entries(f filter) []models.Entry {
	return s.st.Query(f.from, f.to, func(e models.Entry) bool {
		if f.channel != "" && norm(e.Channel) != f.channel {
			return false
		}
		if f.campaign != "" && !strings.Contains(norm(e.Campaign), f.campaign) {
			return false
		}
		return true
	})
}

// List answers GET /marketing/data. A page past the end is an empty page.
func (s *Service) List(v url.Values) (models.Page, error) {
	f, err := parseFilter(v)
	if err != nil {
		return models.Page{}, err
	}
	page := atoiDef(v.Get("page"), 1)
	if page < 1 {
		page = 1
	}
	perPage := clampPerPage(atoiDef(v.Get("per_page"), defaultPerPage))
	sortBy := v.Get("sort_by")
	if sortBy == "" {
		sortBy = models.SortDate
	}
	less, ok := sorters[sortBy]
	if !ok {
		return models.Page{}, fmt.Errorf("bad sort_by %q", sortBy)
	}
	desc := !strings.EqualFold(v.Get("sort_order"), "asc")

	rows := s.entries(f)
	// orden determinista: empates por id
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if desc {
			a, b = b, a
		}
		if less(a, b) {
			return true
		}
		if less(b, a) {
			return false
		}
		return rows[i].ID < rows[j].ID
	})

	total := len(rows)
	return models.Page{
		Items:      paginate(rows, perPage, offset(page, perPage, total)),
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: (total + perPage - 1) / perPage,
	}, nil
}

// Stats answers GET /marketing/stats with totals and rounded KPIs.
func (s *Service) Stats(v url.Values) (models.Stats, error) {
	f, err := parseFilter(v)
	if err != nil {
		return models.Stats{}, err
	}
	rows := s.entries(f)
	t := kpi.Aggregate(rows)
	t.Investment, t.Revenue = kpi.Round2(t.Investment), kpi.Round2(t.Revenue)
	k := kpi.RoundAll(kpi.Compute(t))
	return models.Stats{Totals: t, KPIs: &k}, nil
}

var sorters = map[string]func(a, b models.Entry) bool{
	models.SortDate:        func(a, b models.Entry) bool { return a.DateRef < b.DateRef },
	models.SortInvestment:  func(a, b models.Entry) bool { return a.Investment < b.Investment },
	models.SortLeads:       func(a, b models.Entry) bool { return a.Leads < b.Leads },
	models.SortConversions: func(a, b models.Entry) bool { return a.Conversions < b.Conversions },
	models.SortRevenue:     func(a, b models.Entry) bool { return a.Revenue < b.Revenue },
}

func paginate[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

// offset of page, saturated at total so huge pages cannot overflow.
func offset(page, perPage, total int) int {
	if page-1 > total/perPage {
		return total
	}
	return (page - 1) * perPage
}

func atoiDef(s string, d int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

func clampPerPage(n int) int {
	if n <= 0 {
		return defaultPerPage
	}
	if n > maxPerPage {
		return maxPerPage
	} // tope sano
	return n
}
