package models

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format of every reference date (data_ref, data_inicio, data_fim).
const DateLayout = "2006-01-02"

// Entry is one campaign-channel-date record as the backend stores it.
type Entry struct {
	ID          int64   `json:"id,omitempty"`
	DateRef     string  `json:"data_ref"`
	Channel     string  `json:"canal"`
	Campaign    string  `json:"campanha"`
	Investment  float64 `json:"investimento"`
	Leads       int     `json:"leads_gerados"`
	Conversions int     `json:"conversoes"`
	Revenue     float64 `json:"receita_gerada"`
	Impressions int     `json:"impressoes"`
	Clicks      int     `json:"cliques"`
	CreatedAt   string  `json:"created_at,omitempty"`
	UpdatedAt   string  `json:"updated_at,omitempty"`
	CreatedBy   string  `json:"created_by,omitempty"`
}

// EntryKey is the uniqueness key the backend enforces.
type EntryKey struct {
	DateRef  string
	Channel  string
	Campaign string
}

func (e Entry) Key() EntryKey {
	return EntryKey{
		DateRef:  e.DateRef,
		Channel:  strings.ToLower(strings.TrimSpace(e.Channel)),
		Campaign: strings.ToLower(strings.TrimSpace(e.Campaign)),
	}
}

// Totals are the sums of raw fields over a query window.
type Totals struct {
	Investment  float64 `json:"total_investimento"`
	Leads       int     `json:"total_leads"`
	Conversions int     `json:"total_conversoes"`
	Revenue     float64 `json:"total_receita"`
	Impressions int     `json:"total_impressoes"`
	Clicks      int     `json:"total_cliques"`
	Records     int     `json:"total_registros,omitempty"`
}

// Empty reports whether no raw counter carries data.
func (t Totals) Empty() bool {
	return t.Records == 0 && t.Investment == 0 && t.Revenue == 0 &&
		t.Leads == 0 && t.Conversions == 0 && t.Impressions == 0 && t.Clicks == 0
}

// KPIs are the ratios derived from Totals. Percentages are already multiplied by 100.
type KPIs struct {
	ROI            float64 `json:"roi"`
	CPL            float64 `json:"cpl"`
	ConversionRate float64 `json:"taxa_conversao"`
	CTR            float64 `json:"ctr"`
	CPA            float64 `json:"cpa"`
	ROAS           float64 `json:"roas"`
	AvgTicket      float64 `json:"ticket_medio"`
}

// Stats is the /marketing/stats payload.
type Stats struct {
	Totals
	KPIs *KPIs `json:"kpis,omitempty"`
}

// Page is one page of entries, normalised from either list envelope.
type Page struct {
	Items      []Entry `json:"items"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	PerPage    int     `json:"per_page"`
	TotalPages int     `json:"total_pages"`
}

// Sortable columns of the list endpoint.
const (
	SortDate        = "data_ref"
	SortInvestment  = "investimento"
	SortLeads       = "leads_gerados"
	SortConversions = "conversoes"
	SortRevenue     = "receita_gerada"
)

// Query carries the filters shared by the list and stats endpoints.
type Query struct {
	From      string
	To        string
	Channel   string
	Campaign  string
	Page      int
	PerPage   int
	SortBy    string
	SortOrder string
}

// Values encodes the query the way the backend expects it. Zero fields are omitted.
func (q Query) Values() url.Values {
	v := url.Values{}
	set := func(k, s string) {
		if s != "" {
			v.Set(k, s)
		}
	}
	set("data_inicio", q.From)
	set("data_fim", q.To)
	set("canal", q.Channel)
	set("campanha", q.Campaign)
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(q.PerPage))
	}
	set("sort_by", q.SortBy)
	set("sort_order", q.SortOrder)
	return v
}

// StatsValues is Values without pagination and sorting.
func (q Query) StatsValues() url.Values {
	v := q.Values()
	v.Del("page")
	v.Del("per_page")
	v.Del("sort_by")
	v.Del("sort_order")
	return v
}

// SameFilters reports whether two queries select the same rows regardless of paging.
func (q Query) SameFilters(o Query) bool {
	return q.From == o.From && q.To == o.To && q.Channel == o.Channel &&
		q.Campaign == o.Campaign && q.SortBy == o.SortBy && q.SortOrder == o.SortOrder
}

// LiveKPIs is the partial KPI set carried by a push event. Absent fields are nil.
type LiveKPIs struct {
	ROI            *float64 `json:"roi,omitempty"`
	CPL            *float64 `json:"cpl,omitempty"`
	ConversionRate *float64 `json:"taxa_conversao,omitempty"`
	CTR            *float64 `json:"ctr,omitempty"`
	CPA            *float64 `json:"cpa,omitempty"`
	ROAS           *float64 `json:"roas,omitempty"`
	AvgTicket      *float64 `json:"ticket_medio,omitempty"`
}

// Over returns k with every field present in l replaced.
func (l LiveKPIs) Over(k KPIs) KPIs {
	pick := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	pick(&k.ROI, l.ROI)
	pick(&k.CPL, l.CPL)
	pick(&k.ConversionRate, l.ConversionRate)
	pick(&k.CTR, l.CTR)
	pick(&k.CPA, l.CPA)
	pick(&k.ROAS, l.ROAS)
	pick(&k.AvgTicket, l.AvgTicket)
	return k
}

// LiveFrom builds the push payload for a full KPI set.
func LiveFrom(k KPIs) LiveKPIs {
	return LiveKPIs{
		ROI: &k.ROI, CPL: &k.CPL, ConversionRate: &k.ConversionRate, CTR: &k.CTR,
		CPA: &k.CPA, ROAS: &k.ROAS, AvgTicket: &k.AvgTicket,
	}
}

// LiveUpdate is a kpi:update push event.
type LiveUpdate struct {
	Sector    string    `json:"sector"`
	Action    string    `json:"action"`
	DataID    *int64    `json:"dataId,omitempty"`
	DateRef   string    `json:"dateRef,omitempty"`
	KPIs      LiveKPIs  `json:"kpis"`
	Timestamp time.Time `json:"timestamp"`
}

// User is the /auth/me payload.
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"nome_completo"`
	Role     string `json:"role"`
	Sector   string `json:"setor,omitempty"`
	IsActive bool   `json:"is_active"`
}

// LoginResponse is the /auth/login payload.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        *User  `json:"user,omitempty"`
}

// ChannelBreakdown aggregates entries per channel.
type ChannelBreakdown struct {
	Channel     string  `json:"canal"`
	Investment  float64 `json:"investimento"`
	Leads       int     `json:"leads"`
	Conversions int     `json:"conversoes"`
	Revenue     float64 `json:"receita"`
	ROI         float64 `json:"roi"`
	CPL         float64 `json:"cpl"`
}

// CampaignBreakdown aggregates entries per (campaign, channel).
type CampaignBreakdown struct {
	Campaign    string  `json:"campanha"`
	Channel     string  `json:"canal"`
	Investment  float64 `json:"investimento"`
	Leads       int     `json:"leads"`
	Conversions int     `json:"conversoes"`
	Revenue     float64 `json:"receita"`
	ROI         float64 `json:"roi"`
}
