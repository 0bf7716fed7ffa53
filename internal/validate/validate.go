// Package validate checks campaign entries at the point of entry. Invalid
// input is an ordinary result: callers get a field -> message map, never an error.
package validate

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AngelCh415/kpi-dashboard/internal/models"
)

// Field names, shared with the wire format.
const (
	FieldDateRef     = "data_ref"
	FieldChannel     = "canal"
	FieldCampaign    = "campanha"
	FieldInvestment  = "investimento"
	FieldLeads       = "leads_gerados"
	FieldConversions = "conversoes"
	FieldRevenue     = "receita_gerada"
	FieldImpressions = "impressoes"
	FieldClicks      = "cliques"
)

// Fields lists every form field in display order.
var Fields = []string{
	FieldDateRef, FieldChannel, FieldCampaign, FieldInvestment, FieldImpressions,
	FieldClicks, FieldLeads, FieldConversions, FieldRevenue,
}

const minCampaignLen = 3

// Channels offered by the select variant of the form.
var Channels = []string{
	"Facebook Ads",
	"Google Ads",
	"Instagram Ads",
	"LinkedIn Ads",
	"TikTok Ads",
	"Email Marketing",
	"SEO",
	"Influenciadores",
	"Parcerias",
	"Outros",
}

// Errors maps a field name to a human readable message.
type Errors map[string]string

func (e Errors) OK() bool { return len(e) == 0 }

// Input is the textual form state.
type Input struct {
	DateRef     string `json:"data_ref"`
	Channel     string `json:"canal"`
	Campaign    string `json:"campanha"`
	Investment  string `json:"investimento"`
	Leads       string `json:"leads_gerados"`
	Conversions string `json:"conversoes"`
	Revenue     string `json:"receita_gerada"`
	Impressions string `json:"impressoes"`
	Clicks      string `json:"cliques"`
}

func (in *Input) ref(field string) *string {
	switch field {
	case FieldDateRef:
		return &in.DateRef
	case FieldChannel:
		return &in.Channel
	case FieldCampaign:
		return &in.Campaign
	case FieldInvestment:
		return &in.Investment
	case FieldLeads:
		return &in.Leads
	case FieldConversions:
		return &in.Conversions
	case FieldRevenue:
		return &in.Revenue
	case FieldImpressions:
		return &in.Impressions
	case FieldClicks:
		return &in.Clicks
	}
	return nil
}

// Get returns the raw text of a field and whether the field exists.
func (in Input) Get(field string) (string, bool) {
	p := (&in).ref(field)
	if p == nil {
		return "", false
	}
	return *p, true
}

// Set assigns the raw text of a field; unknown fields are reported as false.
func (in *Input) Set(field, value string) bool {
	p := in.ref(field)
	if p == nil {
		return false
	}
	*p = value
	return true
}

// InputFrom renders a typed entry back to form text.
func InputFrom(e models.Entry) Input {
	return Input{
		DateRef:     e.DateRef,
		Channel:     e.Channel,
		Campaign:    e.Campaign,
		Investment:  strconv.FormatFloat(e.Investment, 'f', -1, 64),
		Leads:       strconv.Itoa(e.Leads),
		Conversions: strconv.Itoa(e.Conversions),
		Revenue:     strconv.FormatFloat(e.Revenue, 'f', -1, 64),
		Impressions: strconv.Itoa(e.Impressions),
		Clicks:      strconv.Itoa(e.Clicks),
	}
}

// Limits are optional upper bounds, used by bulk uploads.
type Limits struct {
	MaxInvestment  float64
	MaxRevenue     float64
	MaxLeads       int
	MaxConversions int
	MaxImpressions int
	MaxClicks      int
}

// DefaultLimits mirror the backend column bounds.
var DefaultLimits = Limits{
	MaxInvestment:  999999999,
	MaxRevenue:     999999999,
	MaxLeads:       999999,
	MaxConversions: 999999,
	MaxImpressions: 999999999,
	MaxClicks:      999999,
}

// Validator holds the form variant. The zero value accepts free-text channels
// and applies no upper bounds.
type Validator struct {
	Channels []string
	Limits   *Limits
}

// Validate checks the form with the zero Validator.
func Validate(in Input) (models.Entry, Errors) {
	var v Validator
	return v.Validate(in)
}

// Validate parses every field independently, then runs the cross-field rules.
// The returned entry is only meaningful when the error map is empty.
func (v Validator) Validate(in Input) (models.Entry, Errors) {
	errs := Errors{}
	var e models.Entry

	if d, ok := parseDate(in.DateRef); !ok {
		if strings.TrimSpace(in.DateRef) == "" {
			errs[FieldDateRef] = "Data de referência é obrigatória"
		} else {
			errs[FieldDateRef] = "Data de referência inválida"
		}
	} else {
		e.DateRef = d
	}

	e.Channel = strings.TrimSpace(in.Channel)
	switch {
	case e.Channel == "":
		errs[FieldChannel] = "Canal é obrigatório"
	case len(v.Channels) > 0 && !contains(v.Channels, e.Channel):
		errs[FieldChannel] = "Canal inválido"
	}

	e.Campaign = strings.TrimSpace(in.Campaign)
	if len([]rune(e.Campaign)) < minCampaignLen {
		errs[FieldCampaign] = "Campanha deve ter pelo menos 3 caracteres"
	}

	lim := v.Limits
	var okInv, okRev bool
	e.Investment, okInv = money(in.Investment)
	if !okInv || (lim != nil && e.Investment > lim.MaxInvestment) {
		errs[FieldInvestment] = "Investimento deve ser um valor válido (≥ 0)"
	}
	e.Revenue, okRev = money(in.Revenue)
	if !okRev || (lim != nil && e.Revenue > lim.MaxRevenue) {
		errs[FieldRevenue] = "Receita deve ser um valor válido (≥ 0)"
	}

	leads, okLeads := count(in.Leads)
	if !okLeads || (lim != nil && leads > lim.MaxLeads) {
		errs[FieldLeads] = "Leads deve ser um número válido (≥ 0)"
	}
	conv, okConv := count(in.Conversions)
	if !okConv || (lim != nil && conv > lim.MaxConversions) {
		errs[FieldConversions] = "Conversões deve ser um número válido (≥ 0)"
	}
	impr, okImpr := count(in.Impressions)
	if !okImpr || (lim != nil && impr > lim.MaxImpressions) {
		errs[FieldImpressions] = "Impressões deve ser um número válido (≥ 0)"
	}
	clicks, okClicks := count(in.Clicks)
	if !okClicks || (lim != nil && clicks > lim.MaxClicks) {
		errs[FieldClicks] = "Cliques deve ser um número válido (≥ 0)"
	}
	e.Leads, e.Conversions, e.Impressions, e.Clicks = leads, conv, impr, clicks

	// Cross-field errors always land on the dependent field and win over its own message.
	if isInt(in.Conversions) && isInt(in.Leads) && intOf(in.Conversions) > intOf(in.Leads) {
		errs[FieldConversions] = "Conversões não podem ser maiores que leads"
	}
	if isInt(in.Clicks) && isInt(in.Impressions) && intOf(in.Clicks) > intOf(in.Impressions) {
		errs[FieldClicks] = "Cliques não podem ser maiores que impressões"
	}

	return e, errs
}

// Entry checks an already typed record, as the backend does on create.
func (v Validator) Entry(e models.Entry) Errors {
	_, errs := v.Validate(InputFrom(e))
	return errs
}

func parseDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range []string{models.DateLayout, "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(models.DateLayout), true
		}
	}
	return "", false
}

// money accepts "1234.56", "1234,56", "1.234,56" and "1,234.56"; the value is
// rounded to cents. With both separators the last one is the decimal point.
// A lone separator followed by exactly three digits ("1.234") could be either
// and is rejected.
func money(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	var intPart, frac string
	switch {
	case dot >= 0 && comma >= 0:
		dec, grp := dot, ","
		if comma > dot {
			dec, grp = comma, "."
		}
		intPart, frac = s[:dec], s[dec+1:]
		if strings.ContainsAny(frac, ".,") {
			return 0, false
		}
		var ok bool
		if intPart, ok = ungroup(intPart, grp); !ok {
			return 0, false
		}
	case dot >= 0 || comma >= 0:
		sep := "."
		if comma >= 0 {
			sep = ","
		}
		if strings.Count(s, sep) > 1 {
			var ok bool
			if intPart, ok = ungroup(s, sep); !ok {
				return 0, false
			}
			break
		}
		intPart, frac, _ = strings.Cut(s, sep)
		if _, grouped := ungroup(s, sep); grouped {
			return 0, false
		}
	default:
		intPart = s
	}
	if frac != "" {
		intPart += "." + frac
	}
	d, err := decimal.NewFromString(intPart)
	if err != nil || d.IsNegative() {
		return 0, false
	}
	f, _ := d.Round(2).Float64()
	return f, true
}

// ungroup strips thousands separators from s, which must read as
// "1.234.567": a leading group of one to three digits, then groups of three.
func ungroup(s, sep string) (string, bool) {
	groups := strings.Split(s, sep)
	for i, g := range groups {
		if !digits(g) || len(g) > 3 || (i > 0 && len(g) != 3) || (i == 0 && (g == "" || g[0] == '0')) {
			return "", false
		}
	}
	return strings.Join(groups, ""), true
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func count(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func isInt(s string) bool {
	_, err := strconv.Atoi(strings.TrimSpace(s))
	return err == nil
}

func intOf(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

func contains(list []string, s string) bool {
	for _, c := range list {
		if strings.EqualFold(c, s) {
			return true
		}
	}
	return false
}
