package kpi

import (
	"math"
	"sort"
	"strings"

	"github.com/AngelCh415/kpi-dashboard/internal/models"
)

// Compute derives the KPI set from aggregate totals. Every ratio whose
// denominator is zero is reported as 0.
func Compute(t models.Totals) models.KPIs {
	return models.KPIs{
		ROI:            safeDiv(t.Revenue-t.Investment, t.Investment) * 100,
		CPL:            safeDiv(t.Investment, float64(t.Leads)),
		ConversionRate: safeDiv(float64(t.Conversions), float64(t.Leads)) * 100,
		CTR:            safeDiv(float64(t.Clicks), float64(t.Impressions)) * 100,
		CPA:            safeDiv(t.Investment, float64(t.Conversions)),
		ROAS:           safeDiv(t.Revenue, t.Investment),
		AvgTicket:      safeDiv(t.Revenue, float64(t.Conversions)),
	}
}

// Aggregate sums raw counters of the given entries.
func Aggregate(entries []models.Entry) models.Totals {
	var t models.Totals
	for _, e := range entries {
		add(&t, e)
	}
	return t
}

func add(t *models.Totals, e models.Entry) {
	t.Investment += e.Investment
	t.Leads += e.Leads
	t.Conversions += e.Conversions
	t.Revenue += e.Revenue
	t.Impressions += e.Impressions
	t.Clicks += e.Clicks
	t.Records++
}

// ByChannel groups entries per channel, ordered by investment descending.
func ByChannel(entries []models.Entry) []models.ChannelBreakdown {
	groups := map[string]*models.Totals{}
	names := map[string]string{}
	for _, e := range entries {
		k := norm(e.Channel)
		if groups[k] == nil {
			groups[k] = &models.Totals{}
			names[k] = strings.TrimSpace(e.Channel)
		}
		add(groups[k], e)
	}
	out := make([]models.ChannelBreakdown, 0, len(groups))
	for k, t := range groups {
		k2 := Compute(*t)
		out = append(out, models.ChannelBreakdown{
			Channel:     names[k],
			Investment:  t.Investment,
			Leads:       t.Leads,
			Conversions: t.Conversions,
			Revenue:     t.Revenue,
			ROI:         k2.ROI,
			CPL:         k2.CPL,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Investment != out[j].Investment {
			return out[i].Investment > out[j].Investment
		}
		return out[i].Channel < out[j].Channel
	})
	return out
}

// ByCampaign groups entries per (campaign, channel), ordered by revenue descending.
func ByCampaign(entries []models.Entry) []models.CampaignBreakdown {
	type key struct{ campaign, channel string }
	groups := map[key]*models.Totals{}
	names := map[key][2]string{}
	for _, e := range entries {
		k := key{norm(e.Campaign), norm(e.Channel)}
		if groups[k] == nil {
			groups[k] = &models.Totals{}
			names[k] = [2]string{strings.TrimSpace(e.Campaign), strings.TrimSpace(e.Channel)}
		}
		add(groups[k], e)
	}
	out := make([]models.CampaignBreakdown, 0, len(groups))
	for k, t := range groups {
		out = append(out, models.CampaignBreakdown{
			Campaign:    names[k][0],
			Channel:     names[k][1],
			Investment:  t.Investment,
			Leads:       t.Leads,
			Conversions: t.Conversions,
			Revenue:     t.Revenue,
			ROI:         Compute(*t).ROI,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		if out[i].Campaign != out[j].Campaign {
			return out[i].Campaign < out[j].Campaign
		}
		return out[i].Channel < out[j].Channel
	})
	return out
}

// Variation is the relative change between two periods (0.15 = +15%).
// With no previous value any positive current value counts as +100%.
func Variation(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 1
		}
		return 0
	}
	return (current - previous) / previous
}

// Progress is value/goal as a percentage capped at 100. A goal <= 0 yields 0.
func Progress(value, goal float64) float64 {
	if goal <= 0 {
		return 0
	}
	return math.Min(value/goal*100, 100)
}

// Direction tells a card whether its figure is healthy.
type Direction int

const (
	Down Direction = iota
	Up
)

// Headline card thresholds.
const (
	CPLTarget            = 50
	ConversionRateTarget = 2
	CTRTarget            = 1
)

// Trends evaluates the four headline cards.
func Trends(k models.KPIs) map[string]Direction {
	dir := func(ok bool) Direction {
		if ok {
			return Up
		}
		return Down
	}
	return map[string]Direction{
		"roi":            dir(k.ROI > 0),
		"cpl":            dir(k.CPL < CPLTarget),
		"taxa_conversao": dir(k.ConversionRate > ConversionRateTarget),
		"ctr":            dir(k.CTR > CTRTarget),
	}
}

// Round2 rounds half away from zero to two decimals.
func Round2(f float64) float64 { return math.Round(f*100) / 100 }

// RoundAll rounds every KPI to two decimals for wire output.
func RoundAll(k models.KPIs) models.KPIs {
	return models.KPIs{
		ROI:            Round2(k.ROI),
		CPL:            Round2(k.CPL),
		ConversionRate: Round2(k.ConversionRate),
		CTR:            Round2(k.CTR),
		CPA:            Round2(k.CPA),
		ROAS:           Round2(k.ROAS),
		AvgTicket:      Round2(k.AvgTicket),
	}
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
