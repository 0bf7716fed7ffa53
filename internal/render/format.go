// Package render prints the dashboard as text, formatted for pt-BR.
package render

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AngelCh415/kpi-dashboard/internal/models"
)

// Currency formats v as BRL: "R$ 1.234,56", "-R$ 10,00".
func Currency(v float64) string {
	s := Number(v, 2)
	if strings.HasPrefix(s, "-") {
		return "-R$ " + s[1:]
	}
	return "R$ " + s
}

// Number formats v with "." thousands and "," decimals.
func Number(v float64, decimals int32) string {
	s := decimal.NewFromFloat(v).StringFixed(decimals)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg && strings.Trim(intPart+frac, "0") != "" {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte(',')
		b.WriteString(frac)
	}
	return b.String()
}

// Percent formats a value already multiplied by 100: 12.5 -> "12,5%".
func Percent(v float64) string { return Number(v, 1) + "%" }

// Date turns "2006-01-02" into "02/01/2006".
func Date(iso string) string {
	t, err := time.Parse(models.DateLayout, iso)
	if err != nil {
		return "Data inválida"
	}
	return t.Format("02/01/2006")
}

// DateTime formats t in loc as "02/01/2006 15:04".
func DateTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(loc).Format("02/01/2006 15:04")
}

// Badge is the connection indicator.
func Badge(connected bool) string {
	if connected {
		return "● Conectado"
	}
	return "○ Desconectado"
}
