// Package pricing holds the plan catalogue shown on the landing page.
package pricing

import (
	"math"
	"strconv"
	"strings"
)

// Plan is a subscription tier priced in US dollars.
type Plan struct {
	ID        string
	Name      string
	USD       float64
	Reminders int
	Features  []string
	Featured  bool
}

// Plans is the static catalogue.
var Plans = []Plan{
	{
		ID:        "free",
		Name:      "Gratis",
		USD:       0,
		Reminders: 5,
		Features:  []string{"5 recordatorios al mes", "Chat con Claudia en WhatsApp", "Calendario en el dashboard"},
	},
	{
		ID:        "pro",
		Name:      "Pro",
		USD:       4.99,
		Reminders: 100,
		Features:  []string{"100 recordatorios al mes", "Notas de voz e imágenes", "Respuestas prioritarias"},
		Featured:  true,
	},
	{
		ID:        "business",
		Name:      "Empresas",
		USD:       14.99,
		Reminders: 1000,
		Features:  []string{"1000 recordatorios al mes", "Calendario compartido para equipos", "Soporte dedicado"},
	},
}

// Price is a plan with its local price.
type Price struct {
	Plan
	Local    float64
	Currency string
}

// Formatted renders the local price with thousands separators, e.g. "19.960 COP".
func (p Price) Formatted() string {
	return groupThousands(int64(p.Local)) + " " + p.Currency
}

// Quote converts plans at rate, rounding to whole local units.
func Quote(plans []Plan, rate float64, currency string) []Price {
	out := make([]Price, 0, len(plans))
	for _, p := range plans {
		out = append(out, Price{Plan: p, Local: math.Round(p.USD * rate), Currency: currency})
	}
	return out
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var sb strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			sb.WriteByte('.')
		}
		sb.WriteRune(r)
	}
	if neg {
		return "-" + sb.String()
	}
	return sb.String()
}
