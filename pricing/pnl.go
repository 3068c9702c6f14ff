package pricing

import (
	"strings"

	"github.com/pkg/errors"
)

// View selects what a caller reports: the raw price or P&L against a reference
type View int

const (
	ViewPrice View = iota
	ViewPnL
)

// ParseView accepts "price" or "P&L" (also "pnl"), case-insensitive
func ParseView(s string) (View, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "price":
		return ViewPrice, nil
	case "p&l", "pnl", "p/l":
		return ViewPnL, nil
	}
	return 0, errors.Errorf("invalid view %q, use 'price' or 'P&L'", s)
}

func (v View) String() string {
	if v == ViewPnL {
		return "P&L"
	}
	return "price"
}

// PnL is the profit or loss of holding an option worth price that cost reference
func PnL(price, reference float64) float64 {
	return price - reference
}

// ApplyView turns a price into what the view reports
func ApplyView(v View, price, reference float64) float64 {
	if v == ViewPnL {
		return PnL(price, reference)
	}
	return price
}
