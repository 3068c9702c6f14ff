// Package cli turns command-line arguments into a priced value.
package cli

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/jwaldner/optionlab/pricing"
)

// ErrParse marks malformed command-line input. It is reported with the usage text.
var ErrParse = errors.New("parse error")

// Request is a parsed command line
type Request struct {
	Type      pricing.OptionType
	Params    pricing.MarketParameters
	View      pricing.View
	Reference float64
}

// Usage is the argument synopsis for one model's command
func Usage(command string) string {
	return fmt.Sprintf("Usage: %s <option_type> <S> <K> <T> <r> <sigma> [<view> [<reference_price>]]\n"+
		"  option_type      call or put\n"+
		"  S K              spot and strike price\n"+
		"  T                time to maturity in years\n"+
		"  r sigma          risk-free rate and volatility, as decimals\n"+
		"  view             price (default) or P&L\n"+
		"  reference_price  required for the P&L view\n", command)
}

// Parse reads "<type> <S> <K> <T> <r> <sigma> [<view> [<reference>]]".
// All failures wrap ErrParse; market parameter ranges are left to the pricers.
func Parse(args []string) (Request, error) {
	var req Request
	if len(args) < 6 || len(args) > 8 {
		return req, errors.Wrapf(ErrParse, "expected 6 to 8 arguments, got %d", len(args))
	}

	t, err := pricing.ParseOptionType(args[0])
	if err != nil {
		return req, errors.Wrap(ErrParse, err.Error())
	}
	req.Type = t

	names := []string{"S", "K", "T", "r", "sigma"}
	values := make([]float64, len(names))
	for i, name := range names {
		v, err := parseNumber(name, args[i+1])
		if err != nil {
			return req, err
		}
		values[i] = v
	}
	req.Params = pricing.MarketParameters{
		Spot:       values[0],
		Strike:     values[1],
		Maturity:   values[2],
		Rate:       values[3],
		Volatility: values[4],
	}

	if len(args) >= 7 {
		view, err := pricing.ParseView(args[6])
		if err != nil {
			return req, errors.Wrap(ErrParse, err.Error())
		}
		req.View = view
	}

	if len(args) == 8 {
		ref, err := parseNumber("reference_price", args[7])
		if err != nil {
			return req, err
		}
		req.Reference = ref
	} else if req.View == pricing.ViewPnL {
		return req, errors.Wrap(ErrParse, "P&L view requires a reference price")
	}

	return req, nil
}

func parseNumber(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrParse, "%s: %q is not a number", name, s)
	}
	return v, nil
}

// Format renders a value as a plain decimal with no exponent
func Format(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return decimal.NewFromFloat(v).String()
}

// Run prices the request with one model and writes the single result line to w
func Run(w io.Writer, model pricing.Model, req Request, opts pricing.Options) error {
	price, err := pricing.Price(model, req.Params, req.Type, opts)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, Format(pricing.ApplyView(req.View, price, req.Reference)))
	return err
}
