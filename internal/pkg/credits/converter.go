package credits

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrUnresolvablePrice marks an amount that matches no catalog package while
// the formulaic conversion cannot be applied either. Payments hitting this
// must stay unprocessed for manual reconciliation.
var ErrUnresolvablePrice = errors.New("credits: amount resolves to no package and no valid rate")

const (
	// DefaultMarkupThreshold is the price (inclusive) up to which the flat
	// markup applies.
	DefaultMarkupThreshold = 1500
	// DefaultMarkupPct is the flat markup applied below the threshold.
	DefaultMarkupPct = 0.30
)

// Converter turns a currency amount into a credit count. It is pure: no I/O,
// deterministic for a given catalog snapshot and rate.
type Converter struct {
	catalog         *Catalog
	rate            decimal.Decimal
	markupThreshold decimal.Decimal
	markupFactor    decimal.Decimal
}

// NewConverter creates a converter with the default markup rule.
func NewConverter(catalog *Catalog, rate decimal.Decimal) *Converter {
	return NewConverterWithMarkup(catalog, rate, decimal.NewFromInt(DefaultMarkupThreshold), decimal.NewFromFloat(DefaultMarkupPct))
}

// NewConverterWithMarkup creates a converter with explicit markup parameters.
func NewConverterWithMarkup(catalog *Catalog, rate, markupThreshold, markupPct decimal.Decimal) *Converter {
	return &Converter{
		catalog:         catalog,
		rate:            rate,
		markupThreshold: markupThreshold,
		markupFactor:    decimal.NewFromInt(1).Add(markupPct),
	}
}

// AmountToCredits converts a price to credits. An exact catalog match returns
// the package's fixed credit count; otherwise price/rate is used, with the
// flat markup applied at or below the threshold. Results round half-up to the
// nearest integer.
func (c *Converter) AmountToCredits(price decimal.Decimal) (int, error) {
	normalized := price.Round(2)
	if normalized.LessThanOrEqual(decimal.Zero) {
		return 0, fmt.Errorf("%w: non-positive amount %s", ErrUnresolvablePrice, normalized)
	}

	if pkg, ok := c.catalog.FindByPrice(normalized); ok {
		return pkg.Credits, nil
	}

	if c.rate.LessThanOrEqual(decimal.Zero) {
		return 0, fmt.Errorf("%w: rate %s", ErrUnresolvablePrice, c.rate)
	}

	raw := normalized.Div(c.rate)
	if normalized.LessThanOrEqual(c.markupThreshold) {
		raw = raw.Mul(c.markupFactor)
	}

	// Round half away from zero; for positive amounts this is half-up.
	return int(raw.Round(0).IntPart()), nil
}
