package credits

import "github.com/shopspring/decimal"

// CreditPackage is a fixed (price, credit-count) pair in the pricing catalog.
// Catalog prices are authoritative: they may deliberately diverge from the
// formulaic rate, so an exact price match always wins.
type CreditPackage struct {
	Name    string
	Credits int
	Price   decimal.Decimal
}

// Catalog is a static set of purchasable credit packages.
type Catalog struct {
	packages []CreditPackage
}

// NewCatalog builds a catalog from package definitions.
func NewCatalog(packages []CreditPackage) *Catalog {
	return &Catalog{packages: packages}
}

// DefaultCatalog returns the production package set (prices in UAH).
func DefaultCatalog() *Catalog {
	return NewCatalog([]CreditPackage{
		{Name: "starter", Credits: 400, Price: decimal.NewFromInt(500)},
		{Name: "regular", Credits: 900, Price: decimal.NewFromInt(1000)},
		{Name: "pro", Credits: 2000, Price: decimal.NewFromInt(2000)},
	})
}

// FindByPrice looks up a package by exact price match on the canonical
// 2-decimal form.
func (c *Catalog) FindByPrice(price decimal.Decimal) (CreditPackage, bool) {
	normalized := price.Round(2)
	for _, pkg := range c.packages {
		if pkg.Price.Round(2).Equal(normalized) {
			return pkg, true
		}
	}
	return CreditPackage{}, false
}

// Packages returns a copy of the catalog entries.
func (c *Catalog) Packages() []CreditPackage {
	out := make([]CreditPackage, len(c.packages))
	copy(out, c.packages)
	return out
}
