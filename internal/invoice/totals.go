package invoice

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// DefaultPlaces is the number of minor-unit digits used when no currency is configured.
const DefaultPlaces int32 = 2

var one = decimal.NewFromInt(1)

// LineItem is a single product entry of a sales cart.
type LineItem struct {
	ProductID    string          `json:"productId"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Quantity     int             `json:"quantity"`
	StockCeiling int             `json:"stockCeiling"`
}

// Extended returns unitPrice × quantity without rounding.
func (li LineItem) Extended() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Totals holds the derived monetary amounts of an invoice.
type Totals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxableAmount  decimal.Decimal
	TaxAmount      decimal.Decimal
	GrandTotal     decimal.Decimal
	Places         int32
}

// Calculator prices line items for a currency.
//
// Every monetary output is rounded half-to-even to the currency minor unit
// exactly once. Discount is derived from the rounded subtotal and tax from the
// taxable amount, so GrandTotal == Subtotal - DiscountAmount + TaxAmount holds
// without a residual cent.
//
// The zero Calculator uses DefaultPlaces. Build one with NewCalculator or
// WithPlaces to price in a currency without a minor unit.
type Calculator struct {
	places int32
	set    bool
}

// WithPlaces returns a Calculator rounding to an explicit number of minor-unit
// digits. Negative values fall back to DefaultPlaces.
func WithPlaces(places int32) Calculator {
	if places < 0 {
		return Calculator{}
	}
	return Calculator{places: places, set: true}
}

// Places returns the minor-unit scale amounts are rounded to.
func (c Calculator) Places() int32 {
	if !c.set {
		return DefaultPlaces
	}
	return c.places
}

// NewCalculator returns a Calculator using the standard minor-unit scale of an
// ISO 4217 currency code. An empty code falls back to DefaultPlaces.
func NewCalculator(code string) (Calculator, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return Calculator{}, nil
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return Calculator{}, fmt.Errorf("parse currency %q: %w", code, err)
	}
	scale, _ := currency.Standard.Rounding(unit)
	return WithPlaces(int32(scale)), nil
}

// ComputeTotals prices items with the default two-place minor unit.
func ComputeTotals(items []LineItem, discountRate, taxRate decimal.Decimal) (Totals, error) {
	return Calculator{}.Compute(items, discountRate, taxRate)
}

// Compute validates the rates and every line item, in that order, and derives
// the invoice totals. The first violation is returned and no partial result is
// produced.
func (c Calculator) Compute(items []LineItem, discountRate, taxRate decimal.Decimal) (Totals, error) {
	places := c.Places()
	if err := ValidateRate("discountRate", discountRate); err != nil {
		return Totals{}, err
	}
	if err := ValidateRate("taxRate", taxRate); err != nil {
		return Totals{}, err
	}
	if err := ValidateItems(items); err != nil {
		return Totals{}, err
	}

	exact := decimal.Zero
	for _, it := range items {
		exact = exact.Add(it.Extended())
	}
	subtotal := exact.RoundBank(places)
	discount := subtotal.Mul(discountRate).RoundBank(places)
	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(taxRate).RoundBank(places)

	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxableAmount:  taxable,
		TaxAmount:      tax,
		GrandTotal:     taxable.Add(tax),
		Places:         places,
	}, nil
}

// ValidateRate rejects rates outside [0, 1).
func ValidateRate(field string, rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThanOrEqual(one) {
		return invalid(field, "", ReasonRateOutOfRange)
	}
	return nil
}

// ValidateItems checks line items in cart order and reports the first violation.
func ValidateItems(items []LineItem) error {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		id := strings.TrimSpace(it.ProductID)
		if id == "" {
			return invalid("productId", "", ReasonRequired)
		}
		if _, dup := seen[id]; dup {
			return invalid("productId", id, ReasonDuplicate)
		}
		seen[id] = struct{}{}
		if strings.TrimSpace(it.Name) == "" {
			return invalid("name", id, ReasonRequired)
		}
		if it.Quantity < 1 {
			return invalid("quantity", id, ReasonNotPositive)
		}
		if it.UnitPrice.IsNegative() {
			return invalid("unitPrice", id, ReasonNegative)
		}
		if it.StockCeiling < 0 {
			return invalid("stockCeiling", id, ReasonNegative)
		}
		if it.Quantity > it.StockCeiling {
			return invalid("quantity", id, ReasonExceedsStock)
		}
	}
	return nil
}

// Fixed formats an amount with the totals' minor-unit scale.
func (t Totals) Fixed(amount decimal.Decimal) string {
	return amount.StringFixed(t.Places)
}
