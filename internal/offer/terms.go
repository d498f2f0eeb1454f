package offer

import "github.com/shopspring/decimal"

// Terms is the closed set of type specific offer parameters. Only the variants
// declared in this package implement it.
type Terms interface {
	terms()
}

// QuantityLimits bounds the purchase quantity an offer considers. Zero means unset.
type QuantityLimits struct {
	Min int
	Max int
}

// DiscountKind selects how an Adjustment value is interpreted.
type DiscountKind string

const (
	DiscountPercentage DiscountKind = "percentage"
	DiscountFixed      DiscountKind = "fixed"
)

// Adjustment is a percentage or fixed amount reduction of a price.
type Adjustment struct {
	Kind  DiscountKind
	Value *decimal.Decimal
}

// PercentOff is a percentage_discount offer.
type PercentOff struct {
	Percentage *decimal.Decimal
	Limits     QuantityLimits
}

// AmountOff is a fixed_discount or fixed_amount_discount offer.
type AmountOff struct {
	Amount *decimal.Decimal
	Limits QuantityLimits
}

// FixedPrice replaces the unit price outright.
type FixedPrice struct {
	Price  *decimal.Decimal
	Limits QuantityLimits
}

// BuyXGetY charges Buy units out of every Buy+Get.
type BuyXGetY struct {
	Buy int
	Get int
}

// MultiBuy applies Adjustment once Threshold units are purchased.
type MultiBuy struct {
	Threshold  int
	Adjustment Adjustment
}

// Tier is a quantity breakpoint in a Tiered offer.
type Tier struct {
	MinQuantity        int
	DiscountPercentage *decimal.Decimal
	DiscountAmount     *decimal.Decimal
	PricePerUnit       *decimal.Decimal
}

// Tiered covers bulk_tier and bulk_discount. When PriceOnly is set (bulk_tier)
// only the tier PricePerUnit is honoured.
type Tiered struct {
	PriceOnly bool
	Tiers     []Tier
}

// Bundle prices a set of products bought together.
type Bundle struct {
	Products   []string
	Price      *decimal.Decimal
	Adjustment Adjustment
}

// FreeShipping waives delivery once the order subtotal reaches MinimumOrderValue.
type FreeShipping struct {
	MinimumOrderValue decimal.Decimal
}

// Unknown keeps offers of unrecognised type visible without pricing them.
type Unknown struct {
	RawType string
}

// Malformed stands in for a stored offer whose definition could not be
// decoded. It is never applicable.
type Malformed struct {
	RawType string
	Reason  string
}

func (PercentOff) terms()   {}
func (AmountOff) terms()    {}
func (FixedPrice) terms()   {}
func (BuyXGetY) terms()     {}
func (MultiBuy) terms()     {}
func (Tiered) terms()       {}
func (Bundle) terms()       {}
func (FreeShipping) terms() {}
func (Unknown) terms()      {}
func (Malformed) terms()    {}

// Dec returns a pointer to d. Handy when building terms in code.
func Dec(d decimal.Decimal) *decimal.Decimal {
	return &d
}
