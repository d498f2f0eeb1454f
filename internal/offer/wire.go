package offer

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// wireOffer is the flat camelCase JSON shape used by the catalog and the API.
type wireOffer struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Type               string           `json:"type"`
	IsActive           bool             `json:"isActive"`
	StartDate          *string          `json:"startDate,omitempty"`
	EndDate            *string          `json:"endDate,omitempty"`
	MaxUses            *int             `json:"maxUses,omitempty"`
	UsesCount          int              `json:"usesCount"`
	MaxUsesPerCustomer *int             `json:"maxUsesPerCustomer,omitempty"`
	Description        string           `json:"description,omitempty"`
	TermsAndConditions string           `json:"termsAndConditions,omitempty"`
	CreatedAt          *string          `json:"createdAt,omitempty"`
	UpdatedAt          *string          `json:"updatedAt,omitempty"`
	DiscountPercentage *decimal.Decimal `json:"discountPercentage,omitempty"`
	DiscountAmount     *decimal.Decimal `json:"discountAmount,omitempty"`
	FixedPrice         *decimal.Decimal `json:"fixedPrice,omitempty"`
	BuyQuantity        *int             `json:"buyQuantity,omitempty"`
	GetQuantity        *int             `json:"getQuantity,omitempty"`
	MinQuantity        *int             `json:"minQuantity,omitempty"`
	MaxQuantity        *int             `json:"maxQuantity,omitempty"`
	Quantity           *int             `json:"quantity,omitempty"`
	DiscountType       string           `json:"discountType,omitempty"`
	DiscountValue      *decimal.Decimal `json:"discountValue,omitempty"`
	BulkTiers          []wireTier       `json:"bulkTiers,omitempty"`
	BundleProducts     []string         `json:"bundleProducts,omitempty"`
	BundlePrice        *decimal.Decimal `json:"bundlePrice,omitempty"`
	MinimumOrderValue  *decimal.Decimal `json:"minimumOrderValue,omitempty"`
}

type wireTier struct {
	MinQuantity        int              `json:"minQuantity"`
	DiscountPercentage *decimal.Decimal `json:"discountPercentage,omitempty"`
	DiscountAmount     *decimal.Decimal `json:"discountAmount,omitempty"`
	PricePerUnit       *decimal.Decimal `json:"pricePerUnit,omitempty"`
}

const dateOnly = "2006-01-02"

var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05"}

// UnmarshalJSON decodes the flat wire shape into the matching Terms variant.
func (o *Offer) UnmarshalJSON(data []byte) error {
	var w wireOffer
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	start, err := parseTimestamp("startDate", w.StartDate, false)
	if err != nil {
		return err
	}
	end, err := parseTimestamp("endDate", w.EndDate, true)
	if err != nil {
		return err
	}
	created, err := parseTimestamp("createdAt", w.CreatedAt, false)
	if err != nil {
		return err
	}
	updated, err := parseTimestamp("updatedAt", w.UpdatedAt, false)
	if err != nil {
		return err
	}
	*o = Offer{
		ID:                 w.ID,
		Name:               w.Name,
		Type:               Type(strings.TrimSpace(w.Type)),
		IsActive:           w.IsActive,
		StartDate:          start,
		EndDate:            end,
		MaxUses:            w.MaxUses,
		UsesCount:          w.UsesCount,
		MaxUsesPerCustomer: w.MaxUsesPerCustomer,
		Description:        w.Description,
		TermsAndConditions: w.TermsAndConditions,
	}
	if created != nil {
		o.CreatedAt = *created
	}
	if updated != nil {
		o.UpdatedAt = *updated
	}
	o.Terms = termsFromWire(o.Type, w)
	return nil
}

// MarshalJSON renders the offer back into the flat wire shape.
func (o Offer) MarshalJSON() ([]byte, error) {
	w := wireOffer{
		ID:                 o.ID,
		Name:               o.Name,
		Type:               string(o.Type),
		IsActive:           o.IsActive,
		StartDate:          formatTimestamp(o.StartDate),
		EndDate:            formatTimestamp(o.EndDate),
		MaxUses:            o.MaxUses,
		UsesCount:          o.UsesCount,
		MaxUsesPerCustomer: o.MaxUsesPerCustomer,
		Description:        o.Description,
		TermsAndConditions: o.TermsAndConditions,
	}
	if !o.CreatedAt.IsZero() {
		w.CreatedAt = formatTimestamp(&o.CreatedAt)
	}
	if !o.UpdatedAt.IsZero() {
		w.UpdatedAt = formatTimestamp(&o.UpdatedAt)
	}
	switch t := o.Terms.(type) {
	case PercentOff:
		w.DiscountPercentage = t.Percentage
		w.MinQuantity, w.MaxQuantity = intPtr(t.Limits.Min), intPtr(t.Limits.Max)
	case AmountOff:
		w.DiscountAmount = t.Amount
		w.MinQuantity, w.MaxQuantity = intPtr(t.Limits.Min), intPtr(t.Limits.Max)
	case FixedPrice:
		w.FixedPrice = t.Price
		w.MinQuantity, w.MaxQuantity = intPtr(t.Limits.Min), intPtr(t.Limits.Max)
	case BuyXGetY:
		w.BuyQuantity, w.GetQuantity = &t.Buy, &t.Get
	case MultiBuy:
		w.Quantity = &t.Threshold
		w.DiscountType = string(t.Adjustment.Kind)
		w.DiscountValue = t.Adjustment.Value
	case Tiered:
		for _, tier := range t.Tiers {
			w.BulkTiers = append(w.BulkTiers, wireTier(tier))
		}
	case Bundle:
		w.BundleProducts = t.Products
		w.BundlePrice = t.Price
		w.DiscountType = string(t.Adjustment.Kind)
		w.DiscountValue = t.Adjustment.Value
	case FreeShipping:
		w.MinimumOrderValue = &t.MinimumOrderValue
	}
	return json.Marshal(w)
}

func termsFromWire(typ Type, w wireOffer) Terms {
	limits := QuantityLimits{Min: derefInt(w.MinQuantity), Max: derefInt(w.MaxQuantity)}
	switch typ {
	case TypePercentageDiscount:
		return PercentOff{Percentage: w.DiscountPercentage, Limits: limits}
	case TypeFixedDiscount, TypeFixedAmountDiscount:
		return AmountOff{Amount: w.DiscountAmount, Limits: limits}
	case TypeFixedPrice:
		return FixedPrice{Price: w.FixedPrice, Limits: limits}
	case TypeBOGO, TypeBuyXGetYFree:
		return BuyXGetY{Buy: derefInt(w.BuyQuantity), Get: derefInt(w.GetQuantity)}
	case TypeMultiBuy:
		threshold := derefInt(w.Quantity)
		if w.Quantity == nil {
			threshold = limits.Min
		}
		return MultiBuy{Threshold: threshold, Adjustment: adjustmentFromWire(w)}
	case TypeBulkTier, TypeBulkDiscount:
		tiers := make([]Tier, 0, len(w.BulkTiers))
		for _, tier := range w.BulkTiers {
			tiers = append(tiers, Tier(tier))
		}
		return Tiered{PriceOnly: typ == TypeBulkTier, Tiers: tiers}
	case TypeBundleDeal:
		return Bundle{Products: w.BundleProducts, Price: w.BundlePrice, Adjustment: adjustmentFromWire(w)}
	case TypeFreeShipping:
		var minimum decimal.Decimal
		if w.MinimumOrderValue != nil {
			minimum = *w.MinimumOrderValue
		}
		return FreeShipping{MinimumOrderValue: minimum}
	default:
		return Unknown{RawType: string(typ)}
	}
}

// adjustmentFromWire honours discountType/discountValue and falls back to the
// percentage or amount fields when the explicit pair is absent.
func adjustmentFromWire(w wireOffer) Adjustment {
	if kind := ParseDiscountKind(w.DiscountType); kind != "" && w.DiscountValue != nil {
		return Adjustment{Kind: kind, Value: w.DiscountValue}
	}
	if w.DiscountPercentage != nil {
		return Adjustment{Kind: DiscountPercentage, Value: w.DiscountPercentage}
	}
	if w.DiscountAmount != nil {
		return Adjustment{Kind: DiscountFixed, Value: w.DiscountAmount}
	}
	return Adjustment{Kind: ParseDiscountKind(w.DiscountType), Value: w.DiscountValue}
}

// ParseDiscountKind normalises the spellings seen in catalog data.
func ParseDiscountKind(raw string) DiscountKind {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "percentage", "percent", "pct":
		return DiscountPercentage
	case "fixed", "fixed_amount", "amount":
		return DiscountFixed
	default:
		return ""
	}
}

// parseTimestamp accepts RFC 3339 or a bare date. A bare date used as an end
// bound covers the whole day.
func parseTimestamp(field string, raw *string, endOfDay bool) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	value := strings.TrimSpace(*raw)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return &ts, nil
		}
	}
	if day, err := time.Parse(dateOnly, value); err == nil {
		if endOfDay {
			day = day.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		return &day, nil
	}
	return nil, fmt.Errorf("offer: invalid %s %q", field, value)
}

func formatTimestamp(ts *time.Time) *string {
	if ts == nil {
		return nil
	}
	out := ts.UTC().Format(time.RFC3339Nano)
	return &out
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func intPtr(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}
