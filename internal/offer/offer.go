package offer

import (
	"errors"
	"time"
)

// Type is the offer discriminator as stored by the catalog.
type Type string

// Known offer types. Some shapes are reachable through two spellings.
const (
	TypePercentageDiscount  Type = "percentage_discount"
	TypeFixedDiscount       Type = "fixed_discount"
	TypeFixedAmountDiscount Type = "fixed_amount_discount"
	TypeFixedPrice          Type = "fixed_price"
	TypeBOGO                Type = "bogo"
	TypeBuyXGetYFree        Type = "buy_x_get_y_free"
	TypeMultiBuy            Type = "multi_buy"
	TypeBulkTier            Type = "bulk_tier"
	TypeBulkDiscount        Type = "bulk_discount"
	TypeBundleDeal          Type = "bundle_deal"
	TypeFreeShipping        Type = "free_shipping"
)

// KnownTypes lists every type the pricing engine understands.
func KnownTypes() []Type {
	return []Type{
		TypePercentageDiscount,
		TypeFixedDiscount,
		TypeFixedAmountDiscount,
		TypeFixedPrice,
		TypeBOGO,
		TypeBuyXGetYFree,
		TypeMultiBuy,
		TypeBulkTier,
		TypeBulkDiscount,
		TypeBundleDeal,
		TypeFreeShipping,
	}
}

var (
	// ErrInactive is returned when the offer has been switched off by the merchant.
	ErrInactive = errors.New("offer inactive")
	// ErrNotStarted is returned when the evaluation instant precedes the offer start date.
	ErrNotStarted = errors.New("offer not started")
	// ErrExpired is returned when the evaluation instant is past the offer end date.
	ErrExpired = errors.New("offer expired")
	// ErrUsageExhausted indicates the global usage cap has been reached.
	ErrUsageExhausted = errors.New("offer usage limit reached")
	// ErrCustomerLimitReached indicates the caller has used the offer the maximum number of times.
	ErrCustomerLimitReached = errors.New("offer per-customer limit reached")
)

// Offer is a single promotional offer. Common fields live on the struct; the
// type specific parameters are carried by Terms.
type Offer struct {
	ID                 string
	Name               string
	Type               Type
	IsActive           bool
	StartDate          *time.Time
	EndDate            *time.Time
	MaxUses            *int
	UsesCount          int
	MaxUsesPerCustomer *int
	Description        string
	TermsAndConditions string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Terms              Terms
}

// Eligibility reports why the offer cannot be used at now, or nil when it can.
// customerUses is the number of redemptions already made by the caller; pass 0
// when unknown.
func (o Offer) Eligibility(now time.Time, customerUses int) error {
	if !o.IsActive {
		return ErrInactive
	}
	if o.StartDate != nil && now.Before(*o.StartDate) {
		return ErrNotStarted
	}
	if o.EndDate != nil && now.After(*o.EndDate) {
		return ErrExpired
	}
	if o.MaxUses != nil && o.UsesCount >= *o.MaxUses {
		return ErrUsageExhausted
	}
	if o.MaxUsesPerCustomer != nil && *o.MaxUsesPerCustomer > 0 && customerUses >= *o.MaxUsesPerCustomer {
		return ErrCustomerLimitReached
	}
	return nil
}

// Eligible is a convenience wrapper around Eligibility.
func (o Offer) Eligible(now time.Time, customerUses int) bool {
	return o.Eligibility(now, customerUses) == nil
}
