package pricing

import "errors"

var (
	// ErrInvalidQuantity is returned when the caller asks for fewer than one unit.
	ErrInvalidQuantity = errors.New("pricing: quantity must be at least 1")
	// ErrInvalidPrice is returned when the base price is negative.
	ErrInvalidPrice = errors.New("pricing: base price must not be negative")
	// ErrNotApplicable indicates the offer's quantity or threshold conditions are unmet.
	ErrNotApplicable = errors.New("pricing: offer not applicable")
	// ErrMalformedOffer indicates a required numeric field is missing.
	ErrMalformedOffer = errors.New("pricing: offer missing required fields")
	// ErrNoBenefit indicates the offer would not lower the price.
	ErrNoBenefit = errors.New("pricing: offer does not lower the price")
	// ErrOrderLevel marks offers that only take effect when a whole order is quoted.
	ErrOrderLevel = errors.New("pricing: offer applies at order level")
)
