package pricing

import (
	"errors"
	"fmt"
)

// Money represents a monetary value in whole currency units.
type Money = int64

// ErrInvalidQty is returned when a cart line carries a quantity below one.
var ErrInvalidQty = errors.New("line quantity must be at least 1")

// Class selects the pricing tier a shopper belongs to.
type Class string

const (
	// ClassRetail is the default storefront tier.
	ClassRetail Class = "retail"
	// ClassReseller is the wholesale tier with its own prices and shipping rule.
	ClassReseller Class = "reseller"
)

// ParseClass maps a raw string onto a known class, defaulting to retail.
func ParseClass(value string) Class {
	if value == string(ClassReseller) {
		return ClassReseller
	}
	return ClassRetail
}

// Line describes a single cart line used for totals calculation.
type Line struct {
	ItemID            string
	UnitPriceRetail   Money
	UnitPriceReseller *Money
	Qty               int
}

// UnitPrice resolves the effective unit price for the given class.
func (l Line) UnitPrice(class Class) Money {
	if class == ClassReseller && l.UnitPriceReseller != nil {
		return *l.UnitPriceReseller
	}
	return l.UnitPriceRetail
}

// Rule is a snapshot of the enabled shipping rule for a class.
type Rule struct {
	ID               string
	Class            Class
	BasePrice        Money
	FreeOverSubtotal Money
	FreeOverItems    int
	Enabled          bool
}

// Fallback is the flat-fee policy used when no enabled rule is configured.
// The amounts come from configuration so the same values flow through every
// surface that computes totals.
type Fallback struct {
	BaseFee          Money
	FreeOverSubtotal Money
}

// DefaultFallback mirrors the storefront defaults: a flat 50 fee waived once
// the subtotal reaches 750.
func DefaultFallback() Fallback {
	return Fallback{BaseFee: 50, FreeOverSubtotal: 750}
}

// Totals aggregates the computed pricing components for an order.
type Totals struct {
	Subtotal Money
	Discount Money
	Shipping Money
	Total    Money

	ItemCount int
	// FallbackApplied reports that no enabled rule was available and the
	// flat-fee fallback determined the shipping cost.
	FallbackApplied bool
}

// Compute calculates order totals for the given cart snapshot.
//
// The discount rate is expressed in basis points of the subtotal (a resolved
// promo code); shipping never participates in the discount. A nil or disabled
// rule degrades to the fallback policy rather than failing. The only error
// condition is a malformed quantity, which is rejected outright.
func Compute(lines []Line, class Class, rule *Rule, discountBps int32, fb Fallback) (Totals, error) {
	var (
		subtotal  Money
		itemCount int
	)
	for i, line := range lines {
		if line.Qty < 1 {
			return Totals{}, fmt.Errorf("line %d (%s): %w", i, line.ItemID, ErrInvalidQty)
		}
		subtotal += Money(line.Qty) * line.UnitPrice(class)
		itemCount += line.Qty
	}

	var discount Money
	if discountBps > 0 {
		discount = (subtotal * Money(discountBps)) / 10000
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}

	shipping, fellBack := shippingCost(subtotal, itemCount, rule, fb)

	return Totals{
		Subtotal:        subtotal,
		Discount:        discount,
		Shipping:        shipping,
		Total:           subtotal - discount + shipping,
		ItemCount:       itemCount,
		FallbackApplied: fellBack,
	}, nil
}

func shippingCost(subtotal Money, itemCount int, rule *Rule, fb Fallback) (Money, bool) {
	if rule == nil || !rule.Enabled {
		if fb.FreeOverSubtotal > 0 && subtotal >= fb.FreeOverSubtotal {
			return 0, true
		}
		return fb.BaseFee, true
	}
	if rule.FreeOverSubtotal > 0 && subtotal >= rule.FreeOverSubtotal {
		return 0, false
	}
	if rule.FreeOverItems > 0 && itemCount >= rule.FreeOverItems {
		return 0, false
	}
	return rule.BasePrice, false
}
