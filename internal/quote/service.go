package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/atlasargan/backend-store/internal/common"
	"github.com/atlasargan/backend-store/internal/obs"
	"github.com/atlasargan/backend-store/internal/pricing"
)

// ErrShippingUnavailable signals that shipping rules could not be loaded.
// Callers must render an explicit "unable to calculate shipping" state rather
// than charge a guessed fee.
var ErrShippingUnavailable = errors.New("unable to calculate shipping")

// RuleSource yields the enabled shipping rule for a class, nil when none is
// configured.
type RuleSource interface {
	GetRuleFor(ctx context.Context, class pricing.Class) (*pricing.Rule, error)
}

// CodeResolver maps a promo code onto a discount rate in basis points.
type CodeResolver interface {
	Resolve(ctx context.Context, code string) int32
}

// Service is the single totals code path shared by every surface that prices
// an order: the cart view, checkout and admin order creation all call Quote
// rather than carrying their own copy of the shipping branches.
type Service struct {
	Rules    RuleSource
	Promo    CodeResolver
	Fallback pricing.Fallback
}

// Quote computes order totals for the cart snapshot.
//
// A confirmed "no rule configured" prices via the fallback policy; a failed
// rule fetch returns ErrShippingUnavailable instead. An invalid quantity
// propagates pricing.ErrInvalidQty.
func (s *Service) Quote(ctx context.Context, lines []pricing.Line, class pricing.Class, promoCode string) (pricing.Totals, error) {
	if s == nil || s.Rules == nil {
		return pricing.Totals{}, errors.New("quote service not configured")
	}
	rule, err := s.Rules.GetRuleFor(ctx, class)
	if err != nil {
		s.count(class, "shipping_unavailable")
		return pricing.Totals{}, common.NewAppError(
			"SHIPPING_UNAVAILABLE", "unable to calculate shipping",
			http.StatusServiceUnavailable, fmt.Errorf("%w: %v", ErrShippingUnavailable, err))
	}

	var discountBps int32
	if s.Promo != nil && promoCode != "" {
		discountBps = s.Promo.Resolve(ctx, promoCode)
		if obs.PromoResolveTotal != nil {
			outcome := "miss"
			if discountBps > 0 {
				outcome = "hit"
			}
			obs.PromoResolveTotal.WithLabelValues(outcome).Inc()
		}
	}

	totals, err := pricing.Compute(lines, class, rule, discountBps, s.Fallback)
	if err != nil {
		s.count(class, "invalid")
		if errors.Is(err, pricing.ErrInvalidQty) {
			return pricing.Totals{}, common.NewAppError(
				"VALIDATION", err.Error(), http.StatusUnprocessableEntity, err)
		}
		return pricing.Totals{}, err
	}
	if totals.FallbackApplied && obs.QuoteFallbackTotal != nil {
		obs.QuoteFallbackTotal.Inc()
	}
	s.count(class, "ok")
	return totals, nil
}

func (s *Service) count(class pricing.Class, result string) {
	if obs.QuoteTotal != nil {
		obs.QuoteTotal.WithLabelValues(string(class), result).Inc()
	}
}
