package quote

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/atlasargan/backend-store/internal/common"
	"github.com/atlasargan/backend-store/internal/pricing"
)

type stubRules struct {
	rule *pricing.Rule
	err  error
}

func (s stubRules) GetRuleFor(ctx context.Context, class pricing.Class) (*pricing.Rule, error) {
	return s.rule, s.err
}

type stubPromo struct {
	rate int32
}

func (s stubPromo) Resolve(ctx context.Context, code string) int32 { return s.rate }

func TestQuoteWithEnabledRule(t *testing.T) {
	svc := &Service{
		Rules:    stubRules{rule: &pricing.Rule{Class: pricing.ClassRetail, BasePrice: 35, FreeOverSubtotal: 250, Enabled: true}},
		Fallback: pricing.DefaultFallback(),
	}
	lines := []pricing.Line{{ItemID: "a", UnitPriceRetail: 100, Qty: 3}}
	totals, err := svc.Quote(context.Background(), lines, pricing.ClassRetail, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if totals.Shipping != 0 || totals.Total != 300 {
		t.Fatalf("expected free shipping and total 300, got %+v", totals)
	}
}

func TestQuoteNoRuleUsesFallback(t *testing.T) {
	svc := &Service{Rules: stubRules{}, Fallback: pricing.DefaultFallback()}
	lines := []pricing.Line{{ItemID: "a", UnitPriceRetail: 100, Qty: 3}}
	totals, err := svc.Quote(context.Background(), lines, pricing.ClassRetail, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if totals.Shipping != 50 || totals.Total != 350 {
		t.Fatalf("expected fallback fee 50 and total 350, got %+v", totals)
	}
	if !totals.FallbackApplied {
		t.Fatal("expected fallback to be reported")
	}
}

func TestQuoteFetchFailureSurfaces(t *testing.T) {
	svc := &Service{Rules: stubRules{err: errors.New("connection reset")}, Fallback: pricing.DefaultFallback()}
	_, err := svc.Quote(context.Background(), nil, pricing.ClassRetail, "")
	if !errors.Is(err, ErrShippingUnavailable) {
		t.Fatalf("expected ErrShippingUnavailable, got %v", err)
	}
	appErr, ok := common.AsAppError(err)
	if !ok || appErr.HTTPStatus != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 app error, got %v", err)
	}
}

func TestQuoteAppliesPromoToSubtotalOnly(t *testing.T) {
	svc := &Service{
		Rules:    stubRules{},
		Promo:    stubPromo{rate: 2000},
		Fallback: pricing.DefaultFallback(),
	}
	lines := []pricing.Line{{ItemID: "a", UnitPriceRetail: 100, Qty: 3}}
	totals, err := svc.Quote(context.Background(), lines, pricing.ClassRetail, "ARGAN20")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if totals.Discount != 60 {
		t.Fatalf("expected discount 60, got %d", totals.Discount)
	}
	if totals.Total != 300-60+50 {
		t.Fatalf("expected total 290, got %d", totals.Total)
	}
}

func TestQuoteInvalidQtyPropagates(t *testing.T) {
	svc := &Service{Rules: stubRules{}, Fallback: pricing.DefaultFallback()}
	lines := []pricing.Line{{ItemID: "a", UnitPriceRetail: 100, Qty: 0}}
	_, err := svc.Quote(context.Background(), lines, pricing.ClassRetail, "")
	if !errors.Is(err, pricing.ErrInvalidQty) {
		t.Fatalf("expected ErrInvalidQty, got %v", err)
	}
	appErr, ok := common.AsAppError(err)
	if !ok || appErr.HTTPStatus != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 app error, got %v", err)
	}
}
