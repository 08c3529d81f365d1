package quote

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	validator "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/atlasargan/backend-store/internal/pricing"
)

func newHandler(rules RuleSource, promo CodeResolver) *Handler {
	return &Handler{
		Svc:      &Service{Rules: rules, Promo: promo, Fallback: pricing.DefaultFallback()},
		Validate: validator.New(),
	}
}

func postQuote(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quote", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Compute(rec, req)
	return rec
}

func TestComputeReturnsTotals(t *testing.T) {
	h := newHandler(stubRules{}, stubPromo{rate: 2000})
	rec := postQuote(t, h, `{
		"lines": [{"itemId": "sku-1", "unitPriceRetail": 100, "quantity": 3}],
		"customerClass": "retail",
		"promoCode": "ARGAN20"
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp quoteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, pricing.Money(300), resp.Subtotal)
	require.Equal(t, pricing.Money(60), resp.Discount)
	require.Equal(t, pricing.Money(50), resp.ShippingCost)
	require.Equal(t, pricing.Money(290), resp.Total)
	require.True(t, resp.FallbackApplied)
}

func TestComputeRejectsZeroQuantity(t *testing.T) {
	h := newHandler(stubRules{}, nil)
	rec := postQuote(t, h, `{
		"lines": [{"itemId": "sku-1", "unitPriceRetail": 100, "quantity": 0}]
	}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), `"code":"VALIDATION"`)
}

func TestComputeShippingUnavailable(t *testing.T) {
	h := newHandler(stubRules{err: errors.New("settings service down")}, nil)
	rec := postQuote(t, h, `{
		"lines": [{"itemId": "sku-1", "unitPriceRetail": 100, "quantity": 1}]
	}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "SHIPPING_UNAVAILABLE")
}

func TestComputeBadJSON(t *testing.T) {
	h := newHandler(stubRules{}, nil)
	rec := postQuote(t, h, `{not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestComputeResellerClass(t *testing.T) {
	h := newHandler(stubRules{rule: &pricing.Rule{Class: pricing.ClassReseller, BasePrice: 20, Enabled: true}}, nil)
	rec := postQuote(t, h, `{
		"lines": [{"itemId": "sku-1", "unitPriceRetail": 100, "unitPriceReseller": 80, "quantity": 2}],
		"customerClass": "reseller"
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp quoteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, pricing.Money(160), resp.Subtotal)
	require.Equal(t, pricing.Money(20), resp.ShippingCost)
}
