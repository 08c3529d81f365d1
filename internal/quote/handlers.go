package quote

import (
	"encoding/json"
	"net/http"

	validator "github.com/go-playground/validator/v10"

	"github.com/atlasargan/backend-store/internal/common"
	"github.com/atlasargan/backend-store/internal/pricing"
)

// Handler exposes the quote endpoint.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type lineRequest struct {
	ItemID            string         `json:"itemId" validate:"required"`
	UnitPriceRetail   pricing.Money  `json:"unitPriceRetail" validate:"min=0"`
	UnitPriceReseller *pricing.Money `json:"unitPriceReseller,omitempty"`
	Qty               int            `json:"quantity" validate:"required,min=1"`
}

type quoteRequest struct {
	Lines         []lineRequest `json:"lines" validate:"dive"`
	CustomerClass string        `json:"customerClass" validate:"omitempty,oneof=retail reseller"`
	PromoCode     string        `json:"promoCode"`
}

type quoteResponse struct {
	Subtotal        pricing.Money `json:"subtotal"`
	Discount        pricing.Money `json:"discount"`
	ShippingCost    pricing.Money `json:"shippingCost"`
	Total           pricing.Money `json:"total"`
	ItemCount       int           `json:"itemCount"`
	FallbackApplied bool          `json:"fallbackApplied"`
}

// Compute handles POST /quote.
func (h *Handler) Compute(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "invalid quote request", err.Error())
			return
		}
	}
	lines := make([]pricing.Line, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, pricing.Line{
			ItemID:            line.ItemID,
			UnitPriceRetail:   line.UnitPriceRetail,
			UnitPriceReseller: line.UnitPriceReseller,
			Qty:               line.Qty,
		})
	}

	totals, err := h.Svc.Quote(r.Context(), lines, pricing.ParseClass(req.CustomerClass), req.PromoCode)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, quoteResponse{
		Subtotal:        totals.Subtotal,
		Discount:        totals.Discount,
		ShippingCost:    totals.Shipping,
		Total:           totals.Total,
		ItemCount:       totals.ItemCount,
		FallbackApplied: totals.FallbackApplied,
	})
}
