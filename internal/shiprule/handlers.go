package shiprule

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/atlasargan/backend-store/internal/common"
	"github.com/atlasargan/backend-store/internal/pricing"
)

// Handler exposes shipping rule endpoints.
type Handler struct {
	Store    *Store
	Validate *validator.Validate
	Fallback pricing.Fallback
}

type ruleResponse struct {
	ID               string        `json:"id"`
	CustomerClass    pricing.Class `json:"customerClass"`
	BasePrice        pricing.Money `json:"basePrice"`
	FreeOverSubtotal pricing.Money `json:"freeShippingThreshold"`
	FreeOverItems    int           `json:"freeShippingMinItems"`
	Enabled          bool          `json:"enabled"`
}

func toResponse(rule pricing.Rule) ruleResponse {
	return ruleResponse{
		ID:               rule.ID,
		CustomerClass:    rule.Class,
		BasePrice:        rule.BasePrice,
		FreeOverSubtotal: rule.FreeOverSubtotal,
		FreeOverItems:    rule.FreeOverItems,
		Enabled:          rule.Enabled,
	}
}

// Get returns the effective rule for a class, or the fallback policy when no
// rule is configured.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "shipping rule store not configured", nil)
		return
	}
	class := pricing.ParseClass(chi.URLParam(r, "class"))
	rule, err := h.Store.GetRuleFor(r.Context(), class)
	if err != nil {
		common.RenderError(w, common.NewAppError(
			"SHIPPING_UNAVAILABLE", "unable to load shipping rules",
			http.StatusServiceUnavailable, err))
		return
	}
	if rule == nil {
		common.JSON(w, http.StatusOK, map[string]any{
			"rule": nil,
			"fallback": map[string]any{
				"basePrice":             h.Fallback.BaseFee,
				"freeShippingThreshold": h.Fallback.FreeOverSubtotal,
			},
		})
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"rule": toResponse(*rule)})
}

// AdminList returns every configured rule for the settings screen.
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "shipping rule store not configured", nil)
		return
	}
	rules, err := h.Store.List(r.Context())
	if err != nil {
		common.RenderError(w, common.NewAppError(
			"SHIPPING_UNAVAILABLE", "unable to load shipping rules",
			http.StatusServiceUnavailable, err))
		return
	}
	response := make([]ruleResponse, 0, len(rules))
	for _, rule := range rules {
		response = append(response, toResponse(rule))
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": response})
}

type upsertRequest struct {
	BasePrice        pricing.Money `json:"basePrice" validate:"min=0"`
	FreeOverSubtotal pricing.Money `json:"freeShippingThreshold" validate:"min=0"`
	FreeOverItems    int           `json:"freeShippingMinItems" validate:"min=0"`
	Enabled          bool          `json:"enabled"`
}

// AdminUpsert writes the rule for the class in the URL. Last write wins.
func (h *Handler) AdminUpsert(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "shipping rule store not configured", nil)
		return
	}
	var req upsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "invalid shipping rule", err.Error())
			return
		}
	}
	rule := pricing.Rule{
		Class:            pricing.ParseClass(chi.URLParam(r, "class")),
		BasePrice:        req.BasePrice,
		FreeOverSubtotal: req.FreeOverSubtotal,
		FreeOverItems:    req.FreeOverItems,
		Enabled:          req.Enabled,
	}
	saved, err := h.Store.Save(r.Context(), rule)
	if err != nil {
		common.RenderError(w, common.NewAppError(
			"INTERNAL", "failed to save shipping rule",
			http.StatusInternalServerError, err))
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"rule": toResponse(saved)})
}
