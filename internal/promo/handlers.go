package promo

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	validator "github.com/go-playground/validator/v10"

	"github.com/atlasargan/backend-store/internal/common"
)

// Handler exposes admin promo code management.
type Handler struct {
	Store    *Store
	Validate *validator.Validate
}

type createRequest struct {
	Code       string     `json:"code" validate:"required,min=2,max=32"`
	PercentBps int32      `json:"percentBps" validate:"required,gt=0,lte=10000"`
	ValidFrom  *time.Time `json:"validFrom"`
	ValidTo    *time.Time `json:"validTo"`
	UsageLimit *int32     `json:"usageLimit" validate:"omitempty,gte=0"`
}

type ruleResponse struct {
	ID         string     `json:"id"`
	Code       string     `json:"code"`
	PercentBps int32      `json:"percentBps"`
	ValidFrom  *time.Time `json:"validFrom,omitempty"`
	ValidTo    *time.Time `json:"validTo,omitempty"`
	UsageLimit *int32     `json:"usageLimit,omitempty"`
	UsedCount  int32      `json:"usedCount"`
}

func toResponse(rule Rule) ruleResponse {
	return ruleResponse{
		ID:         rule.ID.String(),
		Code:       rule.Code,
		PercentBps: rule.PercentBps,
		ValidFrom:  rule.ValidFrom,
		ValidTo:    rule.ValidTo,
		UsageLimit: rule.UsageLimit,
		UsedCount:  rule.UsedCount,
	}
}

// Create handles POST /admin/promo-codes.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "promo store not configured", nil)
		return
	}
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "invalid promo code", err.Error())
			return
		}
	}
	rule, err := h.Store.Create(r.Context(), Rule{
		Code:       req.Code,
		PercentBps: req.PercentBps,
		ValidFrom:  req.ValidFrom,
		ValidTo:    req.ValidTo,
		UsageLimit: req.UsageLimit,
	})
	if err != nil {
		if errors.Is(err, ErrCodeExists) {
			common.RenderError(w, common.NewAppError(
				"CONFLICT", "promo code already exists", http.StatusConflict, err))
			return
		}
		common.RenderError(w, common.NewAppError(
			"INTERNAL", "failed to create promo code", http.StatusInternalServerError, err))
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"promoCode": toResponse(rule)})
}

// List handles GET /admin/promo-codes.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "promo store not configured", nil)
		return
	}
	rules, err := h.Store.Load(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list promo codes", nil)
		return
	}
	response := make([]ruleResponse, 0, len(rules))
	for _, rule := range rules {
		response = append(response, toResponse(rule))
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": response})
}
