package guest

import (
	"net/http"
	"strconv"

	"github.com/atlasargan/backend-store/internal/common"
)

// Handler exposes the admin guest-customer view.
type Handler struct {
	Svc *Service
}

// AdminList renders paginated virtual guest profiles. `sort=spend` switches
// to the top-spenders ordering.
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "guest service not configured", nil)
		return
	}
	profiles, err := h.Svc.Profiles(r.Context())
	if err != nil {
		common.RenderError(w, err)
		return
	}
	if r.URL.Query().Get("sort") == "spend" {
		SortBySpend(profiles)
	}

	page, perPage := common.ParsePagination(r, 20, 100)
	total := len(profiles)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	common.JSON(w, http.StatusOK, map[string]any{
		"data": profiles[start:end],
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: total,
		},
	})
}
