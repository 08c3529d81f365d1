package shiprule

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/atlasargan/backend-store/internal/pricing"
)

func newRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/shipping-rules/{class}", h.Get)
	r.Get("/admin/shipping-rules", h.AdminList)
	r.Put("/admin/shipping-rules/{class}", h.AdminUpsert)
	return r
}

func TestGetReturnsConfiguredRule(t *testing.T) {
	h := &Handler{Store: &Store{DB: &stubDB{rule: testRule()}}, Fallback: pricing.DefaultFallback()}
	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, httptest.NewRequest("GET", "/shipping-rules/retail", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"basePrice":35`)
	require.Contains(t, rec.Body.String(), `"customerClass":"retail"`)
}

func TestGetFallsBackWhenNoRuleConfigured(t *testing.T) {
	h := &Handler{Store: &Store{DB: &stubDB{}}, Fallback: pricing.DefaultFallback()}
	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, httptest.NewRequest("GET", "/shipping-rules/reseller", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"rule":null`)
	require.Contains(t, rec.Body.String(), `"basePrice":50`)
	require.Contains(t, rec.Body.String(), `"freeShippingThreshold":750`)
}

func TestGetFetchFailureReturns503(t *testing.T) {
	boom := errors.New("connection refused")
	h := &Handler{Store: &Store{DB: &stubDB{rowErrs: []error{boom, boom}}}, Fallback: pricing.DefaultFallback()}
	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, httptest.NewRequest("GET", "/shipping-rules/retail", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "SHIPPING_UNAVAILABLE")
}

func TestAdminUpsertWritesRuleForClassInURL(t *testing.T) {
	db := &stubDB{}
	h := &Handler{Store: &Store{DB: db}, Validate: validator.New()}
	body := `{"basePrice":40,"freeShippingThreshold":500,"freeShippingMinItems":0,"enabled":true}`
	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, httptest.NewRequest("PUT", "/admin/shipping-rules/reseller", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"customerClass":"reseller"`)
	require.Len(t, db.savedSQLs, 1)
	require.Contains(t, db.savedSQLs[0], "ON CONFLICT (customer_class)")
}

func TestAdminUpsertRejectsNegativePrice(t *testing.T) {
	h := &Handler{Store: &Store{DB: &stubDB{}}, Validate: validator.New()}
	body := `{"basePrice":-5,"enabled":true}`
	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, httptest.NewRequest("PUT", "/admin/shipping-rules/retail", strings.NewReader(body)))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAdminUpsertRejectsBadJSON(t *testing.T) {
	h := &Handler{Store: &Store{DB: &stubDB{}}, Validate: validator.New()}
	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, httptest.NewRequest("PUT", "/admin/shipping-rules/retail", strings.NewReader("{")))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminListReturnsAllRules(t *testing.T) {
	h := &Handler{Store: &Store{DB: &stubDB{}}}
	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, httptest.NewRequest("GET", "/admin/shipping-rules", nil))

	// stubDB.Query is not implemented, so listing must surface 503 rather
	// than an empty success.
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
