package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rl1809/price-query/internal/core/domain"
	"github.com/rl1809/price-query/internal/core/service"
)

const (
	dateParamLayout = "02/01/2006"
	timeParamLayout = "15:04"
)

type HTTPHandler struct {
	priceService *service.PriceService
}

type PriceResponse struct {
	ProductID int64   `json:"product_id"`
	BrandID   int64   `json:"brand_id"`
	PriceList int64   `json:"price_list"`
	StartDate string  `json:"start_date"`
	EndDate   *string `json:"end_date,omitempty"`
	Price     string  `json:"price"`
	Currency  string  `json:"currency"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func NewHTTPHandler(priceService *service.PriceService) *HTTPHandler {
	return &HTTPHandler{priceService: priceService}
}

// FindPrice handles GET /api/prices/filter?productId=&brandId=&date=&time=
// with date as dd/MM/yyyy and time as HH:mm.
func (h *HTTPHandler) FindPrice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	productID, err := parseID(r.URL.Query().Get("productId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "invalid productId"})
		return
	}
	brandID, err := parseID(r.URL.Query().Get("brandId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "invalid brandId"})
		return
	}
	date, err := parseQueryDate(r.URL.Query().Get("date"), r.URL.Query().Get("time"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "invalid date or time"})
		return
	}

	resolved, err := h.priceService.FindPrice(r.Context(), productID, brandID, date)
	if err != nil {
		if errors.Is(err, service.ErrPriceNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Message: "price not found"})
			return
		}
		if errors.Is(err, service.ErrServiceUnavailable) {
			writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Message: err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Message: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, toResponse(resolved.Window))
}

// GetAllPrices handles GET /api/prices. An empty catalog yields an
// empty array, not an error.
func (h *HTTPHandler) GetAllPrices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	windows, err := h.priceService.GetAllPrices(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrServiceUnavailable) {
			writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Message: err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Message: "internal error"})
		return
	}

	responses := make([]PriceResponse, 0, len(windows))
	for _, win := range windows {
		responses = append(responses, toResponse(win))
	}
	writeJSON(w, http.StatusOK, responses)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, errors.New("id must be positive")
	}
	return id, nil
}

func parseQueryDate(dateRaw, timeRaw string) (time.Time, error) {
	date, err := time.Parse(dateParamLayout, dateRaw)
	if err != nil {
		return time.Time{}, err
	}
	clock, err := time.Parse(timeParamLayout, timeRaw)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), clock.Hour(), clock.Minute(), 0, 0, time.UTC), nil
}

func toResponse(w domain.PriceWindow) PriceResponse {
	resp := PriceResponse{
		ProductID: w.ProductID,
		BrandID:   w.BrandID,
		PriceList: w.PriceList,
		StartDate: w.StartDate.Format(time.RFC3339),
		Price:     w.Price.String(),
		Currency:  w.Currency,
	}
	if w.EndDate != nil {
		end := w.EndDate.Format(time.RFC3339)
		resp.EndDate = &end
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
