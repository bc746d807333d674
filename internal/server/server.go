// Package server exposes the planner operations over a JSON HTTP API.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/iwvelando/cashflow-planner/internal/dispatch"
	"github.com/iwvelando/cashflow-planner/internal/invoice"
	"github.com/iwvelando/cashflow-planner/pkg/constants"
	"github.com/iwvelando/cashflow-planner/pkg/validation"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
)

type handler struct {
	logger        *zap.Logger
	service       *dispatch.Service
	maxUploadSize int64
	version       string
}

// NewHandler constructs the HTTP handler that serves the planner API. metrics
// may be nil, in which case /metrics answers 503.
func NewHandler(logger *zap.Logger, service *dispatch.Service, metrics *Metrics, opts Options) (http.Handler, error) {
	if service == nil {
		return nil, errors.New("server: service is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts, limit, err := opts.normalize()
	if err != nil {
		return nil, fmt.Errorf("server: body size: %w", err)
	}

	h := &handler{logger: logger, service: service, maxUploadSize: limit, version: opts.Version}

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'",
	})

	r := chi.NewRouter()
	r.Use(
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					logger.Warn("secure headers blocked request", zap.String("op", "server.secure"), zap.Error(err))
					return
				}
				next.ServeHTTP(w, r)
			})
		},
		metrics.Middleware,
		h.logRequests,
	)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.Limit(opts.RateLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))

		r.Get("/version", h.handleVersion)
		r.Post("/invoices", h.handleCreateInvoice)
		r.Get("/invoices/{type}", h.handleListInvoices)
		r.Get("/cash-flow", h.handleCashFlow)
		r.Post("/optimize/working-capital", h.handleOptimizeWorkingCapital)
		r.Post("/optimize/accounts-payable", h.handleOptimizePayables)
		r.Post("/optimize/accounts-receivable", h.handleOptimizeReceivables)
		r.Put("/weights", h.handleSetWeights)
		r.Put("/suppliers/{id}/importance", h.handleSupplierImportance)
		r.Put("/customers/{id}/importance", h.handleCustomerImportance)
	})

	return r, nil
}

// apiResponse wraps successful results.
type apiResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
}

// optimizeRequest is the working capital body.
type optimizeRequest struct {
	CashPosition *float64 `json:"cashPosition"`
	Scenario     string   `json:"scenario"`
	Objective    string   `json:"objective"`
}

type payablesRequest struct {
	CashPosition *float64 `json:"cashPosition"`
}

type receivablesRequest struct {
	CashPosition *float64 `json:"cashPosition"`
	Objective    string   `json:"objective"`
}

type importanceRequest struct {
	Score *float64 `json:"importance_score"`
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Debug("request served",
			zap.String("op", "server.logRequests"),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("requestID", middleware.GetReqID(r.Context())),
		)
	})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var in invoice.Input
	if !h.decode(w, r, &in, "server.handleCreateInvoice") {
		return
	}
	created, err := h.service.CreateInvoice(r.Context(), in)
	if err != nil {
		h.respondServiceError(w, err, "server.handleCreateInvoice")
		return
	}
	h.writeJSON(w, http.StatusCreated, apiResponse{Status: dispatch.StatusSuccess, Data: created})
}

func (h *handler) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	days, err := queryHorizon(r)
	if err != nil {
		h.respondServiceError(w, err, "server.handleListInvoices")
		return
	}
	invoices, err := h.service.InvoicesByType(r.Context(), dispatch.InvoicesRequest{
		Type:        chi.URLParam(r, "type"),
		DaysHorizon: days,
	})
	if err != nil {
		h.respondServiceError(w, err, "server.handleListInvoices")
		return
	}
	h.writeJSON(w, http.StatusOK, apiResponse{Status: dispatch.StatusSuccess, Data: invoices})
}

func (h *handler) handleCashFlow(w http.ResponseWriter, r *http.Request) {
	days, err := queryHorizon(r)
	if err != nil {
		h.respondServiceError(w, err, "server.handleCashFlow")
		return
	}
	rows, err := h.service.CashFlowForecast(r.Context(), dispatch.ForecastRequest{DaysHorizon: days})
	if err != nil {
		h.respondServiceError(w, err, "server.handleCashFlow")
		return
	}
	h.writeJSON(w, http.StatusOK, apiResponse{Status: dispatch.StatusSuccess, Data: rows})
}

func (h *handler) handleOptimizeWorkingCapital(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if !h.decode(w, r, &req, "server.handleOptimizeWorkingCapital") {
		return
	}
	result, err := h.service.OptimizeWorkingCapital(r.Context(), dispatch.WorkingCapitalRequest{
		CashPosition: req.CashPosition,
		Scenario:     req.Scenario,
		Objective:    req.Objective,
	})
	if err != nil {
		h.respondServiceError(w, err, "server.handleOptimizeWorkingCapital")
		return
	}
	h.writeJSON(w, http.StatusOK, apiResponse{Status: dispatch.StatusSuccess, Data: result})
}

func (h *handler) handleOptimizePayables(w http.ResponseWriter, r *http.Request) {
	var req payablesRequest
	if !h.decode(w, r, &req, "server.handleOptimizePayables") {
		return
	}
	if req.CashPosition == nil {
		h.respondServiceError(w, validation.Errorf("cashPosition", "is required"), "server.handleOptimizePayables")
		return
	}
	result, err := h.service.OptimizePayables(r.Context(), dispatch.PayablesRequest{CashPosition: *req.CashPosition})
	if err != nil {
		h.respondServiceError(w, err, "server.handleOptimizePayables")
		return
	}
	h.writeJSON(w, http.StatusOK, apiResponse{Status: dispatch.StatusSuccess, Data: result})
}

func (h *handler) handleOptimizeReceivables(w http.ResponseWriter, r *http.Request) {
	var req receivablesRequest
	if !h.decode(w, r, &req, "server.handleOptimizeReceivables") {
		return
	}
	if req.CashPosition == nil {
		h.respondServiceError(w, validation.Errorf("cashPosition", "is required"), "server.handleOptimizeReceivables")
		return
	}
	result, err := h.service.OptimizeReceivables(r.Context(), dispatch.ReceivablesRequest{
		CashPosition: *req.CashPosition,
		Objective:    req.Objective,
	})
	if err != nil {
		h.respondServiceError(w, err, "server.handleOptimizeReceivables")
		return
	}
	h.writeJSON(w, http.StatusOK, apiResponse{Status: dispatch.StatusSuccess, Data: result})
}

func (h *handler) handleSetWeights(w http.ResponseWriter, r *http.Request) {
	var weights map[string]float64
	if !h.decode(w, r, &weights, "server.handleSetWeights") {
		return
	}
	normalized, err := h.service.SetObjectiveWeights(r.Context(), dispatch.WeightsRequest{Weights: weights})
	if err != nil {
		h.respondServiceError(w, err, "server.handleSetWeights")
		return
	}
	h.writeJSON(w, http.StatusOK, apiResponse{Status: dispatch.StatusSuccess, Data: normalized.Map()})
}

func (h *handler) handleSupplierImportance(w http.ResponseWriter, r *http.Request) {
	var req importanceRequest
	if !h.decode(w, r, &req, "server.handleSupplierImportance") {
		return
	}
	result, err := h.service.SetSupplierImportance(r.Context(), dispatch.ImportanceRequest{
		SupplierID: chi.URLParam(r, "id"),
		Score:      req.Score,
	})
	if err != nil {
		h.respondServiceError(w, err, "server.handleSupplierImportance")
		return
	}
	h.writeJSON(w, http.StatusOK, apiResponse{Status: dispatch.StatusSuccess, Data: result})
}

func (h *handler) handleCustomerImportance(w http.ResponseWriter, r *http.Request) {
	var req importanceRequest
	if !h.decode(w, r, &req, "server.handleCustomerImportance") {
		return
	}
	result, err := h.service.SetCustomerImportance(r.Context(), dispatch.ImportanceRequest{
		CustomerID: chi.URLParam(r, "id"),
		Score:      req.Score,
	})
	if err != nil {
		h.respondServiceError(w, err, "server.handleCustomerImportance")
		return
	}
	h.writeJSON(w, http.StatusOK, apiResponse{Status: dispatch.StatusSuccess, Data: result})
}

// queryHorizon reads days_horizon. Absent means the default horizon.
func queryHorizon(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("days_horizon")
	if raw == "" {
		return 0, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 || days > constants.MaxHorizonDays {
		return 0, validation.Errorf("days_horizon", "must be an integer between 1 and %d, got %q", constants.MaxHorizonDays, raw)
	}
	return days, nil
}

// decode reads a JSON body into dst, answering the request itself on failure.
func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}, op string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds limit of %d bytes", h.maxUploadSize), op)
			return false
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return false
	}
	return true
}

func (h *handler) respondServiceError(w http.ResponseWriter, err error, op string) {
	status := http.StatusInternalServerError
	if dispatch.IsClientError(err) {
		status = http.StatusBadRequest
	}
	h.respondErrorWithOp(w, status, err.Error(), op)
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("op", op), zap.Int("status", status), zap.String("error", msg))
	} else {
		h.logger.Warn("request rejected", zap.String("op", op), zap.Int("status", status), zap.String("error", msg))
	}
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Warn("failed to encode response", zap.String("op", "server.writeJSON"), zap.Error(err))
	}
}
