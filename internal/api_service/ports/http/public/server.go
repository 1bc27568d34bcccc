package public

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/langowen/currency/deploy/config"
	mwLogger "github.com/langowen/currency/internal/api_service/ports/http/public/middleware/logger"
	"github.com/langowen/currency/internal/entities"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	Server  *http.Server
	cfg     *config.Config
	service Service
}

func NewServer(server *http.Server, cfg *config.Config, service Service) *Server {
	return &Server{
		Server:  server,
		cfg:     cfg,
		service: service,
	}
}

type selectionRequest struct {
	Code string `json:"code"`
}

type refreshResponse struct {
	Updated bool `json:"updated"`
}

type statusResponse struct {
	LastUpdate *time.Time `json:"last_update"`
	Stale      bool       `json:"stale"`
}

type priceResponse struct {
	Amount    float64 `json:"amount"`
	Display   float64 `json:"display"`
	Formatted string  `json:"formatted"`
	Currency  string  `json:"currency"`
}

type referenceResponse struct {
	Amount    float64 `json:"amount"`
	Reference float64 `json:"reference"`
}

// Router builds the chi router with every public route mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mwLogger.New())
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/currencies", s.ListCurrencies)
	r.Get("/currency", s.GetCurrency)
	r.Put("/currency", s.SetCurrency)

	r.Post("/rates/refresh", s.RefreshRates)
	r.Get("/rates/status", s.RatesStatus)

	r.Get("/price", s.GetPrice)
	r.Get("/price/reference", s.GetReferencePrice)

	return r
}

func StartServer(ctx context.Context, service Service, cfg *config.Config) <-chan struct{} {
	serverConfig := &http.Server{
		Addr:         ":" + cfg.HTTPServer.Port,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	server := NewServer(serverConfig, cfg, service)
	server.Server.Handler = server.Router()

	doneChan := make(chan struct{})

	go func() {
		if err := server.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to stop server", "error", err)
		}

		close(doneChan)
	}()

	return doneChan
}

func (s *Server) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.service.List())
}

func (s *Server) GetCurrency(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.service.Current())
}

func (s *Server) SetCurrency(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := s.service.SetCurrent(r.Context(), req.Code); err != nil {
		if errors.Is(err, entities.ErrUnknownCurrency) {
			RespondWithError(w, http.StatusBadRequest, "unknown currency", req.Code)
			return
		}
		slog.Error("Failed to set currency", "error", err)
		RespondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) RefreshRates(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, refreshResponse{Updated: s.service.Refresh(r.Context())})
}

func (s *Server) RatesStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Stale: s.service.ShouldRefresh()}
	if last, ok := s.service.LastUpdateTime(); ok {
		resp.LastUpdate = &last
	}

	RespondWithJSON(w, http.StatusOK, resp)
}

func (s *Server) GetPrice(w http.ResponseWriter, r *http.Request) {
	amount, err := parseAmount(r)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid amount", err.Error())
		return
	}

	display := s.service.ToDisplay(amount)
	if !finite(display) {
		RespondWithError(w, http.StatusBadRequest, "invalid amount", "converted amount is out of range")
		return
	}

	RespondWithJSON(w, http.StatusOK, priceResponse{
		Amount:    amount,
		Display:   display,
		Formatted: s.service.Format(amount),
		Currency:  s.service.Current().Code,
	})
}

func (s *Server) GetReferencePrice(w http.ResponseWriter, r *http.Request) {
	amount, err := parseAmount(r)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid amount", err.Error())
		return
	}

	reference := s.service.ToReference(amount)
	if !finite(reference) {
		RespondWithError(w, http.StatusBadRequest, "invalid amount", "converted amount is out of range")
		return
	}

	RespondWithJSON(w, http.StatusOK, referenceResponse{
		Amount:    amount,
		Reference: reference,
	})
}

func parseAmount(r *http.Request) (float64, error) {
	raw := r.URL.Query().Get("amount")
	if raw == "" {
		return 0, errors.New("amount is required")
	}

	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.Wrap(err, "parse amount")
	}
	if !finite(amount) {
		return 0, errors.Errorf("amount %q is not a finite number", raw)
	}

	return amount, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func RespondWithJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func RespondWithError(w http.ResponseWriter, code int, message string, details ...string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)

	errorText := message
	if len(details) > 0 {
		errorText += "\nDetails: " + details[0]
	}

	if _, err := w.Write([]byte(errorText)); err != nil {
		slog.Error("Failed to write error response", "error", err)
	}
}
