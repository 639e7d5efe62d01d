// Package httpServer exposes the loadboard operations as JSON over HTTP and
// mounts the websocket endpoint.
package httpServer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	domainErr "github.com/Tanmoy095/loadboard/internal/domain/errors"
	"github.com/Tanmoy095/loadboard/service"
)

const (
	maxBodyBytes  = 1 << 20
	healthTimeout = 2 * time.Second
)

// Pinger reports whether the datastore is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Shipments *service.ShipmentService
	Listings  *service.ListingService
	Dashboard *service.DashboardService
	Projector *service.Projector
	WS        http.Handler // optional
	Health    Pinger       // optional
	Logger    *slog.Logger
}

// Handler holds the services behind the HTTP routes.
type Handler struct {
	shipments *service.ShipmentService
	listings  *service.ListingService
	dashboard *service.DashboardService
	projector *service.Projector
	ws        http.Handler
	health    Pinger
	logger    *slog.Logger
}

func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		shipments: d.Shipments,
		listings:  d.Listings,
		dashboard: d.Dashboard,
		projector: d.Projector,
		ws:        d.WS,
		health:    d.Health,
		logger:    logger,
	}
}

// Router wires every route.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.logRequests)

	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	if h.ws != nil {
		r.Handle("/ws", h.ws).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/loads", h.postLoad).Methods(http.MethodPost)
	api.HandleFunc("/loads/{id}", h.getLoad).Methods(http.MethodGet)
	api.HandleFunc("/loads/{id}/bids", h.bidsForLoad).Methods(http.MethodGet)
	api.HandleFunc("/loads/{id}/bids", h.placeBid).Methods(http.MethodPost)
	api.HandleFunc("/loads/{id}/bids/{bidID}/accept", h.acceptBid).Methods(http.MethodPost)
	api.HandleFunc("/loads/{id}/commitment", h.commitToJob).Methods(http.MethodPost)
	api.HandleFunc("/loads/{id}/deposit", h.payDeposit).Methods(http.MethodPost)
	api.HandleFunc("/loads/{id}/status", h.updateStatus).Methods(http.MethodPost)
	api.HandleFunc("/loads/{id}/rating", h.submitRating).Methods(http.MethodPost)

	api.HandleFunc("/shippers/{id}/shipments", h.shipperShipments).Methods(http.MethodGet)
	api.HandleFunc("/shippers/{id}/bids", h.shipperBids).Methods(http.MethodGet)

	api.HandleFunc("/listings/vehicles", h.postVehicle).Methods(http.MethodPost)
	api.HandleFunc("/listings/vehicles/{id}", h.updateVehicle).Methods(http.MethodPut)
	api.HandleFunc("/listings/goods", h.postGoods).Methods(http.MethodPost)
	api.HandleFunc("/listings/goods/{id}", h.updateGoods).Methods(http.MethodPut)
	api.HandleFunc("/listings/{kind}/{id}", h.withdrawListing).Methods(http.MethodDelete)

	api.HandleFunc("/marketplace", h.marketplace).Methods(http.MethodGet)
	api.HandleFunc("/marketplace/{externalID}", h.marketplaceItem).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/{userID}", h.getDashboard).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Details: "no such route"})
	})
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := h.health.Ping(ctx); err != nil {
			h.logger.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// x/net/websocket hijacks by type assertion, so /ws gets the raw writer.
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

// decodeBody reads a JSON request body. Unknown fields are ignored.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return domainErr.Validation("body", "request body is required")
		}
		return domainErr.Validation("body", "malformed JSON: "+err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// rawAmount accepts a price either as a JSON number or as a display string
// such as "MWK 120,000"; parsing happens in the service.
type rawAmount string

func (a *rawAmount) UnmarshalJSON(b []byte) error {
	switch {
	case string(b) == "null":
		*a = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = rawAmount(s)
	default:
		*a = rawAmount(b)
	}
	return nil
}
