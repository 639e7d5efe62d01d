package httpServer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErr "github.com/Tanmoy095/loadboard/internal/domain/errors"
	"github.com/Tanmoy095/loadboard/internal/models"
	"github.com/Tanmoy095/loadboard/service"
	"github.com/Tanmoy095/loadboard/store/sqlstore"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st, err := sqlstore.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "loadboard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	projector := service.NewProjector(st, nil, logger)
	refresher := service.NewRefresher(st, projector, nil, logger)
	h := NewHandler(Deps{
		Shipments: service.NewShipmentService(service.ShipmentDeps{
			Tx: st, Shipments: st, Bids: st, ReadModel: st,
			Projector: projector, Refresher: refresher, Logger: logger,
		}),
		Listings:  service.NewListingService(st, st, projector, refresher, nil, logger),
		Dashboard: service.NewDashboardService(st, time.Second, logger),
		Projector: projector,
		Health:    st,
		Logger:    logger,
	})
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any, header map[string]string) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			b, err := json.Marshal(body)
			require.NoError(t, err)
			raw = string(b)
		}
		rd = bytes.NewBufferString(raw)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	require.NoError(t, err)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func TestLoadLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	status, body := do(t, srv, http.MethodPost, "/api/loads", map[string]any{
		"shipper_id": "shipper-1", "origin": "Lilongwe", "destination": "Blantyre",
		"cargo": "Maize Bags", "price": 120000,
	}, nil)
	require.Equal(t, http.StatusCreated, status, string(body))
	load := decode[models.Shipment](t, body)
	assert.Equal(t, models.StatusBiddingOpen, load.Status)

	status, body = do(t, srv, http.MethodGet, "/api/marketplace", nil, nil)
	require.Equal(t, http.StatusOK, status)
	feed := decode[[]map[string]any](t, body)
	require.Len(t, feed, 1)
	assert.Equal(t, "Maize Bags", feed[0]["title"])
	assert.Equal(t, "MWK 120,000", feed[0]["price_str"])
	assert.Equal(t, load.ID, feed[0]["load_id"])

	base := "/api/loads/" + load.ID
	status, body = do(t, srv, http.MethodPost, base+"/bids", map[string]any{"driver_id": "d1", "amount": "MWK 100,000"}, nil)
	require.Equal(t, http.StatusCreated, status, string(body))
	status, body = do(t, srv, http.MethodPost, base+"/bids", map[string]any{"driver_id": "d2", "amount": 90000}, nil)
	require.Equal(t, http.StatusCreated, status, string(body))
	bid := decode[models.Bid](t, body)

	status, body = do(t, srv, http.MethodGet, "/api/shippers/shipper-1/bids", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.ShipperBid](t, body), 2)

	status, body = do(t, srv, http.MethodPost, base+"/bids/"+bid.ID+"/accept", nil, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	load = decode[models.Shipment](t, body)
	assert.Equal(t, models.StatusWaitingCommitment, load.Status)
	require.NotNil(t, load.Price)
	assert.Equal(t, 90000.0, *load.Price)

	status, body = do(t, srv, http.MethodPost, base+"/commitment", map[string]string{"decision": "COMMIT"}, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	status, body = do(t, srv, http.MethodPost, base+"/deposit", nil, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	load = decode[models.Shipment](t, body)
	assert.Equal(t, models.DepositSecured, load.DepositStatus)

	status, _ = do(t, srv, http.MethodPost, base+"/status", map[string]string{"status": "delivered"}, nil)
	require.Equal(t, http.StatusOK, status)
	status, body = do(t, srv, http.MethodPost, base+"/rating", map[string]any{"rating": 5, "comment": "smooth"}, nil)
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = do(t, srv, http.MethodGet, base+"/bids", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Bid](t, body), 2)

	status, body = do(t, srv, http.MethodGet, "/api/shippers/shipper-1/shipments", nil, nil)
	require.Equal(t, http.StatusOK, status)
	shipments := decode[[]models.Shipment](t, body)
	require.Len(t, shipments, 1)
	assert.Equal(t, models.StatusDelivered, shipments[0].Status)
}

func TestErrorStatusCodes(t *testing.T) {
	srv := newTestServer(t)

	status, body := do(t, srv, http.MethodPost, "/api/loads", `{"shipper_id": `, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", decode[errorBody](t, body).Error)

	status, body = do(t, srv, http.MethodGet, "/api/loads/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", decode[errorBody](t, body).Error)

	status, body = do(t, srv, http.MethodPost, "/api/loads", map[string]any{
		"shipper_id": "s", "origin": "A", "destination": "B", "cargo": "C",
	}, nil)
	require.Equal(t, http.StatusCreated, status)
	load := decode[models.Shipment](t, body)

	status, body = do(t, srv, http.MethodPost, "/api/loads/"+load.ID+"/deposit", nil, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "conflict", decode[errorBody](t, body).Error)

	status, _ = do(t, srv, http.MethodPost, "/api/loads/"+load.ID+"/bids", map[string]any{"driver_id": "d", "amount": "lots"}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, srv, http.MethodGet, "/api/marketplace?limit=-1", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, srv, http.MethodGet, "/api/nowhere", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestBidAmountFromJSONNumberWithExponent(t *testing.T) {
	srv := newTestServer(t)

	status, body := do(t, srv, http.MethodPost, "/api/loads", map[string]any{
		"shipper_id": "s", "origin": "A", "destination": "B", "cargo": "C",
	}, nil)
	require.Equal(t, http.StatusCreated, status)
	load := decode[models.Shipment](t, body)
	path := "/api/loads/" + load.ID + "/bids"

	status, body = do(t, srv, http.MethodPost, path, `{"driver_id": "d1", "amount": 1e5}`, nil)
	require.Equal(t, http.StatusCreated, status, string(body))
	assert.Equal(t, 100000.0, decode[models.Bid](t, body).Amount)

	status, body = do(t, srv, http.MethodPost, path, `{"driver_id": "d2", "amount": "12abc34"}`, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", decode[errorBody](t, body).Error)
}

func TestListingWithdrawIsOwnerScoped(t *testing.T) {
	srv := newTestServer(t)

	status, body := do(t, srv, http.MethodPost, "/api/listings/vehicles",
		map[string]any{"title": "Tipper 10t", "capacity": 10, "price": 300000},
		map[string]string{userHeader: "owner-1"})
	require.Equal(t, http.StatusCreated, status, string(body))
	v := decode[models.VehicleListing](t, body)
	assert.Equal(t, "owner-1", v.OwnerID)

	status, body = do(t, srv, http.MethodPut, "/api/listings/vehicles/"+v.ID,
		map[string]any{"title": "Tipper 12t", "capacity": 12},
		map[string]string{userHeader: "owner-1"})
	require.Equal(t, http.StatusOK, status, string(body))

	status, _ = do(t, srv, http.MethodDelete, "/api/listings/vehicles/"+v.ID, nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = do(t, srv, http.MethodDelete, "/api/listings/vehicles/"+v.ID, nil, map[string]string{userHeader: "owner-2"})
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = do(t, srv, http.MethodDelete, "/api/listings/vehicles/"+v.ID, nil, map[string]string{userHeader: "owner-1"})
	assert.Equal(t, http.StatusNoContent, status)

	status, body = do(t, srv, http.MethodGet, "/api/marketplace", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[[]map[string]any](t, body))

	status, body = do(t, srv, http.MethodGet, "/api/marketplace/"+models.VehicleExternalID(v.ID), nil, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	item := decode[map[string]any](t, body)
	assert.Equal(t, string(models.ItemRemoved), item["status"])
	assert.Equal(t, "Tipper 12t", item["title"])

	status, _ = do(t, srv, http.MethodGet, "/api/marketplace/vehicle-missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = do(t, srv, http.MethodPost, "/api/listings/goods",
		map[string]any{"owner_id": "owner-3", "title": "Roofing sheets", "stock": 100, "price": "MWK 18,000"}, nil)
	require.Equal(t, http.StatusCreated, status, string(body))
	g := decode[models.GoodsListing](t, body)
	status, _ = do(t, srv, http.MethodPut, "/api/listings/goods/"+g.ID,
		map[string]any{"owner_id": "owner-4", "title": "stolen"}, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDashboardAndHealth(t *testing.T) {
	srv := newTestServer(t)

	status, body := do(t, srv, http.MethodPost, "/api/listings/vehicles",
		map[string]any{"owner_id": "fleet-1", "title": "Flatbed", "capacity": 30}, nil)
	require.Equal(t, http.StatusCreated, status, string(body))

	status, body = do(t, srv, http.MethodGet, "/api/dashboard/fleet-1", nil, nil)
	require.Equal(t, http.StatusOK, status)
	d := decode[models.Dashboard](t, body)
	assert.Equal(t, 30.0, d.FleetCapacity)
	assert.Empty(t, d.Degraded)

	status, body = do(t, srv, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestMapError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domainErr.Validation("price", "bad"), http.StatusBadRequest, "validation_error"},
		{domainErr.NotFound("shipment", "x"), http.StatusNotFound, "not_found"},
		{domainErr.Conflict("load %s is closed", "x"), http.StatusConflict, "conflict"},
		{&domainErr.TransactionError{Op: "acceptBid", Err: errors.New("deadlock")}, http.StatusServiceUnavailable, "transaction_failed"},
		{fmt.Errorf("wrapped: %w", domainErr.NotFound("bid", "y")), http.StatusNotFound, "not_found"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		status, body := mapError(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, body.Error)
	}
	_, body := mapError(errors.New("pq: password authentication failed"))
	assert.NotContains(t, body.Details, "password")
}
