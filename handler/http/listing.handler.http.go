package httpServer

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	domainErr "github.com/Tanmoy095/loadboard/internal/domain/errors"
	"github.com/Tanmoy095/loadboard/internal/models"
	"github.com/Tanmoy095/loadboard/service"
)

// userHeader carries the caller's id for owner-scoped writes.
const userHeader = "X-User-ID"

type vehicleRequest struct {
	service.VehicleInput
	Price rawAmount `json:"price"`
}

type goodsRequest struct {
	service.GoodsInput
	Price rawAmount `json:"price"`
}

func (h *Handler) decodeVehicle(r *http.Request) (service.VehicleInput, error) {
	var req vehicleRequest
	if err := decodeBody(r, &req); err != nil {
		return service.VehicleInput{}, err
	}
	in := req.VehicleInput
	in.Price = string(req.Price)
	if in.OwnerID == "" {
		in.OwnerID = r.Header.Get(userHeader)
	}
	return in, nil
}

func (h *Handler) decodeGoods(r *http.Request) (service.GoodsInput, error) {
	var req goodsRequest
	if err := decodeBody(r, &req); err != nil {
		return service.GoodsInput{}, err
	}
	in := req.GoodsInput
	in.Price = string(req.Price)
	if in.OwnerID == "" {
		in.OwnerID = r.Header.Get(userHeader)
	}
	return in, nil
}

func (h *Handler) postVehicle(w http.ResponseWriter, r *http.Request) {
	in, err := h.decodeVehicle(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	listing, err := h.listings.PostVehicle(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, listing)
}

func (h *Handler) updateVehicle(w http.ResponseWriter, r *http.Request) {
	in, err := h.decodeVehicle(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	listing, err := h.listings.UpdateVehicle(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (h *Handler) postGoods(w http.ResponseWriter, r *http.Request) {
	in, err := h.decodeGoods(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	listing, err := h.listings.PostGoods(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, listing)
}

func (h *Handler) updateGoods(w http.ResponseWriter, r *http.Request) {
	in, err := h.decodeGoods(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	listing, err := h.listings.UpdateGoods(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (h *Handler) withdrawListing(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	err := h.listings.Withdraw(r.Context(), models.ListingKind(vars["kind"]), vars["id"], r.Header.Get(userHeader))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// marketplace serves the flattened active feed, newest first.
func (h *Handler) marketplace(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, r, domainErr.Validation("limit", "must be a non-negative integer"))
			return
		}
		limit = n
	}
	items, err := h.projector.GetActiveItems(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		out = append(out, it.Flatten())
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) marketplaceItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.projector.GetItem(r.Context(), mux.Vars(r)["externalID"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item.Flatten())
}

func (h *Handler) getDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.dashboard.Dashboard(r.Context(), mux.Vars(r)["userID"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
