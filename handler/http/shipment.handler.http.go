package httpServer

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Tanmoy095/loadboard/service"
)

type postLoadRequest struct {
	service.PostLoadInput
	Price rawAmount `json:"price"`
}

type placeBidRequest struct {
	DriverID string    `json:"driver_id"`
	Amount   rawAmount `json:"amount"`
}

type commitRequest struct {
	Decision string `json:"decision"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type ratingRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h *Handler) postLoad(w http.ResponseWriter, r *http.Request) {
	var req postLoadRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	in := req.PostLoadInput
	in.Price = string(req.Price)
	shipment, err := h.shipments.PostLoad(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, shipment)
}

func (h *Handler) getLoad(w http.ResponseWriter, r *http.Request) {
	shipment, err := h.shipments.GetLoad(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shipment)
}

func (h *Handler) bidsForLoad(w http.ResponseWriter, r *http.Request) {
	bids, err := h.shipments.BidsForLoad(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bids)
}

func (h *Handler) placeBid(w http.ResponseWriter, r *http.Request) {
	var req placeBidRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	bid, err := h.shipments.PlaceBid(r.Context(), req.DriverID, mux.Vars(r)["id"], string(req.Amount))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, bid)
}

func (h *Handler) acceptBid(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	shipment, err := h.shipments.AcceptBid(r.Context(), vars["id"], vars["bidID"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shipment)
}

func (h *Handler) commitToJob(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	shipment, err := h.shipments.CommitToJob(r.Context(), mux.Vars(r)["id"], req.Decision)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shipment)
}

func (h *Handler) payDeposit(w http.ResponseWriter, r *http.Request) {
	shipment, err := h.shipments.PayDeposit(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shipment)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	shipment, err := h.shipments.UpdateStatus(r.Context(), mux.Vars(r)["id"], req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shipment)
}

func (h *Handler) submitRating(w http.ResponseWriter, r *http.Request) {
	var req ratingRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	shipment, err := h.shipments.SubmitRating(r.Context(), mux.Vars(r)["id"], req.Rating, req.Comment)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shipment)
}

func (h *Handler) shipperShipments(w http.ResponseWriter, r *http.Request) {
	view, err := h.shipments.ShipperShipments(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) shipperBids(w http.ResponseWriter, r *http.Request) {
	view, err := h.shipments.ShipperBids(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
