package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/order-desk/internal/domain/address"
)

type addressRequest struct {
	Name        string `json:"address_name" validate:"required,max=100"`
	Description string `json:"address_description" validate:"required,max=255"`
	City        string `json:"city" validate:"required,max=100"`
	State       string `json:"state" validate:"required,len=2"`
	ZipCode     string `json:"zip_code" validate:"required"`
}

func (req addressRequest) input() address.Input {
	return address.Input{
		Name:        req.Name,
		Description: req.Description,
		City:        req.City,
		State:       req.State,
		ZipCode:     req.ZipCode,
	}
}

func (h *Handler) listAddresses(w http.ResponseWriter, r *http.Request) {
	addrs, err := h.Addresses.List(r.Context(), caller(r))
	if err != nil {
		mapError(w, r, err)
		return
	}
	var e jx.Encoder
	e.ArrStart()
	for i := range addrs {
		encodeAddress(&e, &addrs[i])
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) getAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "uuid")
	if !ok {
		return
	}
	a, err := h.Addresses.Get(r.Context(), caller(r), id)
	writeAddress(w, r, a, err)
}

func (h *Handler) createAddress(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if !h.decode(w, r, &req) {
		return
	}
	a, err := h.Addresses.Create(r.Context(), caller(r), req.input())
	writeAddress(w, r, a, err)
}

func (h *Handler) updateAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "uuid")
	if !ok {
		return
	}
	var req addressRequest
	if !h.decode(w, r, &req) {
		return
	}
	a, err := h.Addresses.Update(r.Context(), caller(r), id, req.input())
	writeAddress(w, r, a, err)
}

func (h *Handler) deleteAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "uuid")
	if !ok {
		return
	}
	if err := h.Addresses.Delete(r.Context(), caller(r), id); err != nil {
		mapError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeAddress(w http.ResponseWriter, r *http.Request, a *address.Address, err error) {
	if err != nil {
		mapError(w, r, err)
		return
	}
	var e jx.Encoder
	encodeAddress(&e, a)
	writeJSON(w, http.StatusOK, &e)
}
