package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-desk/internal/domain/product"
)

type productRequest struct {
	Name        string           `json:"name" validate:"required,max=255"`
	Description string           `json:"description" validate:"required"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Promotion   bool             `json:"promotion"`
	Image       string           `json:"image" validate:"max=255"`
}

func (req productRequest) input() product.Input {
	return product.Input{
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
		Promotion:   req.Promotion,
		Image:       req.Image,
	}
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Products.List(r.Context())
	if err != nil {
		mapError(w, r, err)
		return
	}
	var e jx.Encoder
	e.ArrStart()
	for i := range products {
		h.encodeProduct(&e, &products[i])
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "uuid")
	if !ok {
		return
	}
	p, err := h.Products.Get(r.Context(), id)
	h.writeProduct(w, r, p, err)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.Products.Create(r.Context(), caller(r), req.input())
	h.writeProduct(w, r, p, err)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "uuid")
	if !ok {
		return
	}
	var req productRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.Products.Update(r.Context(), caller(r), id, req.input())
	h.writeProduct(w, r, p, err)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "uuid")
	if !ok {
		return
	}
	if err := h.Products.Delete(r.Context(), caller(r), id); err != nil {
		mapError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeProduct(w http.ResponseWriter, r *http.Request, p *product.Product, err error) {
	if err != nil {
		mapError(w, r, err)
		return
	}
	var e jx.Encoder
	h.encodeProduct(&e, p)
	writeJSON(w, http.StatusOK, &e)
}
