package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/xenking/order-desk/internal/domain/identity"
	"github.com/xenking/order-desk/internal/domain/order"
)

type itemRequest struct {
	OrderUUID   string `json:"order_uuid" validate:"required,uuid"`
	ProductUUID string `json:"product_uuid" validate:"required,uuid"`
	Quantity    int    `json:"quantity" validate:"required,max=2147483647"`
}

// input leaves quantity checks to the order engine, which reports them as
// field errors too.
func (req itemRequest) input() order.ItemInput {
	return order.ItemInput{
		OrderUUID:   uuid.MustParse(req.OrderUUID),
		ProductUUID: uuid.MustParse(req.ProductUUID),
		Quantity:    req.Quantity,
	}
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	views, err := h.Orders.ListOrders(r.Context(), caller(r))
	if err != nil {
		mapError(w, r, err)
		return
	}
	var e jx.Encoder
	e.ArrStart()
	for i := range views {
		h.encodeItems(&e, &views[i], nil)
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) getItems(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "order_uuid")
	if !ok {
		return
	}
	v, err := h.Orders.GetOrder(r.Context(), caller(r), id)
	h.writeItems(w, r, v, err)
}

func (h *Handler) listItemsForAudit(w http.ResponseWriter, r *http.Request) {
	views, err := h.Orders.ListForAudit(r.Context(), caller(r))
	if err != nil {
		mapError(w, r, err)
		return
	}
	var e jx.Encoder
	e.ArrStart()
	for i := range views {
		h.encodeItems(&e, &views[i].View, &views[i].Owner)
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) getItemsForAudit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "order_uuid")
	if !ok {
		return
	}
	v, err := h.Orders.GetForAudit(r.Context(), caller(r), id)
	if err != nil {
		mapError(w, r, err)
		return
	}
	var e jx.Encoder
	h.encodeItems(&e, &v.View, &v.Owner)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !h.decode(w, r, &req) {
		return
	}
	v, err := h.Orders.AddItem(r.Context(), caller(r), req.input())
	h.writeItems(w, r, v, err)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !h.decode(w, r, &req) {
		return
	}
	v, err := h.Orders.UpdateItem(r.Context(), caller(r), req.input())
	h.writeItems(w, r, v, err)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, h.Orders.RemoveItem)
}

func (h *Handler) removeItemAsStaff(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, h.Orders.RemoveItemAsStaff)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, who identity.Identity, orderID, productID uuid.UUID) error) {
	orderID, ok := pathUUID(w, r, "order_uuid")
	if !ok {
		return
	}
	productID, ok := pathUUID(w, r, "product_uuid")
	if !ok {
		return
	}
	if err := fn(r.Context(), caller(r), orderID, productID); err != nil {
		mapError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeItems(w http.ResponseWriter, r *http.Request, v *order.View, err error) {
	if err != nil {
		mapError(w, r, err)
		return
	}
	var e jx.Encoder
	h.encodeItems(&e, v, nil)
	writeJSON(w, http.StatusOK, &e)
}
