package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/order-desk/internal/domain/order"
)

type createOrderRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required"`
	AddressUUID   string `json:"delivery_address_uuid" validate:"required,uuid"`
}

type updateOrderRequest struct {
	Status        *string `json:"status"`
	PaymentMethod *string `json:"payment_method"`
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	views, err := h.Orders.ListOrders(r.Context(), caller(r))
	if err != nil {
		mapError(w, r, err)
		return
	}
	var e jx.Encoder
	e.ArrStart()
	for i := range views {
		encodeOrder(&e, &views[i])
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "uuid")
	if !ok {
		return
	}
	v, err := h.Orders.GetOrder(r.Context(), caller(r), id)
	writeOrder(w, r, v, err)
}

func (h *Handler) listOrdersForAudit(w http.ResponseWriter, r *http.Request) {
	views, err := h.Orders.ListForAudit(r.Context(), caller(r))
	if err != nil {
		mapError(w, r, err)
		return
	}
	var e jx.Encoder
	e.ArrStart()
	for i := range views {
		encodeStaffOrder(&e, &views[i])
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) getOrderForAudit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "uuid")
	if !ok {
		return
	}
	v, err := h.Orders.GetForAudit(r.Context(), caller(r), id)
	writeStaffOrder(w, r, v, err)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !h.decode(w, r, &req) {
		return
	}
	v, err := h.Orders.CreateOrder(r.Context(), caller(r), order.CreateInput{
		PaymentMethod: order.PaymentMethod(req.PaymentMethod),
		AddressUUID:   uuid.MustParse(req.AddressUUID),
	})
	if err == nil {
		zctx.From(r.Context()).Info("Order created",
			zap.String("order_uuid", v.Order.UUID.String()),
			zap.Int64("order_number", v.Order.Number),
		)
	}
	writeOrder(w, r, v, err)
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "uuid")
	if !ok {
		return
	}
	var req updateOrderRequest
	if !h.decode(w, r, &req) {
		return
	}
	var c order.Change
	if req.Status != nil {
		s := order.Status(*req.Status)
		c.Status = &s
	}
	if req.PaymentMethod != nil {
		m := order.PaymentMethod(*req.PaymentMethod)
		c.PaymentMethod = &m
	}
	v, err := h.Orders.UpdateOrder(r.Context(), caller(r), id, c)
	writeStaffOrder(w, r, v, err)
}

func (h *Handler) confirmOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "uuid")
	if !ok {
		return
	}
	v, err := h.Orders.ConfirmOrder(r.Context(), caller(r), id)
	writeOrder(w, r, v, err)
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "uuid")
	if !ok {
		return
	}
	if err := h.Orders.DeleteOrder(r.Context(), caller(r), id); err != nil {
		mapError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeOrder(w http.ResponseWriter, r *http.Request, v *order.View, err error) {
	if err != nil {
		mapError(w, r, err)
		return
	}
	var e jx.Encoder
	encodeOrder(&e, v)
	writeJSON(w, http.StatusOK, &e)
}

func writeStaffOrder(w http.ResponseWriter, r *http.Request, v *order.StaffView, err error) {
	if err != nil {
		mapError(w, r, err)
		return
	}
	var e jx.Encoder
	encodeStaffOrder(&e, v)
	writeJSON(w, http.StatusOK, &e)
}
