package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"

	"github.com/xenking/order-desk/internal/domain/user"
	"github.com/xenking/order-desk/internal/domain/validation"
)

type updateMeRequest struct {
	Username  *string `json:"username" validate:"omitempty,min=1,max=150"`
	FirstName *string `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name" validate:"omitempty,max=150"`
	CPF       *string `json:"cpf" validate:"omitempty,len=11,numeric"`
	Email     *string `json:"email" validate:"omitempty,email"`
}

type deactivateRequest struct {
	IsActive bool `json:"is_active"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.Me(r.Context(), caller(r))
	writeUser(w, r, u, err)
}

func (h *Handler) updateMe(w http.ResponseWriter, r *http.Request) {
	var req updateMeRequest
	if !h.decode(w, r, &req) {
		return
	}
	u, err := h.Users.UpdateMe(r.Context(), caller(r), user.Patch{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		CPF:       req.CPF,
		Email:     req.Email,
	})
	writeUser(w, r, u, err)
}

func (h *Handler) deactivateMe(w http.ResponseWriter, r *http.Request) {
	var req deactivateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.IsActive {
		writeValidation(w, validation.Field("is_active", "only deactivation is supported"))
		return
	}
	if err := h.Users.Deactivate(r.Context(), caller(r)); err != nil {
		mapError(w, r, err)
		return
	}
	zctx.From(r.Context()).Info("User deactivated")

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("message")
	e.Str("user deactivated successfully")
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	ok, err := h.Users.ChangePassword(r.Context(), caller(r), req.OldPassword, req.NewPassword)
	if err != nil {
		mapError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("success")
	e.Bool(ok)
	e.FieldStart("message")
	if ok {
		e.Str("password changed successfully")
	} else {
		e.Str("current password incorrect")
	}
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) deleteMe(w http.ResponseWriter, r *http.Request) {
	if err := h.Users.DeleteMe(r.Context(), caller(r)); err != nil {
		mapError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeUser(w http.ResponseWriter, r *http.Request, u *user.User, err error) {
	if err != nil {
		mapError(w, r, err)
		return
	}
	var e jx.Encoder
	encodeProfile(&e, u.Profile())
	writeJSON(w, http.StatusOK, &e)
}
