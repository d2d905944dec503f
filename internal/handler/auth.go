package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/order-desk/internal/auth"
	"github.com/xenking/order-desk/internal/domain/identity"
	"github.com/xenking/order-desk/pkg/httpmiddleware"
)

type authErrKey struct{}

// identify resolves the bearer token, if any. Failures are recorded in the
// context and only reported by requireAuth, so public routes ignore them.
func (h *Handler) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			ctx = context.WithValue(ctx, authErrKey{}, identity.ErrUnauthenticated)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		who, err := h.Resolver.Resolve(ctx, strings.TrimSpace(token))
		if err != nil {
			ctx = context.WithValue(ctx, authErrKey{}, err)
		} else {
			ctx = identity.With(ctx, who)
			ctx = zctx.With(ctx, zap.Int64("user_id", who.UserID))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := identity.From(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}
		err, _ := r.Context().Value(authErrKey{}).(error)
		if err == nil {
			err = identity.ErrUnauthenticated
		}
		mapError(w, r, err)
	})
}

// RateLimitKey keys authenticated callers by user id and everyone else by
// client address.
func RateLimitKey(r *http.Request) string {
	if who, ok := identity.From(r.Context()); ok {
		return "user:" + strconv.FormatInt(who.UserID, 10)
	}
	return "ip:" + httpmiddleware.ClientIP(r)
}

// caller returns the identity set by identify. Routes using it are behind
// requireAuth.
func caller(r *http.Request) identity.Identity {
	who, _ := identity.From(r.Context())
	return who
}

type signupRequest struct {
	Username  string `json:"username" validate:"required,max=150"`
	FirstName string `json:"first_name" validate:"required,max=150"`
	LastName  string `json:"last_name" validate:"required,max=150"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	Email     string `json:"email" validate:"required,email"`
	CPF       string `json:"cpf" validate:"omitempty,len=11,numeric"`
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !h.decode(w, r, &req) {
		return
	}
	u, err := h.Accounts.Signup(r.Context(), auth.SignupInput{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		CPF:       req.CPF,
		Password:  req.Password,
	})
	if err != nil {
		mapError(w, r, err)
		return
	}
	zctx.From(r.Context()).Info("User signed up", zap.String("user_uuid", u.UUID.String()))

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("message")
	e.Str("user created successfully")
	e.FieldStart("uuid")
	e.Str(u.UUID.String())
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	pair, err := h.Accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrUnauthenticated) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		mapError(w, r, err)
		return
	}
	writePair(w, pair)
}

type refreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.decode(w, r, &req) {
		return
	}
	pair, err := h.Accounts.Refresh(r.Context(), req.Refresh)
	if err != nil {
		mapError(w, r, err)
		return
	}
	writePair(w, pair)
}

func writePair(w http.ResponseWriter, p auth.Pair) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("access")
	e.Str(p.Access)
	e.FieldStart("refresh")
	e.Str(p.Refresh)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}
