// Package handler exposes the order-desk domain services over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/xenking/order-desk/internal/auth"
	"github.com/xenking/order-desk/internal/domain/address"
	"github.com/xenking/order-desk/internal/domain/identity"
	"github.com/xenking/order-desk/internal/domain/order"
	"github.com/xenking/order-desk/internal/domain/product"
	"github.com/xenking/order-desk/internal/domain/user"
	"github.com/xenking/order-desk/pkg/httpmiddleware"
)

// Accounts is the signup and token surface.
type Accounts interface {
	Signup(ctx context.Context, in auth.SignupInput) (*user.User, error)
	Login(ctx context.Context, username, password string) (auth.Pair, error)
	Refresh(ctx context.Context, refresh string) (auth.Pair, error)
}

// Users manages the caller's own account.
type Users interface {
	Me(ctx context.Context, who identity.Identity) (*user.User, error)
	UpdateMe(ctx context.Context, who identity.Identity, p user.Patch) (*user.User, error)
	Deactivate(ctx context.Context, who identity.Identity) error
	ChangePassword(ctx context.Context, who identity.Identity, oldPassword, newPassword string) (bool, error)
	DeleteMe(ctx context.Context, who identity.Identity) error
}

// Products is the catalog surface.
type Products interface {
	List(ctx context.Context) ([]product.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*product.Product, error)
	Create(ctx context.Context, who identity.Identity, in product.Input) (*product.Product, error)
	Update(ctx context.Context, who identity.Identity, id uuid.UUID, in product.Input) (*product.Product, error)
	Delete(ctx context.Context, who identity.Identity, id uuid.UUID) error
}

// Addresses is the delivery address surface.
type Addresses interface {
	List(ctx context.Context, who identity.Identity) ([]address.Address, error)
	Get(ctx context.Context, who identity.Identity, id uuid.UUID) (*address.Address, error)
	Create(ctx context.Context, who identity.Identity, in address.Input) (*address.Address, error)
	Update(ctx context.Context, who identity.Identity, id uuid.UUID, in address.Input) (*address.Address, error)
	Delete(ctx context.Context, who identity.Identity, id uuid.UUID) error
}

// Orders is the order engine surface.
type Orders interface {
	CreateOrder(ctx context.Context, who identity.Identity, in order.CreateInput) (*order.View, error)
	GetOrder(ctx context.Context, who identity.Identity, id uuid.UUID) (*order.View, error)
	ListOrders(ctx context.Context, who identity.Identity) ([]order.View, error)
	GetForAudit(ctx context.Context, who identity.Identity, id uuid.UUID) (*order.StaffView, error)
	ListForAudit(ctx context.Context, who identity.Identity) ([]order.StaffView, error)
	UpdateOrder(ctx context.Context, who identity.Identity, id uuid.UUID, c order.Change) (*order.StaffView, error)
	ConfirmOrder(ctx context.Context, who identity.Identity, id uuid.UUID) (*order.View, error)
	DeleteOrder(ctx context.Context, who identity.Identity, id uuid.UUID) error
	AddItem(ctx context.Context, who identity.Identity, in order.ItemInput) (*order.View, error)
	UpdateItem(ctx context.Context, who identity.Identity, in order.ItemInput) (*order.View, error)
	RemoveItem(ctx context.Context, who identity.Identity, orderID, productID uuid.UUID) error
	RemoveItemAsStaff(ctx context.Context, who identity.Identity, orderID, productID uuid.UUID) error
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
}

// Services groups the domain dependencies of the Handler.
type Services struct {
	Resolver  identity.Resolver
	Accounts  Accounts
	Users     Users
	Products  Products
	Addresses Addresses
	Orders    Orders
}

// Handler serves the /api routes.
type Handler struct {
	Services

	validate     *validator.Validate
	imageBaseURL string
}

// New constructs a Handler.
func New(cfg Config, svc Services) *Handler {
	return &Handler{
		Services:     svc,
		validate:     newValidator(),
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Router returns the API router. The caller identity is resolved before mws
// run, so rate limiting can key on it.
func (h *Handler) Router(mws ...httpmiddleware.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(h.identify)
	for _, mw := range mws {
		r.Use(mw)
	}
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", h.signup)
			r.Post("/login", h.login)
			r.Post("/refresh", h.refresh)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.listProducts)
			r.Get("/{uuid}", h.getProduct)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", h.createProduct)
				r.Put("/{uuid}", h.updateProduct)
				r.Delete("/{uuid}", h.deleteProduct)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Route("/users/me", func(r chi.Router) {
				r.Get("/", h.me)
				r.Put("/", h.updateMe)
				r.Patch("/", h.deactivateMe)
				r.Delete("/", h.deleteMe)
				r.Post("/change-password", h.changePassword)
			})

			r.Route("/delivery-addresses", func(r chi.Router) {
				r.Get("/", h.listAddresses)
				r.Post("/", h.createAddress)
				r.Get("/{uuid}", h.getAddress)
				r.Put("/{uuid}", h.updateAddress)
				r.Delete("/{uuid}", h.deleteAddress)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", h.listOrders)
				r.Post("/", h.createOrder)
				r.Get("/admin", h.listOrdersForAudit)
				r.Get("/admin/{uuid}", h.getOrderForAudit)
				r.Put("/confirm/{uuid}", h.confirmOrder)
				r.Get("/{uuid}", h.getOrder)
				r.Put("/{uuid}", h.updateOrder)
				r.Delete("/{uuid}", h.deleteOrder)
			})

			r.Route("/order-items", func(r chi.Router) {
				r.Get("/", h.listItems)
				r.Post("/", h.addItem)
				r.Put("/", h.updateItem)
				r.Get("/admin", h.listItemsForAudit)
				r.Get("/admin/{order_uuid}", h.getItemsForAudit)
				r.Delete("/admin/{order_uuid}/{product_uuid}", h.removeItemAsStaff)
				r.Get("/{order_uuid}", h.getItems)
				r.Delete("/{order_uuid}/{product_uuid}", h.removeItem)
			})
		})
	})
	return r
}
