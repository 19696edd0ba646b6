package httpx

import (
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/logger"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// API is everything the HTTP surface needs. CartFeed and Images are optional;
// their routes are not mounted when nil.
type API struct {
	Log           *logger.Logger
	AllowedOrigin string
	JWTSecret     []byte

	Products *catalog.Service
	Cart     *cart.Service
	CartFeed CartFeed
	Orders   *orders.Service
	Images   ImageStore
}

func (a API) Handler() *chi.Mux {
	log := a.Log
	if log == nil {
		log = logger.Nop()
	}
	auth := &Authenticator{Secret: a.JWTSecret, Log: log}

	products := &ProductsHandler{Service: a.Products, Log: log}
	carts := &CartHandler{Service: a.Cart, Log: log}
	ordersH := &OrdersHandler{Service: a.Orders, Log: log}

	r := NewRouter(log, a.AllowedOrigin)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(15 * time.Second))
		products.RegisterPublic(r)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware)
			carts.Register(r)
			ordersH.Register(r)

			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin(log))
				products.RegisterAdmin(r)
				if a.Images != nil {
					(&UploadsHandler{Store: a.Images, Log: log}).Register(r)
				}
			})
		})
	})

	// long-lived, so outside the request timeout
	if a.CartFeed != nil {
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware)
			(&CartLiveHandler{
				Service:       a.Cart,
				Feed:          a.CartFeed,
				Log:           log,
				AllowedOrigin: a.AllowedOrigin,
			}).Register(r)
		})
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: errorDetail{Code: "NOT_FOUND", Message: "route not found"}})
	})
	return r
}
