package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/cafe-storefront/internal/cafeapi"
	"github.com/vasiliy-maslov/cafe-storefront/internal/cart"
	"github.com/vasiliy-maslov/cafe-storefront/internal/catalog"
	"github.com/vasiliy-maslov/cafe-storefront/internal/order"
	"github.com/vasiliy-maslov/cafe-storefront/internal/preference"
	"github.com/vasiliy-maslov/cafe-storefront/internal/session"
	"github.com/vasiliy-maslov/cafe-storefront/internal/storefront"
)

type AddItemRequest struct {
	ProductID int64         `json:"product_id" validate:"required,gt=0"`
	Quantity  int           `json:"quantity" validate:"required,min=1,max=99"`
	Options   *cart.Options `json:"options,omitempty"`
}

type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=99"`
}

type SelectorRequest struct {
	Milk cart.MilkType `json:"milk_type" validate:"omitempty,oneof=whole skim oat almond soy"`
	Ice  cart.IceLevel `json:"ice_level" validate:"omitempty,oneof=no-ice light-ice regular-ice extra-ice"`
}

type CheckoutRequest struct {
	Name          string              `json:"customer_name"`
	Phone         string              `json:"customer_phone"`
	Email         string              `json:"customer_email" validate:"omitempty,email"`
	Address       string              `json:"customer_address"`
	PaymentMethod order.PaymentMethod `json:"payment_method" validate:"omitempty,oneof=cash card alipay wechat"`
}

type VerifyRequest struct {
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone" validate:"required_without=Email"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Name        string `json:"name" validate:"required,min=2"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
}

type PreferencesRequest struct {
	Milk    cart.MilkType       `json:"milk_type" validate:"omitempty,oneof=whole skim oat almond soy"`
	Ice     cart.IceLevel       `json:"ice_level" validate:"omitempty,oneof=no-ice light-ice regular-ice extra-ice"`
	Payment order.PaymentMethod `json:"payment_method" validate:"omitempty,oneof=cash card alipay wechat"`
}

type CatalogResponse struct {
	Products   []catalog.Product              `json:"products"`
	Categories []catalog.Category             `json:"categories"`
	Selectors  map[int64]preference.Selection `json:"selectors"`
}

type CheckoutResponse struct {
	Result   order.Result            `json:"result"`
	Checkout storefront.CheckoutView `json:"checkout"`
	Cart     storefront.CartView     `json:"cart"`
}

type SessionResponse struct {
	User     *session.User `json:"user"`
	IsMember bool          `json:"is_member"`
}

type PreferencesResponse struct {
	Preferences preference.Set     `json:"preferences"`
	Favorites   []cafeapi.Favorite `json:"favorites"`
}

type ApplyResponse struct {
	Applied   int                            `json:"applied"`
	Selectors map[int64]preference.Selection `json:"selectors"`
}

type ctxKey struct{}

// StorefrontHandler serves the shopper-facing JSON API. Each request is bound
// to the shopper's controller through a session cookie.
type StorefrontHandler struct {
	registry   *storefront.Registry
	cookieName string
	secure     bool
	validate   *validator.Validate
}

func NewStorefrontHandler(registry *storefront.Registry, cookieName string, secure bool) *StorefrontHandler {
	return &StorefrontHandler{
		registry:   registry,
		cookieName: cookieName,
		secure:     secure,
		validate:   validator.New(),
	}
}

func (h *StorefrontHandler) RegisterRoutes(router chi.Router) {
	router.Route("/api", func(r chi.Router) {
		r.Use(h.withShopper)

		r.Get("/catalog", h.handleGetCatalog)
		r.Put("/selectors/{productID}", h.handleSelectOptions)

		r.Get("/cart", h.handleGetCart)
		r.Post("/cart/items", h.handleAddItem)
		r.Patch("/cart/items/{index}", h.handleUpdateItem)
		r.Delete("/cart/items/{index}", h.handleRemoveItem)
		r.Delete("/cart", h.handleClearCart)

		r.Get("/checkout", h.handleGetCheckout)
		r.Post("/checkout", h.handleCheckout)
		r.Post("/checkout/verify", h.handleVerify)
		r.Post("/checkout/regular", h.handleContinueRegular)

		r.Get("/session", h.handleGetSession)
		r.Post("/session/login", h.handleLogin)
		r.Post("/session/logout", h.handleLogout)
		r.Post("/session/register", h.handleRegister)

		r.Get("/preferences", h.handleGetPreferences)
		r.Post("/preferences", h.handleSavePreferences)
		r.Post("/preferences/apply", h.handleApplyPreferences)

		r.Get("/orders", h.handleListOrders)
		r.Get("/orders/{id}", h.handleGetOrder)
		r.Post("/orders/{id}/reorder", h.handleReorder)

		r.Post("/events", h.handleEvent)
	})
}

// withShopper resolves the session cookie to a controller, creating a fresh
// session when the cookie is missing, malformed or expired.
func (h *StorefrontHandler) withShopper(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(h.cookieName); err == nil {
			if id, err := uuid.FromString(cookie.Value); err == nil {
				if c, ok := h.registry.Get(id); ok {
					next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, c)))
					return
				}
			}
		}

		id, c, err := h.registry.Create()
		if err != nil {
			log.Error().Err(err).Msg("Failed to create shopper session")
			respondWithError(w, http.StatusInternalServerError, "Failed to create session")
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     h.cookieName,
			Value:    id.String(),
			Path:     "/",
			HttpOnly: true,
			Secure:   h.secure,
			SameSite: http.SameSiteLaxMode,
		})
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, c)))
	})
}

func shopper(r *http.Request) *storefront.Controller {
	return r.Context().Value(ctxKey{}).(*storefront.Controller)
}

func fail(w http.ResponseWriter, err error, msg, notice string) {
	statusCode := mapErrorToStatusCode(err)
	if statusCode >= http.StatusInternalServerError {
		log.Error().Err(err).Msg(msg)
	} else {
		log.Warn().Err(err).Msg(msg)
	}
	respondWithError(w, statusCode, clientMessage(err, notice))
}

func (h *StorefrontHandler) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	c := shopper(r)

	var err error
	if r.URL.Query().Get("refresh") == "1" {
		err = c.RefreshCatalog(r.Context())
	} else {
		err = c.EnsureCatalog(r.Context())
	}
	if err != nil {
		fail(w, err, "Failed to load catalog", "")
		return
	}

	view := c.View()
	respondWithJSON(w, http.StatusOK, CatalogResponse{Products: view.Products, Categories: view.Categories, Selectors: view.Selectors})
}

func (h *StorefrontHandler) handleSelectOptions(w http.ResponseWriter, r *http.Request) {
	c := shopper(r)
	productID, ok := int64Param(w, r, "productID")
	if !ok {
		return
	}

	var req SelectorRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if err := c.EnsureCatalog(r.Context()); err != nil {
		fail(w, err, "Failed to load catalog", "")
		return
	}
	if err := c.SelectOptions(productID, preference.Selection{Milk: req.Milk, Ice: req.Ice}); err != nil {
		fail(w, err, "Failed to update option selector", "")
		return
	}

	respondWithJSON(w, http.StatusOK, c.View().Selectors)
}

func (h *StorefrontHandler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, shopper(r).View().Cart)
}

func (h *StorefrontHandler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	c := shopper(r)

	var req AddItemRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if err := c.EnsureCatalog(r.Context()); err != nil {
		fail(w, err, "Failed to load catalog", "")
		return
	}
	if _, err := c.AddToCart(req.ProductID, req.Quantity, req.Options); err != nil {
		fail(w, err, "Failed to add item to cart", "")
		return
	}

	respondWithJSON(w, http.StatusCreated, c.View().Cart)
}

func (h *StorefrontHandler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	c := shopper(r)
	index, ok := indexParam(w, r)
	if !ok {
		return
	}

	var req UpdateItemRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if err := c.SetLineQuantity(index, req.Quantity); err != nil {
		fail(w, err, "Failed to update cart line", "")
		return
	}

	respondWithJSON(w, http.StatusOK, c.View().Cart)
}

func (h *StorefrontHandler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	c := shopper(r)
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	if err := c.RemoveLine(index); err != nil {
		fail(w, err, "Failed to remove cart line", "")
		return
	}

	respondWithJSON(w, http.StatusOK, c.View().Cart)
}

func (h *StorefrontHandler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	c := shopper(r)
	c.ClearCart()
	respondWithJSON(w, http.StatusOK, c.View().Cart)
}

func (h *StorefrontHandler) handleGetCheckout(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, shopper(r).View().Checkout)
}

func (h *StorefrontHandler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	form := order.Form{
		Name:          req.Name,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		PaymentMethod: req.PaymentMethod,
	}
	h.respondWithAttempt(w, r, func(ctx context.Context, c *storefront.Controller) (order.Result, error) {
		return c.SubmitOrder(ctx, form)
	})
}

func (h *StorefrontHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	h.respondWithAttempt(w, r, func(ctx context.Context, c *storefront.Controller) (order.Result, error) {
		return c.VerifyMember(ctx, req.Email, req.Phone)
	})
}

func (h *StorefrontHandler) handleContinueRegular(w http.ResponseWriter, r *http.Request) {
	h.respondWithAttempt(w, r, func(ctx context.Context, c *storefront.Controller) (order.Result, error) {
		return c.ContinueAsRegular(ctx)
	})
}

// respondWithAttempt runs one checkout step. A pending member verification is
// reported as 202 so the page can open its verification dialog.
func (h *StorefrontHandler) respondWithAttempt(w http.ResponseWriter, r *http.Request, attempt func(context.Context, *storefront.Controller) (order.Result, error)) {
	c := shopper(r)

	res, err := attempt(r.Context(), c)
	if err != nil {
		fail(w, err, "Checkout step failed", res.Notice)
		return
	}

	view := c.View()
	statusCode := http.StatusOK
	switch res.State {
	case order.StateSucceeded:
		statusCode = http.StatusCreated
	case order.StateAwaitingVerification:
		statusCode = http.StatusAccepted
	}
	respondWithJSON(w, statusCode, CheckoutResponse{Result: res, Checkout: view.Checkout, Cart: view.Cart})
}

func (h *StorefrontHandler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view := shopper(r).View()
	resp := SessionResponse{User: view.User}
	if view.User != nil {
		resp.IsMember = view.User.IsMember()
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *StorefrontHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	c := shopper(r)

	var req LoginRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	u, err := c.Login(r.Context(), session.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		fail(w, err, "Failed to log in", "")
		return
	}

	respondWithJSON(w, http.StatusOK, SessionResponse{User: &u, IsMember: u.IsMember()})
}

func (h *StorefrontHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	shopper(r).Logout()
	w.WriteHeader(http.StatusNoContent)
}

func (h *StorefrontHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	c := shopper(r)

	var req RegisterRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	err := c.Register(r.Context(), session.Registration{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		Phone:       req.Phone,
		Address:     req.Address,
		DateOfBirth: req.DateOfBirth,
	})
	if err != nil {
		fail(w, err, "Failed to register", "")
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]string{"message": c.View().Notice})
}

func (h *StorefrontHandler) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	c := shopper(r)

	set, favorites, err := c.LoadPreferences(r.Context())
	if err != nil {
		fail(w, err, "Failed to load preferences", "")
		return
	}
	if favorites == nil {
		favorites = []cafeapi.Favorite{}
	}

	respondWithJSON(w, http.StatusOK, PreferencesResponse{Preferences: set, Favorites: favorites})
}

func (h *StorefrontHandler) handleSavePreferences(w http.ResponseWriter, r *http.Request) {
	c := shopper(r)

	var req PreferencesRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	err := c.SavePreferences(r.Context(), preference.Set{Milk: req.Milk, Ice: req.Ice, Payment: req.Payment})
	if err != nil {
		fail(w, err, "Failed to save preferences", "")
		return
	}

	view := c.View()
	resp := PreferencesResponse{Favorites: view.Favorites}
	if view.Preferences != nil {
		resp.Preferences = *view.Preferences
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *StorefrontHandler) handleApplyPreferences(w http.ResponseWriter, r *http.Request) {
	c := shopper(r)

	var req SelectorRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	applied, err := c.ApplyPreferences(req.Milk, req.Ice)
	if err != nil {
		fail(w, err, "Failed to apply preferences", "")
		return
	}

	respondWithJSON(w, http.StatusOK, ApplyResponse{Applied: applied, Selectors: c.View().Selectors})
}

func (h *StorefrontHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	c := shopper(r)

	orders, err := c.OrderHistory(r.Context())
	if err != nil {
		fail(w, err, "Failed to list orders", "")
		return
	}

	respondWithJSON(w, http.StatusOK, orders)
}

func (h *StorefrontHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	c := shopper(r)
	orderID, ok := int64Param(w, r, "id")
	if !ok {
		return
	}

	details, err := c.OrderDetails(r.Context(), orderID)
	if err != nil {
		fail(w, err, "Failed to get order details", "")
		return
	}

	respondWithJSON(w, http.StatusOK, details)
}

func (h *StorefrontHandler) handleReorder(w http.ResponseWriter, r *http.Request) {
	c := shopper(r)
	orderID, ok := int64Param(w, r, "id")
	if !ok {
		return
	}

	if err := c.EnsureCatalog(r.Context()); err != nil {
		fail(w, err, "Failed to load catalog", "")
		return
	}
	if _, err := c.Reorder(r.Context(), orderID); err != nil {
		fail(w, err, "Failed to reorder", "")
		return
	}

	respondWithJSON(w, http.StatusOK, c.View().Cart)
}

func (h *StorefrontHandler) handleEvent(w http.ResponseWriter, r *http.Request) {
	c := shopper(r)

	var ev storefront.Event
	if !decodeJSON(w, r, &ev) {
		return
	}
	if ev.Kind.NeedsCatalog() {
		if err := c.EnsureCatalog(r.Context()); err != nil {
			fail(w, err, "Failed to load catalog", "")
			return
		}
	}
	view, err := c.Dispatch(r.Context(), ev)
	if err != nil {
		if errors.Is(err, storefront.ErrUnknownEvent) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		fail(w, err, "Failed to handle storefront event", "")
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

func int64Param(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		log.Warn().Str(name, raw).Msg("Failed to parse id parameter from URL")
		respondWithError(w, http.StatusBadRequest, "Invalid "+name+" parameter")
		return 0, false
	}
	return id, true
}

func indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		log.Warn().Str("index", raw).Msg("Failed to parse cart line index from URL")
		respondWithError(w, http.StatusBadRequest, "Invalid index parameter")
		return 0, false
	}
	return index, true
}
