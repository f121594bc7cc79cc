package storefront

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/cafe-storefront/internal/cafeapi"
	"github.com/vasiliy-maslov/cafe-storefront/internal/cart"
	"github.com/vasiliy-maslov/cafe-storefront/internal/catalog"
	"github.com/vasiliy-maslov/cafe-storefront/internal/order"
	"github.com/vasiliy-maslov/cafe-storefront/internal/preference"
	"github.com/vasiliy-maslov/cafe-storefront/internal/session"
	"golang.org/x/sync/errgroup"
)

var ErrNothingToReorder = errors.New("none of the order's products are on the menu")

// Gateway is everything a storefront needs from the café API.
type Gateway interface {
	ListProducts(ctx context.Context) ([]catalog.Product, error)
	ListCategories(ctx context.Context) ([]catalog.Category, error)
	order.Gateway
	order.HistoryGateway
	session.Gateway
	preference.Gateway
}

// Controller owns one shopper's storefront state. Cart, form and selector
// mutations happen under mu; mu is never held across a call to the café API,
// so the shopper can keep editing while a request is outstanding.
type Controller struct {
	gateway  Gateway
	session  *session.Session
	flow     *order.Flow
	history  *order.History
	prefSync *preference.Sync
	handlers map[EventKind]eventHandler

	mu        sync.Mutex
	catalog   *catalog.Store
	cart      *cart.Cart
	selectors *preference.Selectors
	form      order.Form
	prefs     preference.Set
	favorites []cafeapi.Favorite
	notice    string
}

func NewController(gateway Gateway) *Controller {
	store := catalog.NewStore()
	c := &Controller{
		gateway:   gateway,
		session:   session.New(gateway),
		flow:      order.NewFlow(gateway),
		history:   order.NewHistory(gateway),
		prefSync:  preference.NewSync(gateway),
		catalog:   store,
		cart:      cart.New(store),
		selectors: preference.NewSelectors(nil),
	}
	c.handlers = c.eventTable()
	return c
}

// RefreshCatalog reloads products and categories together. Only the product
// list is required; when categories fail the previous ones are kept.
func (c *Controller) RefreshCatalog(ctx context.Context) error {
	var (
		products      []catalog.Product
		categories    []catalog.Category
		categoriesErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = c.gateway.ListProducts(gctx)
		return err
	})
	g.Go(func() error {
		categories, categoriesErr = c.gateway.ListCategories(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		c.setNotice(cafeapi.Reason(err))
		return fmt.Errorf("storefront: refresh catalog: %w", err)
	}

	c.mu.Lock()
	c.catalog.Replace(products)
	if categoriesErr != nil {
		log.Warn().Err(categoriesErr).Msg("storefront: categories unavailable, keeping previous list")
	} else {
		c.catalog.ReplaceCategories(categories)
	}
	c.selectors.Render(products)
	prefs := c.prefs
	c.mu.Unlock()

	if _, signedIn := c.session.Current(); signedIn {
		c.applyCoffeePreferences(prefs)
	}
	return nil
}

// EnsureCatalog fetches the catalog if this shopper has not loaded it yet.
func (c *Controller) EnsureCatalog(ctx context.Context) error {
	c.mu.Lock()
	loaded := c.catalog.Len() > 0
	c.mu.Unlock()
	if loaded {
		return nil
	}
	return c.RefreshCatalog(ctx)
}

// AddToCart adds a product. Coffee lines without explicit options take the
// product's current picker selection.
func (c *Controller) AddToCart(productID int64, quantity int, opts *cart.Options) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if opts == nil {
		if sel, ok := c.selectors.Get(productID); ok {
			opts = sel.Options()
		}
	}
	idx, err := c.cart.Add(productID, quantity, opts)
	if err != nil {
		return -1, err
	}
	c.notice = ""
	return idx, nil
}

func (c *Controller) RemoveLine(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cart.Remove(index)
}

func (c *Controller) SetLineQuantity(index, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cart.SetQuantity(index, quantity)
}

func (c *Controller) ClearCart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cart.Clear()
}

func (c *Controller) SelectOptions(productID int64, sel preference.Selection) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectors.Set(productID, sel)
}

// SubmitOrder checks out the current cart. Blank form fields are filled from
// the signed-in user and the member's saved payment method.
func (c *Controller) SubmitOrder(ctx context.Context, form order.Form) (order.Result, error) {
	c.mu.Lock()
	form = c.completeForm(form)
	c.form = form
	items := c.cart.Items()
	c.mu.Unlock()

	res, err := c.flow.Submit(ctx, form, items)
	c.afterAttempt(res)
	return res, err
}

func (c *Controller) VerifyMember(ctx context.Context, email, phone string) (order.Result, error) {
	res, err := c.flow.Verify(ctx, email, phone)
	if res.Member != nil {
		c.mu.Lock()
		form := c.form
		c.mu.Unlock()
		c.session.SetVerified(res.Member, order.Form{Name: form.Name, Email: email, Phone: phone, Address: form.Address})
		c.onSignedIn(ctx)
	}
	c.afterAttempt(res)
	return res, err
}

func (c *Controller) ContinueAsRegular(ctx context.Context) (order.Result, error) {
	res, err := c.flow.ContinueAsRegular(ctx)
	c.afterAttempt(res)
	return res, err
}

func (c *Controller) Login(ctx context.Context, creds session.Credentials) (session.User, error) {
	u, err := c.session.Login(ctx, creds)
	if err != nil {
		c.setNotice(reason(err))
		return session.User{}, err
	}
	c.onSignedIn(ctx)
	c.mu.Lock()
	c.form = c.completeForm(order.Form{})
	c.mu.Unlock()
	return u, nil
}

func (c *Controller) Register(ctx context.Context, reg session.Registration) error {
	if err := c.session.Register(ctx, reg); err != nil {
		c.setNotice(reason(err))
		return err
	}
	c.setNotice("Registration successful, please log in")
	return nil
}

// Logout clears the session, the checkout form and member-only state.
func (c *Controller) Logout() {
	c.session.Logout()
	if err := c.flow.Reset(); err != nil {
		log.Warn().Err(err).Msg("storefront: logout while an order is in flight")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.form = order.Form{}
	c.prefs = preference.Set{}
	c.favorites = nil
	c.notice = ""
}

func (c *Controller) LoadPreferences(ctx context.Context) (preference.Set, []cafeapi.Favorite, error) {
	u, err := c.session.Member()
	if err != nil {
		return preference.Set{}, nil, err
	}
	fetched, err := c.prefSync.Fetch(ctx, u.CustomerID)
	if err != nil {
		c.setNotice(cafeapi.Reason(err))
		return preference.Set{}, nil, err
	}

	set := preference.FromPreferences(fetched.Preferences)
	c.mu.Lock()
	c.prefs = set
	c.favorites = fetched.Favorites
	c.mu.Unlock()
	return set, fetched.Favorites, nil
}

func (c *Controller) SavePreferences(ctx context.Context, set preference.Set) error {
	u, err := c.session.Member()
	if err != nil {
		return err
	}
	if err := c.prefSync.Save(ctx, u.CustomerID, set); err != nil {
		c.setNotice("Some preferences could not be saved")
		return err
	}

	c.mu.Lock()
	if set.Milk != "" {
		c.prefs.Milk = set.Milk
	}
	if set.Ice != "" {
		c.prefs.Ice = set.Ice
	}
	if set.Payment != "" {
		c.prefs.Payment = set.Payment
	}
	c.notice = "Preferences saved"
	c.mu.Unlock()
	return nil
}

// ApplyPreferences points every coffee picker at the given milk/ice values,
// falling back to the member's loaded preferences when both are empty.
func (c *Controller) ApplyPreferences(milk cart.MilkType, ice cart.IceLevel) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if milk == "" && ice == "" {
		milk, ice = c.prefs.Milk, c.prefs.Ice
	}
	n, err := preference.ApplyToCatalog(c.selectors, milk, ice)
	if errors.Is(err, preference.ErrNothingToApply) {
		c.notice = "No saved coffee preferences to apply"
	}
	return n, err
}

func (c *Controller) OrderHistory(ctx context.Context) ([]order.Summary, error) {
	u, err := c.session.Member()
	if err != nil {
		return nil, err
	}
	return c.history.List(ctx, u.CustomerID)
}

// OrderDetails returns one of the member's own orders with its lines.
func (c *Controller) OrderDetails(ctx context.Context, orderID int64) (order.Summary, error) {
	u, err := c.session.Member()
	if err != nil {
		return order.Summary{}, err
	}
	return c.history.DetailsFor(ctx, u.CustomerID, orderID)
}

// Reorder replaces the cart with the lines of one of the member's past orders
// and returns the number of cart lines. Lines come back without options at
// today's catalog price; products no longer on the menu are skipped. When
// nothing can be added the current cart is left alone.
func (c *Controller) Reorder(ctx context.Context, orderID int64) (int, error) {
	u, err := c.session.Member()
	if err != nil {
		return 0, err
	}
	details, err := c.history.DetailsFor(ctx, u.CustomerID, orderID)
	if err != nil {
		c.setNotice(reason(err))
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	next := cart.New(c.catalog)
	skipped := 0
	for _, line := range details.Lines {
		quantity := min(line.Quantity, cart.MaxQuantity)
		if _, err := next.Add(line.ProductID, quantity, nil); err != nil {
			log.Warn().Err(err).Int64("order_id", orderID).Int64("product_id", line.ProductID).Msg("storefront: reorder line skipped")
			skipped++
		}
	}
	if next.IsEmpty() {
		c.notice = fmt.Sprintf("Nothing from order #%d is on the menu right now", orderID)
		return 0, fmt.Errorf("%w: order %d", ErrNothingToReorder, orderID)
	}

	c.cart = next
	c.notice = fmt.Sprintf("Order #%d added to your cart", orderID)
	if skipped > 0 {
		c.notice += fmt.Sprintf(", %d item(s) no longer available", skipped)
	}
	log.Info().Int64("order_id", orderID).Int("lines", next.Len()).Int("skipped", skipped).Msg("storefront: reordered from history")
	return next.Len(), nil
}

func (c *Controller) onSignedIn(ctx context.Context) {
	set, _, err := c.LoadPreferences(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("storefront: could not load member preferences")
		return
	}
	c.applyCoffeePreferences(set)
}

func (c *Controller) applyCoffeePreferences(set preference.Set) {
	if set.Milk == "" && set.Ice == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := preference.ApplyToCatalog(c.selectors, set.Milk, set.Ice); err != nil {
		log.Warn().Err(err).Msg("storefront: stored coffee preferences not applied")
	}
}

func (c *Controller) afterAttempt(res order.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notice = res.Notice
	if res.State != order.StateSucceeded {
		return
	}
	c.cart.Clear()
	c.form = c.completeForm(order.Form{})
}

// completeForm must be called with c.mu held.
func (c *Controller) completeForm(form order.Form) order.Form {
	prefill := c.session.Prefill()
	if form.Name == "" {
		form.Name = prefill.Name
	}
	if form.Email == "" {
		form.Email = prefill.Email
	}
	if form.Phone == "" {
		form.Phone = prefill.Phone
	}
	if form.Address == "" {
		form.Address = prefill.Address
	}
	if form.PaymentMethod == "" {
		form.PaymentMethod = c.prefs.Payment
	}
	return form
}

func (c *Controller) setNotice(msg string) {
	c.mu.Lock()
	c.notice = msg
	c.mu.Unlock()
}

func reason(err error) string {
	switch {
	case errors.Is(err, session.ErrInvalidInput):
		return "Please check the highlighted fields"
	case errors.Is(err, order.ErrOrderNotFound):
		return "That order is not in your order history"
	}
	return cafeapi.Reason(err)
}
