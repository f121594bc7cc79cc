package storefront

import (
	"github.com/vasiliy-maslov/cafe-storefront/internal/cafeapi"
	"github.com/vasiliy-maslov/cafe-storefront/internal/cart"
	"github.com/vasiliy-maslov/cafe-storefront/internal/catalog"
	"github.com/vasiliy-maslov/cafe-storefront/internal/order"
	"github.com/vasiliy-maslov/cafe-storefront/internal/preference"
	"github.com/vasiliy-maslov/cafe-storefront/internal/session"
)

type CheckoutView struct {
	State   order.State  `json:"state"`
	Notice  string       `json:"notice,omitempty"`
	Pending *order.Draft `json:"pending,omitempty"`
}

type CartView struct {
	Lines    []cart.Item `json:"lines"`
	Count    int         `json:"count"`
	Total    string      `json:"total"`
	Quantity int         `json:"quantity"`
}

// View is a consistent snapshot of everything the page renders.
type View struct {
	Products    []catalog.Product              `json:"products"`
	Categories  []catalog.Category             `json:"categories"`
	Selectors   map[int64]preference.Selection `json:"selectors"`
	Cart        CartView                       `json:"cart"`
	Checkout    CheckoutView                   `json:"checkout"`
	Form        order.Form                     `json:"form"`
	User        *session.User                  `json:"user,omitempty"`
	Preferences *preference.Set                `json:"preferences,omitempty"`
	Favorites   []cafeapi.Favorite             `json:"favorites,omitempty"`
	Notice      string                         `json:"notice,omitempty"`
}

func (c *Controller) View() View {
	checkout := CheckoutView{State: c.flow.State(), Notice: c.flow.Notice()}
	if pending, ok := c.flow.Pending(); ok {
		checkout.Pending = &pending
	}

	var user *session.User
	if u, ok := c.session.Current(); ok {
		user = &u
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Products:   c.catalog.All(),
		Categories: c.catalog.Categories(),
		Selectors:  c.selectors.Snapshot(),
		Cart: CartView{
			Lines:    c.cart.Items(),
			Count:    c.cart.Len(),
			Total:    c.cart.DisplayTotal(),
			Quantity: c.cart.Quantity(),
		},
		Checkout: checkout,
		Form:     c.form,
		User:     user,
		Notice:   c.notice,
	}
	if user != nil && user.IsMember() {
		prefs := c.prefs
		v.Preferences = &prefs
		v.Favorites = append([]cafeapi.Favorite(nil), c.favorites...)
	}
	return v
}
