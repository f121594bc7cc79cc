package storefront

import (
	"context"
	"errors"
	"fmt"

	"github.com/vasiliy-maslov/cafe-storefront/internal/cart"
	"github.com/vasiliy-maslov/cafe-storefront/internal/order"
	"github.com/vasiliy-maslov/cafe-storefront/internal/preference"
	"github.com/vasiliy-maslov/cafe-storefront/internal/session"
)

type EventKind string

const (
	EventRefreshCatalog   EventKind = "refresh_catalog"
	EventAddToCart        EventKind = "add_to_cart"
	EventRemoveLine       EventKind = "remove_line"
	EventSetQuantity      EventKind = "set_quantity"
	EventClearCart        EventKind = "clear_cart"
	EventSelectOption     EventKind = "select_option"
	EventSubmitOrder      EventKind = "submit_order"
	EventVerify           EventKind = "verify"
	EventContinueRegular  EventKind = "continue_regular"
	EventLogin            EventKind = "login"
	EventLogout           EventKind = "logout"
	EventRegister         EventKind = "register"
	EventApplyPreferences EventKind = "apply_preferences"
	EventSavePreferences  EventKind = "save_preferences"
	EventReorder          EventKind = "reorder"
)

var ErrUnknownEvent = errors.New("unknown storefront event")

// Event is one shopper action. Products are addressed by catalog id and cart
// lines by their position.
type Event struct {
	Kind         EventKind            `json:"kind"`
	ProductID    int64                `json:"product_id,omitempty"`
	Line         int                  `json:"line,omitempty"`
	Quantity     int                  `json:"quantity,omitempty"`
	Options      *cart.Options        `json:"options,omitempty"`
	Selection    preference.Selection `json:"selection,omitempty"`
	Form         order.Form           `json:"form,omitempty"`
	Email        string               `json:"email,omitempty"`
	Phone        string               `json:"phone,omitempty"`
	Credentials  session.Credentials  `json:"credentials,omitempty"`
	Registration session.Registration `json:"registration,omitempty"`
	Preferences  preference.Set       `json:"preferences,omitempty"`
	OrderID      int64                `json:"order_id,omitempty"`
}

// NeedsCatalog reports whether handling the event reads the product catalog.
func (k EventKind) NeedsCatalog() bool {
	switch k {
	case EventRefreshCatalog, EventAddToCart, EventSelectOption, EventApplyPreferences, EventReorder:
		return true
	}
	return false
}

type eventHandler func(ctx context.Context, ev Event) error

func (c *Controller) eventTable() map[EventKind]eventHandler {
	return map[EventKind]eventHandler{
		EventRefreshCatalog: func(ctx context.Context, _ Event) error {
			return c.RefreshCatalog(ctx)
		},
		EventAddToCart: func(_ context.Context, ev Event) error {
			_, err := c.AddToCart(ev.ProductID, ev.Quantity, ev.Options)
			return err
		},
		EventRemoveLine: func(_ context.Context, ev Event) error {
			return c.RemoveLine(ev.Line)
		},
		EventSetQuantity: func(_ context.Context, ev Event) error {
			return c.SetLineQuantity(ev.Line, ev.Quantity)
		},
		EventClearCart: func(context.Context, Event) error {
			c.ClearCart()
			return nil
		},
		EventSelectOption: func(_ context.Context, ev Event) error {
			return c.SelectOptions(ev.ProductID, ev.Selection)
		},
		EventSubmitOrder: func(ctx context.Context, ev Event) error {
			_, err := c.SubmitOrder(ctx, ev.Form)
			return err
		},
		EventVerify: func(ctx context.Context, ev Event) error {
			_, err := c.VerifyMember(ctx, ev.Email, ev.Phone)
			return err
		},
		EventContinueRegular: func(ctx context.Context, _ Event) error {
			_, err := c.ContinueAsRegular(ctx)
			return err
		},
		EventLogin: func(ctx context.Context, ev Event) error {
			_, err := c.Login(ctx, ev.Credentials)
			return err
		},
		EventLogout: func(context.Context, Event) error {
			c.Logout()
			return nil
		},
		EventRegister: func(ctx context.Context, ev Event) error {
			return c.Register(ctx, ev.Registration)
		},
		EventApplyPreferences: func(_ context.Context, ev Event) error {
			_, err := c.ApplyPreferences(ev.Preferences.Milk, ev.Preferences.Ice)
			return err
		},
		EventSavePreferences: func(ctx context.Context, ev Event) error {
			return c.SavePreferences(ctx, ev.Preferences)
		},
		EventReorder: func(ctx context.Context, ev Event) error {
			_, err := c.Reorder(ctx, ev.OrderID)
			return err
		},
	}
}

// Dispatch routes an event to its handler and returns the resulting view.
// The view is returned even when the handler fails.
func (c *Controller) Dispatch(ctx context.Context, ev Event) (View, error) {
	h, ok := c.handlers[ev.Kind]
	if !ok {
		return c.View(), fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Kind)
	}
	err := h(ctx, ev)
	return c.View(), err
}
