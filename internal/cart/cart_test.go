package cart_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/cafe-storefront/internal/cart"
	"github.com/vasiliy-maslov/cafe-storefront/internal/catalog"
)

const (
	latteID     int64 = 1
	croissantID int64 = 2
	mochaID     int64 = 3
)

func newTestCart(t *testing.T) *cart.Cart {
	t.Helper()
	store := catalog.NewStore()
	store.Replace([]catalog.Product{
		{ID: latteID, Name: "Latte", Category: catalog.CategoryCoffee, Price: decimal.RequireFromString("4.50")},
		{ID: croissantID, Name: "Croissant", Category: "Pastry", Price: decimal.RequireFromString("3.25")},
		{ID: mochaID, Name: "Mocha", Category: catalog.CategoryCoffee, Price: decimal.RequireFromString("0.10")},
	})
	return cart.New(store)
}

func TestCart_AddMergesSameProductAndOptions(t *testing.T) {
	c := newTestCart(t)
	oat := &cart.Options{Milk: cart.MilkOat, Ice: cart.IceLight}

	_, err := c.Add(latteID, 2, oat)
	require.NoError(t, err)
	idx, err := c.Add(latteID, 3, &cart.Options{Milk: cart.MilkOat, Ice: cart.IceLight})
	require.NoError(t, err)

	require.Equal(t, 1, c.Len())
	assert.Equal(t, 0, idx)
	assert.Equal(t, 5, c.Items()[0].Quantity)
}

func TestCart_AddWithDifferentOptionsAppends(t *testing.T) {
	c := newTestCart(t)

	_, err := c.Add(latteID, 1, &cart.Options{Milk: cart.MilkOat})
	require.NoError(t, err)
	_, err = c.Add(latteID, 1, &cart.Options{Milk: cart.MilkSoy})
	require.NoError(t, err)
	_, err = c.Add(latteID, 1, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, c.Len())
}

func TestCart_AddDropsOptionsForNonCoffee(t *testing.T) {
	c := newTestCart(t)

	_, err := c.Add(croissantID, 1, &cart.Options{Milk: cart.MilkOat})
	require.NoError(t, err)
	_, err = c.Add(croissantID, 1, nil)
	require.NoError(t, err)

	items := c.Items()
	require.Len(t, items, 1)
	assert.Nil(t, items[0].Options)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestCart_AddRejections(t *testing.T) {
	tests := []struct {
		name      string
		productID int64
		quantity  int
		opts      *cart.Options
		wantErrIs error
	}{
		{name: "zero_quantity", productID: latteID, quantity: 0, wantErrIs: cart.ErrInvalidQuantity},
		{name: "negative_quantity", productID: latteID, quantity: -4, wantErrIs: cart.ErrInvalidQuantity},
		{name: "too_many", productID: latteID, quantity: 100, wantErrIs: cart.ErrInvalidQuantity},
		{name: "unknown_product", productID: 404, quantity: 1, wantErrIs: catalog.ErrProductNotFound},
		{name: "bad_milk", productID: latteID, quantity: 1, opts: &cart.Options{Milk: "goat"}, wantErrIs: cart.ErrInvalidOptions},
		{name: "bad_ice", productID: latteID, quantity: 1, opts: &cart.Options{Ice: "lava"}, wantErrIs: cart.ErrInvalidOptions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCart(t)
			_, err := c.Add(tt.productID, tt.quantity, tt.opts)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErrIs), "unexpected error: %v", err)
			assert.True(t, c.IsEmpty())
		})
	}
}

func TestCart_MergeClampsToMaximum(t *testing.T) {
	c := newTestCart(t)

	_, err := c.Add(croissantID, 60, nil)
	require.NoError(t, err)
	_, err = c.Add(croissantID, 60, nil)
	require.NoError(t, err)

	assert.Equal(t, cart.MaxQuantity, c.Items()[0].Quantity)
}

func TestCart_TotalIsOrderIndependent(t *testing.T) {
	a := newTestCart(t)
	b := newTestCart(t)

	_, _ = a.Add(latteID, 2, nil)
	_, _ = a.Add(croissantID, 3, nil)
	_, _ = a.Add(mochaID, 3, nil)

	_, _ = b.Add(mochaID, 3, nil)
	_, _ = b.Add(croissantID, 3, nil)
	_, _ = b.Add(latteID, 2, nil)

	want := decimal.RequireFromString("19.05")
	assert.True(t, want.Equal(a.Total()), "got %s", a.Total())
	assert.True(t, a.Total().Equal(b.Total()))
	assert.Equal(t, "19.05", a.DisplayTotal())
}

func TestCart_TotalIsExact(t *testing.T) {
	c := newTestCart(t)
	for i := 0; i < 3; i++ {
		_, _ = c.Add(mochaID, 1, &cart.Options{Milk: cart.MilkType([]string{"whole", "skim", "oat"}[i])})
	}

	assert.True(t, decimal.RequireFromString("0.3").Equal(c.Total()))
}

func TestCart_RemoveKeepsRelativeOrder(t *testing.T) {
	c := newTestCart(t)
	_, _ = c.Add(latteID, 1, nil)
	_, _ = c.Add(croissantID, 1, nil)
	_, _ = c.Add(mochaID, 1, nil)

	require.NoError(t, c.Remove(1))

	got := make([]int64, 0)
	for _, item := range c.Items() {
		got = append(got, item.ProductID)
	}
	if diff := cmp.Diff([]int64{latteID, mochaID}, got); diff != "" {
		t.Errorf("remaining lines mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, c.Remove(0))
	require.NoError(t, c.Remove(0))
	assert.True(t, c.IsEmpty())
}

func TestCart_RemoveOutOfRange(t *testing.T) {
	c := newTestCart(t)
	_, _ = c.Add(latteID, 1, nil)

	for _, idx := range []int{-1, 1, 7} {
		err := c.Remove(idx)
		assert.ErrorIs(t, err, cart.ErrIndexOutOfRange)
	}
	assert.Equal(t, 1, c.Len())
}

func TestCart_SetQuantity(t *testing.T) {
	c := newTestCart(t)
	_, _ = c.Add(latteID, 1, nil)

	require.NoError(t, c.SetQuantity(0, 7))
	assert.Equal(t, 7, c.Quantity())

	assert.ErrorIs(t, c.SetQuantity(0, 0), cart.ErrInvalidQuantity)
	assert.ErrorIs(t, c.SetQuantity(3, 2), cart.ErrIndexOutOfRange)
	assert.Equal(t, 7, c.Quantity())
}

func TestCart_Clear(t *testing.T) {
	c := newTestCart(t)
	_, _ = c.Add(latteID, 2, nil)
	_, _ = c.Add(croissantID, 1, nil)

	c.Clear()

	assert.True(t, c.IsEmpty())
	assert.True(t, c.Total().IsZero())
	assert.Equal(t, "0.00", c.DisplayTotal())
}

func TestCart_ItemsIsSnapshot(t *testing.T) {
	c := newTestCart(t)
	_, _ = c.Add(latteID, 1, &cart.Options{Milk: cart.MilkOat})

	items := c.Items()
	items[0].Quantity = 50
	items[0].Options.Milk = cart.MilkSoy

	fresh := c.Items()
	assert.Equal(t, 1, fresh[0].Quantity)
	assert.Equal(t, cart.MilkOat, fresh[0].Options.Milk)
}
