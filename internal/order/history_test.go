package order_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/cafe-storefront/internal/cafeapi"
	"github.com/vasiliy-maslov/cafe-storefront/internal/order"
)

type mockHistoryGateway struct {
	listFunc    func(ctx context.Context, customerID int64) ([]cafeapi.OrderSummary, error)
	detailsFunc func(ctx context.Context, orderID int64) ([]cafeapi.OrderLine, error)
}

func (m *mockHistoryGateway) ListOrders(ctx context.Context, customerID int64) ([]cafeapi.OrderSummary, error) {
	return m.listFunc(ctx, customerID)
}

func (m *mockHistoryGateway) OrderDetails(ctx context.Context, orderID int64) ([]cafeapi.OrderLine, error) {
	return m.detailsFunc(ctx, orderID)
}

func TestHistory_List(t *testing.T) {
	gw := &mockHistoryGateway{
		listFunc: func(ctx context.Context, customerID int64) ([]cafeapi.OrderSummary, error) {
			assert.Equal(t, int64(7), customerID)
			return []cafeapi.OrderSummary{{OrderID: 1, Status: string(order.StatusCompleted)}}, nil
		},
	}
	h := order.NewHistory(gw)

	orders, err := h.List(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, int64(1), orders[0].OrderID)

	_, err = h.List(context.Background(), 0)
	assert.ErrorIs(t, err, order.ErrMembersOnly)
}

func TestHistory_ListError(t *testing.T) {
	upstream := errors.New("boom")
	h := order.NewHistory(&mockHistoryGateway{
		listFunc: func(ctx context.Context, customerID int64) ([]cafeapi.OrderSummary, error) { return nil, upstream },
	})

	_, err := h.List(context.Background(), 7)
	assert.ErrorIs(t, err, upstream)
}

func TestHistory_DetailsSumsLines(t *testing.T) {
	h := order.NewHistory(&mockHistoryGateway{
		detailsFunc: func(ctx context.Context, orderID int64) ([]cafeapi.OrderLine, error) {
			return []cafeapi.OrderLine{
				{ProductName: "Latte", Quantity: 2, UnitPrice: decimal.RequireFromString("4.50"), LineAmount: decimal.RequireFromString("9.00")},
				{ProductName: "Scone", Quantity: 1, UnitPrice: decimal.RequireFromString("2.75"), LineAmount: decimal.RequireFromString("2.75")},
			}, nil
		},
	})

	s, err := h.Details(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), s.OrderID)
	assert.Len(t, s.Lines, 2)
	assert.True(t, decimal.RequireFromString("11.75").Equal(s.TotalAmount))
}

func TestHistory_DetailsForChecksOwnership(t *testing.T) {
	var detailsCalls int
	gw := &mockHistoryGateway{
		listFunc: func(ctx context.Context, customerID int64) ([]cafeapi.OrderSummary, error) {
			if customerID != 7 {
				return nil, nil
			}
			return []cafeapi.OrderSummary{{OrderID: 101, CustomerName: "Ann", PaymentMethod: "card", TotalAmount: decimal.RequireFromString("9.00")}}, nil
		},
		detailsFunc: func(ctx context.Context, orderID int64) ([]cafeapi.OrderLine, error) {
			detailsCalls++
			return []cafeapi.OrderLine{{ProductID: 1, ProductName: "Latte", Quantity: 2, UnitPrice: decimal.RequireFromString("4.50"), LineAmount: decimal.RequireFromString("9.00")}}, nil
		},
	}
	h := order.NewHistory(gw)

	tests := []struct {
		name       string
		customerID int64
		orderID    int64
		wantErr    error
	}{
		{name: "own order", customerID: 7, orderID: 101},
		{name: "someone else's order", customerID: 8, orderID: 101, wantErr: order.ErrOrderNotFound},
		{name: "unknown order", customerID: 7, orderID: 999, wantErr: order.ErrOrderNotFound},
		{name: "guest", customerID: 0, orderID: 101, wantErr: order.ErrMembersOnly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detailsCalls = 0
			s, err := h.DetailsFor(context.Background(), tt.customerID, tt.orderID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, detailsCalls, "details are not fetched for orders outside the history")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Ann", s.CustomerName)
			assert.Equal(t, "card", s.PaymentMethod)
			require.Len(t, s.Lines, 1)
			assert.Equal(t, int64(1), s.Lines[0].ProductID)
		})
	}
}
