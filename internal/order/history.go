package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/cafe-storefront/internal/cafeapi"
)

var (
	ErrMembersOnly   = errors.New("order history is available to members only")
	ErrOrderNotFound = errors.New("order not found")
)

type HistoryGateway interface {
	ListOrders(ctx context.Context, customerID int64) ([]cafeapi.OrderSummary, error)
	OrderDetails(ctx context.Context, orderID int64) ([]cafeapi.OrderLine, error)
}

// Summary is one past order with its lines attached when requested.
type Summary struct {
	cafeapi.OrderSummary
	Lines []cafeapi.OrderLine `json:"lines,omitempty"`
}

type History struct {
	gateway HistoryGateway
}

func NewHistory(gateway HistoryGateway) *History {
	return &History{gateway: gateway}
}

func (h *History) List(ctx context.Context, customerID int64) ([]Summary, error) {
	if customerID == 0 {
		return nil, ErrMembersOnly
	}
	orders, err := h.gateway.ListOrders(ctx, customerID)
	if err != nil {
		log.Error().Err(err).Int64("customer_id", customerID).Msg("order: failed to list order history")
		return nil, fmt.Errorf("order: list history: %w", err)
	}

	out := make([]Summary, 0, len(orders))
	for _, o := range orders {
		out = append(out, Summary{OrderSummary: o})
	}
	return out, nil
}

func (h *History) Details(ctx context.Context, orderID int64) (Summary, error) {
	lines, err := h.gateway.OrderDetails(ctx, orderID)
	if err != nil {
		log.Error().Err(err).Int64("order_id", orderID).Msg("order: failed to fetch order details")
		return Summary{}, fmt.Errorf("order: details for %d: %w", orderID, err)
	}

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.LineAmount)
	}

	return Summary{
		OrderSummary: cafeapi.OrderSummary{OrderID: orderID, TotalAmount: total},
		Lines:        lines,
	}, nil
}

// DetailsFor returns an order's lines only when the order belongs to the
// member. Any other order id is reported as ErrOrderNotFound.
func (h *History) DetailsFor(ctx context.Context, customerID, orderID int64) (Summary, error) {
	orders, err := h.List(ctx, customerID)
	if err != nil {
		return Summary{}, err
	}

	var owned *Summary
	for i := range orders {
		if orders[i].OrderID == orderID {
			owned = &orders[i]
			break
		}
	}
	if owned == nil {
		log.Warn().Int64("customer_id", customerID).Int64("order_id", orderID).Msg("order: details requested for an order outside the member's history")
		return Summary{}, fmt.Errorf("%w: %d", ErrOrderNotFound, orderID)
	}

	details, err := h.Details(ctx, orderID)
	if err != nil {
		return Summary{}, err
	}
	out := *owned
	out.Lines = details.Lines
	if out.TotalAmount.IsZero() {
		out.TotalAmount = details.TotalAmount
	}
	return out, nil
}
