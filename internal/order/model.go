package order

import (
	"github.com/vasiliy-maslov/cafe-storefront/internal/cafeapi"
	"github.com/vasiliy-maslov/cafe-storefront/internal/cart"
)

type State string

const (
	StateDraft                State = "draft"
	StateSubmitting           State = "submitting"
	StateSucceeded            State = "succeeded"
	StateAwaitingVerification State = "awaiting_verification"
	StateVerifying            State = "verifying"
	StateFailed               State = "failed"
)

func (s State) String() string {
	return string(s)
}

// InFlight reports whether a request for this attempt is outstanding.
func (s State) InFlight() bool {
	return s == StateSubmitting || s == StateVerifying
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentAlipay PaymentMethod = "alipay"
	PaymentWechat PaymentMethod = "wechat"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentAlipay, PaymentWechat:
		return true
	}
	return false
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Form is the checkout form as the shopper filled it in.
type Form struct {
	Name          string        `json:"customer_name"`
	Phone         string        `json:"customer_phone"`
	Email         string        `json:"customer_email"`
	Address       string        `json:"customer_address"`
	PaymentMethod PaymentMethod `json:"payment_method"`
}

// Draft is the payload of a single submission attempt. It is never reused
// across attempts except through the verification branch.
type Draft struct {
	Form
	Items        []cart.Item `json:"items"`
	CustomerID   *int64      `json:"customer_id,omitempty"`
	ForceRegular bool        `json:"force_regular,omitempty"`
}

func NewDraft(form Form, items []cart.Item) Draft {
	return Draft{Form: form, Items: items}
}

func (d Draft) clone() Draft {
	out := d
	out.Items = make([]cart.Item, len(d.Items))
	copy(out.Items, d.Items)
	if d.CustomerID != nil {
		id := *d.CustomerID
		out.CustomerID = &id
	}
	return out
}

func (d Draft) request() cafeapi.OrderRequest {
	return cafeapi.OrderRequest{
		CustomerName:    d.Name,
		CustomerPhone:   d.Phone,
		CustomerEmail:   d.Email,
		CustomerAddress: d.Address,
		PaymentMethod:   string(d.PaymentMethod),
		Items:           d.Items,
		CustomerID:      d.CustomerID,
		ForceRegular:    d.ForceRegular,
	}
}

// Result describes where an attempt left the flow.
type Result struct {
	State   State           `json:"state"`
	OrderID int64           `json:"order_id,omitempty"`
	Notice  string          `json:"notice,omitempty"`
	Member  *cafeapi.Member `json:"member,omitempty"`
}
