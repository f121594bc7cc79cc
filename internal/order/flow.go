package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/cafe-storefront/internal/cafeapi"
	"github.com/vasiliy-maslov/cafe-storefront/internal/cart"
)

var (
	ErrEmptyCart              = errors.New("cart is empty")
	ErrMissingContact         = errors.New("email or phone is required for verification")
	ErrSubmissionInProgress   = errors.New("an order submission is already in progress")
	ErrNoPendingVerification  = errors.New("no order is awaiting verification")
	ErrNotVerified            = errors.New("member could not be verified")
	ErrInvalidStateTransition = errors.New("invalid checkout state transition")
)

var allowedTransitions = map[State]map[State]bool{
	StateDraft: {
		StateSubmitting: true,
	},
	StateSubmitting: {
		StateSucceeded:            true,
		StateAwaitingVerification: true,
		StateFailed:               true,
	},
	StateAwaitingVerification: {
		StateVerifying:  true,
		StateSubmitting: true,
		StateDraft:      true,
	},
	StateVerifying: {
		StateAwaitingVerification: true,
		StateSubmitting:           true,
	},
	StateSucceeded: {
		StateDraft:      true,
		StateSubmitting: true,
	},
	StateFailed: {
		StateDraft:      true,
		StateSubmitting: true,
	},
}

// IsLocalValidation reports errors raised before any network call.
func IsLocalValidation(err error) bool {
	return errors.Is(err, ErrEmptyCart) || errors.Is(err, ErrMissingContact)
}

// Gateway is the part of the café API the checkout needs.
type Gateway interface {
	CreateOrder(ctx context.Context, req cafeapi.OrderRequest) (int64, error)
	VerifyCustomer(ctx context.Context, req cafeapi.VerifyRequest) (*cafeapi.VerifyResult, error)
}

type submitMode int

const (
	modeFresh submitMode = iota
	modeVerified
	modeForcedRegular
)

func (m submitMode) String() string {
	switch m {
	case modeVerified:
		return "verified"
	case modeForcedRegular:
		return "forced_regular"
	}
	return "fresh"
}

// Flow drives one shopper's checkout. The mutex only guards the state fields;
// it is never held across a gateway call.
type Flow struct {
	gateway Gateway

	mu      sync.Mutex
	state   State
	pending *Draft
	notice  string
}

func NewFlow(gateway Gateway) *Flow {
	return &Flow{gateway: gateway, state: StateDraft}
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Notice is the last shopper-facing message produced by the flow.
func (f *Flow) Notice() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notice
}

// Pending returns a copy of the draft awaiting verification, if any.
func (f *Flow) Pending() (Draft, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending == nil {
		return Draft{}, false
	}
	return f.pending.clone(), true
}

// Reset drops any pending draft and returns to an idle draft state.
// It is refused while a request is outstanding.
func (f *Flow) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state.InFlight() {
		return ErrSubmissionInProgress
	}
	f.state = StateDraft
	f.pending = nil
	f.notice = ""
	return nil
}

// Submit sends a fresh draft built from the form and the cart snapshot.
func (f *Flow) Submit(ctx context.Context, form Form, items []cart.Item) (Result, error) {
	f.mu.Lock()
	if f.state.InFlight() {
		res := Result{State: f.state}
		f.mu.Unlock()
		return res, ErrSubmissionInProgress
	}
	if len(items) == 0 {
		f.notice = "Your cart is empty"
		res := Result{State: f.state, Notice: f.notice}
		f.mu.Unlock()
		return res, ErrEmptyCart
	}
	if err := f.transition(StateSubmitting); err != nil {
		res := Result{State: f.state}
		f.mu.Unlock()
		return res, err
	}
	f.pending = nil
	f.mu.Unlock()

	draft := NewDraft(form, items).clone()
	return f.send(ctx, draft, modeFresh)
}

// Verify asks the café API to match the pending draft's name against the
// given contact details and, when matched, resubmits the draft as that member.
func (f *Flow) Verify(ctx context.Context, email, phone string) (Result, error) {
	email = strings.TrimSpace(email)
	phone = strings.TrimSpace(phone)

	f.mu.Lock()
	if f.state.InFlight() {
		res := Result{State: f.state}
		f.mu.Unlock()
		return res, ErrSubmissionInProgress
	}
	if f.state != StateAwaitingVerification || f.pending == nil {
		res := Result{State: f.state}
		f.mu.Unlock()
		return res, ErrNoPendingVerification
	}
	if email == "" && phone == "" {
		f.notice = "Please enter your email or phone to verify membership"
		res := Result{State: StateAwaitingVerification, Notice: f.notice}
		f.mu.Unlock()
		return res, ErrMissingContact
	}
	draft := f.pending.clone()
	_ = f.transition(StateVerifying)
	f.mu.Unlock()

	res, err := f.gateway.VerifyCustomer(ctx, cafeapi.VerifyRequest{Name: draft.Name, Email: email, Phone: phone})
	if err != nil {
		log.Warn().Err(err).Str("customer_name", draft.Name).Msg("order: member verification failed")
		return f.backToVerification(cafeapi.Reason(err), err)
	}
	if !res.Verified || res.Customer == nil {
		reason := res.Message
		if reason == "" {
			reason = "Email or phone does not match any member with this name"
		}
		return f.backToVerification(reason, fmt.Errorf("%w: %s", ErrNotVerified, reason))
	}

	customerID := res.Customer.CustomerID
	draft.CustomerID = &customerID
	draft.ForceRegular = false
	draft.Email = firstNonEmpty(email, res.Customer.Email, draft.Email)
	draft.Phone = firstNonEmpty(phone, res.Customer.Phone, draft.Phone)

	f.mu.Lock()
	_ = f.transition(StateSubmitting)
	f.mu.Unlock()

	log.Info().Int64("customer_id", customerID).Msg("order: member verified, resubmitting draft")

	result, err := f.send(ctx, draft, modeVerified)
	result.Member = res.Customer
	return result, err
}

// ContinueAsRegular resubmits the pending draft as a non-member order.
func (f *Flow) ContinueAsRegular(ctx context.Context) (Result, error) {
	f.mu.Lock()
	if f.state.InFlight() {
		res := Result{State: f.state}
		f.mu.Unlock()
		return res, ErrSubmissionInProgress
	}
	if f.state != StateAwaitingVerification || f.pending == nil {
		res := Result{State: f.state}
		f.mu.Unlock()
		return res, ErrNoPendingVerification
	}
	draft := f.pending.clone()
	draft.ForceRegular = true
	draft.CustomerID = nil
	_ = f.transition(StateSubmitting)
	f.mu.Unlock()

	return f.send(ctx, draft, modeForcedRegular)
}

func (f *Flow) send(ctx context.Context, draft Draft, mode submitMode) (Result, error) {
	orderID, err := f.gateway.CreateOrder(ctx, draft.request())

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case err == nil:
		_ = f.transition(StateSucceeded)
		f.pending = nil
		f.notice = fmt.Sprintf("Order #%d placed", orderID)
		log.Info().Int64("order_id", orderID).Stringer("mode", mode).Int("lines", len(draft.Items)).Msg("order: submitted")
		return Result{State: f.state, OrderID: orderID, Notice: f.notice}, nil

	case cafeapi.IsVerificationRequired(err) && mode == modeFresh:
		_ = f.transition(StateAwaitingVerification)
		f.pending = &draft
		f.notice = cafeapi.Reason(err)
		log.Info().Str("customer_name", draft.Name).Msg("order: member verification required")
		return Result{State: f.state, Notice: f.notice}, nil

	case mode == modeVerified && !cafeapi.IsVerificationRequired(err):
		// The original draft stays pending so the shopper can try again.
		_ = f.transition(StateAwaitingVerification)
		f.notice = cafeapi.Reason(err)
		log.Warn().Err(err).Msg("order: verified resubmission failed")
		return Result{State: f.state, Notice: f.notice}, err

	default:
		_ = f.transition(StateFailed)
		f.pending = nil
		f.notice = cafeapi.Reason(err)
		log.Warn().Err(err).Stringer("mode", mode).Msg("order: submission failed")
		return Result{State: f.state, Notice: f.notice}, err
	}
}

func (f *Flow) backToVerification(reason string, err error) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_ = f.transition(StateAwaitingVerification)
	f.notice = reason
	return Result{State: f.state, Notice: reason}, err
}

// transition must be called with f.mu held.
func (f *Flow) transition(to State) error {
	if !allowedTransitions[f.state][to] {
		log.Warn().Stringer("current_state", f.state).Stringer("new_state", to).Msg("order: invalid checkout state transition")
		return fmt.Errorf("%w: from %s to %s", ErrInvalidStateTransition, f.state, to)
	}
	f.state = to
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
