package preference

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/cafe-storefront/internal/cafeapi"
	"github.com/vasiliy-maslov/cafe-storefront/internal/cart"
	"github.com/vasiliy-maslov/cafe-storefront/internal/order"
	"golang.org/x/sync/errgroup"
)

const (
	TypeMilk    = "milk_type"
	TypeIce     = "ice_level"
	TypePayment = "payment_method"

	// typeDefaultPay is the older name the café API uses for the payment default.
	typeDefaultPay = "default_pay"
)

var (
	ErrNothingToSave     = errors.New("no preferences to save")
	ErrInvalidPreference = errors.New("invalid preference value")
)

type Gateway interface {
	GetPreferences(ctx context.Context, customerID int64) (*cafeapi.MemberPreferences, error)
	SavePreference(ctx context.Context, customerID int64, prefType, value string) error
}

// Set is the member's stored defaults; empty fields are unset.
type Set struct {
	Milk    cart.MilkType       `json:"milk_type,omitempty"`
	Ice     cart.IceLevel       `json:"ice_level,omitempty"`
	Payment order.PaymentMethod `json:"payment_method,omitempty"`
}

func (s Set) IsZero() bool {
	return s == Set{}
}

func (s Set) Validate() error {
	if s.Milk != "" && !s.Milk.Valid() {
		return fmt.Errorf("%w: milk type %q", ErrInvalidPreference, s.Milk)
	}
	if s.Ice != "" && !s.Ice.Valid() {
		return fmt.Errorf("%w: ice level %q", ErrInvalidPreference, s.Ice)
	}
	if s.Payment != "" && !s.Payment.Valid() {
		return fmt.Errorf("%w: payment method %q", ErrInvalidPreference, s.Payment)
	}
	return nil
}

type Sync struct {
	gateway Gateway
}

func NewSync(gateway Gateway) *Sync {
	return &Sync{gateway: gateway}
}

func (s *Sync) Fetch(ctx context.Context, customerID int64) (*cafeapi.MemberPreferences, error) {
	prefs, err := s.gateway.GetPreferences(ctx, customerID)
	if err != nil {
		log.Error().Err(err).Int64("customer_id", customerID).Msg("preference: failed to fetch preferences")
		return nil, fmt.Errorf("preference: fetch: %w", err)
	}
	return prefs, nil
}

// Save issues one upsert per non-empty field, all at once, and waits for every
// write to settle. Failures are reported together as a single error.
func (s *Sync) Save(ctx context.Context, customerID int64, set Set) error {
	if set.IsZero() {
		return ErrNothingToSave
	}
	if err := set.Validate(); err != nil {
		return err
	}

	writes := map[string]string{
		TypeMilk:    string(set.Milk),
		TypeIce:     string(set.Ice),
		TypePayment: string(set.Payment),
	}

	// A plain Group does not cancel, so every write runs. Wait reports the
	// first failure and errs collects all of them.
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs *multierror.Error
	)
	for prefType, value := range writes {
		if value == "" {
			continue
		}
		prefType, value := prefType, value
		g.Go(func() error {
			if err := s.gateway.SavePreference(ctx, customerID, prefType, value); err != nil {
				err = fmt.Errorf("%s: %w", prefType, err)
				mu.Lock()
				errs = multierror.Append(errs, err)
				mu.Unlock()
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn().Err(errs).Int64("customer_id", customerID).Int("failed", errs.Len()).Msg("preference: some preference writes failed")
		return fmt.Errorf("preference: save: %w", errs.ErrorOrNil())
	}
	log.Info().Int64("customer_id", customerID).Msg("preference: preferences saved")
	return nil
}

// Lookup returns the value of the first preference of the given type. The
// café API lists preferences newest first.
func Lookup(prefs []cafeapi.Preference, prefType string) (string, bool) {
	for _, p := range prefs {
		if p.Type == prefType || (prefType == TypePayment && p.Type == typeDefaultPay) {
			return p.Value, true
		}
	}
	return "", false
}

// FromPreferences folds a fetched preference list into a Set.
func FromPreferences(prefs []cafeapi.Preference) Set {
	var set Set
	if v, ok := Lookup(prefs, TypeMilk); ok {
		set.Milk = cart.MilkType(v)
	}
	if v, ok := Lookup(prefs, TypeIce); ok {
		set.Ice = cart.IceLevel(v)
	}
	if v, ok := Lookup(prefs, TypePayment); ok {
		set.Payment = order.PaymentMethod(v)
	}
	return set
}
