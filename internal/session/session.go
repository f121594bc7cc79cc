package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/cafe-storefront/internal/cafeapi"
	"github.com/vasiliy-maslov/cafe-storefront/internal/order"
)

var (
	ErrNotLoggedIn  = errors.New("not logged in")
	ErrInvalidInput = errors.New("invalid input")
	ErrNotAMember   = errors.New("customer is not a member")
)

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type Registration struct {
	Name        string `json:"name" validate:"required,min=2"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	Phone       string `json:"phone" validate:"omitempty,min=6"`
	Address     string `json:"address"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
}

type Gateway interface {
	Login(ctx context.Context, creds cafeapi.Credentials) (*cafeapi.Member, error)
	Register(ctx context.Context, reg cafeapi.Registration) error
}

// Session holds the signed-in customer, if any. It is set by a login or by a
// successful member verification and cleared only by Logout.
type Session struct {
	gateway  Gateway
	validate *validator.Validate

	mu   sync.RWMutex
	user *User
}

func New(gateway Gateway) *Session {
	return &Session{gateway: gateway, validate: validator.New()}
}

func (s *Session) Login(ctx context.Context, creds Credentials) (User, error) {
	if err := s.validate.Struct(creds); err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	member, err := s.gateway.Login(ctx, cafeapi.Credentials{Email: creds.Email, Password: creds.Password})
	if err != nil {
		log.Warn().Err(err).Str("email", creds.Email).Msg("session: login failed")
		return User{}, fmt.Errorf("session: login: %w", err)
	}

	u := fromMember(member)
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()

	log.Info().Int64("customer_id", u.CustomerID).Msg("session: logged in")
	return u, nil
}

// Register creates a member account. The shopper still has to log in.
func (s *Session) Register(ctx context.Context, reg Registration) error {
	if err := s.validate.Struct(reg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	err := s.gateway.Register(ctx, cafeapi.Registration{
		Name:        reg.Name,
		Email:       reg.Email,
		Password:    reg.Password,
		Phone:       reg.Phone,
		Address:     reg.Address,
		DateOfBirth: reg.DateOfBirth,
	})
	if err != nil {
		log.Warn().Err(err).Str("email", reg.Email).Msg("session: registration failed")
		return fmt.Errorf("session: register: %w", err)
	}
	return nil
}

func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user != nil {
		log.Info().Int64("customer_id", s.user.CustomerID).Msg("session: logged out")
	}
	s.user = nil
}

// SetVerified signs in the member matched by checkout verification. The
// verification reply carries fewer fields than a login, so the checkout
// contact details fill the gaps.
func (s *Session) SetVerified(member *cafeapi.Member, contact order.Form) {
	if member == nil {
		return
	}
	u := fromMember(member)
	if u.Email == "" {
		u.Email = contact.Email
	}
	if u.Phone == "" {
		u.Phone = contact.Phone
	}
	if u.Address == "" {
		u.Address = contact.Address
	}
	if u.Name == "" {
		u.Name = contact.Name
	}

	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()
}

func (s *Session) Current() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

func (s *Session) IsMember() bool {
	u, ok := s.Current()
	return ok && u.IsMember()
}

// Member returns the signed-in member or an error usable to gate
// member-only features.
func (s *Session) Member() (User, error) {
	u, ok := s.Current()
	if !ok {
		return User{}, ErrNotLoggedIn
	}
	if !u.IsMember() {
		return User{}, ErrNotAMember
	}
	return u, nil
}

// Prefill returns checkout form values taken from the signed-in user.
func (s *Session) Prefill() order.Form {
	u, ok := s.Current()
	if !ok {
		return order.Form{}
	}
	return order.Form{
		Name:    u.Name,
		Email:   u.Email,
		Phone:   u.Phone,
		Address: u.Address,
	}
}
