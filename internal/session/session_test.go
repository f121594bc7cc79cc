package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/cafe-storefront/internal/cafeapi"
	"github.com/vasiliy-maslov/cafe-storefront/internal/order"
	"github.com/vasiliy-maslov/cafe-storefront/internal/session"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Login(ctx context.Context, creds cafeapi.Credentials) (*cafeapi.Member, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cafeapi.Member), args.Error(1)
}

func (m *MockGateway) Register(ctx context.Context, reg cafeapi.Registration) error {
	args := m.Called(ctx, reg)
	return args.Error(0)
}

func TestSession_LoginAndPrefill(t *testing.T) {
	gw := new(MockGateway)
	gw.On("Login", mock.Anything, cafeapi.Credentials{Email: "ann@example.com", Password: "secret1"}).
		Return(&cafeapi.Member{
			CustomerID: 7, Name: "Ann", Email: "ann@example.com", Phone: "5550100",
			Address: "Kowloon", CustomerType: cafeapi.CustomerMember,
		}, nil).Once()

	s := session.New(gw)
	u, err := s.Login(context.Background(), session.Credentials{Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.CustomerID)
	assert.True(t, s.IsMember())

	want := order.Form{Name: "Ann", Email: "ann@example.com", Phone: "5550100", Address: "Kowloon"}
	assert.Equal(t, want, s.Prefill())
	gw.AssertExpectations(t)
}

func TestSession_LoginValidation(t *testing.T) {
	tests := []struct {
		name  string
		creds session.Credentials
	}{
		{name: "missing_email", creds: session.Credentials{Password: "x"}},
		{name: "bad_email", creds: session.Credentials{Email: "nope", Password: "x"}},
		{name: "missing_password", creds: session.Credentials{Email: "ann@example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := new(MockGateway)
			s := session.New(gw)

			_, err := s.Login(context.Background(), tt.creds)
			assert.ErrorIs(t, err, session.ErrInvalidInput)
			gw.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
		})
	}
}

func TestSession_LoginRejected(t *testing.T) {
	gw := new(MockGateway)
	rej := &cafeapi.RejectionError{Status: 401, Code: "Invalid email or password"}
	gw.On("Login", mock.Anything, mock.Anything).Return(nil, rej).Once()

	s := session.New(gw)
	_, err := s.Login(context.Background(), session.Credentials{Email: "ann@example.com", Password: "wrong"})

	var got *cafeapi.RejectionError
	require.True(t, errors.As(err, &got))
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestSession_Logout(t *testing.T) {
	gw := new(MockGateway)
	gw.On("Login", mock.Anything, mock.Anything).
		Return(&cafeapi.Member{CustomerID: 7, Name: "Ann", CustomerType: cafeapi.CustomerMember}, nil)

	s := session.New(gw)
	_, err := s.Login(context.Background(), session.Credentials{Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)

	s.Logout()

	_, ok := s.Current()
	assert.False(t, ok)
	assert.Equal(t, order.Form{}, s.Prefill())
	_, err = s.Member()
	assert.ErrorIs(t, err, session.ErrNotLoggedIn)
}

func TestSession_RegisterDoesNotLogIn(t *testing.T) {
	gw := new(MockGateway)
	gw.On("Register", mock.Anything, mock.MatchedBy(func(r cafeapi.Registration) bool {
		return r.Email == "bob@example.com" && r.DateOfBirth == "1990-04-01"
	})).Return(nil).Once()

	s := session.New(gw)
	err := s.Register(context.Background(), session.Registration{
		Name: "Bob", Email: "bob@example.com", Password: "hunter22", DateOfBirth: "1990-04-01",
	})
	require.NoError(t, err)

	_, ok := s.Current()
	assert.False(t, ok)
	gw.AssertExpectations(t)
}

func TestSession_RegisterValidation(t *testing.T) {
	gw := new(MockGateway)
	s := session.New(gw)

	err := s.Register(context.Background(), session.Registration{Name: "Bob", Email: "bob@example.com", Password: "123"})
	assert.ErrorIs(t, err, session.ErrInvalidInput)

	err = s.Register(context.Background(), session.Registration{
		Name: "Bob", Email: "bob@example.com", Password: "hunter22", DateOfBirth: "01/04/1990",
	})
	assert.ErrorIs(t, err, session.ErrInvalidInput)
	gw.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestSession_SetVerifiedFillsGaps(t *testing.T) {
	s := session.New(new(MockGateway))

	s.SetVerified(&cafeapi.Member{CustomerID: 7, Name: "Ann", CustomerType: cafeapi.CustomerMember},
		order.Form{Name: "ann", Email: "ann@example.com", Phone: "5550100", Address: "Kowloon"})

	u, err := s.Member()
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.Name)
	assert.Equal(t, "ann@example.com", u.Email)
	assert.Equal(t, "Kowloon", u.Address)

	s.SetVerified(nil, order.Form{})
	_, ok := s.Current()
	assert.True(t, ok, "nil member leaves the session alone")
}
