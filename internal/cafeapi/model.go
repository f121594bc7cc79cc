package cafeapi

import (
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/cafe-storefront/internal/cart"
)

type CustomerType string

const (
	CustomerMember  CustomerType = "member"
	CustomerRegular CustomerType = "regular"
)

// Member is the user record returned by login and verification.
type Member struct {
	CustomerID       int64        `json:"customer_id"`
	Name             string       `json:"name"`
	Email            string       `json:"email,omitempty"`
	Phone            string       `json:"phone,omitempty"`
	Address          string       `json:"address,omitempty"`
	CustomerType     CustomerType `json:"customer_type"`
	DateOfBirth      string       `json:"date_of_birth,omitempty"`
	RegistrationDate string       `json:"registration_date,omitempty"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Registration struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
}

type OrderRequest struct {
	CustomerName    string      `json:"customer_name"`
	CustomerPhone   string      `json:"customer_phone"`
	CustomerEmail   string      `json:"customer_email"`
	CustomerAddress string      `json:"customer_address"`
	PaymentMethod   string      `json:"payment_method"`
	Items           []cart.Item `json:"items"`
	CustomerID      *int64      `json:"customer_id,omitempty"`
	ForceRegular    bool        `json:"force_regular,omitempty"`
}

type OrderSummary struct {
	OrderID       int64           `json:"order_id"`
	CustomerName  string          `json:"customer_name"`
	OrderDate     string          `json:"order_date"`
	Status        string          `json:"status,omitempty"`
	PaymentMethod string          `json:"payment_method"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

type OrderLine struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineAmount  decimal.Decimal `json:"line_amount"`
}

type VerifyRequest struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type VerifyResult struct {
	Verified bool
	Customer *Member
	Message  string
}

type Preference struct {
	Type        string `json:"type"`
	Value       string `json:"value"`
	CreatedDate string `json:"created_date,omitempty"`
}

type Favorite struct {
	ProductID     int64           `json:"product_id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	TotalQuantity int             `json:"total_quantity"`
	OrderCount    int             `json:"order_count"`
}

type MemberPreferences struct {
	Preferences []Preference `json:"preferences"`
	Favorites   []Favorite   `json:"favorites"`
}

type savePreferenceRequest struct {
	CustomerID int64  `json:"customer_id"`
	Type       string `json:"preference_type"`
	Value      string `json:"preference_value"`
}
