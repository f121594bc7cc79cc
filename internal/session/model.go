package session

import "github.com/vasiliy-maslov/cafe-storefront/internal/cafeapi"

type User struct {
	CustomerID   int64                `json:"customer_id"`
	Name         string               `json:"name"`
	Email        string               `json:"email,omitempty"`
	Phone        string               `json:"phone,omitempty"`
	Address      string               `json:"address,omitempty"`
	CustomerType cafeapi.CustomerType `json:"customer_type"`
}

func (u User) IsMember() bool {
	return u.CustomerType == cafeapi.CustomerMember
}

func fromMember(m *cafeapi.Member) User {
	t := m.CustomerType
	if t == "" {
		t = cafeapi.CustomerMember
	}
	return User{
		CustomerID:   m.CustomerID,
		Name:         m.Name,
		Email:        m.Email,
		Phone:        m.Phone,
		Address:      m.Address,
		CustomerType: t,
	}
}
