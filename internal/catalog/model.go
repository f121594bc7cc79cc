package catalog

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CategoryCoffee is the only category whose products accept milk and ice options.
const CategoryCoffee = "Coffee"

// Product is a purchasable catalog entry as returned by the café API.
type Product struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	IsActive ActiveFlag      `json:"is_active"`
}

// ActiveFlag is the product's active marker. The café database stores it as
// 'Y' or 'N'; JSON booleans are accepted too.
type ActiveFlag bool

func (f *ActiveFlag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch strings.ToUpper(string(data)) {
	case `"Y"`, `"YES"`, `"1"`, "TRUE", "1":
		*f = true
	case `"N"`, `"NO"`, `"0"`, `""`, "FALSE", "0", "NULL":
		*f = false
	default:
		return fmt.Errorf("catalog: invalid is_active value %s", data)
	}
	return nil
}

// Customizable reports whether milk/ice options apply to the product.
func (p Product) Customizable() bool {
	return p.Category == CategoryCoffee
}

// Category groups products on the menu.
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
