package cart

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/cafe-storefront/internal/catalog"
)

const (
	MinQuantity = 1
	MaxQuantity = 99
)

var (
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 99")
	ErrIndexOutOfRange = errors.New("cart line index out of range")
	ErrInvalidOptions  = errors.New("invalid cart line options")
)

// ProductLookup resolves product ids against the current catalog.
type ProductLookup interface {
	Lookup(id int64) (catalog.Product, bool)
}

// Item is one cart line. Price is captured when the line is created.
type Item struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Options   *Options        `json:"options,omitempty"`
}

func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is an insertion-ordered list of lines in which no two lines are
// mergeable (same product, equal options).
type Cart struct {
	products ProductLookup
	items    []Item
}

func New(products ProductLookup) *Cart {
	return &Cart{products: products, items: make([]Item, 0)}
}

// Add puts quantity units of the product into the cart, folding them into an
// existing mergeable line when there is one. It returns the affected index.
func (c *Cart) Add(productID int64, quantity int, opts *Options) (int, error) {
	if quantity < MinQuantity || quantity > MaxQuantity {
		return -1, fmt.Errorf("%w, got %d", ErrInvalidQuantity, quantity)
	}

	product, ok := c.products.Lookup(productID)
	if !ok {
		log.Warn().Int64("product_id", productID).Msg("cart: add for product missing from catalog")
		return -1, fmt.Errorf("cart: product %d: %w", productID, catalog.ErrProductNotFound)
	}

	opts, err := normalizeOptions(product, opts)
	if err != nil {
		return -1, err
	}

	for i := range c.items {
		line := &c.items[i]
		if line.ProductID != productID || !sameOptions(line.Options, opts) {
			continue
		}
		line.Quantity = clampQuantity(line.Quantity + quantity)
		return i, nil
	}

	c.items = append(c.items, Item{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Quantity:  quantity,
		Options:   opts,
	})
	return len(c.items) - 1, nil
}

// SetQuantity overwrites the quantity of an existing line.
func (c *Cart) SetQuantity(index, quantity int) error {
	if index < 0 || index >= len(c.items) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	if quantity < MinQuantity || quantity > MaxQuantity {
		return fmt.Errorf("%w, got %d", ErrInvalidQuantity, quantity)
	}
	c.items[index].Quantity = quantity
	return nil
}

func (c *Cart) Remove(index int) error {
	if index < 0 || index >= len(c.items) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	c.items = append(c.items[:index], c.items[index+1:]...)
	return nil
}

func (c *Cart) Clear() {
	c.items = make([]Item, 0)
}

// Total is the exact, unrounded sum of price*quantity over all lines.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// DisplayTotal is Total rounded to cents. Use it for display only.
func (c *Cart) DisplayTotal() string {
	return c.Total().StringFixed(2)
}

// Items returns a deep copy of the lines, safe to hand to an order draft.
func (c *Cart) Items() []Item {
	out := make([]Item, len(c.items))
	for i, item := range c.items {
		if item.Options != nil {
			opts := *item.Options
			item.Options = &opts
		}
		out[i] = item
	}
	return out
}

func (c *Cart) Len() int {
	return len(c.items)
}

func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// Quantity is the number of units across all lines.
func (c *Cart) Quantity() int {
	n := 0
	for _, item := range c.items {
		n += item.Quantity
	}
	return n
}

func normalizeOptions(product catalog.Product, opts *Options) (*Options, error) {
	if opts == nil || !product.Customizable() || opts.IsZero() {
		return nil, nil
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	copied := *opts
	return &copied, nil
}

func clampQuantity(q int) int {
	if q > MaxQuantity {
		return MaxQuantity
	}
	if q < MinQuantity {
		return MinQuantity
	}
	return q
}
