package preference

import (
	"errors"
	"fmt"
	"sort"

	"github.com/vasiliy-maslov/cafe-storefront/internal/cart"
	"github.com/vasiliy-maslov/cafe-storefront/internal/catalog"
)

var (
	ErrNoSelector     = errors.New("product has no option selector")
	ErrNothingToApply = errors.New("no saved coffee preferences to apply")
)

var defaultSelection = Selection{Milk: cart.MilkWhole, Ice: cart.IceRegular}

// Selection is the state of one product's milk and ice pickers.
type Selection struct {
	Milk cart.MilkType `json:"milk_type"`
	Ice  cart.IceLevel `json:"ice_level"`
}

func (s Selection) Options() *cart.Options {
	return &cart.Options{Milk: s.Milk, Ice: s.Ice}
}

// Selectors tracks the option pickers of every rendered coffee product,
// keyed by product id.
type Selectors struct {
	byProduct map[int64]Selection
}

// NewSelectors renders a picker, at defaults, for each customizable product.
func NewSelectors(products []catalog.Product) *Selectors {
	s := &Selectors{byProduct: make(map[int64]Selection)}
	s.Render(products)
	return s
}

// Render replaces the set of pickers. Existing choices survive for products
// still in the list.
func (s *Selectors) Render(products []catalog.Product) {
	next := make(map[int64]Selection)
	for _, p := range products {
		if !p.Customizable() {
			continue
		}
		if prev, ok := s.byProduct[p.ID]; ok {
			next[p.ID] = prev
			continue
		}
		next[p.ID] = defaultSelection
	}
	s.byProduct = next
}

func (s *Selectors) Get(productID int64) (Selection, bool) {
	sel, ok := s.byProduct[productID]
	return sel, ok
}

func (s *Selectors) Set(productID int64, sel Selection) error {
	if _, ok := s.byProduct[productID]; !ok {
		return fmt.Errorf("%w: %d", ErrNoSelector, productID)
	}
	if err := (cart.Options{Milk: sel.Milk, Ice: sel.Ice}).Validate(); err != nil {
		return err
	}
	cur := s.byProduct[productID]
	if sel.Milk != "" {
		cur.Milk = sel.Milk
	}
	if sel.Ice != "" {
		cur.Ice = sel.Ice
	}
	s.byProduct[productID] = cur
	return nil
}

// ProductIDs lists products with a picker, ascending.
func (s *Selectors) ProductIDs() []int64 {
	ids := make([]int64, 0, len(s.byProduct))
	for id := range s.byProduct {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Selectors) Snapshot() map[int64]Selection {
	out := make(map[int64]Selection, len(s.byProduct))
	for id, sel := range s.byProduct {
		out[id] = sel
	}
	return out
}

// ApplyToCatalog points every rendered coffee picker at the member's saved
// milk and ice choices and returns how many pickers were touched. Applying
// the same values again leaves the state unchanged.
func ApplyToCatalog(s *Selectors, milk cart.MilkType, ice cart.IceLevel) (int, error) {
	if milk == "" && ice == "" {
		return 0, ErrNothingToApply
	}
	if err := (cart.Options{Milk: milk, Ice: ice}).Validate(); err != nil {
		return 0, err
	}

	applied := 0
	for _, id := range s.ProductIDs() {
		if err := s.Set(id, Selection{Milk: milk, Ice: ice}); err != nil {
			continue
		}
		applied++
	}
	return applied, nil
}
