package catalog

import "errors"

var ErrProductNotFound = errors.New("product not found")

// Store holds the most recently fetched catalog. The list is replaced
// wholesale on every fetch and never edited in place.
type Store struct {
	products   []Product
	byID       map[int64]int
	categories []Category
}

func NewStore() *Store {
	return &Store{byID: make(map[int64]int)}
}

func (s *Store) Replace(products []Product) {
	list := make([]Product, len(products))
	copy(list, products)

	index := make(map[int64]int, len(list))
	for i, p := range list {
		index[p.ID] = i
	}

	s.products = list
	s.byID = index
}

func (s *Store) Lookup(id int64) (Product, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Product{}, false
	}
	return s.products[i], true
}

// All returns a copy of the catalog in server order.
func (s *Store) All() []Product {
	out := make([]Product, len(s.products))
	copy(out, s.products)
	return out
}

// Coffee returns the customizable products in catalog order.
func (s *Store) Coffee() []Product {
	out := make([]Product, 0)
	for _, p := range s.products {
		if p.Customizable() {
			out = append(out, p)
		}
	}
	return out
}

// ReplaceCategories swaps in the menu categories. They only label the menu;
// lookups never depend on them.
func (s *Store) ReplaceCategories(categories []Category) {
	s.categories = append([]Category(nil), categories...)
}

func (s *Store) Categories() []Category {
	out := make([]Category, len(s.categories))
	copy(out, s.categories)
	return out
}

func (s *Store) Len() int {
	return len(s.products)
}
