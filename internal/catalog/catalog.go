// Package catalog implements the catalog store: categories and products with
// unique, monotonically assigned identifiers and no business rules beyond that.
package catalog

import (
	"log/slog"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/maksline/lavka/internal/fault"
	"github.com/maksline/lavka/internal/model"
)

// Saver persists the full catalog. Each save is a whole-table overwrite.
type Saver interface {
	SaveCatalog(categories []model.Category, products []model.Product) error
}

// Store holds categories and products behind a single lock.
//
// Mutations are read-modify-write against the in-memory tables followed by a
// full-table persist. Persistence failures are logged and the operation
// proceeds with in-memory state only; durability degrades rather than
// blocking functionality.
type Store struct {
	mu         sync.Mutex
	categories []model.Category
	products   []model.Product
	saver      Saver
}

// New creates an empty catalog store backed by the given saver.
func New(saver Saver) *Store {
	return &Store{saver: saver}
}

// Init replaces the in-memory tables with loaded state.
// Called once at startup with the output of the durable store.
func (s *Store) Init(categories []model.Category, products []model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = append([]model.Category(nil), categories...)
	s.products = append([]model.Product(nil), products...)
}

// Categories returns a copy of all categories.
func (s *Store) Categories() []model.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Category(nil), s.categories...)
}

// Category returns the category with the given id.
func (s *Store) Category(id int64) (model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if c.ID == id {
			return c, nil
		}
	}
	return model.Category{}, fault.NotFound("category", formatID(id))
}

// Products returns a copy of all products.
func (s *Store) Products() []model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Product(nil), s.products...)
}

// ProductsByCategory returns all products in the given category.
func (s *Store) ProductsByCategory(categoryID int64) []model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Product
	for _, p := range s.products {
		if p.CategoryID == categoryID {
			out = append(out, p)
		}
	}
	return out
}

// Product returns the product with the given id.
func (s *Store) Product(id int64) (model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.productLocked(id)
}

func (s *Store) productLocked(id int64) (model.Product, error) {
	for _, p := range s.products {
		if p.ID == id {
			return p, nil
		}
	}
	return model.Product{}, fault.NotFound("product", formatID(id))
}

// AddCategory creates a category with id max(existing)+1 and returns the id.
func (s *Store) AddCategory(name string) (int64, error) {
	if name == "" {
		return 0, fault.New(fault.CodeInvalidInput, "category name must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var maxID int64
	for _, c := range s.categories {
		if c.ID > maxID {
			maxID = c.ID
		}
	}
	id := maxID + 1
	s.categories = append(s.categories, model.Category{ID: id, Name: name})
	s.persistLocked()
	return id, nil
}

// AddProduct creates a product with id max(existing)+1 and returns the id.
// The category must exist; price must be positive and quantity non-negative.
func (s *Store) AddProduct(categoryID int64, name string, price decimal.Decimal, description string, quantity int) (int64, error) {
	if name == "" {
		return 0, fault.New(fault.CodeInvalidInput, "product name must not be empty")
	}
	if !price.IsPositive() {
		return 0, fault.New(fault.CodeInvalidInput, "product price must be positive")
	}
	if quantity < 0 {
		return 0, fault.New(fault.CodeInvalidInput, "product quantity must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for _, c := range s.categories {
		if c.ID == categoryID {
			found = true
			break
		}
	}
	if !found {
		return 0, fault.NotFound("category", formatID(categoryID))
	}

	var maxID int64
	for _, p := range s.products {
		if p.ID > maxID {
			maxID = p.ID
		}
	}
	id := maxID + 1
	s.products = append(s.products, model.Product{
		ID:          id,
		CategoryID:  categoryID,
		Name:        name,
		Price:       price,
		Description: description,
		Quantity:    quantity,
	})
	s.persistLocked()
	return id, nil
}

// DeleteProduct removes a product by id.
func (s *Store) DeleteProduct(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.products {
		if p.ID == id {
			s.products = append(s.products[:i], s.products[i+1:]...)
			s.persistLocked()
			return nil
		}
	}
	return fault.NotFound("product", formatID(id))
}

// Counts returns the number of categories and products.
func (s *Store) Counts() (categories, products int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.categories), len(s.products)
}

func (s *Store) persistLocked() {
	if s.saver == nil {
		return
	}
	cats := append([]model.Category(nil), s.categories...)
	prods := append([]model.Product(nil), s.products...)
	if err := s.saver.SaveCatalog(cats, prods); err != nil {
		slog.Error("catalog persist failed, continuing with in-memory state", "error", err)
	}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
