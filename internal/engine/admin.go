package engine

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/maksline/lavka/internal/model"
)

// AdminCategories lists categories without the subscription gate. Admin only.
func (e *Engine) AdminCategories(adminID int64) ([]model.Category, error) {
	if _, err := e.requireAdmin(adminID); err != nil {
		return nil, err
	}
	return e.catalog.Categories(), nil
}

// AdminProducts lists a category's products without the subscription gate.
// Admin only.
func (e *Engine) AdminProducts(adminID, categoryID int64) ([]model.Product, error) {
	if _, err := e.requireAdmin(adminID); err != nil {
		return nil, err
	}
	if _, err := e.catalog.Category(categoryID); err != nil {
		return nil, err
	}
	return e.catalog.ProductsByCategory(categoryID), nil
}

// AddCategory creates a catalog category. Admin only.
func (e *Engine) AddCategory(adminID int64, name string) (int64, error) {
	if _, err := e.requireAdmin(adminID); err != nil {
		return 0, err
	}
	id, err := e.catalog.AddCategory(name)
	if err != nil {
		return 0, err
	}
	slog.Info("category added", "category_id", id, "name", name, "admin_id", adminID)
	return id, nil
}

// AddProduct creates a catalog product. Admin only.
func (e *Engine) AddProduct(adminID, categoryID int64, name string, price decimal.Decimal, description string, quantity int) (int64, error) {
	if _, err := e.requireAdmin(adminID); err != nil {
		return 0, err
	}
	id, err := e.catalog.AddProduct(categoryID, name, price, description, quantity)
	if err != nil {
		return 0, err
	}
	slog.Info("product added",
		"product_id", id,
		"category_id", categoryID,
		"name", name,
		"price", price.StringFixed(2),
		"admin_id", adminID,
	)
	return id, nil
}

// DeleteProduct removes a product from the catalog. Existing carts keep the
// line; it is skipped at repricing time. Admin only.
func (e *Engine) DeleteProduct(adminID, productID int64) error {
	if _, err := e.requireAdmin(adminID); err != nil {
		return err
	}
	if err := e.catalog.DeleteProduct(productID); err != nil {
		return err
	}
	slog.Info("product deleted", "product_id", productID, "admin_id", adminID)
	return nil
}
