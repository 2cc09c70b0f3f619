// Package repository declares the persistence contracts the services depend on.
// Two implementations live in subpackages: jsonstore (one JSON array file per
// collection) and postgres (gorm with JSONB documents).
package repository

import (
	"context"

	"pulgax-store/internal/models"
)

// All lookups are by exact identity. A missing entity is reported as an error
// wrapping apperrors.ErrNotFound; storage failures wrap apperrors.ErrDependency.

type CategoryRepository interface {
	CreateCategory(ctx context.Context, category *models.Category) error
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	UpdateCategory(ctx context.Context, category *models.Category) error
	DeleteCategory(ctx context.Context, id string) error
}

// ProductFilter narrows ListProducts. Zero value returns every product.
type ProductFilter struct {
	ActiveOnly bool
	CategoryID string
	Featured   *bool
}

type ProductRepository interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id string) error
}

// CatalogRepository is the read/write surface of the catalog store.
type CatalogRepository interface {
	CategoryRepository
	ProductRepository
}

// OrderMutation edits an order in place. Returning an error aborts the update and
// leaves the stored order unchanged.
type OrderMutation func(order *models.Order) error

type OrderRepository interface {
	// CreateOrder fails with apperrors.ErrDuplicateOrderNumber when the order
	// number is already taken.
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	// ListOrders returns orders newest first.
	ListOrders(ctx context.Context) ([]models.Order, error)
	// ListOrdersByCustomer returns the customer's orders newest first.
	ListOrdersByCustomer(ctx context.Context, customerID string) ([]models.Order, error)
	// UpdateOrder applies mutate atomically for the order identified by id: no
	// other UpdateOrder on the same id interleaves, and readers see either the
	// old or the new document.
	UpdateOrder(ctx context.Context, id string, mutate OrderMutation) (*models.Order, error)
	CountOrdersByStatus(ctx context.Context) (map[models.OrderStatus]int, error)
}

type AdminRepository interface {
	CreateAdmin(ctx context.Context, admin *models.Admin) error
	// CreateSoleAdmin inserts admin only if no admin exists yet, otherwise it
	// fails with apperrors.ErrAdminExists. The check and insert are atomic.
	CreateSoleAdmin(ctx context.Context, admin *models.Admin) error
	GetAdmin(ctx context.Context, id string) (*models.Admin, error)
	GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error)
	CountAdmins(ctx context.Context) (int, error)
}

type CustomerRepository interface {
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	GetCustomer(ctx context.Context, id string) (*models.Customer, error)
	GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, customer *models.Customer) error
}

type MessageRepository interface {
	CreateMessage(ctx context.Context, msg *models.ContactMessage) error
	GetMessage(ctx context.Context, id string) (*models.ContactMessage, error)
	// ListMessages returns messages newest first.
	ListMessages(ctx context.Context) ([]models.ContactMessage, error)
	MarkMessageRead(ctx context.Context, id string) error
	DeleteMessage(ctx context.Context, id string) error
	CountUnreadMessages(ctx context.Context) (int, error)
}

// Store bundles every repository behind one handle that is passed explicitly to
// the services.
type Store interface {
	CatalogRepository
	OrderRepository
	AdminRepository
	CustomerRepository
	MessageRepository
	Ping(ctx context.Context) error
	Close() error
}
