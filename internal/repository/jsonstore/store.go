// Package jsonstore persists each collection as a JSON array file inside a data
// directory: admins.json, customers.json, categories.json, products.json,
// orders.json and messages.json.
package jsonstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"pulgax-store/internal/apperrors"
	"pulgax-store/internal/models"
	"pulgax-store/internal/repository"
)

type Store struct {
	dir        string
	admins     *collection[models.Admin]
	customers  *collection[models.Customer]
	categories *collection[models.Category]
	products   *collection[models.Product]
	orders     *collection[models.Order]
	messages   *collection[models.ContactMessage]
}

var _ repository.Store = (*Store)(nil)

// Open prepares dir for use, creating it when missing.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return &Store{
		dir:        dir,
		admins:     newCollection[models.Admin](dir, "admins"),
		customers:  newCollection[models.Customer](dir, "customers"),
		categories: newCollection[models.Category](dir, "categories"),
		products:   newCollection[models.Product](dir, "products"),
		orders:     newCollection[models.Order](dir, "orders"),
		messages:   newCollection[models.ContactMessage](dir, "messages"),
	}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if _, err := os.Stat(s.dir); err != nil {
		return apperrors.Dependency("stat data dir", err)
	}
	return nil
}

func (s *Store) Close() error { return nil }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, k := range []error{apperrors.ErrNotFound, apperrors.ErrConflict, apperrors.ErrValidation} {
		if errors.Is(err, k) {
			return err
		}
	}
	return apperrors.Dependency(op, err)
}

func newestFirst[T any](items []T, created func(*T) int64) {
	slices.SortStableFunc(items, func(a, b T) int {
		ca, cb := created(&a), created(&b)
		switch {
		case ca > cb:
			return -1
		case ca < cb:
			return 1
		default:
			return 0
		}
	})
}

// ============== CATEGORIES ==============

func (s *Store) CreateCategory(ctx context.Context, category *models.Category) error {
	err := s.categories.write(func(items []models.Category) ([]models.Category, error) {
		return append(items, *category), nil
	})
	return wrap("create category", err)
}

func (s *Store) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	var found *models.Category
	err := s.categories.read(func(items []models.Category) error {
		if i := indexOf(items, func(c *models.Category) bool { return c.ID == id }); i >= 0 {
			found = &items[i]
			return nil
		}
		return apperrors.NotFound("category", id)
	})
	return found, wrap("get category", err)
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	err := s.categories.read(func(items []models.Category) error {
		out = items
		return nil
	})
	return out, wrap("list categories", err)
}

func (s *Store) UpdateCategory(ctx context.Context, category *models.Category) error {
	err := s.categories.write(func(items []models.Category) ([]models.Category, error) {
		i := indexOf(items, func(c *models.Category) bool { return c.ID == category.ID })
		if i < 0 {
			return nil, apperrors.NotFound("category", category.ID)
		}
		items[i] = *category
		return items, nil
	})
	return wrap("update category", err)
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	err := s.categories.write(func(items []models.Category) ([]models.Category, error) {
		i := indexOf(items, func(c *models.Category) bool { return c.ID == id })
		if i < 0 {
			return nil, apperrors.NotFound("category", id)
		}
		return slices.Delete(items, i, i+1), nil
	})
	return wrap("delete category", err)
}

// ============== PRODUCTS ==============

func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	err := s.products.write(func(items []models.Product) ([]models.Product, error) {
		return append(items, *product), nil
	})
	return wrap("create product", err)
}

func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var found *models.Product
	err := s.products.read(func(items []models.Product) error {
		if i := indexOf(items, func(p *models.Product) bool { return p.ID == id }); i >= 0 {
			found = &items[i]
			return nil
		}
		return apperrors.NotFound("product", id)
	})
	return found, wrap("get product", err)
}

func (s *Store) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]models.Product, error) {
	out := []models.Product{}
	err := s.products.read(func(items []models.Product) error {
		for _, p := range items {
			if filter.ActiveOnly && !p.Active {
				continue
			}
			if filter.CategoryID != "" && p.CategoryID != filter.CategoryID {
				continue
			}
			if filter.Featured != nil && p.Featured != *filter.Featured {
				continue
			}
			out = append(out, p)
		}
		return nil
	})
	return out, wrap("list products", err)
}

func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	err := s.products.write(func(items []models.Product) ([]models.Product, error) {
		i := indexOf(items, func(p *models.Product) bool { return p.ID == product.ID })
		if i < 0 {
			return nil, apperrors.NotFound("product", product.ID)
		}
		items[i] = *product
		return items, nil
	})
	return wrap("update product", err)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	err := s.products.write(func(items []models.Product) ([]models.Product, error) {
		i := indexOf(items, func(p *models.Product) bool { return p.ID == id })
		if i < 0 {
			return nil, apperrors.NotFound("product", id)
		}
		return slices.Delete(items, i, i+1), nil
	})
	return wrap("delete product", err)
}

// ============== ORDERS ==============

func orderCreated(o *models.Order) int64 { return o.CreatedAt.UnixNano() }

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	err := s.orders.write(func(items []models.Order) ([]models.Order, error) {
		if indexOf(items, func(o *models.Order) bool { return o.OrderNumber == order.OrderNumber }) >= 0 {
			return nil, fmt.Errorf("order number %s: %w", order.OrderNumber, apperrors.ErrDuplicateOrderNumber)
		}
		return append(items, *order), nil
	})
	return wrap("create order", err)
}

func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var found *models.Order
	err := s.orders.read(func(items []models.Order) error {
		if i := indexOf(items, func(o *models.Order) bool { return o.ID == id }); i >= 0 {
			found = &items[i]
			return nil
		}
		return apperrors.NotFound("order", id)
	})
	return found, wrap("get order", err)
}

func (s *Store) ListOrders(ctx context.Context) ([]models.Order, error) {
	var out []models.Order
	err := s.orders.read(func(items []models.Order) error {
		newestFirst(items, orderCreated)
		out = items
		return nil
	})
	return out, wrap("list orders", err)
}

func (s *Store) ListOrdersByCustomer(ctx context.Context, customerID string) ([]models.Order, error) {
	out := []models.Order{}
	err := s.orders.read(func(items []models.Order) error {
		for _, o := range items {
			if o.CustomerID != nil && *o.CustomerID == customerID {
				out = append(out, o)
			}
		}
		newestFirst(out, orderCreated)
		return nil
	})
	return out, wrap("list customer orders", err)
}

func (s *Store) UpdateOrder(ctx context.Context, id string, mutate repository.OrderMutation) (*models.Order, error) {
	var (
		updated   models.Order
		mutateErr error
	)
	err := s.orders.write(func(items []models.Order) ([]models.Order, error) {
		i := indexOf(items, func(o *models.Order) bool { return o.ID == id })
		if i < 0 {
			return nil, apperrors.NotFound("order", id)
		}
		draft := items[i]
		draft.StatusHistory = slices.Clone(draft.StatusHistory)
		if mutateErr = mutate(&draft); mutateErr != nil {
			return nil, mutateErr
		}
		items[i] = draft
		updated = draft
		return items, nil
	})
	if mutateErr != nil {
		return nil, mutateErr
	}
	if err != nil {
		return nil, wrap("update order", err)
	}
	return &updated, nil
}

func (s *Store) CountOrdersByStatus(ctx context.Context) (map[models.OrderStatus]int, error) {
	counts := make(map[models.OrderStatus]int)
	err := s.orders.read(func(items []models.Order) error {
		for _, o := range items {
			counts[o.Status]++
		}
		return nil
	})
	return counts, wrap("count orders", err)
}

// ============== ADMINS ==============

func (s *Store) CreateAdmin(ctx context.Context, admin *models.Admin) error {
	return wrap("create admin", s.admins.write(func(items []models.Admin) ([]models.Admin, error) {
		return appendAdmin(items, admin, false)
	}))
}

// CreateSoleAdmin inserts admin only while the collection is empty.
func (s *Store) CreateSoleAdmin(ctx context.Context, admin *models.Admin) error {
	return wrap("create admin", s.admins.write(func(items []models.Admin) ([]models.Admin, error) {
		return appendAdmin(items, admin, true)
	}))
}

func appendAdmin(items []models.Admin, admin *models.Admin, sole bool) ([]models.Admin, error) {
	if sole && len(items) > 0 {
		return nil, apperrors.ErrAdminExists
	}
	if indexOf(items, func(a *models.Admin) bool { return strings.EqualFold(a.Email, admin.Email) }) >= 0 {
		return nil, apperrors.ErrEmailTaken
	}
	return append(items, *admin), nil
}

func (s *Store) GetAdmin(ctx context.Context, id string) (*models.Admin, error) {
	return s.findAdmin("admin", id, func(a *models.Admin) bool { return a.ID == id })
}

func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	return s.findAdmin("admin with email", email, func(a *models.Admin) bool { return strings.EqualFold(a.Email, email) })
}

func (s *Store) findAdmin(entity, key string, match func(*models.Admin) bool) (*models.Admin, error) {
	var found *models.Admin
	err := s.admins.read(func(items []models.Admin) error {
		if i := indexOf(items, match); i >= 0 {
			found = &items[i]
			return nil
		}
		return apperrors.NotFound(entity, key)
	})
	return found, wrap("get admin", err)
}

func (s *Store) CountAdmins(ctx context.Context) (int, error) {
	var n int
	err := s.admins.read(func(items []models.Admin) error {
		n = len(items)
		return nil
	})
	return n, wrap("count admins", err)
}

// ============== CUSTOMERS ==============

func (s *Store) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	err := s.customers.write(func(items []models.Customer) ([]models.Customer, error) {
		if indexOf(items, func(c *models.Customer) bool { return strings.EqualFold(c.Email, customer.Email) }) >= 0 {
			return nil, apperrors.ErrEmailTaken
		}
		return append(items, *customer), nil
	})
	return wrap("create customer", err)
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	return s.findCustomer("customer", id, func(c *models.Customer) bool { return c.ID == id })
}

func (s *Store) GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	return s.findCustomer("customer with email", email, func(c *models.Customer) bool { return strings.EqualFold(c.Email, email) })
}

func (s *Store) findCustomer(entity, key string, match func(*models.Customer) bool) (*models.Customer, error) {
	var found *models.Customer
	err := s.customers.read(func(items []models.Customer) error {
		if i := indexOf(items, match); i >= 0 {
			found = &items[i]
			return nil
		}
		return apperrors.NotFound(entity, key)
	})
	return found, wrap("get customer", err)
}

func (s *Store) UpdateCustomer(ctx context.Context, customer *models.Customer) error {
	err := s.customers.write(func(items []models.Customer) ([]models.Customer, error) {
		i := indexOf(items, func(c *models.Customer) bool { return c.ID == customer.ID })
		if i < 0 {
			return nil, apperrors.NotFound("customer", customer.ID)
		}
		items[i] = *customer
		return items, nil
	})
	return wrap("update customer", err)
}

// ============== MESSAGES ==============

func (s *Store) CreateMessage(ctx context.Context, msg *models.ContactMessage) error {
	err := s.messages.write(func(items []models.ContactMessage) ([]models.ContactMessage, error) {
		return append(items, *msg), nil
	})
	return wrap("create message", err)
}

func (s *Store) GetMessage(ctx context.Context, id string) (*models.ContactMessage, error) {
	var found *models.ContactMessage
	err := s.messages.read(func(items []models.ContactMessage) error {
		if i := indexOf(items, func(m *models.ContactMessage) bool { return m.ID == id }); i >= 0 {
			found = &items[i]
			return nil
		}
		return apperrors.NotFound("message", id)
	})
	return found, wrap("get message", err)
}

func (s *Store) ListMessages(ctx context.Context) ([]models.ContactMessage, error) {
	var out []models.ContactMessage
	err := s.messages.read(func(items []models.ContactMessage) error {
		newestFirst(items, func(m *models.ContactMessage) int64 { return m.CreatedAt.UnixNano() })
		out = items
		return nil
	})
	return out, wrap("list messages", err)
}

func (s *Store) MarkMessageRead(ctx context.Context, id string) error {
	err := s.messages.write(func(items []models.ContactMessage) ([]models.ContactMessage, error) {
		i := indexOf(items, func(m *models.ContactMessage) bool { return m.ID == id })
		if i < 0 {
			return nil, apperrors.NotFound("message", id)
		}
		items[i].Read = true
		return items, nil
	})
	return wrap("mark message read", err)
}

func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	err := s.messages.write(func(items []models.ContactMessage) ([]models.ContactMessage, error) {
		i := indexOf(items, func(m *models.ContactMessage) bool { return m.ID == id })
		if i < 0 {
			return nil, apperrors.NotFound("message", id)
		}
		return slices.Delete(items, i, i+1), nil
	})
	return wrap("delete message", err)
}

func (s *Store) CountUnreadMessages(ctx context.Context) (int, error) {
	var n int
	err := s.messages.read(func(items []models.ContactMessage) error {
		for _, m := range items {
			if !m.Read {
				n++
			}
		}
		return nil
	})
	return n, wrap("count unread messages", err)
}
