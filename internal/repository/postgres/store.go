// Package postgres stores every collection in PostgreSQL through gorm. Entities
// live in JSONB documents; the columns beside them carry what queries and
// constraints need.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"pulgax-store/internal/apperrors"
	"pulgax-store/internal/models"
	"pulgax-store/internal/repository"
)

type Store struct {
	db *gorm.DB
}

var _ repository.Store = (*Store)(nil)

// Open connects to dsn and migrates the schema.
func Open(dsn string, debug bool) (*Store, error) {
	logLevel := logger.Error
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)

	return New(db)
}

// New wraps an existing connection and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	err := db.AutoMigrate(
		&categoryRecord{},
		&productRecord{},
		&orderRecord{},
		&adminRecord{},
		&customerRecord{},
		&messageRecord{},
	)
	if err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return apperrors.Dependency("ping database", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return apperrors.Dependency("ping database", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// fail maps gorm errors onto the shared error kinds.
func fail(op, entity, id string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.NotFound(entity, id)
	case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrDependency):
		return err
	default:
		return apperrors.Dependency(op, err)
	}
}

func affected(res *gorm.DB, op, entity, id string) error {
	if res.Error != nil {
		return fail(op, entity, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound(entity, id)
	}
	return nil
}

// ============== CATEGORIES ==============

func (s *Store) CreateCategory(ctx context.Context, category *models.Category) error {
	rec := &categoryRecord{ID: category.ID, CreatedAt: category.CreatedAt, Doc: datatypes.NewJSONType(*category)}
	return fail("create category", "category", category.ID, s.db.WithContext(ctx).Create(rec).Error)
}

func (s *Store) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	var rec categoryRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, fail("get category", "category", id, err)
	}
	c := rec.Doc.Data()
	return &c, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	var recs []categoryRecord
	if err := s.db.WithContext(ctx).Order("created_at").Find(&recs).Error; err != nil {
		return nil, apperrors.Dependency("list categories", err)
	}
	out := make([]models.Category, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Doc.Data())
	}
	return out, nil
}

func (s *Store) UpdateCategory(ctx context.Context, category *models.Category) error {
	res := s.db.WithContext(ctx).Model(&categoryRecord{}).
		Where("id = ?", category.ID).
		Update("doc", datatypes.NewJSONType(*category))
	return affected(res, "update category", "category", category.ID)
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&categoryRecord{}, "id = ?", id)
	return affected(res, "delete category", "category", id)
}

// ============== PRODUCTS ==============

func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	return fail("create product", "product", product.ID, s.db.WithContext(ctx).Create(toProductRecord(product)).Error)
}

func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var rec productRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, fail("get product", "product", id, err)
	}
	p := rec.Doc.Data()
	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]models.Product, error) {
	q := s.db.WithContext(ctx).Model(&productRecord{})
	if filter.ActiveOnly {
		q = q.Where("active = ?", true)
	}
	if filter.CategoryID != "" {
		q = q.Where("category_id = ?", filter.CategoryID)
	}
	if filter.Featured != nil {
		q = q.Where("featured = ?", *filter.Featured)
	}

	var recs []productRecord
	if err := q.Order("created_at").Find(&recs).Error; err != nil {
		return nil, apperrors.Dependency("list products", err)
	}
	out := make([]models.Product, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Doc.Data())
	}
	return out, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	rec := toProductRecord(product)
	res := s.db.WithContext(ctx).Model(&productRecord{}).
		Where("id = ?", product.ID).
		Select("category_id", "active", "featured", "doc").
		Updates(rec)
	return affected(res, "update product", "product", product.ID)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&productRecord{}, "id = ?", id)
	return affected(res, "delete product", "product", id)
}

// ============== ORDERS ==============

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	err := s.db.WithContext(ctx).Create(toOrderRecord(order)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("order number %s: %w", order.OrderNumber, apperrors.ErrDuplicateOrderNumber)
	}
	return fail("create order", "order", order.ID, err)
}

func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var rec orderRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, fail("get order", "order", id, err)
	}
	o := rec.Doc.Data()
	return &o, nil
}

func (s *Store) ListOrders(ctx context.Context) ([]models.Order, error) {
	return s.listOrders(ctx, s.db.WithContext(ctx))
}

func (s *Store) ListOrdersByCustomer(ctx context.Context, customerID string) ([]models.Order, error) {
	return s.listOrders(ctx, s.db.WithContext(ctx).Where("customer_id = ?", customerID))
}

func (s *Store) listOrders(ctx context.Context, q *gorm.DB) ([]models.Order, error) {
	var recs []orderRecord
	if err := q.Order("created_at DESC").Find(&recs).Error; err != nil {
		return nil, apperrors.Dependency("list orders", err)
	}
	out := make([]models.Order, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Doc.Data())
	}
	return out, nil
}

// UpdateOrder locks the row with SELECT ... FOR UPDATE for the duration of the
// mutation, so concurrent updates of one order queue behind each other.
func (s *Store) UpdateOrder(ctx context.Context, id string, mutate repository.OrderMutation) (*models.Order, error) {
	var (
		updated   models.Order
		mutateErr error
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec orderRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&rec, "id = ?", id).Error
		if err != nil {
			return err
		}

		order := rec.Doc.Data()
		if mutateErr = mutate(&order); mutateErr != nil {
			return mutateErr
		}
		updated = order
		return tx.Save(toOrderRecord(&order)).Error
	})
	if mutateErr != nil {
		return nil, mutateErr
	}
	if err != nil {
		return nil, fail("update order", "order", id, err)
	}
	return &updated, nil
}

func (s *Store) CountOrdersByStatus(ctx context.Context) (map[models.OrderStatus]int, error) {
	var rows []struct {
		Status string
		N      int
	}
	err := s.db.WithContext(ctx).Model(&orderRecord{}).
		Select("status, count(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Dependency("count orders", err)
	}
	counts := make(map[models.OrderStatus]int, len(rows))
	for _, r := range rows {
		counts[models.OrderStatus(r.Status)] = r.N
	}
	return counts, nil
}

// ============== ADMINS ==============

func (s *Store) CreateAdmin(ctx context.Context, admin *models.Admin) error {
	return createAdmin(s.db.WithContext(ctx), admin)
}

// CreateSoleAdmin takes a table lock so two first-admin registrations cannot
// both see an empty table.
func (s *Store) CreateSoleAdmin(ctx context.Context, admin *models.Admin) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("LOCK TABLE admins IN SHARE ROW EXCLUSIVE MODE").Error; err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&adminRecord{}).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return apperrors.ErrAdminExists
		}
		return createAdmin(tx, admin)
	})
	return fail("create admin", "admin", admin.ID, err)
}

func createAdmin(db *gorm.DB, admin *models.Admin) error {
	rec := &adminRecord{
		ID:        admin.ID,
		Email:     emailKey(admin.Email),
		CreatedAt: admin.CreatedAt,
		Doc:       datatypes.NewJSONType(*admin),
	}
	err := db.Create(rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.ErrEmailTaken
	}
	return fail("create admin", "admin", admin.ID, err)
}

func (s *Store) GetAdmin(ctx context.Context, id string) (*models.Admin, error) {
	var rec adminRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, fail("get admin", "admin", id, err)
	}
	a := rec.Doc.Data()
	return &a, nil
}

func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var rec adminRecord
	if err := s.db.WithContext(ctx).First(&rec, "email = ?", emailKey(email)).Error; err != nil {
		return nil, fail("get admin", "admin with email", email, err)
	}
	a := rec.Doc.Data()
	return &a, nil
}

func (s *Store) CountAdmins(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&adminRecord{}).Count(&n).Error; err != nil {
		return 0, apperrors.Dependency("count admins", err)
	}
	return int(n), nil
}

// ============== CUSTOMERS ==============

func (s *Store) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	rec := &customerRecord{
		ID:        customer.ID,
		Email:     emailKey(customer.Email),
		CreatedAt: customer.CreatedAt,
		Doc:       datatypes.NewJSONType(*customer),
	}
	err := s.db.WithContext(ctx).Create(rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.ErrEmailTaken
	}
	return fail("create customer", "customer", customer.ID, err)
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	var rec customerRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, fail("get customer", "customer", id, err)
	}
	c := rec.Doc.Data()
	return &c, nil
}

func (s *Store) GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var rec customerRecord
	if err := s.db.WithContext(ctx).First(&rec, "email = ?", emailKey(email)).Error; err != nil {
		return nil, fail("get customer", "customer with email", email, err)
	}
	c := rec.Doc.Data()
	return &c, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer *models.Customer) error {
	res := s.db.WithContext(ctx).Model(&customerRecord{}).
		Where("id = ?", customer.ID).
		Select("email", "doc").
		Updates(&customerRecord{Email: emailKey(customer.Email), Doc: datatypes.NewJSONType(*customer)})
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return apperrors.ErrEmailTaken
	}
	return affected(res, "update customer", "customer", customer.ID)
}

// ============== MESSAGES ==============

func (s *Store) CreateMessage(ctx context.Context, msg *models.ContactMessage) error {
	return fail("create message", "message", msg.ID, s.db.WithContext(ctx).Create(toMessageRecord(msg)).Error)
}

func (s *Store) GetMessage(ctx context.Context, id string) (*models.ContactMessage, error) {
	var rec messageRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, fail("get message", "message", id, err)
	}
	m := rec.Doc.Data()
	return &m, nil
}

func (s *Store) ListMessages(ctx context.Context) ([]models.ContactMessage, error) {
	var recs []messageRecord
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&recs).Error; err != nil {
		return nil, apperrors.Dependency("list messages", err)
	}
	out := make([]models.ContactMessage, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Doc.Data())
	}
	return out, nil
}

func (s *Store) MarkMessageRead(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&messageRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"read": true,
			"doc":  gorm.Expr(`jsonb_set(doc, '{read}', 'true'::jsonb)`),
		})
	return affected(res, "mark message read", "message", id)
}

func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&messageRecord{}, "id = ?", id)
	return affected(res, "delete message", "message", id)
}

func (s *Store) CountUnreadMessages(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&messageRecord{}).Where("read = ?", false).Count(&n).Error; err != nil {
		return 0, apperrors.Dependency("count unread messages", err)
	}
	return int(n), nil
}
