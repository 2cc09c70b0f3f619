package postgres

import (
	"strings"
	"time"

	"gorm.io/datatypes"

	"pulgax-store/internal/models"
)

// Each table keeps the full entity as a JSONB document next to the columns that
// are filtered, sorted or constrained on.

type categoryRecord struct {
	ID        string `gorm:"primaryKey;type:varchar(64)"`
	CreatedAt time.Time

	Doc datatypes.JSONType[models.Category] `gorm:"type:jsonb;not null"`
}

func (categoryRecord) TableName() string { return "categories" }

type productRecord struct {
	ID         string `gorm:"primaryKey;type:varchar(64)"`
	CategoryID string `gorm:"index;type:varchar(64)"`
	Active     bool   `gorm:"index"`
	Featured   bool
	CreatedAt  time.Time

	Doc datatypes.JSONType[models.Product] `gorm:"type:jsonb;not null"`
}

func (productRecord) TableName() string { return "products" }

func toProductRecord(p *models.Product) *productRecord {
	return &productRecord{
		ID:         p.ID,
		CategoryID: p.CategoryID,
		Active:     p.Active,
		Featured:   p.Featured,
		CreatedAt:  p.CreatedAt,
		Doc:        datatypes.NewJSONType(*p),
	}
}

type orderRecord struct {
	ID          string    `gorm:"primaryKey;type:varchar(64)"`
	OrderNumber string    `gorm:"uniqueIndex;type:varchar(64);not null"`
	CustomerID  *string   `gorm:"index;type:varchar(64)"`
	Status      string    `gorm:"index;type:varchar(32)"`
	CreatedAt   time.Time `gorm:"index"`

	Doc datatypes.JSONType[models.Order] `gorm:"type:jsonb;not null"`
}

func (orderRecord) TableName() string { return "orders" }

func toOrderRecord(o *models.Order) *orderRecord {
	return &orderRecord{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		CustomerID:  o.CustomerID,
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
		Doc:         datatypes.NewJSONType(*o),
	}
}

type adminRecord struct {
	ID        string `gorm:"primaryKey;type:varchar(64)"`
	Email     string `gorm:"uniqueIndex;type:varchar(255);not null"`
	CreatedAt time.Time

	Doc datatypes.JSONType[models.Admin] `gorm:"type:jsonb;not null"`
}

func (adminRecord) TableName() string { return "admins" }

type customerRecord struct {
	ID        string `gorm:"primaryKey;type:varchar(64)"`
	Email     string `gorm:"uniqueIndex;type:varchar(255);not null"`
	CreatedAt time.Time

	Doc datatypes.JSONType[models.Customer] `gorm:"type:jsonb;not null"`
}

func (customerRecord) TableName() string { return "customers" }

type messageRecord struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	Read      bool      `gorm:"index"`
	CreatedAt time.Time `gorm:"index"`

	Doc datatypes.JSONType[models.ContactMessage] `gorm:"type:jsonb;not null"`
}

func (messageRecord) TableName() string { return "messages" }

func toMessageRecord(m *models.ContactMessage) *messageRecord {
	return &messageRecord{ID: m.ID, Read: m.Read, CreatedAt: m.CreatedAt, Doc: datatypes.NewJSONType(*m)}
}

// emailKey is the normalized form stored in the unique email columns.
func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
