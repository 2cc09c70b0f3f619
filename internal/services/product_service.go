package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pulgax-store/internal/apperrors"
	"pulgax-store/internal/models"
	"pulgax-store/internal/repository"
)

type ProductService struct {
	catalog repository.CatalogRepository
	logger  *logrus.Entry
	now     func() time.Time
}

func NewProductService(catalog repository.CatalogRepository, logger *logrus.Entry) *ProductService {
	return &ProductService{
		catalog: catalog,
		logger:  logger.WithField("component", "product_service"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ListProducts returns the public catalog: active products only.
func (s *ProductService) ListProducts(ctx context.Context, categoryID string, featured *bool) ([]models.Product, error) {
	return s.catalog.ListProducts(ctx, repository.ProductFilter{
		ActiveOnly: true,
		CategoryID: categoryID,
		Featured:   featured,
	})
}

// ListAllProducts includes inactive products, for the back office.
func (s *ProductService) ListAllProducts(ctx context.Context) ([]models.Product, error) {
	return s.catalog.ListProducts(ctx, repository.ProductFilter{})
}

// GetProduct hides inactive products unless includeInactive is set.
func (s *ProductService) GetProduct(ctx context.Context, id string, includeInactive bool) (*models.Product, error) {
	p, err := s.catalog.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active && !includeInactive {
		return nil, apperrors.NotFound("product", id)
	}
	return p, nil
}

func (s *ProductService) CreateProduct(ctx context.Context, req models.ProductRequest) (*models.Product, error) {
	now := s.now()
	p := &models.Product{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	req.Apply(p)

	if err := s.check(ctx, p); err != nil {
		return nil, err
	}
	if err := s.catalog.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"product_id": p.ID, "name": p.NameEN}).Info("Product created")
	return p, nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, id string, req models.ProductRequest) (*models.Product, error) {
	p, err := s.catalog.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Apply(p)
	p.UpdatedAt = s.now()

	if err := s.check(ctx, p); err != nil {
		return nil, err
	}
	if err := s.catalog.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}
	s.logger.WithField("product_id", p.ID).Info("Product updated")
	return p, nil
}

func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.catalog.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("product_id", id).Info("Product deleted")
	return nil
}

func (s *ProductService) check(ctx context.Context, p *models.Product) error {
	if err := firstIssueError(ValidateProduct(p)); err != nil {
		return err
	}
	if _, err := s.catalog.GetCategory(ctx, p.CategoryID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.Invalid(apperrors.ErrValidation, "category_id", "category %s does not exist", p.CategoryID)
		}
		return err
	}
	return nil
}
