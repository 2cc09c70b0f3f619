package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pulgax-store/internal/models"
	"pulgax-store/internal/repository"
)

type CategoryService struct {
	categories repository.CategoryRepository
	logger     *logrus.Entry
	now        func() time.Time
}

func NewCategoryService(categories repository.CategoryRepository, logger *logrus.Entry) *CategoryService {
	return &CategoryService{
		categories: categories,
		logger:     logger.WithField("component", "category_service"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *CategoryService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.categories.ListCategories(ctx)
}

func (s *CategoryService) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	return s.categories.GetCategory(ctx, id)
}

func (s *CategoryService) CreateCategory(ctx context.Context, req models.CategoryRequest) (*models.Category, error) {
	c := &models.Category{ID: uuid.NewString(), CreatedAt: s.now()}
	req.Apply(c)
	if err := s.categories.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"category_id": c.ID, "name": c.NameEN}).Info("Category created")
	return c, nil
}

func (s *CategoryService) UpdateCategory(ctx context.Context, id string, req models.CategoryRequest) (*models.Category, error) {
	c, err := s.categories.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Apply(c)
	if err := s.categories.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCategory removes only the category. Products that still point at it
// are left alone and show up in the consistency report.
func (s *CategoryService) DeleteCategory(ctx context.Context, id string) error {
	if err := s.categories.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("category_id", id).Info("Category deleted")
	return nil
}
