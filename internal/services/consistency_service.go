package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"pulgax-store/internal/metrics"
	"pulgax-store/internal/models"
	"pulgax-store/internal/repository"
)

// Report is the outcome of one consistency check.
type Report struct {
	Valid     bool      `json:"valid"`
	Errors    []Issue   `json:"errors"`
	Warnings  []Issue   `json:"warnings"`
	Checked   Checked   `json:"checked"`
	CheckedAt time.Time `json:"checked_at"`
}

type Checked struct {
	Categories int `json:"categories"`
	Products   int `json:"products"`
	Orders     int `json:"orders"`
}

type catalogAndOrders interface {
	repository.CatalogRepository
	ListOrders(ctx context.Context) ([]models.Order, error)
}

// ConsistencyService inspects the stored catalog and order history. It only
// reads; nothing it finds is repaired automatically.
type ConsistencyService struct {
	store   catalogAndOrders
	metrics *metrics.Metrics
	logger  *logrus.Entry
	now     func() time.Time
}

func NewConsistencyService(store catalogAndOrders, m *metrics.Metrics, logger *logrus.Entry) *ConsistencyService {
	return &ConsistencyService{
		store:   store,
		metrics: m,
		logger:  logger.WithField("component", "consistency"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *ConsistencyService) Run(ctx context.Context) (*Report, error) {
	var (
		categories []models.Category
		products   []models.Product
		orders     []models.Order
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		categories, err = s.store.ListCategories(gctx)
		return err
	})
	g.Go(func() (err error) {
		products, err = s.store.ListProducts(gctx, repository.ProductFilter{})
		return err
	})
	g.Go(func() (err error) {
		orders, err = s.store.ListOrders(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{
		Errors:    []Issue{},
		Warnings:  []Issue{},
		Checked:   Checked{Categories: len(categories), Products: len(products), Orders: len(orders)},
		CheckedAt: s.now(),
	}

	categoryIDs := make(map[string]bool, len(categories))
	for _, c := range categories {
		categoryIDs[c.ID] = true
	}
	byID := make(map[string]*models.Product, len(products))
	for i := range products {
		p := &products[i]
		byID[p.ID] = p

		report.Errors = append(report.Errors, ValidateProduct(p)...)
		if p.CategoryID != "" && !categoryIDs[p.CategoryID] {
			report.Warnings = append(report.Warnings, Issue{
				Severity: SeverityWarning,
				Entity:   "product",
				EntityID: p.ID,
				Field:    "category_id",
				Message:  fmt.Sprintf("references missing category %s", p.CategoryID),
			})
		}
	}

	for _, o := range orders {
		report.Warnings = append(report.Warnings, orderReferenceIssues(&o, byID)...)
	}

	report.Valid = len(report.Errors) == 0
	s.metrics.ConsistencyIssues.WithLabelValues(string(SeverityError)).Set(float64(len(report.Errors)))
	s.metrics.ConsistencyIssues.WithLabelValues(string(SeverityWarning)).Set(float64(len(report.Warnings)))
	return report, nil
}

// orderReferenceIssues reports line items whose product or selections no longer
// exist. Orders keep their snapshot, so these are informational only.
func orderReferenceIssues(o *models.Order, products map[string]*models.Product) []Issue {
	var issues []Issue
	warn := func(i int, field, format string, args ...any) {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Entity:   "order",
			EntityID: o.OrderNumber,
			Field:    fmt.Sprintf("items[%d].%s", i, field),
			Message:  fmt.Sprintf(format, args...),
		})
	}

	for i, item := range o.Items {
		p, ok := products[item.ProductID]
		if !ok {
			warn(i, "product_id", "product %s no longer exists", item.ProductID)
			continue
		}
		if item.SelectedColor != "" {
			if _, ok := p.FindColor(item.SelectedColor); !ok {
				warn(i, "selected_color", "color %q no longer offered", item.SelectedColor)
			}
		}
		if item.SelectedSize != "" {
			if _, ok := p.FindSize(item.SelectedSize); !ok {
				warn(i, "selected_size", "size %q no longer offered", item.SelectedSize)
			}
		}
		for name := range item.Customizations {
			if _, ok := p.FindCustomization(name); !ok {
				warn(i, "customizations."+name, "customization %q no longer offered", name)
			}
		}
	}
	return issues
}

// Schedule registers a periodic check on c that logs its findings.
func (s *ConsistencyService) Schedule(c *cron.Cron, spec string, timeout time.Duration) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		report, err := s.Run(ctx)
		if err != nil {
			s.logger.WithError(err).Error("Scheduled consistency check failed")
			return
		}
		entry := s.logger.WithFields(logrus.Fields{
			"errors":   len(report.Errors),
			"warnings": len(report.Warnings),
			"products": report.Checked.Products,
			"orders":   report.Checked.Orders,
		})
		if report.Valid {
			entry.Info("Consistency check passed")
			return
		}
		for _, issue := range report.Errors {
			s.logger.WithField("severity", issue.Severity).Warn(issue.String())
		}
		entry.Warn("Consistency check found errors")
	})
}
