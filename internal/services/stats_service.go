package services

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"pulgax-store/internal/models"
	"pulgax-store/internal/repository"
)

type Stats struct {
	TotalProducts   int                        `json:"total_products"`
	TotalCategories int                        `json:"total_categories"`
	TotalOrders     int                        `json:"total_orders"`
	PendingOrders   int                        `json:"pending_orders"`
	UnreadMessages  int                        `json:"unread_messages"`
	OrdersByStatus  map[models.OrderStatus]int `json:"orders_by_status"`
	Revenue         decimal.Decimal            `json:"revenue"`
}

type StatsService struct {
	store repository.Store
}

func NewStatsService(store repository.Store) *StatsService {
	return &StatsService{store: store}
}

// Collect gathers the dashboard figures. Revenue counts every order that was
// neither cancelled nor refunded.
func (s *StatsService) Collect(ctx context.Context) (*Stats, error) {
	var (
		stats      Stats
		products   []models.Product
		categories []models.Category
		orders     []models.Order
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		products, err = s.store.ListProducts(gctx, repository.ProductFilter{})
		return err
	})
	g.Go(func() (err error) {
		categories, err = s.store.ListCategories(gctx)
		return err
	})
	g.Go(func() (err error) {
		orders, err = s.store.ListOrders(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.OrdersByStatus, err = s.store.CountOrdersByStatus(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.UnreadMessages, err = s.store.CountUnreadMessages(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.TotalProducts = len(products)
	stats.TotalCategories = len(categories)
	stats.TotalOrders = len(orders)
	stats.PendingOrders = stats.OrdersByStatus[models.OrderStatusPending]
	stats.Revenue = decimal.Zero
	for _, o := range orders {
		if o.Status == models.OrderStatusCancelled || o.Status == models.OrderStatusRefunded {
			continue
		}
		stats.Revenue = stats.Revenue.Add(o.Totals.Total)
	}
	return &stats, nil
}
