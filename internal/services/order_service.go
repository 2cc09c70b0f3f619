package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"pulgax-store/internal/apperrors"
	"pulgax-store/internal/metrics"
	"pulgax-store/internal/models"
	"pulgax-store/internal/notifications"
	"pulgax-store/internal/pricing"
	"pulgax-store/internal/repository"
)

const (
	orderNumberAttempts = 3
	systemActor         = "system"
)

// Notifier accepts lifecycle events. Implementations must not block.
type Notifier interface {
	Notify(evt notifications.Event)
}

type OrderService struct {
	orders   repository.OrderRepository
	engine   *pricing.Engine
	numbers  OrderNumberGenerator
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *logrus.Entry
	now      func() time.Time
}

func NewOrderService(
	orders repository.OrderRepository,
	engine *pricing.Engine,
	numbers OrderNumberGenerator,
	notifier Notifier,
	m *metrics.Metrics,
	logger *logrus.Entry,
) *OrderService {
	return &OrderService{
		orders:   orders,
		engine:   engine,
		numbers:  numbers,
		notifier: notifier,
		metrics:  m,
		logger:   logger.WithField("component", "order_service"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ============================================
// CHECKOUT
// ============================================

// Quote prices a cart and checks the optional client total without persisting
// anything.
func (s *OrderService) Quote(ctx context.Context, items []models.CartItem, shipping decimal.Decimal, expected *decimal.Decimal) (*pricing.Quote, error) {
	quote, err := s.engine.PriceOrder(ctx, items, shipping)
	if err != nil {
		s.reject(err)
		return nil, err
	}
	if err := s.engine.Reconcile(quote, expected); err != nil {
		s.reject(err)
		return nil, err
	}
	return quote, nil
}

// CreateOrder prices the request against the catalog, stores the order as
// pending and announces it. customerID is nil for guest checkouts.
func (s *OrderService) CreateOrder(ctx context.Context, req models.CreateOrderRequest, customerID *string) (*models.Order, error) {
	quote, err := s.Quote(ctx, req.Items, req.ShippingCost, req.TotalAmount)
	if err != nil {
		return nil, err
	}

	now := s.now()
	order := &models.Order{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		Customer: models.CustomerSnapshot{
			Name:  strings.TrimSpace(req.CustomerName),
			Email: strings.TrimSpace(req.CustomerEmail),
			Phone: strings.TrimSpace(req.CustomerPhone),
		},
		Shipping: models.ShippingInfo{
			Address: req.ShippingAddress,
			Method:  req.ShippingMethod,
			Cost:    quote.Totals.Shipping,
			Notes:   req.Notes,
		},
		Payment:        pricing.RedactPayment(req.PaymentMethod, req.PaymentDetails, quote.Totals.Total),
		Items:          quote.Items,
		Totals:         quote.Totals,
		SubmittedTotal: req.TotalAmount,
		CreatedAt:      now,
	}
	actor := systemActor
	if customerID != nil {
		actor = order.Customer.Email
	}
	order.RecordStatus(models.OrderStatusPending, "Order created", actor, now)

	if err := s.insertWithFreshNumber(ctx, order); err != nil {
		return nil, err
	}

	s.metrics.OrdersCreated.Inc()
	s.logger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"total":        order.Totals.Total.StringFixed(2),
		"items":        len(order.Items),
	}).Info("Order created")

	s.notify(notifications.EventOrderCreated, order, "")
	return order, nil
}

func (s *OrderService) insertWithFreshNumber(ctx context.Context, order *models.Order) error {
	var lastErr error
	for attempt := 1; attempt <= orderNumberAttempts; attempt++ {
		number, err := s.numbers.Next(ctx)
		if err != nil {
			return apperrors.Dependency("generate order number", err)
		}
		order.OrderNumber = number

		err = s.orders.CreateOrder(ctx, order)
		if err == nil {
			return nil
		}
		if !errors.Is(err, apperrors.ErrDuplicateOrderNumber) {
			return err
		}
		lastErr = err
		s.logger.WithFields(logrus.Fields{
			"order_number": number,
			"attempt":      attempt,
		}).Warn("Order number collision, retrying")
	}
	return fmt.Errorf("no free order number after %d attempts: %w", orderNumberAttempts, lastErr)
}

func (s *OrderService) reject(err error) {
	s.metrics.OrderRejections.WithLabelValues(apperrors.Code(err)).Inc()
	if tm, ok := apperrors.AsTotalMismatch(err); ok {
		s.logger.WithFields(logrus.Fields{
			"expected": tm.Expected.StringFixed(2),
			"received": tm.Received.StringFixed(2),
		}).Warn("Rejected order with mismatching total")
	}
}

// ============================================
// LIFECYCLE
// ============================================

// TransitionStatus records a new status for the order. The status and its history
// entry are written in one atomic update. Customers are notified only when the
// status actually changes.
func (s *OrderService) TransitionStatus(ctx context.Context, id, status, note, actor string) (*models.Order, error) {
	next, ok := models.ParseOrderStatus(strings.TrimSpace(status))
	if !ok {
		return nil, apperrors.Invalid(apperrors.ErrInvalidStatus, "status", "unknown status %q", status)
	}

	var previous models.OrderStatus
	order, err := s.orders.UpdateOrder(ctx, id, func(o *models.Order) error {
		previous = o.Status
		o.RecordStatus(next, note, actor, s.now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.StatusTransitions.WithLabelValues(string(next)).Inc()
	s.logger.WithFields(logrus.Fields{
		"order_number": order.OrderNumber,
		"from":         previous,
		"to":           next,
		"actor":        actor,
	}).Info("Order status updated")

	if previous != next {
		s.notify(notifications.EventOrderStatusChanged, order, previous)
	}
	return order, nil
}

// ProcessRefund refunds the order once. Amount defaults to the grand total and
// method to the original payment method.
func (s *OrderService) ProcessRefund(ctx context.Context, id string, req models.RefundRequest, actor string) (*models.Order, error) {
	if req.Amount != nil && !req.Amount.IsPositive() {
		return nil, apperrors.Invalid(apperrors.ErrValidation, "amount", "must be greater than zero")
	}

	var previous models.OrderStatus
	order, err := s.orders.UpdateOrder(ctx, id, func(o *models.Order) error {
		if o.Status == models.OrderStatusRefunded || o.Refund != nil {
			return apperrors.ErrAlreadyRefunded
		}

		amount := o.Totals.Total
		if req.Amount != nil {
			if req.Amount.GreaterThan(o.Totals.Total) {
				return apperrors.Invalid(apperrors.ErrValidation, "amount",
					"must not exceed the order total of %s", o.Totals.Total.StringFixed(2))
			}
			amount = *req.Amount
		}
		method := strings.TrimSpace(req.Method)
		if method == "" {
			method = o.Payment.Method
		}

		now := s.now()
		previous = o.Status
		o.Refund = &models.Refund{
			Amount:      amount,
			Reason:      req.Reason,
			Method:      method,
			ProcessedBy: actor,
			ProcessedAt: now,
		}
		o.Payment.Status = models.PaymentStatusRefunded

		note := "Refund processed"
		if req.Reason != "" {
			note = "Refund processed: " + req.Reason
		}
		o.RecordStatus(models.OrderStatusRefunded, note, actor, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Refunds.Inc()
	s.metrics.RefundedAmount.Add(order.Refund.Amount.InexactFloat64())
	s.logger.WithFields(logrus.Fields{
		"order_number": order.OrderNumber,
		"amount":       order.Refund.Amount.StringFixed(2),
		"method":       order.Refund.Method,
		"actor":        actor,
	}).Info("Order refunded")

	s.notify(notifications.EventOrderRefunded, order, previous)
	return order, nil
}

// ============================================
// QUERIES
// ============================================

func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.orders.GetOrder(ctx, id)
}

func (s *OrderService) ListOrders(ctx context.Context) ([]models.Order, error) {
	return s.orders.ListOrders(ctx)
}

func (s *OrderService) ListCustomerOrders(ctx context.Context, customerID string) ([]models.Order, error) {
	return s.orders.ListOrdersByCustomer(ctx, customerID)
}

func (s *OrderService) notify(typ notifications.EventType, order *models.Order, previous models.OrderStatus) {
	s.notifier.Notify(notifications.Event{
		Type:           typ,
		Order:          *order,
		PreviousStatus: previous,
		OccurredAt:     s.now(),
	})
}
