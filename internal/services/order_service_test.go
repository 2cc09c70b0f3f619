package services

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pulgax-store/internal/apperrors"
	"pulgax-store/internal/models"
	"pulgax-store/internal/notifications"
)

func TestCreateOrder_PricesAndStoresPending(t *testing.T) {
	f := newFixture(t)
	shirt := f.seedShirt(t)
	f.notifier.On("Notify", eventOfType(notifications.EventOrderCreated)).Once()

	order, err := f.orders.CreateOrder(context.Background(), shirtOrder(shirt.ID, decPtr("60.00")), nil)
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.True(t, order.Totals.Subtotal.Equal(dec("50.00")))
	assert.True(t, order.Totals.Adjustments.Equal(dec("10.00")))
	assert.True(t, order.Totals.Total.Equal(dec("60.00")))
	require.Len(t, order.Items, 1)
	assert.True(t, order.Items[0].UnitPrice.Equal(dec("30.00")))
	assert.True(t, order.Items[0].TotalPrice.Equal(dec("60.00")))

	assert.Equal(t, "4242", order.Payment.Details.CardLastDigits)
	assert.Equal(t, models.PaymentStatusPending, order.Payment.Status)
	assert.Nil(t, order.CustomerID)

	require.Len(t, order.StatusHistory, 1)
	assert.Equal(t, "system", order.StatusHistory[0].UpdatedBy)
	assert.Regexp(t, regexp.MustCompile(`^PX-\d{8}-[0-9A-F]{8}$`), order.OrderNumber)

	stored, err := f.orders.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, stored.OrderNumber)
	assert.True(t, stored.Totals.Total.Equal(dec("60.00")))

	f.notifier.AssertExpectations(t)
}

func TestCreateOrder_CustomerActor(t *testing.T) {
	f := newFixture(t)
	shirt := f.seedShirt(t)
	f.notifier.On("Notify", mock.Anything)

	customerID := "cust-1"
	order, err := f.orders.CreateOrder(context.Background(), shirtOrder(shirt.ID, nil), &customerID)
	require.NoError(t, err)

	require.NotNil(t, order.CustomerID)
	assert.Equal(t, "cust-1", *order.CustomerID)
	assert.Equal(t, "ana@example.com", order.StatusHistory[0].UpdatedBy)

	mine, err := f.orders.ListCustomerOrders(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestCreateOrder_RejectsMismatchedTotal(t *testing.T) {
	f := newFixture(t)
	shirt := f.seedShirt(t)

	_, err := f.orders.CreateOrder(context.Background(), shirtOrder(shirt.ID, decPtr("55.00")), nil)
	require.ErrorIs(t, err, apperrors.ErrTotalMismatch)

	tm, ok := apperrors.AsTotalMismatch(err)
	require.True(t, ok)
	assert.True(t, tm.Expected.Equal(dec("60.00")))
	assert.True(t, tm.Received.Equal(dec("55.00")))

	orders, err := f.orders.ListOrders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything)
}

func TestCreateOrder_RejectsUnknownSize(t *testing.T) {
	f := newFixture(t)
	shirt := f.seedShirt(t)

	req := shirtOrder(shirt.ID, nil)
	req.Items[0].SelectedSize = "XXL"

	_, err := f.orders.CreateOrder(context.Background(), req, nil)
	require.ErrorIs(t, err, apperrors.ErrInvalidSelection)
	ve, ok := apperrors.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "items[0].selected_size", ve.Field)
}

func TestCreateOrder_RetriesOrderNumberCollision(t *testing.T) {
	f := newFixture(t)
	shirt := f.seedShirt(t)
	f.notifier.On("Notify", mock.Anything)

	f.orders.numbers = &scriptedNumbers{numbers: []string{"PX-20240301-AAAA0001"}}
	first, err := f.orders.CreateOrder(context.Background(), shirtOrder(shirt.ID, nil), nil)
	require.NoError(t, err)

	gen := &scriptedNumbers{numbers: []string{"PX-20240301-AAAA0001", "PX-20240301-BBBB0002"}}
	f.orders.numbers = gen
	second, err := f.orders.CreateOrder(context.Background(), shirtOrder(shirt.ID, nil), nil)
	require.NoError(t, err)

	assert.Equal(t, "PX-20240301-AAAA0001", first.OrderNumber)
	assert.Equal(t, "PX-20240301-BBBB0002", second.OrderNumber)
	assert.Equal(t, 2, gen.calls)
}

func TestCreateOrder_GivesUpAfterRepeatedCollisions(t *testing.T) {
	f := newFixture(t)
	shirt := f.seedShirt(t)
	f.notifier.On("Notify", mock.Anything)

	f.orders.numbers = &scriptedNumbers{numbers: []string{"PX-20240301-AAAA0001"}}
	_, err := f.orders.CreateOrder(context.Background(), shirtOrder(shirt.ID, nil), nil)
	require.NoError(t, err)

	_, err = f.orders.CreateOrder(context.Background(), shirtOrder(shirt.ID, nil), nil)
	assert.ErrorIs(t, err, apperrors.ErrDuplicateOrderNumber)
}

func TestCreateOrder_ConcurrentOrdersGetDistinctNumbers(t *testing.T) {
	f := newFixture(t)
	shirt := f.seedShirt(t)
	f.notifier.On("Notify", mock.Anything)

	const n = 25
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = make(map[string]bool)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order, err := f.orders.CreateOrder(context.Background(), shirtOrder(shirt.ID, nil), nil)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			numbers[order.OrderNumber] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, numbers, n)
}

func TestTransitionStatus_HistoryNewestFirst(t *testing.T) {
	f := newFixture(t)
	shirt := f.seedShirt(t)
	f.orders.now = fixedClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	f.notifier.On("Notify", mock.Anything)

	order, err := f.orders.CreateOrder(context.Background(), shirtOrder(shirt.ID, nil), nil)
	require.NoError(t, err)

	for _, st := range []string{"confirmed", "processing", "shipped"} {
		order, err = f.orders.TransitionStatus(context.Background(), order.ID, st, "moved to "+st, "admin@pulgax.pt")
		require.NoError(t, err)
	}

	assert.Equal(t, models.OrderStatusShipped, order.Status)
	require.Len(t, order.StatusHistory, 4)
	assert.Equal(t, models.OrderStatusShipped, order.StatusHistory[0].Status)
	assert.Equal(t, "moved to shipped", order.StatusHistory[0].Note)
	assert.Equal(t, "admin@pulgax.pt", order.StatusHistory[0].UpdatedBy)
	assert.Equal(t, models.OrderStatusPending, order.StatusHistory[3].Status)
	for i := 1; i < len(order.StatusHistory); i++ {
		assert.True(t, order.StatusHistory[i-1].UpdatedAt.After(order.StatusHistory[i].UpdatedAt))
	}
	assert.Equal(t, order.StatusHistory[0].UpdatedAt, order.UpdatedAt)

	f.notifier.AssertNumberOfCalls(t, "Notify", 4)
}

func TestTransitionStatus_SameStatusIsRecordedButNotAnnounced(t *testing.T) {
	f := newFixture(t)
	shirt := f.seedShirt(t)
	f.notifier.On("Notify", eventOfType(notifications.EventOrderCreated)).Once()

	order, err := f.orders.CreateOrder(context.Background(), shirtOrder(shirt.ID, nil), nil)
	require.NoError(t, err)

	order, err = f.orders.TransitionStatus(context.Background(), order.ID, "pending", "still waiting", "admin@pulgax.pt")
	require.NoError(t, err)

	assert.Len(t, order.StatusHistory, 2)
	f.notifier.AssertExpectations(t)
	f.notifier.AssertNumberOfCalls(t, "Notify", 1)
}

func TestTransitionStatus_AnnouncesPreviousStatus(t *testing.T) {
	f := newFixture(t)
	shirt := f.seedShirt(t)
	f.notifier.On("Notify", eventOfType(notifications.EventOrderCreated)).Once()
	f.notifier.On("Notify", mock.MatchedBy(func(e notifications.Event) bool {
		return e.Type == notifications.EventOrderStatusChanged &&
			e.PreviousStatus == models.OrderStatusPending &&
			e.Order.Status == models.OrderStatusConfirmed
	})).Once()

	order, err := f.orders.CreateOrder(context.Background(), shirtOrder(shirt.ID, nil), nil)
	require.NoError(t, err)
	_, err = f.orders.TransitionStatus(context.Background(), order.ID, "confirmed", "", "admin@pulgax.pt")
	require.NoError(t, err)

	f.notifier.AssertExpectations(t)
}

func TestTransitionStatus_Errors(t *testing.T) {
	f := newFixture(t)
	shirt := f.seedShirt(t)
	f.notifier.On("Notify", mock.Anything)

	order, err := f.orders.CreateOrder(context.Background(), shirtOrder(shirt.ID, nil), nil)
	require.NoError(t, err)

	_, err = f.orders.TransitionStatus(context.Background(), order.ID, "lost", "", "admin@pulgax.pt")
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatus)

	_, err = f.orders.TransitionStatus(context.Background(), "missing", "confirmed", "", "admin@pulgax.pt")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	stored, err := f.orders.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
	assert.Len(t, stored.StatusHistory, 1)
}

func TestProcessRefund_DefaultsToFullTotal(t *testing.T) {
	f := newFixture(t)
	shirt := f.seedShirt(t)
	f.notifier.On("Notify", eventOfType(notifications.EventOrderCreated)).Once()
	f.notifier.On("Notify", eventOfType(notifications.EventOrderRefunded)).Once()

	order, err := f.orders.CreateOrder(context.Background(), shirtOrder(shirt.ID, nil), nil)
	require.NoError(t, err)

	refunded, err := f.orders.ProcessRefund(context.Background(), order.ID, models.RefundRequest{Reason: "damaged"}, "admin@pulgax.pt")
	require.NoError(t, err)

	require.NotNil(t, refunded.Refund)
	assert.True(t, refunded.Refund.Amount.Equal(dec("60.00")))
	assert.Equal(t, "card", refunded.Refund.Method)
	assert.Equal(t, "admin@pulgax.pt", refunded.Refund.ProcessedBy)
	assert.Equal(t, models.OrderStatusRefunded, refunded.Status)
	assert.Equal(t, models.PaymentStatusRefunded, refunded.Payment.Status)
	assert.Equal(t, "Refund processed: damaged", refunded.StatusHistory[0].Note)

	f.notifier.AssertExpectations(t)
}

func TestProcessRefund_OnlyOnce(t *testing.T) {
	f := newFixture(t)
	shirt := f.seedShirt(t)
	f.notifier.On("Notify", mock.Anything)

	order, err := f.orders.CreateOrder(context.Background(), shirtOrder(shirt.ID, nil), nil)
	require.NoError(t, err)

	_, err = f.orders.ProcessRefund(context.Background(), order.ID,
		models.RefundRequest{Amount: decPtr("20.00"), Method: "transfer"}, "admin@pulgax.pt")
	require.NoError(t, err)

	_, err = f.orders.ProcessRefund(context.Background(), order.ID,
		models.RefundRequest{Amount: decPtr("40.00")}, "admin@pulgax.pt")
	require.ErrorIs(t, err, apperrors.ErrAlreadyRefunded)

	stored, err := f.orders.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, stored.Refund.Amount.Equal(dec("20.00")))
	assert.Equal(t, "transfer", stored.Refund.Method)
	assert.Len(t, stored.StatusHistory, 2)
}

func TestProcessRefund_RejectsBadAmounts(t *testing.T) {
	f := newFixture(t)
	shirt := f.seedShirt(t)
	f.notifier.On("Notify", mock.Anything)

	order, err := f.orders.CreateOrder(context.Background(), shirtOrder(shirt.ID, nil), nil)
	require.NoError(t, err)

	for _, amount := range []string{"0", "-5.00", "60.01"} {
		_, err := f.orders.ProcessRefund(context.Background(), order.ID,
			models.RefundRequest{Amount: decPtr(amount)}, "admin@pulgax.pt")
		assert.ErrorIs(t, err, apperrors.ErrValidation, amount)
	}

	_, err = f.orders.ProcessRefund(context.Background(), "missing", models.RefundRequest{}, "admin@pulgax.pt")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	stored, err := f.orders.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Refund)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
}
