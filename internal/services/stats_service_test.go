package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pulgax-store/internal/apperrors"
	"pulgax-store/internal/models"
)

func TestStatsService_Collect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.notifier.On("Notify", mock.Anything)
	shirt := f.seedShirt(t)

	var ids []string
	for i := 0; i < 3; i++ {
		o, err := f.orders.CreateOrder(ctx, shirtOrder(shirt.ID, nil), nil)
		require.NoError(t, err)
		ids = append(ids, o.ID)
	}
	_, err := f.orders.TransitionStatus(ctx, ids[0], "shipped", "", "admin@pulgax.pt")
	require.NoError(t, err)
	_, err = f.orders.ProcessRefund(ctx, ids[1], models.RefundRequest{}, "admin@pulgax.pt")
	require.NoError(t, err)

	contact := NewContactService(f.store, quietLogger())
	msg, err := contact.Submit(ctx, models.ContactRequest{Name: "Rui", Email: "rui@example.com", Subject: "Prazo", Message: "Quando chega?"})
	require.NoError(t, err)
	_, err = contact.Submit(ctx, models.ContactRequest{Name: "Eva", Email: "eva@example.com", Subject: "Cores", Message: "Tem azul?"})
	require.NoError(t, err)
	require.NoError(t, contact.MarkRead(ctx, msg.ID))

	stats, err := NewStatsService(f.store).Collect(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.TotalProducts)
	assert.Equal(t, 1, stats.TotalCategories)
	assert.Equal(t, 3, stats.TotalOrders)
	assert.Equal(t, 1, stats.PendingOrders)
	assert.Equal(t, 1, stats.UnreadMessages)
	assert.Equal(t, 1, stats.OrdersByStatus[models.OrderStatusShipped])
	assert.Equal(t, 1, stats.OrdersByStatus[models.OrderStatusRefunded])
	assert.True(t, stats.Revenue.Equal(dec("120.00")), stats.Revenue.String())
}

func TestContactService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	contact := NewContactService(f.store, quietLogger())

	msg, err := contact.Submit(ctx, models.ContactRequest{
		Name: " Rui ", Email: "rui@example.com", Subject: " Encomenda ", Message: "Olá",
	})
	require.NoError(t, err)
	assert.Equal(t, "Rui", msg.Name)
	assert.Equal(t, "Encomenda", msg.Subject)
	assert.False(t, msg.Read)

	require.NoError(t, contact.MarkRead(ctx, msg.ID))
	list, err := contact.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Read)

	require.NoError(t, contact.Delete(ctx, msg.ID))
	assert.ErrorIs(t, contact.Delete(ctx, msg.ID), apperrors.ErrNotFound)
	assert.ErrorIs(t, contact.MarkRead(ctx, msg.ID), apperrors.ErrNotFound)
}
