package services

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pulgax-store/internal/metrics"
	"pulgax-store/internal/models"
	"pulgax-store/internal/notifications"
	"pulgax-store/internal/pricing"
	"pulgax-store/internal/repository/jsonstore"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	v := dec(s)
	return &v
}

// MockNotifier is a testify mock of Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(evt notifications.Event) {
	m.Called(evt)
}

func eventOfType(t notifications.EventType) interface{} {
	return mock.MatchedBy(func(e notifications.Event) bool { return e.Type == t })
}

// scriptedNumbers returns the given numbers in order, then repeats the last one.
type scriptedNumbers struct {
	mu      sync.Mutex
	numbers []string
	calls   int
}

func (g *scriptedNumbers) Next(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.calls
	if i >= len(g.numbers) {
		i = len(g.numbers) - 1
	}
	g.calls++
	return g.numbers[i], nil
}

type fixture struct {
	store    *jsonstore.Store
	notifier *MockNotifier
	metrics  *metrics.Metrics
	orders   *OrderService
	products *ProductService
	cats     *CategoryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := jsonstore.Open(t.TempDir())
	require.NoError(t, err)

	m := metrics.New(prometheus.NewRegistry())
	notifier := &MockNotifier{}
	engine := pricing.NewEngine(store, pricing.DefaultTolerance)

	return &fixture{
		store:    store,
		notifier: notifier,
		metrics:  m,
		orders:   NewOrderService(store, engine, NewRandomOrderNumbers("PX"), notifier, m, quietLogger()),
		products: NewProductService(store, quietLogger()),
		cats:     NewCategoryService(store, quietLogger()),
	}
}

// seedShirt stores a category and a shirt priced 25.00 with size L at +5.00.
func (f *fixture) seedShirt(t *testing.T) *models.Product {
	t.Helper()
	ctx := context.Background()

	cat, err := f.cats.CreateCategory(ctx, models.CategoryRequest{NamePT: "Roupa", NameEN: "Clothing"})
	require.NoError(t, err)

	p, err := f.products.CreateProduct(ctx, models.ProductRequest{
		NamePT:     "T-shirt",
		NameEN:     "T-shirt",
		BasePrice:  dec("25.00"),
		CategoryID: cat.ID,
		Colors:     []models.Color{{NamePT: "Vermelho", NameEN: "Red", HexCode: "#FF0000"}},
		Sizes: []models.Size{
			{Name: "M", PriceAdjustment: decimal.Zero},
			{Name: "L", PriceAdjustment: dec("5.00")},
		},
		CustomizationOptions: []models.CustomizationOption{
			{Name: "Back print", Type: models.CustomizationText, PriceAdjustment: dec("3.00")},
		},
		Images: []string{"shirt.png"},
	})
	require.NoError(t, err)
	return p
}

func shirtOrder(productID string, total *decimal.Decimal) models.CreateOrderRequest {
	return models.CreateOrderRequest{
		CustomerName:    "Ana Silva",
		CustomerEmail:   "ana@example.com",
		CustomerPhone:   "912345678",
		ShippingAddress: "Rua das Flores 1, Porto",
		PaymentMethod:   "card",
		PaymentDetails:  map[string]any{"card_number": "4111 1111 1111 4242", "cvv": "999"},
		Items: []models.CartItem{{
			ProductID:     productID,
			Quantity:      2,
			SelectedSize:  "L",
			SelectedColor: "Red",
		}},
		TotalAmount: total,
	}
}

func fixedClock(t time.Time) func() time.Time {
	var mu sync.Mutex
	current := t
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}
