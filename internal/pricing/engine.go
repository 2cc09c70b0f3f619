// Package pricing turns a requested cart into priced order lines using the
// catalog as the only source of prices.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"pulgax-store/internal/apperrors"
	"pulgax-store/internal/models"
)

// DefaultTolerance is the largest accepted gap between a client total and the
// computed total.
var DefaultTolerance = decimal.RequireFromString("0.01")

// ProductLookup is the slice of the catalog the engine reads.
type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
}

// Quote is the priced form of a cart.
type Quote struct {
	Items  []models.OrderItem `json:"items"`
	Totals models.OrderTotals `json:"totals"`
}

type Engine struct {
	catalog   ProductLookup
	tolerance decimal.Decimal
}

// NewEngine builds an engine. A negative tolerance falls back to DefaultTolerance.
func NewEngine(catalog ProductLookup, tolerance decimal.Decimal) *Engine {
	if tolerance.IsNegative() {
		tolerance = DefaultTolerance
	}
	return &Engine{catalog: catalog, tolerance: tolerance}
}

// PriceOrder resolves every item against the catalog and computes the totals.
// The first invalid item aborts pricing.
func (e *Engine) PriceOrder(ctx context.Context, items []models.CartItem, shipping decimal.Decimal) (*Quote, error) {
	if len(items) == 0 {
		return nil, apperrors.Invalid(apperrors.ErrValidation, "items", "at least one item is required")
	}
	if shipping.IsNegative() {
		return nil, apperrors.Invalid(apperrors.ErrValidation, "shipping_cost", "must not be negative")
	}

	quote := &Quote{Items: make([]models.OrderItem, 0, len(items))}
	subtotal, adjustments := decimal.Zero, decimal.Zero

	for i, item := range items {
		line, err := e.priceItem(ctx, i, item)
		if err != nil {
			return nil, err
		}
		qty := decimal.NewFromInt(int64(line.Quantity))
		subtotal = subtotal.Add(line.BasePrice.Mul(qty))
		adjustments = adjustments.Add(line.UnitPrice.Sub(line.BasePrice).Mul(qty))
		quote.Items = append(quote.Items, line)
	}

	quote.Totals = models.OrderTotals{
		Subtotal:    subtotal,
		Adjustments: adjustments,
		Shipping:    shipping,
		Total:       subtotal.Add(adjustments).Add(shipping),
	}
	return quote, nil
}

func (e *Engine) priceItem(ctx context.Context, i int, item models.CartItem) (models.OrderItem, error) {
	field := func(name string) string { return fmt.Sprintf("items[%d].%s", i, name) }

	if item.Quantity <= 0 {
		return models.OrderItem{}, apperrors.Invalid(apperrors.ErrValidation, field("quantity"), "must be a positive integer")
	}

	product, err := e.catalog.GetProduct(ctx, item.ProductID)
	if errors.Is(err, apperrors.ErrNotFound) || (err == nil && !product.Active) {
		return models.OrderItem{}, apperrors.Invalid(apperrors.ErrUnknownOrInactiveProduct, field("product_id"),
			"product %s does not exist or is not available", item.ProductID)
	}
	if err != nil {
		return models.OrderItem{}, err
	}

	line := models.OrderItem{
		ProductID:               product.ID,
		ProductNamePT:           product.NamePT,
		ProductNameEN:           product.NameEN,
		Quantity:                item.Quantity,
		BasePrice:               product.BasePrice,
		SizePriceAdjustment:     decimal.Zero,
		CustomizationAdjustment: decimal.Zero,
		Customizations:          map[string]string{},
	}
	if len(product.Images) > 0 {
		line.ImageURL = product.Images[0]
	}

	if item.SelectedSize != "" {
		size, ok := product.FindSize(item.SelectedSize)
		if !ok {
			return models.OrderItem{}, apperrors.Invalid(apperrors.ErrInvalidSelection, field("selected_size"),
				"size %q is not offered for %s", item.SelectedSize, product.NameEN)
		}
		line.SelectedSize = size.Name
		line.SizePriceAdjustment = size.PriceAdjustment
	}

	if item.SelectedColor != "" {
		color, ok := product.FindColor(item.SelectedColor)
		if !ok {
			return models.OrderItem{}, apperrors.Invalid(apperrors.ErrInvalidSelection, field("selected_color"),
				"color %q is not offered for %s", item.SelectedColor, product.NameEN)
		}
		line.SelectedColor = item.SelectedColor
		if color.ImageURL != "" {
			line.ImageURL = color.ImageURL
		}
	}

	// Sorted so that the reported error does not depend on map order.
	keys := make([]string, 0, len(item.Customizations))
	for k := range item.Customizations {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, name := range keys {
		value := item.Customizations[name]
		if strings.TrimSpace(value) == "" {
			continue
		}
		opt, ok := product.FindCustomization(name)
		if !ok {
			return models.OrderItem{}, apperrors.Invalid(apperrors.ErrInvalidSelection, field("customizations."+name),
				"customization %q is not offered for %s", name, product.NameEN)
		}
		if err := checkCustomizationValue(opt, value); err != nil {
			err.Field = field("customizations." + name)
			return models.OrderItem{}, err
		}
		line.Customizations[name] = value
		line.CustomizationAdjustment = line.CustomizationAdjustment.Add(opt.PriceAdjustment)
	}

	for _, opt := range product.CustomizationOptions {
		if !opt.Required {
			continue
		}
		if _, ok := line.Customizations[opt.Name]; !ok {
			return models.OrderItem{}, apperrors.Invalid(apperrors.ErrMissingRequiredCustomization,
				field("customizations."+opt.Name), "customization %q is required", opt.Name)
		}
	}

	unit := product.BasePrice.Add(line.SizePriceAdjustment).Add(line.CustomizationAdjustment)
	if unit.IsNegative() {
		unit = decimal.Zero
	}
	line.UnitPrice = unit
	line.TotalPrice = unit.Mul(decimal.NewFromInt(int64(item.Quantity)))
	return line, nil
}

func checkCustomizationValue(opt models.CustomizationOption, value string) *apperrors.ValidationError {
	if opt.MaxLength != nil && utf8.RuneCountInString(value) > *opt.MaxLength {
		return apperrors.Invalid(apperrors.ErrInvalidSelection, "",
			"customization %q accepts at most %d characters", opt.Name, *opt.MaxLength)
	}
	if opt.Type == models.CustomizationNumber {
		if _, err := decimal.NewFromString(strings.TrimSpace(value)); err != nil {
			return apperrors.Invalid(apperrors.ErrInvalidSelection, "",
				"customization %q must be a number", opt.Name)
		}
	}
	return nil
}

// Reconcile compares a client-submitted total with the quote. A nil expected
// total is not checked. A difference of exactly the tolerance is accepted.
func (e *Engine) Reconcile(quote *Quote, expected *decimal.Decimal) error {
	if expected == nil {
		return nil
	}
	if quote.Totals.Total.Sub(*expected).Abs().GreaterThan(e.tolerance) {
		return &apperrors.TotalMismatchError{Expected: quote.Totals.Total, Received: *expected}
	}
	return nil
}

// Tolerance returns the configured reconciliation tolerance.
func (e *Engine) Tolerance() decimal.Decimal { return e.tolerance }
