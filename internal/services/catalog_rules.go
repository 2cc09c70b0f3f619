package services

import (
	"fmt"
	"strings"

	"pulgax-store/internal/apperrors"
	"pulgax-store/internal/models"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding about a stored or submitted entity.
type Issue struct {
	Severity Severity `json:"severity"`
	Entity   string   `json:"entity"`
	EntityID string   `json:"entity_id"`
	Field    string   `json:"field,omitempty"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	if i.Field == "" {
		return fmt.Sprintf("%s %s: %s", i.Entity, i.EntityID, i.Message)
	}
	return fmt.Sprintf("%s %s: %s: %s", i.Entity, i.EntityID, i.Field, i.Message)
}

// ValidateProduct checks that a product definition is well formed on its own.
// Cross-entity references (the category) are not checked here.
func ValidateProduct(p *models.Product) []Issue {
	var issues []Issue
	add := func(field, format string, args ...any) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Entity:   "product",
			EntityID: p.ID,
			Field:    field,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	if strings.TrimSpace(p.NamePT) == "" {
		add("name_pt", "is required")
	}
	if strings.TrimSpace(p.NameEN) == "" {
		add("name_en", "is required")
	}
	if strings.TrimSpace(p.CategoryID) == "" {
		add("category_id", "is required")
	}
	if p.BasePrice.IsNegative() {
		add("base_price", "must not be negative")
	}

	for i, c := range p.Colors {
		if strings.TrimSpace(c.NamePT) == "" && strings.TrimSpace(c.NameEN) == "" {
			add(fmt.Sprintf("colors[%d].name", i), "is required")
		}
		if !strings.HasPrefix(c.HexCode, "#") {
			add(fmt.Sprintf("colors[%d].hex_code", i), "must start with #")
		}
	}

	seenSizes := make(map[string]bool, len(p.Sizes))
	for i, s := range p.Sizes {
		if strings.TrimSpace(s.Name) == "" {
			add(fmt.Sprintf("sizes[%d].name", i), "is required")
		} else if seenSizes[s.Name] {
			add(fmt.Sprintf("sizes[%d].name", i), "duplicate size %q", s.Name)
		}
		seenSizes[s.Name] = true
		// Sizes may be cheaper than the base model, but never below zero.
		if p.BasePrice.Add(s.PriceAdjustment).IsNegative() {
			add(fmt.Sprintf("sizes[%d].price_adjustment", i), "makes the unit price negative")
		}
	}

	seenOpts := make(map[string]bool, len(p.CustomizationOptions))
	for i, o := range p.CustomizationOptions {
		if strings.TrimSpace(o.Name) == "" {
			add(fmt.Sprintf("customization_options[%d].name", i), "is required")
		} else if seenOpts[o.Name] {
			add(fmt.Sprintf("customization_options[%d].name", i), "duplicate option %q", o.Name)
		}
		seenOpts[o.Name] = true
		if o.Type != models.CustomizationText && o.Type != models.CustomizationNumber {
			add(fmt.Sprintf("customization_options[%d].type", i), "must be text or number")
		}
		if o.PriceAdjustment.IsNegative() {
			add(fmt.Sprintf("customization_options[%d].price_adjustment", i), "must not be negative")
		}
		if o.MaxLength != nil && *o.MaxLength <= 0 {
			add(fmt.Sprintf("customization_options[%d].max_length", i), "must be positive")
		}
	}
	return issues
}

// firstIssueError turns the first issue into the error returned to API callers.
func firstIssueError(issues []Issue) error {
	if len(issues) == 0 {
		return nil
	}
	return &apperrors.ValidationError{Field: issues[0].Field, Message: issues[0].Message}
}
