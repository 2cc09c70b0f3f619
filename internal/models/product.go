package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Color struct {
	NamePT   string `json:"name_pt"`
	NameEN   string `json:"name_en"`
	HexCode  string `json:"hex_code"`
	ImageURL string `json:"image_url,omitempty"`
}

// Matches reports whether name is either localized name of the color.
func (c Color) Matches(name string) bool {
	return name != "" && (name == c.NamePT || name == c.NameEN)
}

type Size struct {
	Name            string          `json:"name"`
	PriceAdjustment decimal.Decimal `json:"price_adjustment"`
}

// UnmarshalJSON also accepts the older "price_modifier" field name.
func (s *Size) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name            string           `json:"name"`
		PriceAdjustment *decimal.Decimal `json:"price_adjustment"`
		PriceModifier   *decimal.Decimal `json:"price_modifier"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Name = raw.Name
	s.PriceAdjustment = pickAdjustment(raw.PriceAdjustment, raw.PriceModifier)
	return nil
}

type CustomizationType string

const (
	CustomizationText   CustomizationType = "text"
	CustomizationNumber CustomizationType = "number"
)

type CustomizationOption struct {
	Name            string            `json:"name"`
	Type            CustomizationType `json:"type"`
	Required        bool              `json:"required"`
	MaxLength       *int              `json:"max_length,omitempty"`
	PriceAdjustment decimal.Decimal   `json:"price_adjustment"`
}

// UnmarshalJSON also accepts the older "price_modifier" field name.
func (o *CustomizationOption) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name            string            `json:"name"`
		Type            CustomizationType `json:"type"`
		Required        bool              `json:"required"`
		MaxLength       *int              `json:"max_length"`
		PriceAdjustment *decimal.Decimal  `json:"price_adjustment"`
		PriceModifier   *decimal.Decimal  `json:"price_modifier"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o.Name = raw.Name
	o.Type = raw.Type
	o.Required = raw.Required
	o.MaxLength = raw.MaxLength
	o.PriceAdjustment = pickAdjustment(raw.PriceAdjustment, raw.PriceModifier)
	return nil
}

func pickAdjustment(adjustment, modifier *decimal.Decimal) decimal.Decimal {
	switch {
	case adjustment != nil:
		return *adjustment
	case modifier != nil:
		return *modifier
	default:
		return decimal.Zero
	}
}

type Product struct {
	ID                   string                `json:"id"`
	NamePT               string                `json:"name_pt"`
	NameEN               string                `json:"name_en"`
	DescriptionPT        string                `json:"description_pt"`
	DescriptionEN        string                `json:"description_en"`
	BasePrice            decimal.Decimal       `json:"base_price"`
	CategoryID           string                `json:"category_id"`
	Colors               []Color               `json:"colors"`
	Sizes                []Size                `json:"sizes"`
	CustomizationOptions []CustomizationOption `json:"customization_options"`
	Images               []string              `json:"images"`
	Featured             bool                  `json:"featured"`
	Active               bool                  `json:"active"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

func (p *Product) FindSize(name string) (Size, bool) {
	for _, s := range p.Sizes {
		if s.Name == name {
			return s, true
		}
	}
	return Size{}, false
}

func (p *Product) FindColor(name string) (Color, bool) {
	for _, c := range p.Colors {
		if c.Matches(name) {
			return c, true
		}
	}
	return Color{}, false
}

func (p *Product) FindCustomization(name string) (CustomizationOption, bool) {
	for _, o := range p.CustomizationOptions {
		if o.Name == name {
			return o, true
		}
	}
	return CustomizationOption{}, false
}

// ProductRequest is the admin create/update payload. Active defaults to true.
type ProductRequest struct {
	NamePT               string                `json:"name_pt" binding:"required"`
	NameEN               string                `json:"name_en" binding:"required"`
	DescriptionPT        string                `json:"description_pt"`
	DescriptionEN        string                `json:"description_en"`
	BasePrice            decimal.Decimal       `json:"base_price"`
	CategoryID           string                `json:"category_id" binding:"required"`
	Colors               []Color               `json:"colors"`
	Sizes                []Size                `json:"sizes"`
	CustomizationOptions []CustomizationOption `json:"customization_options"`
	Images               []string              `json:"images"`
	Featured             bool                  `json:"featured"`
	Active               *bool                 `json:"active"`
}

// Apply copies the request fields onto p, leaving identity and timestamps alone.
func (r ProductRequest) Apply(p *Product) {
	p.NamePT = r.NamePT
	p.NameEN = r.NameEN
	p.DescriptionPT = r.DescriptionPT
	p.DescriptionEN = r.DescriptionEN
	p.BasePrice = r.BasePrice
	p.CategoryID = r.CategoryID
	p.Colors = nonNil(r.Colors)
	p.Sizes = nonNil(r.Sizes)
	p.CustomizationOptions = nonNil(r.CustomizationOptions)
	p.Images = nonNil(r.Images)
	p.Featured = r.Featured
	p.Active = r.Active == nil || *r.Active
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
