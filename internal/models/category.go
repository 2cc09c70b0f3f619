package models

import "time"

type Category struct {
	ID            string    `json:"id"`
	NamePT        string    `json:"name_pt"`
	NameEN        string    `json:"name_en"`
	DescriptionPT string    `json:"description_pt"`
	DescriptionEN string    `json:"description_en"`
	ImageURL      string    `json:"image_url"`
	CreatedAt     time.Time `json:"created_at"`
}

type CategoryRequest struct {
	NamePT        string `json:"name_pt" binding:"required"`
	NameEN        string `json:"name_en" binding:"required"`
	DescriptionPT string `json:"description_pt"`
	DescriptionEN string `json:"description_en"`
	ImageURL      string `json:"image_url"`
}

// Apply copies the request fields onto c, leaving identity and timestamps alone.
func (r CategoryRequest) Apply(c *Category) {
	c.NamePT = r.NamePT
	c.NameEN = r.NameEN
	c.DescriptionPT = r.DescriptionPT
	c.DescriptionEN = r.DescriptionEN
	c.ImageURL = r.ImageURL
}
