package models

// CartItem is one requested line of a checkout. It is never persisted on its own;
// the pricing engine resolves it into an OrderItem.
type CartItem struct {
	ProductID      string            `json:"product_id" binding:"required"`
	Quantity       int               `json:"quantity" binding:"required,gt=0"`
	SelectedColor  string            `json:"selected_color"`
	SelectedSize   string            `json:"selected_size"`
	Customizations map[string]string `json:"customizations"`
}
