package models

import "time"

// CartItem is a single line in a user's cart. Identity for merge purposes is
// ProductID; ID is a storage key generated when the line is first created.
type CartItem struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"product_id"`
	Name          string    `json:"name"`
	UnitPrice     float64   `json:"unit_price"`
	Quantity      int       `json:"quantity"`
	Image         string    `json:"image,omitempty"`
	Size          string    `json:"size,omitempty"`
	Color         string    `json:"color,omitempty"`
	SelectedSizes []string  `json:"selected_sizes,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
}

// Merge folds an incoming line for the same product into the existing one:
// quantity is additive, variant attributes are last-write-wins.
func (i *CartItem) Merge(incoming CartItem) {
	i.Quantity += incoming.Quantity
	i.Size = incoming.Size
	i.Color = incoming.Color
	i.SelectedSizes = incoming.SelectedSizes
}

// Cart is a user's current cart together with its optimistic-concurrency
// version. Every mutation bumps Version; a full replace must present the
// version it read or the write is rejected.
type Cart struct {
	UserID  int64      `json:"user_id"`
	Version int64      `json:"version"`
	Items   []CartItem `json:"items"`
}

// TotalItems is the sum of line quantities.
func (c *Cart) TotalItems() int {
	total := 0
	for _, it := range c.Items {
		total += it.Quantity
	}
	return total
}

// TotalPrice is the sum of unit price times quantity over all lines.
func (c *Cart) TotalPrice() float64 {
	total := 0.0
	for _, it := range c.Items {
		total += it.UnitPrice * float64(it.Quantity)
	}
	return total
}

// CartSummary provides a summary of the cart with totals
type CartSummary struct {
	Version    int64      `json:"version"`
	ItemCount  int        `json:"item_count"`
	TotalItems int        `json:"total_items"`
	TotalPrice float64    `json:"total_price"`
	Items      []CartItem `json:"items"`
}

// Summarize builds the response-shaped view of a cart.
func (c *Cart) Summarize() CartSummary {
	return CartSummary{
		Version:    c.Version,
		ItemCount:  len(c.Items),
		TotalItems: c.TotalItems(),
		TotalPrice: c.TotalPrice(),
		Items:      c.Items,
	}
}

// CartItemInput holds data for adding cart items. The product snapshot is
// supplied by the caller; catalog lookup is not this service's concern.
type CartItemInput struct {
	ProductID     string   `json:"product_id" binding:"required"`
	Name          string   `json:"name" binding:"required"`
	UnitPrice     float64  `json:"unit_price" binding:"required"`
	Quantity      int      `json:"quantity"`
	Image         string   `json:"image"`
	Size          string   `json:"size"`
	Color         string   `json:"color"`
	SelectedSizes []string `json:"selected_sizes"`
}

// Item converts the input into a cart line. A missing or non-positive
// quantity means one.
func (in CartItemInput) Item() CartItem {
	qty := in.Quantity
	if qty < 1 {
		qty = 1
	}
	return CartItem{
		ProductID:     in.ProductID,
		Name:          in.Name,
		UnitPrice:     in.UnitPrice,
		Quantity:      qty,
		Image:         in.Image,
		Size:          in.Size,
		Color:         in.Color,
		SelectedSizes: in.SelectedSizes,
	}
}

// CartReplaceInput is the full-replace sync body: the caller sends the whole
// cart plus the version it last read.
type CartReplaceInput struct {
	Version int64           `json:"version"`
	Items   []CartItemInput `json:"items"`
}

// CartItems converts the replace body's lines.
func (in CartReplaceInput) CartItems() []CartItem {
	items := make([]CartItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, it.Item())
	}
	return items
}
