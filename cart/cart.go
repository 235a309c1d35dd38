package cart

import (
	"sync"

	"garment-studio/core"

	"github.com/sirupsen/logrus"
)

// Item is one cart line.
type Item struct {
	Product  core.CartProduct `json:"product"`
	Quantity int              `json:"quantity"`
	Size     string           `json:"selectedSize"`
	Color    string           `json:"selectedColor"`
}

// Key identifies a cart line. Two lines for the same product, size and color
// are still distinct when they reference different custom designs.
type Key struct {
	ProductID string
	Size      string
	Color     string
	DesignID  string
}

func (i Item) Key() Key {
	return Key{
		ProductID: i.Product.ID,
		Size:      i.Size,
		Color:     i.Color,
		DesignID:  i.Product.DesignID(),
	}
}

// Cart is an in-memory shopping cart safe for concurrent use.
type Cart struct {
	mu    sync.Mutex
	items []Item
}

func New() *Cart {
	return &Cart{}
}

// Add appends a line, or bumps the quantity of an identical one.
func (c *Cart) Add(product core.CartProduct, size, color string, quantity int) {
	if quantity <= 0 {
		quantity = 1
	}
	item := Item{Product: product, Quantity: quantity, Size: size, Color: color}
	key := item.Key()

	c.mu.Lock()
	defer c.mu.Unlock()

	log := logrus.WithFields(logrus.Fields{
		"product_id": key.ProductID,
		"design_id":  key.DesignID,
	})
	for i := range c.items {
		if c.items[i].Key() == key {
			c.items[i].Quantity += quantity
			log.WithField("quantity", c.items[i].Quantity).Debug("Cart line merged")
			return
		}
	}
	c.items = append(c.items, item)
	log.Debug("Cart line added")
}

func (c *Cart) Remove(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.items[:0]
	for _, item := range c.items {
		if item.Key() != key {
			kept = append(kept, item)
		}
	}
	c.items = kept
}

// UpdateQuantity sets a line's quantity; zero or less removes the line.
func (c *Cart) UpdateQuantity(key Key, quantity int) {
	if quantity <= 0 {
		c.Remove(key)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].Key() == key {
			c.items[i].Quantity = quantity
		}
	}
}

func (c *Cart) Clear() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

// Items returns a copy of the cart lines in insertion order.
func (c *Cart) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) TotalItems() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, item := range c.items {
		total += item.Quantity
	}
	return total
}

func (c *Cart) TotalPrice() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0.0
	for _, item := range c.items {
		total += item.Product.Price * float64(item.Quantity)
	}
	return total
}
