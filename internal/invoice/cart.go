package invoice

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Cart is an ordered set of line items keyed by product.
type Cart struct {
	items []LineItem
	index map[string]int
}

// NewCart returns an empty cart.
func NewCart() *Cart {
	return &Cart{index: make(map[string]int)}
}

// Add appends the item, or increments the quantity of an existing entry for the
// same product. Name, price and stock ceiling are refreshed from the new item.
func (c *Cart) Add(item LineItem) error {
	id := strings.TrimSpace(item.ProductID)
	if id == "" {
		return invalid("productId", "", ReasonRequired)
	}
	if item.Quantity < 1 {
		return invalid("quantity", id, ReasonNotPositive)
	}
	c.ensure()
	item.ProductID = id
	if pos, ok := c.index[id]; ok {
		existing := c.items[pos]
		item.Quantity += existing.Quantity
		c.items[pos] = item
		return nil
	}
	c.index[id] = len(c.items)
	c.items = append(c.items, item)
	return nil
}

// SetQuantity replaces the quantity of a product. Zero removes the entry.
func (c *Cart) SetQuantity(productID string, qty int) error {
	id := strings.TrimSpace(productID)
	if qty < 0 {
		return invalid("quantity", id, ReasonNegative)
	}
	c.ensure()
	pos, ok := c.index[id]
	if !ok {
		return invalid("productId", id, ReasonUnknown)
	}
	if qty == 0 {
		c.removeAt(pos)
		return nil
	}
	c.items[pos].Quantity = qty
	return nil
}

// Decrement lowers the quantity by one, removing the entry when it reaches zero.
func (c *Cart) Decrement(productID string) error {
	id := strings.TrimSpace(productID)
	c.ensure()
	pos, ok := c.index[id]
	if !ok {
		return invalid("productId", id, ReasonUnknown)
	}
	return c.SetQuantity(id, c.items[pos].Quantity-1)
}

// Remove deletes a product from the cart. It reports whether an entry existed.
func (c *Cart) Remove(productID string) bool {
	c.ensure()
	pos, ok := c.index[strings.TrimSpace(productID)]
	if !ok {
		return false
	}
	c.removeAt(pos)
	return true
}

// Items returns a copy of the line items in insertion order.
func (c *Cart) Items() []LineItem {
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of distinct products in the cart.
func (c *Cart) Len() int { return len(c.items) }

// Totals prices the cart with the given calculator.
func (c *Cart) Totals(calc Calculator, discountRate, taxRate decimal.Decimal) (Totals, error) {
	return calc.Compute(c.items, discountRate, taxRate)
}

func (c *Cart) ensure() {
	if c.index == nil {
		c.index = make(map[string]int, len(c.items))
		for i, it := range c.items {
			c.index[it.ProductID] = i
		}
	}
}

func (c *Cart) removeAt(pos int) {
	delete(c.index, c.items[pos].ProductID)
	c.items = append(c.items[:pos], c.items[pos+1:]...)
	for i := pos; i < len(c.items); i++ {
		c.index[c.items[i].ProductID] = i
	}
}
