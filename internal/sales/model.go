package sales

import "time"

// ItemInput references a catalog product and the quantity being sold.
type ItemInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// QuoteInput prices a cart without persisting it.
type QuoteInput struct {
	Items []ItemInput `json:"items" validate:"max=200"`
}

// CreateInput is the payload of a new invoice. A blank InvoiceNumber is
// generated from the configured number template.
type CreateInput struct {
	InvoiceNumber string      `json:"invoiceNumber" validate:"max=64"`
	CustomerName  string      `json:"customerName" validate:"required,max=200"`
	CustomerEmail string      `json:"customerEmail" validate:"required,email,max=254"`
	CustomerPhone string      `json:"customerPhone" validate:"required,max=32"`
	Date          *time.Time  `json:"date"`
	Notes         string      `json:"notes" validate:"max=2000"`
	Items         []ItemInput `json:"items" validate:"required,min=1,max=200"`
}

// Line is a priced invoice line. Amounts are decimal strings in the invoice currency.
type Line struct {
	Position     int    `json:"position"`
	ProductID    string `json:"productId"`
	Name         string `json:"name"`
	UnitPrice    string `json:"unitPrice"`
	Quantity     int    `json:"quantity"`
	StockCeiling *int   `json:"stockCeiling,omitempty"`
	LineTotal    string `json:"lineTotal"`
}

// Amounts carries the derived totals of a cart or invoice.
type Amounts struct {
	Currency       string `json:"currency"`
	DiscountRate   string `json:"discountRate"`
	TaxRate        string `json:"taxRate"`
	Subtotal       string `json:"subtotal"`
	DiscountAmount string `json:"discountAmount"`
	TaxableAmount  string `json:"taxableAmount"`
	TaxAmount      string `json:"taxAmount"`
	GrandTotal     string `json:"grandTotal"`
}

// Quote is the unsaved pricing of a cart.
type Quote struct {
	Items []Line `json:"items"`
	Amounts
}

// Invoice is the API shape of a persisted invoice. Items are omitted from
// list responses.
type Invoice struct {
	ID            string     `json:"id"`
	InvoiceNumber string     `json:"invoiceNumber"`
	CustomerName  string     `json:"customerName"`
	CustomerEmail string     `json:"customerEmail"`
	CustomerPhone string     `json:"customerPhone"`
	IssuedAt      time.Time  `json:"issuedAt"`
	Notes         string     `json:"notes,omitempty"`
	Items         []Line     `json:"items,omitempty"`
	RenderedAt    *time.Time `json:"renderedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	Amounts
}

// Violation is the error detail of a rejected cart.
type Violation struct {
	Field     string `json:"field"`
	ProductID string `json:"productId,omitempty"`
	Reason    string `json:"reason"`
}
