package dbgen

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Category struct {
	ID          pgtype.UUID        `json:"id"`
	Name        string             `json:"name"`
	Slug        string             `json:"slug"`
	Description pgtype.Text        `json:"description"`
	CreatedAt   pgtype.Timestamptz `json:"created_at"`
	UpdatedAt   pgtype.Timestamptz `json:"updated_at"`
}

type Product struct {
	ID          pgtype.UUID        `json:"id"`
	CategoryID  pgtype.UUID        `json:"category_id"`
	Name        string             `json:"name"`
	Slug        string             `json:"slug"`
	Description pgtype.Text        `json:"description"`
	Price       int64              `json:"price"`
	Stock       int32              `json:"stock"`
	Barcode     string             `json:"barcode"`
	CreatedAt   pgtype.Timestamptz `json:"created_at"`
	UpdatedAt   pgtype.Timestamptz `json:"updated_at"`
}

type Invoice struct {
	ID             pgtype.UUID        `json:"id"`
	InvoiceNumber  string             `json:"invoice_number"`
	CustomerName   string             `json:"customer_name"`
	CustomerEmail  string             `json:"customer_email"`
	CustomerPhone  string             `json:"customer_phone"`
	IssuedAt       pgtype.Timestamptz `json:"issued_at"`
	Notes          pgtype.Text        `json:"notes"`
	Currency       string             `json:"currency"`
	DiscountRate   pgtype.Numeric     `json:"discount_rate"`
	TaxRate        pgtype.Numeric     `json:"tax_rate"`
	Subtotal       int64              `json:"subtotal"`
	DiscountAmount int64              `json:"discount_amount"`
	TaxAmount      int64              `json:"tax_amount"`
	GrandTotal     int64              `json:"grand_total"`
	RenderedAt     pgtype.Timestamptz `json:"rendered_at"`
	CreatedAt      pgtype.Timestamptz `json:"created_at"`
}

type InvoiceItem struct {
	ID        pgtype.UUID `json:"id"`
	InvoiceID pgtype.UUID `json:"invoice_id"`
	ProductID pgtype.UUID `json:"product_id"`
	Position  int32       `json:"position"`
	Name      string      `json:"name"`
	UnitPrice int64       `json:"unit_price"`
	Quantity  int32       `json:"quantity"`
	LineTotal int64       `json:"line_total"`
}

type User struct {
	ID           pgtype.UUID        `json:"id"`
	FirstName    string             `json:"first_name"`
	LastName     string             `json:"last_name"`
	Email        string             `json:"email"`
	PasswordHash string             `json:"password_hash"`
	CreatedAt    pgtype.Timestamptz `json:"created_at"`
}
