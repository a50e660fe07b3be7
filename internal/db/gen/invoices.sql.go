package dbgen

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const invoiceColumns = `id, invoice_number, customer_name, customer_email, customer_phone, issued_at, notes, currency,
discount_rate, tax_rate, subtotal, discount_amount, tax_amount, grand_total, rendered_at, created_at`

func scanInvoice(row interface{ Scan(...any) error }, i *Invoice) error {
	return row.Scan(
		&i.ID,
		&i.InvoiceNumber,
		&i.CustomerName,
		&i.CustomerEmail,
		&i.CustomerPhone,
		&i.IssuedAt,
		&i.Notes,
		&i.Currency,
		&i.DiscountRate,
		&i.TaxRate,
		&i.Subtotal,
		&i.DiscountAmount,
		&i.TaxAmount,
		&i.GrandTotal,
		&i.RenderedAt,
		&i.CreatedAt,
	)
}

const createInvoice = `INSERT INTO invoices (
	invoice_number, customer_name, customer_email, customer_phone, issued_at, notes, currency,
	discount_rate, tax_rate, subtotal, discount_amount, tax_amount, grand_total
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING ` + invoiceColumns

type CreateInvoiceParams struct {
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
}

func (q *Queries) CreateInvoice(ctx context.Context, arg CreateInvoiceParams) (Invoice, error) {
	var i Invoice
	err := scanInvoice(q.db.QueryRow(ctx, createInvoice,
		arg.InvoiceNumber,
		arg.CustomerName,
		arg.CustomerEmail,
		arg.CustomerPhone,
		arg.IssuedAt,
		arg.Notes,
		arg.Currency,
		arg.DiscountRate,
		arg.TaxRate,
		arg.Subtotal,
		arg.DiscountAmount,
		arg.TaxAmount,
		arg.GrandTotal,
	), &i)
	return i, err
}

const createInvoiceItem = `INSERT INTO invoice_items (invoice_id, product_id, position, name, unit_price, quantity, line_total)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, invoice_id, product_id, position, name, unit_price, quantity, line_total`

type CreateInvoiceItemParams struct {
	InvoiceID pgtype.UUID `json:"invoice_id"`
	ProductID pgtype.UUID `json:"product_id"`
	Position  int32       `json:"position"`
	Name      string      `json:"name"`
	UnitPrice int64       `json:"unit_price"`
	Quantity  int32       `json:"quantity"`
	LineTotal int64       `json:"line_total"`
}

func (q *Queries) CreateInvoiceItem(ctx context.Context, arg CreateInvoiceItemParams) (InvoiceItem, error) {
	row := q.db.QueryRow(ctx, createInvoiceItem,
		arg.InvoiceID,
		arg.ProductID,
		arg.Position,
		arg.Name,
		arg.UnitPrice,
		arg.Quantity,
		arg.LineTotal,
	)
	var i InvoiceItem
	err := row.Scan(&i.ID, &i.InvoiceID, &i.ProductID, &i.Position, &i.Name, &i.UnitPrice, &i.Quantity, &i.LineTotal)
	return i, err
}

const getInvoiceByID = `SELECT ` + invoiceColumns + `
FROM invoices
WHERE id = $1`

func (q *Queries) GetInvoiceByID(ctx context.Context, id pgtype.UUID) (Invoice, error) {
	var i Invoice
	err := scanInvoice(q.db.QueryRow(ctx, getInvoiceByID, id), &i)
	return i, err
}

const listInvoices = `SELECT ` + invoiceColumns + `
FROM invoices
ORDER BY issued_at DESC, invoice_number DESC`

func (q *Queries) ListInvoices(ctx context.Context) ([]Invoice, error) {
	rows, err := q.db.Query(ctx, listInvoices)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Invoice{}
	for rows.Next() {
		var i Invoice
		if err := scanInvoice(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listInvoiceItems = `SELECT id, invoice_id, product_id, position, name, unit_price, quantity, line_total
FROM invoice_items
WHERE invoice_id = $1
ORDER BY position ASC`

func (q *Queries) ListInvoiceItems(ctx context.Context, invoiceID pgtype.UUID) ([]InvoiceItem, error) {
	rows, err := q.db.Query(ctx, listInvoiceItems, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []InvoiceItem{}
	for rows.Next() {
		var i InvoiceItem
		if err := rows.Scan(&i.ID, &i.InvoiceID, &i.ProductID, &i.Position, &i.Name, &i.UnitPrice, &i.Quantity, &i.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const nextInvoiceSequence = `SELECT nextval('invoice_number_seq')`

func (q *Queries) NextInvoiceSequence(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, nextInvoiceSequence)
	var seq int64
	err := row.Scan(&seq)
	return seq, err
}

const peekInvoiceSequence = `SELECT CASE WHEN is_called THEN last_value + 1 ELSE last_value END FROM invoice_number_seq`

func (q *Queries) PeekInvoiceSequence(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, peekInvoiceSequence)
	var seq int64
	err := row.Scan(&seq)
	return seq, err
}

const claimInvoiceRender = `UPDATE invoices SET rendered_at = now() WHERE id = $1 AND rendered_at IS NULL`

func (q *Queries) ClaimInvoiceRender(ctx context.Context, id pgtype.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, claimInvoiceRender, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const releaseInvoiceRender = `UPDATE invoices SET rendered_at = NULL WHERE id = $1`

func (q *Queries) ReleaseInvoiceRender(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, releaseInvoiceRender, id)
	return err
}
