package dbgen

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type Querier interface {
	ClaimInvoiceRender(ctx context.Context, id pgtype.UUID) (int64, error)
	CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error)
	CreateInvoice(ctx context.Context, arg CreateInvoiceParams) (Invoice, error)
	CreateInvoiceItem(ctx context.Context, arg CreateInvoiceItemParams) (InvoiceItem, error)
	CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error)
	CreateUser(ctx context.Context, arg CreateUserParams) (User, error)
	DecrementProductStock(ctx context.Context, arg DecrementProductStockParams) (int64, error)
	DeleteCategory(ctx context.Context, id pgtype.UUID) (int64, error)
	DeleteProduct(ctx context.Context, id pgtype.UUID) (int64, error)
	GetCategoryByID(ctx context.Context, id pgtype.UUID) (Category, error)
	GetInvoiceByID(ctx context.Context, id pgtype.UUID) (Invoice, error)
	GetProductByID(ctx context.Context, id pgtype.UUID) (Product, error)
	GetProductsByIDs(ctx context.Context, ids []pgtype.UUID) ([]Product, error)
	ListCategories(ctx context.Context) ([]Category, error)
	ListInvoiceItems(ctx context.Context, invoiceID pgtype.UUID) ([]InvoiceItem, error)
	ListInvoices(ctx context.Context) ([]Invoice, error)
	ListProducts(ctx context.Context, categoryID pgtype.UUID) ([]Product, error)
	NextInvoiceSequence(ctx context.Context) (int64, error)
	PeekInvoiceSequence(ctx context.Context) (int64, error)
	ReleaseInvoiceRender(ctx context.Context, id pgtype.UUID) error
	SearchProducts(ctx context.Context, arg SearchProductsParams) ([]Product, error)
	UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (Category, error)
	UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error)
}

var _ Querier = (*Queries)(nil)
