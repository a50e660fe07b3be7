package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-admin/internal/common"
	dbgen "github.com/noah-isme/toko-admin/internal/db/gen"
)

// ErrNumberTaken is returned when an invoice number is already in use.
var ErrNumberTaken = errors.New("invoice number already used")

// OutOfStockError reports a product whose stock fell below the invoiced
// quantity between pricing and persistence.
type OutOfStockError struct {
	ProductID string
}

func (e *OutOfStockError) Error() string {
	return "insufficient stock for product " + e.ProductID
}

// NewInvoice is a priced invoice ready to be persisted.
type NewInvoice struct {
	Header dbgen.CreateInvoiceParams
	Items  []NewInvoiceItem
}

// NewInvoiceItem is one persisted line, amounts in minor units.
type NewInvoiceItem struct {
	ProductID pgtype.UUID
	Name      string
	UnitPrice int64
	Quantity  int32
	LineTotal int64
}

// Store persists invoices.
type Store interface {
	CreateInvoice(ctx context.Context, in NewInvoice) (dbgen.Invoice, error)
	GetInvoice(ctx context.Context, id pgtype.UUID) (dbgen.Invoice, []dbgen.InvoiceItem, error)
	ListInvoices(ctx context.Context) ([]dbgen.Invoice, error)
	NextSequence(ctx context.Context) (int64, error)
	PeekSequence(ctx context.Context) (int64, error)
	// ClaimRender marks an invoice rendered unless it already is and reports
	// whether this caller made the change.
	ClaimRender(ctx context.Context, id pgtype.UUID) (bool, error)
	ReleaseRender(ctx context.Context, id pgtype.UUID) error
}

// PGStore is the Postgres-backed Store.
type PGStore struct {
	pool    *pgxpool.Pool
	queries *dbgen.Queries
}

// NewPGStore returns a Store over pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool, queries: dbgen.New(pool)}
}

// CreateInvoice inserts the header and lines and takes the invoiced quantities
// out of stock in a single transaction. Any failure leaves stock untouched.
func (s *PGStore) CreateInvoice(ctx context.Context, in NewInvoice) (dbgen.Invoice, error) {
	return withTx(ctx, s.pool, func(q *dbgen.Queries) (dbgen.Invoice, error) {
		inv, err := q.CreateInvoice(ctx, in.Header)
		if err != nil {
			if isNumberTaken(err) {
				return dbgen.Invoice{}, fmt.Errorf("%w: %s", ErrNumberTaken, in.Header.InvoiceNumber)
			}
			return dbgen.Invoice{}, fmt.Errorf("q.CreateInvoice: %w", err)
		}
		for i, item := range in.Items {
			_, err := q.CreateInvoiceItem(ctx, dbgen.CreateInvoiceItemParams{
				InvoiceID: inv.ID,
				ProductID: item.ProductID,
				Position:  int32(i + 1),
				Name:      item.Name,
				UnitPrice: item.UnitPrice,
				Quantity:  item.Quantity,
				LineTotal: item.LineTotal,
			})
			if err != nil {
				return dbgen.Invoice{}, fmt.Errorf("q.CreateInvoiceItem: %w", err)
			}
			rows, err := q.DecrementProductStock(ctx, dbgen.DecrementProductStockParams{ID: item.ProductID, Qty: item.Quantity})
			if err != nil {
				return dbgen.Invoice{}, fmt.Errorf("q.DecrementProductStock: %w", err)
			}
			if rows == 0 {
				return dbgen.Invoice{}, &OutOfStockError{ProductID: common.UUIDString(item.ProductID)}
			}
		}
		return inv, nil
	})
}

// GetInvoice loads an invoice and its lines in position order.
func (s *PGStore) GetInvoice(ctx context.Context, id pgtype.UUID) (dbgen.Invoice, []dbgen.InvoiceItem, error) {
	inv, err := s.queries.GetInvoiceByID(ctx, id)
	if err != nil {
		if common.IsNoRows(err) {
			return dbgen.Invoice{}, nil, common.ErrNotFound
		}
		return dbgen.Invoice{}, nil, fmt.Errorf("q.GetInvoiceByID: %w", err)
	}
	items, err := s.queries.ListInvoiceItems(ctx, id)
	if err != nil {
		return dbgen.Invoice{}, nil, fmt.Errorf("q.ListInvoiceItems: %w", err)
	}
	return inv, items, nil
}

func (s *PGStore) ListInvoices(ctx context.Context) ([]dbgen.Invoice, error) {
	rows, err := s.queries.ListInvoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("q.ListInvoices: %w", err)
	}
	return rows, nil
}

func (s *PGStore) NextSequence(ctx context.Context) (int64, error) {
	seq, err := s.queries.NextInvoiceSequence(ctx)
	if err != nil {
		return 0, fmt.Errorf("q.NextInvoiceSequence: %w", err)
	}
	return seq, nil
}

func (s *PGStore) PeekSequence(ctx context.Context) (int64, error) {
	seq, err := s.queries.PeekInvoiceSequence(ctx)
	if err != nil {
		return 0, fmt.Errorf("q.PeekInvoiceSequence: %w", err)
	}
	return seq, nil
}

func (s *PGStore) ClaimRender(ctx context.Context, id pgtype.UUID) (bool, error) {
	n, err := s.queries.ClaimInvoiceRender(ctx, id)
	if err != nil {
		return false, fmt.Errorf("q.ClaimInvoiceRender: %w", err)
	}
	return n == 1, nil
}

func (s *PGStore) ReleaseRender(ctx context.Context, id pgtype.UUID) error {
	if err := s.queries.ReleaseInvoiceRender(ctx, id); err != nil {
		return fmt.Errorf("q.ReleaseInvoiceRender: %w", err)
	}
	return nil
}

// invoiceNumberConstraint is the unique constraint Postgres names for
// invoices.invoice_number.
const invoiceNumberConstraint = "invoices_invoice_number_key"

func isNumberTaken(err error) bool {
	return common.PgErrorCode(err) == common.PgUniqueViolation &&
		common.PgConstraint(err) == invoiceNumberConstraint
}

func withTx[T any](ctx context.Context, pool *pgxpool.Pool, fn func(q *dbgen.Queries) (T, error)) (_ T, txErr error) {
	var zero T

	tx, err := pool.Begin(ctx)
	if err != nil {
		return zero, fmt.Errorf("pool.Begin: %w", err)
	}
	defer func() {
		if txErr != nil {
			rollbackErr := tx.Rollback(ctx)
			if rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				txErr = errors.Join(txErr, fmt.Errorf("tx.Rollback: %w", rollbackErr))
			}
		}
	}()

	result, err := fn(dbgen.New(tx))
	if err != nil {
		return zero, err
	}
	if err := tx.Commit(ctx); err != nil {
		return zero, fmt.Errorf("tx.Commit: %w", err)
	}
	return result, nil
}

func toNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func fromNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
