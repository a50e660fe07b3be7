package sales_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-admin/internal/catalog"
	"github.com/noah-isme/toko-admin/internal/common"
	dbgen "github.com/noah-isme/toko-admin/internal/db/gen"
	"github.com/noah-isme/toko-admin/internal/sales"
)

type fakeCatalog struct {
	products map[string]catalog.LookupItem
	err      error
}

func newFakeCatalog(items ...catalog.LookupItem) *fakeCatalog {
	c := &fakeCatalog{products: make(map[string]catalog.LookupItem)}
	for _, it := range items {
		c.products[it.ProductID] = it
	}
	return c
}

func (c *fakeCatalog) LookupForInvoice(_ context.Context, ids []string) (map[string]catalog.LookupItem, error) {
	if c.err != nil {
		return nil, c.err
	}
	out := make(map[string]catalog.LookupItem)
	for _, id := range ids {
		if it, ok := c.products[id]; ok {
			out[id] = it
		}
	}
	return out, nil
}

func product(name, price string, stock int) catalog.LookupItem {
	return catalog.LookupItem{
		ProductID:    uuid.NewString(),
		Name:         name,
		Barcode:      name,
		UnitPrice:    decimal.RequireFromString(price),
		StockCeiling: stock,
	}
}

type fakeStore struct {
	mu       sync.Mutex
	seq      int64
	stock    map[string]int32
	invoices map[string]dbgen.Invoice
	items    map[string][]dbgen.InvoiceItem
	order    []string
	rendered []string
	released []string
}

func newFakeStore(products ...catalog.LookupItem) *fakeStore {
	s := &fakeStore{
		stock:    make(map[string]int32),
		invoices: make(map[string]dbgen.Invoice),
		items:    make(map[string][]dbgen.InvoiceItem),
	}
	for _, p := range products {
		s.stock[p.ProductID] = int32(p.StockCeiling)
	}
	return s
}

func (s *fakeStore) CreateInvoice(_ context.Context, in sales.NewInvoice) (dbgen.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invoices {
		if inv.InvoiceNumber == in.Header.InvoiceNumber {
			return dbgen.Invoice{}, sales.ErrNumberTaken
		}
	}
	remaining := make(map[string]int32, len(s.stock))
	for k, v := range s.stock {
		remaining[k] = v
	}
	for _, it := range in.Items {
		id := common.UUIDString(it.ProductID)
		if remaining[id] < it.Quantity {
			return dbgen.Invoice{}, &sales.OutOfStockError{ProductID: id}
		}
		remaining[id] -= it.Quantity
	}
	s.stock = remaining

	id := uuid.New()
	h := in.Header
	inv := dbgen.Invoice{
		ID:             pgtype.UUID{Bytes: id, Valid: true},
		InvoiceNumber:  h.InvoiceNumber,
		CustomerName:   h.CustomerName,
		CustomerEmail:  h.CustomerEmail,
		CustomerPhone:  h.CustomerPhone,
		IssuedAt:       h.IssuedAt,
		Notes:          h.Notes,
		Currency:       h.Currency,
		DiscountRate:   h.DiscountRate,
		TaxRate:        h.TaxRate,
		Subtotal:       h.Subtotal,
		DiscountAmount: h.DiscountAmount,
		TaxAmount:      h.TaxAmount,
		GrandTotal:     h.GrandTotal,
		CreatedAt:      pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}
	key := id.String()
	s.invoices[key] = inv
	s.order = append([]string{key}, s.order...)
	for i, it := range in.Items {
		s.items[key] = append(s.items[key], dbgen.InvoiceItem{
			ID:        pgtype.UUID{Bytes: uuid.New(), Valid: true},
			InvoiceID: inv.ID,
			ProductID: it.ProductID,
			Position:  int32(i + 1),
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal,
		})
	}
	return inv, nil
}

func (s *fakeStore) GetInvoice(_ context.Context, id pgtype.UUID) (dbgen.Invoice, []dbgen.InvoiceItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := common.UUIDString(id)
	inv, ok := s.invoices[key]
	if !ok {
		return dbgen.Invoice{}, nil, common.ErrNotFound
	}
	return inv, s.items[key], nil
}

func (s *fakeStore) ListInvoices(context.Context) ([]dbgen.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]dbgen.Invoice, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.invoices[key])
	}
	return out, nil
}

func (s *fakeStore) NextSequence(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq, nil
}

func (s *fakeStore) PeekSequence(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq + 1, nil
}

func (s *fakeStore) ClaimRender(_ context.Context, id pgtype.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := common.UUIDString(id)
	inv, ok := s.invoices[key]
	if !ok || inv.RenderedAt.Valid {
		return false, nil
	}
	inv.RenderedAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
	s.invoices[key] = inv
	s.rendered = append(s.rendered, key)
	return true, nil
}

func (s *fakeStore) ReleaseRender(_ context.Context, id pgtype.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := common.UUIDString(id)
	inv, ok := s.invoices[key]
	if !ok {
		return common.ErrNotFound
	}
	inv.RenderedAt = pgtype.Timestamptz{}
	s.invoices[key] = inv
	s.released = append(s.released, key)
	return nil
}

func (s *fakeStore) stockOf(id string) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stock[id]
}

type fakeEnqueuer struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (e *fakeEnqueuer) EnqueueRender(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.ids = append(e.ids, id)
	return nil
}

var errBroker = errors.New("broker unavailable")
