package sales

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-admin/internal/catalog"
	"github.com/noah-isme/toko-admin/internal/common"
	dbgen "github.com/noah-isme/toko-admin/internal/db/gen"
	"github.com/noah-isme/toko-admin/internal/invoice"
	"github.com/noah-isme/toko-admin/internal/obs"
)

// Catalog resolves cart product references to their current name, price and stock.
type Catalog interface {
	LookupForInvoice(ctx context.Context, ids []string) (map[string]catalog.LookupItem, error)
}

// Enqueuer schedules background rendering of a persisted invoice.
type Enqueuer interface {
	EnqueueRender(ctx context.Context, invoiceID string) error
}

// Locker serialises work on one key across worker processes.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

const deliverLockTTL = 2 * time.Minute

// ratePlaces is the scale of the stored discount and tax rates.
const ratePlaces = 6

// Service prices carts and manages sales invoices.
type Service struct {
	store        Store
	catalog      Catalog
	enqueuer     Enqueuer
	mailer       common.EmailSender
	locker       Locker
	metrics      *obs.InvoiceMetrics
	calc         invoice.Calculator
	currency     string
	discountRate decimal.Decimal
	taxRate      decimal.Decimal
	template     string
	storeName    string
	now          func() time.Time
}

// ServiceConfig groups Service dependencies. Enqueuer, Mailer, Locker and
// Metrics are optional.
type ServiceConfig struct {
	Store          Store
	Catalog        Catalog
	Enqueuer       Enqueuer
	Mailer         common.EmailSender
	Locker         Locker
	Metrics        *obs.InvoiceMetrics
	Currency       string
	DiscountRate   decimal.Decimal
	TaxRate        decimal.Decimal
	NumberTemplate string
	StoreName      string
	Now            func() time.Time
}

// NewService validates cfg and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("sales: store is required")
	}
	if cfg.Catalog == nil {
		return nil, errors.New("sales: catalog is required")
	}
	currency := strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = "USD"
	}
	calc, err := invoice.NewCalculator(currency)
	if err != nil {
		return nil, fmt.Errorf("sales: %w", err)
	}
	if err := invoice.ValidateRate("discountRate", cfg.DiscountRate); err != nil {
		return nil, fmt.Errorf("sales: %w", err)
	}
	if err := invoice.ValidateRate("taxRate", cfg.TaxRate); err != nil {
		return nil, fmt.Errorf("sales: %w", err)
	}
	for _, rate := range []decimal.Decimal{cfg.DiscountRate, cfg.TaxRate} {
		if !rate.Equal(rate.Truncate(ratePlaces)) {
			return nil, fmt.Errorf("sales: rate %s has more than %d decimal places", rate, ratePlaces)
		}
	}
	template := cfg.NumberTemplate
	if strings.TrimSpace(template) == "" {
		template = DefaultNumberTemplate
	}
	if _, err := FormatInvoiceNumber(template, time.Now(), 1); err != nil {
		return nil, fmt.Errorf("sales: %w", err)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:        cfg.Store,
		catalog:      cfg.Catalog,
		enqueuer:     cfg.Enqueuer,
		mailer:       cfg.Mailer,
		locker:       cfg.Locker,
		metrics:      cfg.Metrics,
		calc:         calc,
		currency:     currency,
		discountRate: cfg.DiscountRate,
		taxRate:      cfg.TaxRate,
		template:     template,
		storeName:    cfg.StoreName,
		now:          now,
	}, nil
}

// Quote prices the cart with the configured rates without persisting anything.
func (s *Service) Quote(ctx context.Context, input QuoteInput) (Quote, error) {
	if err := common.ValidateStruct(input); err != nil {
		return Quote{}, err
	}
	cart, totals, err := s.price(ctx, input.Items)
	if err != nil {
		return Quote{}, err
	}
	items := cart.Items()
	lines := make([]Line, 0, len(items))
	for i, it := range items {
		ceiling := it.StockCeiling
		lines = append(lines, Line{
			Position:     i + 1,
			ProductID:    it.ProductID,
			Name:         it.Name,
			UnitPrice:    totals.Fixed(it.UnitPrice),
			Quantity:     it.Quantity,
			StockCeiling: &ceiling,
			LineTotal:    totals.Fixed(it.Extended()),
		})
	}
	return Quote{Items: lines, Amounts: s.amounts(totals)}, nil
}

// Create prices the cart server-side and persists the invoice, decrementing
// product stock in the same transaction. Rendering is scheduled afterwards and
// a scheduling failure does not fail the request.
func (s *Service) Create(ctx context.Context, input CreateInput) (Invoice, error) {
	input.InvoiceNumber = strings.TrimSpace(input.InvoiceNumber)
	input.CustomerName = strings.TrimSpace(input.CustomerName)
	input.CustomerEmail = strings.TrimSpace(input.CustomerEmail)
	input.CustomerPhone = strings.TrimSpace(input.CustomerPhone)
	if err := common.ValidateStruct(input); err != nil {
		s.metrics.InvoiceFailed("invalid")
		return Invoice{}, err
	}
	cart, totals, err := s.price(ctx, input.Items)
	if err != nil {
		s.metrics.InvoiceFailed("invalid")
		return Invoice{}, err
	}

	issuedAt := s.now().UTC()
	if input.Date != nil && !input.Date.IsZero() {
		issuedAt = input.Date.UTC()
	}
	number := input.InvoiceNumber
	if number == "" {
		if number, err = s.nextNumber(ctx, issuedAt); err != nil {
			s.metrics.InvoiceFailed("error")
			return Invoice{}, err
		}
	}

	record, err := s.newInvoice(cart, totals, input, number, issuedAt)
	if err != nil {
		s.metrics.InvoiceFailed("error")
		return Invoice{}, err
	}
	row, err := s.store.CreateInvoice(ctx, record)
	if err != nil {
		var oos *OutOfStockError
		switch {
		case errors.Is(err, ErrNumberTaken):
			s.metrics.InvoiceFailed("conflict")
			return Invoice{}, common.Conflict("INVOICE_NUMBER_TAKEN", "invoice number is already used").
				WithDetails(map[string]string{"invoiceNumber": number})
		case errors.As(err, &oos):
			s.metrics.InvoiceFailed("conflict")
			return Invoice{}, common.Conflict("OUT_OF_STOCK", "product stock changed, please review the cart").
				WithDetails(Violation{Field: "quantity", ProductID: oos.ProductID, Reason: invoice.ReasonExceedsStock})
		}
		s.metrics.InvoiceFailed("error")
		return Invoice{}, fmt.Errorf("create invoice: %w", err)
	}
	s.metrics.InvoiceCreated(s.currency, totals.GrandTotal.InexactFloat64())

	out := s.toInvoice(row, record.Items, cart.Items())
	zerolog.Ctx(ctx).Info().
		Str("invoice_id", out.ID).
		Str("invoice_number", out.InvoiceNumber).
		Str("grand_total", out.GrandTotal).
		Msg("invoice created")
	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueRender(ctx, out.ID); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("invoice_id", out.ID).Msg("invoice render enqueue failed")
		}
	}
	return out, nil
}

// Get returns an invoice with its lines.
func (s *Service) Get(ctx context.Context, id string) (Invoice, error) {
	uid, err := parseID(id)
	if err != nil {
		return Invoice{}, err
	}
	row, items, err := s.store.GetInvoice(ctx, uid)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return Invoice{}, common.NotFound("invoice")
		}
		return Invoice{}, fmt.Errorf("get invoice: %w", err)
	}
	lines := make([]NewInvoiceItem, 0, len(items))
	for _, it := range items {
		lines = append(lines, NewInvoiceItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal,
		})
	}
	return s.toInvoice(row, lines, nil), nil
}

// List returns every invoice, most recent first, without lines.
func (s *Service) List(ctx context.Context) ([]Invoice, error) {
	rows, err := s.store.ListInvoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	out := make([]Invoice, 0, len(rows))
	for _, row := range rows {
		out = append(out, s.toInvoice(row, nil, nil))
	}
	return out, nil
}

// NextNumber suggests the number the next generated invoice will get. It
// does not consume the sequence, so a concurrent Create may take the number
// first; Create always reserves its own value.
func (s *Service) NextNumber(ctx context.Context) (string, error) {
	seq, err := s.store.PeekSequence(ctx)
	if err != nil {
		return "", fmt.Errorf("peek invoice sequence: %w", err)
	}
	number, err := FormatInvoiceNumber(s.template, s.now().UTC(), seq)
	if err != nil {
		return "", fmt.Errorf("format invoice number: %w", err)
	}
	return number, nil
}

// PDF renders an invoice document and returns its file name and bytes.
func (s *Service) PDF(ctx context.Context, id string) (string, []byte, error) {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return "", nil, err
	}
	body, err := RenderPDF(s.storeName, inv)
	if err != nil {
		return "", nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	return Filename(inv), body, nil
}

// Deliver renders the invoice PDF, mails it to the customer and marks the
// invoice rendered. The invoice is claimed before the email is sent and the
// claim is released only when sending fails, so the customer is mailed at
// most once. An invoice that is already rendered is skipped.
func (s *Service) Deliver(ctx context.Context, id string) (err error) {
	start := time.Now()
	delivered := false
	defer func() {
		result := "ok"
		switch {
		case err != nil:
			result = "error"
		case !delivered:
			result = "skipped"
		}
		s.metrics.Rendered(result, time.Since(start))
	}()

	if s.locker == nil {
		delivered, err = s.deliver(ctx, id)
		return err
	}
	return s.locker.WithLock(ctx, "invoice-render:"+id, deliverLockTTL, func(ctx context.Context) error {
		var lockedErr error
		delivered, lockedErr = s.deliver(ctx, id)
		return lockedErr
	})
}

func (s *Service) deliver(ctx context.Context, id string) (bool, error) {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if inv.RenderedAt != nil {
		zerolog.Ctx(ctx).Debug().Str("invoice_id", inv.ID).Msg("invoice already rendered")
		return false, nil
	}
	uid, err := common.ToUUID(inv.ID)
	if err != nil {
		return false, fmt.Errorf("invoice id %q: %w", inv.ID, err)
	}
	body, err := RenderPDF(s.storeName, inv)
	if err != nil {
		return false, fmt.Errorf("render invoice pdf: %w", err)
	}
	claimed, err := s.store.ClaimRender(ctx, uid)
	if err != nil {
		return false, fmt.Errorf("claim invoice render: %w", err)
	}
	if !claimed {
		return false, nil
	}
	if s.mailer != nil {
		msg := common.Email{
			To:      inv.CustomerEmail,
			Subject: fmt.Sprintf("Invoice %s", inv.InvoiceNumber),
			HTML: fmt.Sprintf("<p>Hello %s,</p><p>Your invoice %s for %s is attached.</p>",
				inv.CustomerName, inv.InvoiceNumber, DisplayAmount(inv.Currency, inv.GrandTotal)),
			Attachments: []common.EmailAttachment{{
				Filename:    Filename(inv),
				ContentType: "application/pdf",
				Data:        body,
			}},
		}
		if err := s.mailer.Send(ctx, msg); err != nil {
			err = fmt.Errorf("send invoice email: %w", err)
			if relErr := s.store.ReleaseRender(context.WithoutCancel(ctx), uid); relErr != nil {
				err = errors.Join(err, fmt.Errorf("release invoice render: %w", relErr))
			}
			return false, err
		}
	}
	return true, nil
}

// price builds a cart from catalog data, merging repeated products, and
// computes its totals with the configured rates.
func (s *Service) price(ctx context.Context, items []ItemInput) (*invoice.Cart, invoice.Totals, error) {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, strings.TrimSpace(it.ProductID))
	}
	found, err := s.catalog.LookupForInvoice(ctx, ids)
	if err != nil {
		return nil, invoice.Totals{}, fmt.Errorf("lookup products: %w", err)
	}

	cart := invoice.NewCart()
	for i, it := range items {
		id := ids[i]
		var item invoice.LineItem
		if id != "" {
			product, ok := found[id]
			if !ok {
				return nil, invoice.Totals{}, s.rejected(invoice.UnknownProduct(id))
			}
			item = invoice.LineItem{
				ProductID:    product.ProductID,
				Name:         product.Name,
				UnitPrice:    product.UnitPrice,
				StockCeiling: product.StockCeiling,
			}
		}
		item.Quantity = it.Quantity
		if err := cart.Add(item); err != nil {
			return nil, invoice.Totals{}, s.rejected(err)
		}
	}
	totals, err := cart.Totals(s.calc, s.discountRate, s.taxRate)
	if err != nil {
		return nil, invoice.Totals{}, s.rejected(err)
	}
	return cart, totals, nil
}

// rejected converts a cart validation failure into a 422 INVOICE_INVALID.
func (s *Service) rejected(err error) error {
	verr, ok := invoice.AsValidationError(err)
	if !ok {
		return err
	}
	s.metrics.ValidationFailed(verr.Field, verr.Reason)
	return common.NewAppError("INVOICE_INVALID", verr.Error(), http.StatusUnprocessableEntity, verr).
		WithDetails(Violation{Field: verr.Field, ProductID: verr.ProductID, Reason: verr.Reason})
}

func (s *Service) nextNumber(ctx context.Context, at time.Time) (string, error) {
	seq, err := s.store.NextSequence(ctx)
	if err != nil {
		return "", fmt.Errorf("next invoice sequence: %w", err)
	}
	number, err := FormatInvoiceNumber(s.template, at, seq)
	if err != nil {
		return "", fmt.Errorf("format invoice number: %w", err)
	}
	return number, nil
}

func (s *Service) newInvoice(cart *invoice.Cart, totals invoice.Totals, input CreateInput, number string, issuedAt time.Time) (NewInvoice, error) {
	places := totals.Places
	amounts := make([]int64, 0, 4)
	for _, amount := range []decimal.Decimal{totals.Subtotal, totals.DiscountAmount, totals.TaxAmount, totals.GrandTotal} {
		minor, err := invoice.ToMinor(amount, places)
		if err != nil {
			return NewInvoice{}, fmt.Errorf("convert totals: %w", err)
		}
		amounts = append(amounts, minor)
	}

	items := cart.Items()
	lines := make([]NewInvoiceItem, 0, len(items))
	for _, it := range items {
		pid, err := common.ToUUID(it.ProductID)
		if err != nil {
			return NewInvoice{}, fmt.Errorf("product id %q: %w", it.ProductID, err)
		}
		unit, err := invoice.ToMinor(it.UnitPrice, places)
		if err != nil {
			return NewInvoice{}, fmt.Errorf("convert unit price: %w", err)
		}
		line, err := invoice.ToMinor(it.Extended(), places)
		if err != nil {
			return NewInvoice{}, fmt.Errorf("convert line total: %w", err)
		}
		lines = append(lines, NewInvoiceItem{
			ProductID: pid,
			Name:      it.Name,
			UnitPrice: unit,
			Quantity:  int32(it.Quantity),
			LineTotal: line,
		})
	}

	return NewInvoice{
		Header: dbgen.CreateInvoiceParams{
			InvoiceNumber:  number,
			CustomerName:   input.CustomerName,
			CustomerEmail:  input.CustomerEmail,
			CustomerPhone:  input.CustomerPhone,
			IssuedAt:       pgtype.Timestamptz{Time: issuedAt, Valid: true},
			Notes:          common.ToText(input.Notes),
			Currency:       s.currency,
			DiscountRate:   toNumeric(s.discountRate),
			TaxRate:        toNumeric(s.taxRate),
			Subtotal:       amounts[0],
			DiscountAmount: amounts[1],
			TaxAmount:      amounts[2],
			GrandTotal:     amounts[3],
		},
		Items: lines,
	}, nil
}

func (s *Service) amounts(totals invoice.Totals) Amounts {
	return Amounts{
		Currency:       s.currency,
		DiscountRate:   s.discountRate.String(),
		TaxRate:        s.taxRate.String(),
		Subtotal:       totals.Fixed(totals.Subtotal),
		DiscountAmount: totals.Fixed(totals.DiscountAmount),
		TaxableAmount:  totals.Fixed(totals.TaxableAmount),
		TaxAmount:      totals.Fixed(totals.TaxAmount),
		GrandTotal:     totals.Fixed(totals.GrandTotal),
	}
}

// toInvoice maps a stored invoice to its API shape. ceilings, when present,
// supplies the stock ceiling each line was priced against.
func (s *Service) toInvoice(row dbgen.Invoice, items []NewInvoiceItem, ceilings []invoice.LineItem) Invoice {
	places := s.calc.Places()
	if calc, err := invoice.NewCalculator(row.Currency); err == nil {
		places = calc.Places()
	}
	fixed := func(minor int64) string {
		return invoice.FromMinor(minor, places).StringFixed(places)
	}

	var lines []Line
	for i, it := range items {
		line := Line{
			Position:  i + 1,
			ProductID: common.UUIDString(it.ProductID),
			Name:      it.Name,
			UnitPrice: fixed(it.UnitPrice),
			Quantity:  int(it.Quantity),
			LineTotal: fixed(it.LineTotal),
		}
		if i < len(ceilings) {
			ceiling := ceilings[i].StockCeiling
			line.StockCeiling = &ceiling
		}
		lines = append(lines, line)
	}

	out := Invoice{
		ID:            common.UUIDString(row.ID),
		InvoiceNumber: row.InvoiceNumber,
		CustomerName:  row.CustomerName,
		CustomerEmail: row.CustomerEmail,
		CustomerPhone: row.CustomerPhone,
		IssuedAt:      common.TimeFromPG(row.IssuedAt),
		Notes:         common.TextString(row.Notes),
		Items:         lines,
		CreatedAt:     common.TimeFromPG(row.CreatedAt),
		Amounts: Amounts{
			Currency:       row.Currency,
			DiscountRate:   fromNumeric(row.DiscountRate).String(),
			TaxRate:        fromNumeric(row.TaxRate).String(),
			Subtotal:       fixed(row.Subtotal),
			DiscountAmount: fixed(row.DiscountAmount),
			TaxableAmount:  fixed(row.Subtotal - row.DiscountAmount),
			TaxAmount:      fixed(row.TaxAmount),
			GrandTotal:     fixed(row.GrandTotal),
		},
	}
	if row.RenderedAt.Valid {
		rendered := common.TimeFromPG(row.RenderedAt)
		out.RenderedAt = &rendered
	}
	return out
}

func parseID(id string) (pgtype.UUID, error) {
	uid, err := common.ToUUID(id)
	if err != nil {
		return pgtype.UUID{}, common.NewAppError("BAD_REQUEST", "id must be a uuid", http.StatusBadRequest, err)
	}
	return uid, nil
}
