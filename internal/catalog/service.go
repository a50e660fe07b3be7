package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-admin/internal/common"
	dbgen "github.com/noah-isme/toko-admin/internal/db/gen"
	"github.com/noah-isme/toko-admin/internal/invoice"
	"github.com/noah-isme/toko-admin/internal/obs"
)

const searchNamespace = "catalog:search"

type queryProvider interface {
	ListCategories(ctx context.Context) ([]dbgen.Category, error)
	GetCategoryByID(ctx context.Context, id pgtype.UUID) (dbgen.Category, error)
	CreateCategory(ctx context.Context, arg dbgen.CreateCategoryParams) (dbgen.Category, error)
	UpdateCategory(ctx context.Context, arg dbgen.UpdateCategoryParams) (dbgen.Category, error)
	DeleteCategory(ctx context.Context, id pgtype.UUID) (int64, error)
	ListProducts(ctx context.Context, categoryID pgtype.UUID) ([]dbgen.Product, error)
	GetProductByID(ctx context.Context, id pgtype.UUID) (dbgen.Product, error)
	GetProductsByIDs(ctx context.Context, ids []pgtype.UUID) ([]dbgen.Product, error)
	SearchProducts(ctx context.Context, arg dbgen.SearchProductsParams) ([]dbgen.Product, error)
	CreateProduct(ctx context.Context, arg dbgen.CreateProductParams) (dbgen.Product, error)
	UpdateProduct(ctx context.Context, arg dbgen.UpdateProductParams) (dbgen.Product, error)
	DeleteProduct(ctx context.Context, id pgtype.UUID) (int64, error)
}

// Service manages categories and products and answers product lookups for invoicing.
type Service struct {
	queries     queryProvider
	cache       *Cache
	metrics     *obs.InvoiceMetrics
	places      int32
	searchLimit int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries     queryProvider
	Cache       *Cache
	Metrics     *obs.InvoiceMetrics
	Currency    string
	SearchLimit int
}

// Category is the API shape of a category.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Product is the API shape of a product. Price is a decimal string.
type Product struct {
	ID          string    `json:"id"`
	CategoryID  string    `json:"categoryId,omitempty"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Price       string    `json:"price"`
	Stock       int       `json:"stock"`
	Barcode     string    `json:"barcode"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// LookupItem is the product view an invoice line is priced from.
type LookupItem struct {
	ProductID    string          `json:"productId"`
	Name         string          `json:"name"`
	Barcode      string          `json:"barcode"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	StockCeiling int             `json:"stockCeiling"`
}

// CategoryInput is the create/update payload for categories.
type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=1000"`
}

// ProductInput is the create/update payload for products.
type ProductInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Price       string `json:"price" validate:"required"`
	Stock       *int   `json:"stock" validate:"required,min=0"`
	Barcode     string `json:"barcode" validate:"required,max=64"`
	CategoryID  string `json:"categoryId" validate:"omitempty,uuid"`
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("catalog: queries provider is required")
	}
	limit := cfg.SearchLimit
	if limit <= 0 {
		limit = 20
	}
	calc, err := invoice.NewCalculator(cfg.Currency)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return &Service{
		queries:     cfg.Queries,
		cache:       cfg.Cache,
		metrics:     cfg.Metrics,
		places:      calc.Places(),
		searchLimit: limit,
	}, nil
}

// ListCategories returns all categories sorted by name.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	result := make([]Category, 0, len(rows))
	for _, row := range rows {
		result = append(result, toCategory(row))
	}
	return result, nil
}

// GetCategory returns one category.
func (s *Service) GetCategory(ctx context.Context, id string) (Category, error) {
	uid, err := parseID(id)
	if err != nil {
		return Category{}, err
	}
	row, err := s.queries.GetCategoryByID(ctx, uid)
	if err != nil {
		if common.IsNoRows(err) {
			return Category{}, common.NotFound("category")
		}
		return Category{}, fmt.Errorf("get category: %w", err)
	}
	return toCategory(row), nil
}

// CreateCategory stores a new category with a slug derived from its name.
func (s *Service) CreateCategory(ctx context.Context, input CategoryInput) (Category, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := common.ValidateStruct(input); err != nil {
		return Category{}, err
	}
	row, err := s.queries.CreateCategory(ctx, dbgen.CreateCategoryParams{
		Name:        input.Name,
		Slug:        slug.Make(input.Name),
		Description: common.ToText(input.Description),
	})
	if err != nil {
		return Category{}, categoryWriteError("create category", err)
	}
	return toCategory(row), nil
}

// UpdateCategory replaces the name and description of a category.
func (s *Service) UpdateCategory(ctx context.Context, id string, input CategoryInput) (Category, error) {
	uid, err := parseID(id)
	if err != nil {
		return Category{}, err
	}
	input.Name = strings.TrimSpace(input.Name)
	if err := common.ValidateStruct(input); err != nil {
		return Category{}, err
	}
	row, err := s.queries.UpdateCategory(ctx, dbgen.UpdateCategoryParams{
		ID:          uid,
		Name:        input.Name,
		Slug:        slug.Make(input.Name),
		Description: common.ToText(input.Description),
	})
	if err != nil {
		if common.IsNoRows(err) {
			return Category{}, common.NotFound("category")
		}
		return Category{}, categoryWriteError("update category", err)
	}
	return toCategory(row), nil
}

// DeleteCategory removes a category that no product references.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}
	n, err := s.queries.DeleteCategory(ctx, uid)
	if err != nil {
		if common.PgErrorCode(err) == common.PgForeignKeyViolation {
			return common.Conflict("CATEGORY_IN_USE", "category still has products")
		}
		return fmt.Errorf("delete category: %w", err)
	}
	if n == 0 {
		return common.NotFound("category")
	}
	return nil
}

// ListProducts returns products, optionally restricted to one category.
func (s *Service) ListProducts(ctx context.Context, categoryID string) ([]Product, error) {
	var filter pgtype.UUID
	if strings.TrimSpace(categoryID) != "" {
		uid, err := parseID(categoryID)
		if err != nil {
			return nil, err
		}
		filter = uid
	}
	rows, err := s.queries.ListProducts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	result := make([]Product, 0, len(rows))
	for _, row := range rows {
		result = append(result, s.toProduct(row))
	}
	return result, nil
}

// GetProduct returns one product.
func (s *Service) GetProduct(ctx context.Context, id string) (Product, error) {
	uid, err := parseID(id)
	if err != nil {
		return Product{}, err
	}
	row, err := s.queries.GetProductByID(ctx, uid)
	if err != nil {
		if common.IsNoRows(err) {
			return Product{}, common.NotFound("product")
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	return s.toProduct(row), nil
}

// CreateProduct stores a new product. Price and stock must both be positive.
func (s *Service) CreateProduct(ctx context.Context, input ProductInput) (Product, error) {
	params, err := s.productParams(input, true)
	if err != nil {
		return Product{}, err
	}
	row, err := s.queries.CreateProduct(ctx, params)
	if err != nil {
		return Product{}, productWriteError("create product", err)
	}
	s.invalidateSearch(ctx)
	return s.toProduct(row), nil
}

// UpdateProduct replaces every field of a product. Stock may be zero.
func (s *Service) UpdateProduct(ctx context.Context, id string, input ProductInput) (Product, error) {
	uid, err := parseID(id)
	if err != nil {
		return Product{}, err
	}
	params, err := s.productParams(input, false)
	if err != nil {
		return Product{}, err
	}
	row, err := s.queries.UpdateProduct(ctx, dbgen.UpdateProductParams{
		ID:          uid,
		CategoryID:  params.CategoryID,
		Name:        params.Name,
		Slug:        params.Slug,
		Description: params.Description,
		Price:       params.Price,
		Stock:       params.Stock,
		Barcode:     params.Barcode,
	})
	if err != nil {
		if common.IsNoRows(err) {
			return Product{}, common.NotFound("product")
		}
		return Product{}, productWriteError("update product", err)
	}
	s.invalidateSearch(ctx)
	return s.toProduct(row), nil
}

// DeleteProduct removes a product that no invoice references.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}
	n, err := s.queries.DeleteProduct(ctx, uid)
	if err != nil {
		if common.PgErrorCode(err) == common.PgForeignKeyViolation {
			return common.Conflict("PRODUCT_IN_USE", "product is referenced by invoices")
		}
		return fmt.Errorf("delete product: %w", err)
	}
	if n == 0 {
		return common.NotFound("product")
	}
	s.invalidateSearch(ctx)
	return nil
}

// Search matches products by name substring or exact barcode. Results are
// cached until the next product write.
func (s *Service) Search(ctx context.Context, term string) ([]LookupItem, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []LookupItem{}, nil
	}
	key := s.searchKey(ctx, term)
	var cached []LookupItem
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("product search cache read failed")
	} else if ok {
		s.metrics.SearchCacheLookup(true)
		return cached, nil
	}
	s.metrics.SearchCacheLookup(false)

	rows, err := s.queries.SearchProducts(ctx, dbgen.SearchProductsParams{Term: term, Limit: int32(s.searchLimit)})
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	items := make([]LookupItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, s.toLookup(row))
	}
	if err := s.cache.SetJSON(ctx, key, items); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("product search cache write failed")
	}
	return items, nil
}

// LookupForInvoice loads the current name, price and stock of the given
// products, keyed by product id. Unknown or malformed ids are absent from the
// result.
func (s *Service) LookupForInvoice(ctx context.Context, ids []string) (map[string]LookupItem, error) {
	uids := make([]pgtype.UUID, 0, len(ids))
	for _, id := range ids {
		uid, err := common.ToUUID(id)
		if err != nil {
			continue
		}
		uids = append(uids, uid)
	}
	out := make(map[string]LookupItem, len(uids))
	if len(uids) == 0 {
		return out, nil
	}
	rows, err := s.queries.GetProductsByIDs(ctx, uids)
	if err != nil {
		return nil, fmt.Errorf("lookup products: %w", err)
	}
	for _, row := range rows {
		item := s.toLookup(row)
		out[item.ProductID] = item
	}
	return out, nil
}

func (s *Service) productParams(input ProductInput, creating bool) (dbgen.CreateProductParams, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Barcode = strings.TrimSpace(input.Barcode)
	if err := common.ValidateStruct(input); err != nil {
		return dbgen.CreateProductParams{}, err
	}
	price, err := decimal.NewFromString(strings.TrimSpace(input.Price))
	if err != nil || !price.IsPositive() {
		return dbgen.CreateProductParams{}, invalidField("price", "must be a positive decimal")
	}
	minor, err := invoice.ToMinor(price, s.places)
	if err != nil {
		return dbgen.CreateProductParams{}, invalidField("price", fmt.Sprintf("must have at most %d decimal places", s.places))
	}
	if creating && *input.Stock < 1 {
		return dbgen.CreateProductParams{}, invalidField("stock", "must be at least 1")
	}
	var category pgtype.UUID
	if input.CategoryID != "" {
		if category, err = common.ToUUID(input.CategoryID); err != nil {
			return dbgen.CreateProductParams{}, invalidField("categoryId", "must be a uuid")
		}
	}
	return dbgen.CreateProductParams{
		CategoryID:  category,
		Name:        input.Name,
		Slug:        slug.Make(input.Name),
		Description: common.ToText(input.Description),
		Price:       minor,
		Stock:       int32(*input.Stock),
		Barcode:     input.Barcode,
	}, nil
}

func (s *Service) searchKey(ctx context.Context, term string) string {
	gen, err := s.cache.Generation(ctx, searchNamespace)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("product search cache generation unavailable")
		return ""
	}
	sum := sha256.Sum256([]byte(strings.ToLower(term)))
	return fmt.Sprintf("%s:%d:%s:%d", searchNamespace, gen, hex.EncodeToString(sum[:8]), s.searchLimit)
}

func (s *Service) invalidateSearch(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, searchNamespace); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("product search cache invalidation failed")
	}
}

func (s *Service) toProduct(row dbgen.Product) Product {
	return Product{
		ID:          common.UUIDString(row.ID),
		CategoryID:  common.UUIDString(row.CategoryID),
		Name:        row.Name,
		Slug:        row.Slug,
		Description: common.TextString(row.Description),
		Price:       invoice.FromMinor(row.Price, s.places).StringFixed(s.places),
		Stock:       int(row.Stock),
		Barcode:     row.Barcode,
		CreatedAt:   common.TimeFromPG(row.CreatedAt),
		UpdatedAt:   common.TimeFromPG(row.UpdatedAt),
	}
}

func (s *Service) toLookup(row dbgen.Product) LookupItem {
	return LookupItem{
		ProductID:    common.UUIDString(row.ID),
		Name:         row.Name,
		Barcode:      row.Barcode,
		UnitPrice:    invoice.FromMinor(row.Price, s.places),
		StockCeiling: int(row.Stock),
	}
}

func toCategory(row dbgen.Category) Category {
	return Category{
		ID:          common.UUIDString(row.ID),
		Name:        row.Name,
		Slug:        row.Slug,
		Description: common.TextString(row.Description),
		CreatedAt:   common.TimeFromPG(row.CreatedAt),
		UpdatedAt:   common.TimeFromPG(row.UpdatedAt),
	}
}

func parseID(id string) (pgtype.UUID, error) {
	uid, err := common.ToUUID(id)
	if err != nil {
		return pgtype.UUID{}, common.NewAppError("BAD_REQUEST", "id must be a uuid", http.StatusBadRequest, err)
	}
	return uid, nil
}

func invalidField(field, message string) *common.AppError {
	return common.NewAppError("VALIDATION_ERROR", field+" "+message, http.StatusUnprocessableEntity, nil).
		WithDetails([]common.FieldViolation{{Field: field, Rule: message}})
}

func categoryWriteError(op string, err error) error {
	if common.PgErrorCode(err) == common.PgUniqueViolation {
		return common.Conflict("CATEGORY_EXISTS", "a category with this name already exists")
	}
	return fmt.Errorf("%s: %w", op, err)
}

func productWriteError(op string, err error) error {
	switch common.PgErrorCode(err) {
	case common.PgUniqueViolation:
		return common.Conflict("BARCODE_EXISTS", "a product with this barcode already exists")
	case common.PgForeignKeyViolation:
		return invalidField("categoryId", "references an unknown category")
	}
	return fmt.Errorf("%s: %w", op, err)
}
