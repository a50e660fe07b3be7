package catalog_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	dbgen "github.com/noah-isme/toko-admin/internal/db/gen"
)

type fakeCatalogQueries struct {
	mu          sync.Mutex
	categories  map[[16]byte]dbgen.Category
	products    map[[16]byte]dbgen.Product
	invoiced    map[[16]byte]bool
	searchCalls int
}

func newFakeCatalogQueries() *fakeCatalogQueries {
	return &fakeCatalogQueries{
		categories: map[[16]byte]dbgen.Category{},
		products:   map[[16]byte]dbgen.Product{},
		invoiced:   map[[16]byte]bool{},
	}
}

func newID() pgtype.UUID {
	return pgtype.UUID{Bytes: uuid.New(), Valid: true}
}

func now() pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: time.Now().UTC(), Valid: true}
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

func fkViolation(constraint string) error {
	return &pgconn.PgError{Code: "23503", ConstraintName: constraint}
}

func (f *fakeCatalogQueries) ListCategories(context.Context) ([]dbgen.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]dbgen.Category, 0, len(f.categories))
	for _, c := range f.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeCatalogQueries) GetCategoryByID(_ context.Context, id pgtype.UUID) (dbgen.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.categories[id.Bytes]
	if !ok {
		return dbgen.Category{}, pgx.ErrNoRows
	}
	return c, nil
}

func (f *fakeCatalogQueries) CreateCategory(_ context.Context, arg dbgen.CreateCategoryParams) (dbgen.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.categories {
		if c.Slug == arg.Slug {
			return dbgen.Category{}, uniqueViolation("categories_slug_key")
		}
	}
	c := dbgen.Category{ID: newID(), Name: arg.Name, Slug: arg.Slug, Description: arg.Description, CreatedAt: now(), UpdatedAt: now()}
	f.categories[c.ID.Bytes] = c
	return c, nil
}

func (f *fakeCatalogQueries) UpdateCategory(_ context.Context, arg dbgen.UpdateCategoryParams) (dbgen.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.categories[arg.ID.Bytes]
	if !ok {
		return dbgen.Category{}, pgx.ErrNoRows
	}
	c.Name, c.Slug, c.Description, c.UpdatedAt = arg.Name, arg.Slug, arg.Description, now()
	f.categories[c.ID.Bytes] = c
	return c, nil
}

func (f *fakeCatalogQueries) DeleteCategory(_ context.Context, id pgtype.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.categories[id.Bytes]; !ok {
		return 0, nil
	}
	for _, p := range f.products {
		if p.CategoryID.Valid && p.CategoryID.Bytes == id.Bytes {
			return 0, fkViolation("products_category_id_fkey")
		}
	}
	delete(f.categories, id.Bytes)
	return 1, nil
}

func (f *fakeCatalogQueries) sortedProducts(keep func(dbgen.Product) bool) []dbgen.Product {
	out := []dbgen.Product{}
	for _, p := range f.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (f *fakeCatalogQueries) ListProducts(_ context.Context, categoryID pgtype.UUID) ([]dbgen.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sortedProducts(func(p dbgen.Product) bool {
		return !categoryID.Valid || (p.CategoryID.Valid && p.CategoryID.Bytes == categoryID.Bytes)
	}), nil
}

func (f *fakeCatalogQueries) GetProductByID(_ context.Context, id pgtype.UUID) (dbgen.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id.Bytes]
	if !ok {
		return dbgen.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (f *fakeCatalogQueries) GetProductsByIDs(_ context.Context, ids []pgtype.UUID) ([]dbgen.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []dbgen.Product{}
	for _, id := range ids {
		if p, ok := f.products[id.Bytes]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeCatalogQueries) SearchProducts(_ context.Context, arg dbgen.SearchProductsParams) ([]dbgen.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	term := strings.ToLower(arg.Term)
	out := f.sortedProducts(func(p dbgen.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), term) || p.Barcode == arg.Term
	})
	if len(out) > int(arg.Limit) {
		out = out[:arg.Limit]
	}
	return out, nil
}

func (f *fakeCatalogQueries) checkProduct(id pgtype.UUID, categoryID pgtype.UUID, barcode string) error {
	for _, p := range f.products {
		if p.Barcode == barcode && p.ID.Bytes != id.Bytes {
			return uniqueViolation("products_barcode_key")
		}
	}
	if categoryID.Valid {
		if _, ok := f.categories[categoryID.Bytes]; !ok {
			return fkViolation("products_category_id_fkey")
		}
	}
	return nil
}

func (f *fakeCatalogQueries) CreateProduct(_ context.Context, arg dbgen.CreateProductParams) (dbgen.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := newID()
	if err := f.checkProduct(id, arg.CategoryID, arg.Barcode); err != nil {
		return dbgen.Product{}, err
	}
	p := dbgen.Product{
		ID:          id,
		CategoryID:  arg.CategoryID,
		Name:        arg.Name,
		Slug:        arg.Slug,
		Description: arg.Description,
		Price:       arg.Price,
		Stock:       arg.Stock,
		Barcode:     arg.Barcode,
		CreatedAt:   now(),
		UpdatedAt:   now(),
	}
	f.products[id.Bytes] = p
	return p, nil
}

func (f *fakeCatalogQueries) UpdateProduct(_ context.Context, arg dbgen.UpdateProductParams) (dbgen.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[arg.ID.Bytes]
	if !ok {
		return dbgen.Product{}, pgx.ErrNoRows
	}
	if err := f.checkProduct(arg.ID, arg.CategoryID, arg.Barcode); err != nil {
		return dbgen.Product{}, err
	}
	p.CategoryID, p.Name, p.Slug, p.Description = arg.CategoryID, arg.Name, arg.Slug, arg.Description
	p.Price, p.Stock, p.Barcode, p.UpdatedAt = arg.Price, arg.Stock, arg.Barcode, now()
	f.products[p.ID.Bytes] = p
	return p, nil
}

func (f *fakeCatalogQueries) DeleteProduct(_ context.Context, id pgtype.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[id.Bytes]; !ok {
		return 0, nil
	}
	if f.invoiced[id.Bytes] {
		return 0, fkViolation("invoice_items_product_id_fkey")
	}
	delete(f.products, id.Bytes)
	return 1, nil
}
