package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/noah-isme/toko-admin/internal/catalog"
	"github.com/noah-isme/toko-admin/internal/common"
	dbgen "github.com/noah-isme/toko-admin/internal/db/gen"
	"github.com/noah-isme/toko-admin/internal/user"
)

var categoryNames = []string{"Beverages", "Snacks", "Household", "Personal Care", "Stationery"}

func main() {
	products := flag.Int("products", 8, "products per category")
	seed := flag.Uint64("seed", 0, "faker seed, 0 for random")
	adminEmail := flag.String("admin-email", "admin@toko.local", "registers this admin account when set")
	adminPassword := flag.String("admin-password", "changeme123", "admin account password")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	queries := dbgen.New(pool)
	faker := gofakeit.New(*seed)

	catalogSvc, err := catalog.NewService(catalog.ServiceConfig{Queries: queries})
	if err != nil {
		log.Fatalf("catalog service: %v", err)
	}
	created, err := seedCatalog(ctx, catalogSvc, faker, *products)
	if err != nil {
		log.Fatalf("seed catalog: %v", err)
	}
	log.Printf("Seeded %d products across %d categories", created, len(categoryNames))

	if *adminEmail != "" {
		users, err := user.NewService(user.ServiceConfig{Queries: queries})
		if err != nil {
			log.Fatalf("user service: %v", err)
		}
		if err := seedAdmin(ctx, users, *adminEmail, *adminPassword); err != nil {
			log.Fatalf("seed admin: %v", err)
		}
	}
	log.Println("Seeding completed")
}

func seedCatalog(ctx context.Context, svc *catalog.Service, faker *gofakeit.Faker, perCategory int) (int, error) {
	existing, err := svc.ListCategories(ctx)
	if err != nil {
		return 0, err
	}
	byName := make(map[string]catalog.Category, len(existing))
	for _, c := range existing {
		byName[c.Name] = c
	}

	count := 0
	for _, name := range categoryNames {
		cat, ok := byName[name]
		if !ok {
			cat, err = svc.CreateCategory(ctx, catalog.CategoryInput{Name: name, Description: faker.Sentence(8)})
			if err != nil {
				return count, fmt.Errorf("category %s: %w", name, err)
			}
		}
		for i := 0; i < perCategory; i++ {
			stock := faker.IntRange(5, 250)
			_, err := svc.CreateProduct(ctx, catalog.ProductInput{
				Name:        faker.ProductName(),
				Description: faker.ProductDescription(),
				Price:       fmt.Sprintf("%.2f", faker.Price(0.5, 150)),
				Stock:       &stock,
				Barcode:     faker.Numerify("899#########"),
				CategoryID:  cat.ID,
			})
			if errors.Is(err, common.ErrConflict) {
				continue
			}
			if err != nil {
				return count, fmt.Errorf("product in %s: %w", name, err)
			}
			count++
		}
	}
	return count, nil
}

func seedAdmin(ctx context.Context, users *user.Service, email, password string) error {
	_, err := users.Register(ctx, user.RegisterInput{
		FirstName: "Toko",
		LastName:  "Admin",
		Email:     email,
		Password:  password,
	})
	if errors.Is(err, common.ErrConflict) {
		log.Printf("Admin %s already registered", email)
		return nil
	}
	if err != nil {
		return err
	}
	log.Printf("Registered admin %s", email)
	return nil
}
