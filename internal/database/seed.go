package database

import (
	"errors"
	"fmt"
	"log"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedOptions configures the administrator created by Seed.
type SeedOptions struct {
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

type sampleProduct struct {
	name, description, price string
	quantity                 int
}

var sampleCatalog = []struct {
	category models.Category
	products []sampleProduct
}{
	{
		category: models.Category{Name: "Laptops", Description: "Notebooks and ultrabooks"},
		products: []sampleProduct{
			{"Laptop Pro 14", "14-inch laptop with 16GB RAM", "1299.00", 10},
			{"Ultrabook Air", "Light 13-inch ultrabook", "999.00", 4},
		},
	},
	{
		category: models.Category{Name: "Accessories", Description: "Keyboards, mice and more"},
		products: []sampleProduct{
			{"Mechanical Keyboard", "Hot-swappable mechanical keyboard", "75.00", 25},
			{"Wireless Mouse", "Ergonomic wireless mouse", "25.00", 50},
		},
	},
	{
		category: models.Category{Name: "Phones", Description: "Smartphones"},
		products: []sampleProduct{
			{"Smartphone X", "6.1-inch smartphone", "699.00", 0},
		},
	},
}

// Seed creates the administrator when missing and a sample catalog when no products exist.
func Seed(db *gorm.DB, opts SeedOptions) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := seedAdmin(tx, opts); err != nil {
			return err
		}
		return seedCatalog(tx)
	})
}

func seedAdmin(tx *gorm.DB, opts SeedOptions) error {
	if opts.AdminUsername == "" || opts.AdminPassword == "" {
		return nil
	}
	var existing models.User
	err := tx.Where("username = ?", opts.AdminUsername).First(&existing).Error
	if err == nil {
		log.Printf("Admin %q already exists, skipping", opts.AdminUsername)
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(opts.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	admin := models.User{
		Username: opts.AdminUsername,
		Email:    opts.AdminEmail,
		Password: string(hash),
		FullName: "Administrator",
		Role:     models.RoleAdmin,
	}
	if err := tx.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	log.Printf("Seeded admin user: %s", admin.Username)
	return nil
}

func seedCatalog(tx *gorm.DB) error {
	var count int64
	if err := tx.Model(&models.Product{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		log.Printf("Catalog already has %d products, skipping", count)
		return nil
	}

	for _, entry := range sampleCatalog {
		category := entry.category
		if err := tx.Create(&category).Error; err != nil {
			return fmt.Errorf("failed to seed category %s: %w", category.Name, err)
		}
		for _, p := range entry.products {
			product := models.Product{
				Name:        p.name,
				Description: p.description,
				Price:       decimal.RequireFromString(p.price),
				Quantity:    p.quantity,
				CategoryID:  &category.ID,
			}
			if err := tx.Omit("Category").Create(&product).Error; err != nil {
				return fmt.Errorf("failed to seed product %s: %w", p.name, err)
			}
			log.Printf("Seeded product: %s (ID: %d)", product.Name, product.ID)
		}
	}
	return nil
}
