package repositories

import (
	"context"

	"gorm.io/gorm"
)

// Repositories bundles the repositories that share one database handle.
type Repositories struct {
	Users      UserRepository
	Products   ProductRepository
	Categories CategoryRepository
	Carts      CartRepository
	Orders     OrderRepository
}

// NewGORMRepositories builds every GORM repository on db.
func NewGORMRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:      NewGORMUserRepository(db),
		Products:   NewGORMProductRepository(db),
		Categories: NewGORMCategoryRepository(db),
		Carts:      NewGORMCartRepository(db),
		Orders:     NewGORMOrderRepository(db),
	}
}

// UnitOfWork runs a function against repositories bound to a single transaction.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(tx Repositories) error) error
}

// GORMUnitOfWork is a GORM implementation of UnitOfWork.
type GORMUnitOfWork struct {
	db *gorm.DB
}

// NewGORMUnitOfWork creates a new GORMUnitOfWork.
func NewGORMUnitOfWork(db *gorm.DB) *GORMUnitOfWork {
	return &GORMUnitOfWork{db: db}
}

// Do commits when fn returns nil and rolls back otherwise.
func (u *GORMUnitOfWork) Do(ctx context.Context, fn func(tx Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGORMRepositories(tx))
	})
}
