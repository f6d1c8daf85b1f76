package services

import (
	"context"
	"strings"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

// userListLimit caps the admin user listing.
const userListLimit = 100

// AdminService handles user administration.
type AdminService struct {
	users repositories.UserRepository
}

// NewAdminService creates a new AdminService.
func NewAdminService(users repositories.UserRepository) *AdminService {
	return &AdminService{users: users}
}

// ListUsers returns the most recently registered users.
func (s *AdminService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.ListRecent(ctx, userListLimit)
}

// GetUser retrieves a single user by its ID.
func (s *AdminService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// UpdateRole grants or revokes the ADMIN role.
func (s *AdminService) UpdateRole(ctx context.Context, id uint, role string) (*models.User, error) {
	parsed, ok := models.ParseRole(strings.ToUpper(strings.TrimSpace(role)))
	if !ok {
		return nil, invalid("Invalid role value")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateRole(ctx, id, parsed); err != nil {
		return nil, err
	}
	user.Role = parsed
	return user, nil
}
