package services_test

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/stretchr/testify/assert"
)

func TestAdminService_Users(t *testing.T) {
	mockRepo := new(MockUserRepository)
	admin := services.NewAdminService(mockRepo)
	ctx := context.Background()

	users := []models.User{{ID: 2, Username: "new"}, {ID: 1, Username: "old"}}
	mockRepo.On("ListRecent", 100).Return(users, nil).Once()
	got, err := admin.ListUsers(ctx)
	assert.NoError(t, err)
	assert.Equal(t, users, got)

	_, err = admin.UpdateRole(ctx, 1, "SUPERUSER")
	var verr *services.ValidationError
	if assert.True(t, errors.As(err, &verr)) {
		assert.Equal(t, "Invalid role value", verr.Message)
	}

	mockRepo.On("GetByID", uint(9)).Return(nil, &repositories.NotFoundError{Entity: "user", Key: uint(9)}).Once()
	_, err = admin.UpdateRole(ctx, 9, "ADMIN")
	assert.True(t, errors.Is(err, repositories.ErrNotFound))

	mockRepo.On("GetByID", uint(1)).Return(&models.User{ID: 1, Role: models.RoleCustomer}, nil).Once()
	mockRepo.On("UpdateRole", uint(1), models.RoleAdmin).Return(nil).Once()
	user, err := admin.UpdateRole(ctx, 1, "admin")
	assert.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
	mockRepo.AssertExpectations(t)
}
