package models_test

import (
	"errors"
	"testing"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestParseOrderStatus(t *testing.T) {
	status, err := models.ParseOrderStatus("shipped")
	assert.NoError(t, err)
	assert.Equal(t, models.StatusShipped, status)

	_, err = models.ParseOrderStatus("LOST")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid order status")
}

func TestOrderStatus_TransitionTable(t *testing.T) {
	cases := []struct {
		from, to models.OrderStatus
		allowed  bool
	}{
		{models.StatusPending, models.StatusProcessing, true},
		{models.StatusPending, models.StatusCancelled, true},
		{models.StatusPending, models.StatusShipped, false},
		{models.StatusProcessing, models.StatusShipped, true},
		{models.StatusProcessing, models.StatusCancelled, true},
		{models.StatusProcessing, models.StatusPending, false},
		{models.StatusShipped, models.StatusDelivered, true},
		{models.StatusShipped, models.StatusCancelled, false},
		{models.StatusDelivered, models.StatusCancelled, false},
		{models.StatusCancelled, models.StatusProcessing, false},
		{models.StatusDelivered, models.StatusDelivered, true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}

	assert.True(t, models.StatusDelivered.Terminal())
	assert.True(t, models.StatusCancelled.Terminal())
	assert.False(t, models.StatusPending.Terminal())
}

func TestOrder_TransitionTo(t *testing.T) {
	order := &models.Order{ID: 7, Status: models.StatusPending}
	assert.NoError(t, order.TransitionTo(models.StatusProcessing))
	assert.Equal(t, models.StatusProcessing, order.Status)

	err := order.TransitionTo(models.StatusDelivered)
	var terr *models.TransitionError
	assert.True(t, errors.As(err, &terr))
	assert.Equal(t, uint(7), terr.OrderID)
	assert.Equal(t, models.StatusProcessing, order.Status)
}
