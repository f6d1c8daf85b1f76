package rabbitmq

import (
	"errors"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestMain(m *testing.M) {
	log.SetOutput(ioutil.Discard)
	os.Exit(m.Run())
}

type mockAcknowledger struct {
	mock.Mock
}

func (m *mockAcknowledger) Ack(multiple bool) error {
	args := m.Called(multiple)
	return args.Error(0)
}

func (m *mockAcknowledger) Nack(multiple, requeue bool) error {
	args := m.Called(multiple, requeue)
	return args.Error(0)
}

func TestSettle_AcksHandledMessage(t *testing.T) {
	msg := new(mockAcknowledger)
	msg.On("Ack", false).Return(nil).Once()

	assert.Equal(t, Acked, Settle(msg, 1, nil))
	msg.AssertExpectations(t)
}

func TestSettle_DropsMalformedMessage(t *testing.T) {
	msg := new(mockAcknowledger)
	msg.On("Nack", false, false).Return(nil).Once()

	outcome := Settle(msg, 2, fmt.Errorf("%w: unexpected end of JSON input", ErrMalformed))

	assert.Equal(t, Dropped, outcome)
	msg.AssertExpectations(t)
}

func TestSettle_RequeuesTransientFailure(t *testing.T) {
	msg := new(mockAcknowledger)
	msg.On("Nack", false, true).Return(nil).Once()

	assert.Equal(t, Requeued, Settle(msg, 3, errors.New("redis unavailable")))
	msg.AssertExpectations(t)
}

func TestSettle_SettleErrorKeepsOutcome(t *testing.T) {
	msg := new(mockAcknowledger)
	msg.On("Ack", false).Return(errors.New("channel closed")).Once()

	assert.Equal(t, Acked, Settle(msg, 4, nil))
	msg.AssertExpectations(t)
}
