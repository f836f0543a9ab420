package commands_test

import (
	"testing"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/scheduling"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestConfirmAssignmentCommandHandler_Handle_Accept(t *testing.T) {
	ctx := t.Context()
	testOrder := newTestOrder(t, order.Prepaid)
	agentID := kernel.NewUUID()
	d := newAssignedDelivery(t, testOrder, agentID)

	orderRepo := new(MockOrderRepository)
	agentRepo := new(MockAgentRepository)
	deliveryRepo := new(MockDeliveryRepository)
	_, factory := stubUoW(orderRepo, agentRepo, deliveryRepo, quietAuditLog())

	deliveryRepo.On("Get", ctx, d.ID()).Return(d, nil).Twice()
	deliveryRepo.On("Update", ctx, d).Return(nil).Once()
	orderRepo.On("Get", ctx, testOrder.ID()).Return(testOrder, nil).Once()

	escalator := new(MockAssignmentEscalator)
	escalator.On("CancelConfirmation", testOrder.ID()).Once()
	watcher := new(MockDeliveryWatcher)
	watcher.On("Watch", d.ID()).Once()

	alerts, notifier := quietAlerts()
	handler := commands.NewConfirmAssignmentCommandHandler(
		factory, escalator, watcher, scheduling.NewKeyedMutex(), alerts, discardLogger())

	cmd, err := commands.NewConfirmAssignmentCommand(d.ID(), true)
	require.NoError(t, err)

	err = handler.Handle(ctx, cmd)

	require.NoError(t, err)
	assert.Equal(t, delivery.InProgress, d.Status())
	escalator.AssertExpectations(t)
	watcher.AssertExpectations(t)
	deliveryRepo.AssertExpectations(t)
	notifier.AssertCalled(t, "Notify",
		mock.Anything, ports.ChannelCustomer, testOrder.CustomerContact(), mock.AnythingOfType("string"))
}

func TestConfirmAssignmentCommandHandler_Handle_RejectEscalates(t *testing.T) {
	ctx := t.Context()
	testOrder := newTestOrder(t, order.Prepaid)
	d := newAssignedDelivery(t, testOrder, kernel.NewUUID())

	orderRepo := new(MockOrderRepository)
	agentRepo := new(MockAgentRepository)
	deliveryRepo := new(MockDeliveryRepository)
	_, factory := stubUoW(orderRepo, agentRepo, deliveryRepo, quietAuditLog())

	deliveryRepo.On("Get", ctx, d.ID()).Return(d, nil).Once()

	escalator := new(MockAssignmentEscalator)
	escalator.On("EscalateToNextCandidate", ctx, testOrder.ID(), "agent rejected the assignment").
		Return(nil).Once()
	watcher := new(MockDeliveryWatcher)

	alerts, _ := quietAlerts()
	handler := commands.NewConfirmAssignmentCommandHandler(
		factory, escalator, watcher, scheduling.NewKeyedMutex(), alerts, discardLogger())

	cmd, err := commands.NewConfirmAssignmentCommand(d.ID(), false)
	require.NoError(t, err)

	err = handler.Handle(ctx, cmd)

	require.NoError(t, err)
	assert.Equal(t, delivery.Assigned, d.Status(), "rejection leaves the failing to the escalator")
	escalator.AssertExpectations(t)
	watcher.AssertNotCalled(t, "Watch", mock.Anything)
}

func TestConfirmAssignmentCommandHandler_Handle_AlreadyConfirmed(t *testing.T) {
	ctx := t.Context()
	testOrder := newTestOrder(t, order.Prepaid)
	d := newInProgressDelivery(t, testOrder, kernel.NewUUID())

	orderRepo := new(MockOrderRepository)
	agentRepo := new(MockAgentRepository)
	deliveryRepo := new(MockDeliveryRepository)
	_, factory := stubUoW(orderRepo, agentRepo, deliveryRepo, quietAuditLog())

	deliveryRepo.On("Get", ctx, d.ID()).Return(d, nil).Once()

	escalator := new(MockAssignmentEscalator)
	watcher := new(MockDeliveryWatcher)

	alerts, _ := quietAlerts()
	handler := commands.NewConfirmAssignmentCommandHandler(
		factory, escalator, watcher, scheduling.NewKeyedMutex(), alerts, discardLogger())

	cmd, err := commands.NewConfirmAssignmentCommand(d.ID(), true)
	require.NoError(t, err)

	err = handler.Handle(ctx, cmd)

	require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	escalator.AssertNotCalled(t, "CancelConfirmation", mock.Anything)
}
