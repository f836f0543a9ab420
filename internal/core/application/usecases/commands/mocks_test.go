package commands_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/domain/model/agent"
	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/ports"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOrderRepository struct{ mock.Mock }

func (m *MockOrderRepository) Add(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) Update(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

type MockAgentRepository struct{ mock.Mock }

func (m *MockAgentRepository) Add(ctx context.Context, a *agent.Agent) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAgentRepository) Update(ctx context.Context, a *agent.Agent) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAgentRepository) Get(ctx context.Context, id kernel.UUID) (*agent.Agent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*agent.Agent), args.Error(1)
}

func (m *MockAgentRepository) GetAllAvailable(ctx context.Context) ([]*agent.Agent, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*agent.Agent), args.Error(1)
}

func (m *MockAgentRepository) GetAllRestrictedBefore(ctx context.Context, deadline time.Time) ([]*agent.Agent, error) {
	args := m.Called(ctx, deadline)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*agent.Agent), args.Error(1)
}

type MockDeliveryRepository struct{ mock.Mock }

func (m *MockDeliveryRepository) Add(ctx context.Context, d *delivery.Delivery) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDeliveryRepository) Update(ctx context.Context, d *delivery.Delivery) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDeliveryRepository) Get(ctx context.Context, id kernel.UUID) (*delivery.Delivery, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*delivery.Delivery), args.Error(1)
}

func (m *MockDeliveryRepository) GetActiveByOrder(ctx context.Context, orderID kernel.UUID) (*delivery.Delivery, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*delivery.Delivery), args.Error(1)
}

func (m *MockDeliveryRepository) GetAllByOrder(ctx context.Context, orderID kernel.UUID) ([]*delivery.Delivery, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*delivery.Delivery), args.Error(1)
}

func (m *MockDeliveryRepository) GetStatsByAgents(
	ctx context.Context,
	agentIDs []kernel.UUID,
) (map[kernel.UUID]ports.AgentDeliveryStats, error) {
	args := m.Called(ctx, agentIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[kernel.UUID]ports.AgentDeliveryStats), args.Error(1)
}

func (m *MockDeliveryRepository) GetAllInProgress(ctx context.Context) ([]*delivery.Delivery, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*delivery.Delivery), args.Error(1)
}

func (m *MockDeliveryRepository) GetAllAssignedBefore(ctx context.Context, deadline time.Time) ([]*delivery.Delivery, error) {
	args := m.Called(ctx, deadline)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*delivery.Delivery), args.Error(1)
}

type MockAuditLog struct{ mock.Mock }

func (m *MockAuditLog) Record(ctx context.Context, event ports.AuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockNotifier struct{ mock.Mock }

func (m *MockNotifier) Notify(ctx context.Context, channel, recipient, message string) error {
	args := m.Called(ctx, channel, recipient, message)
	return args.Error(0)
}

type MockArrivalEstimator struct{ mock.Mock }

func (m *MockArrivalEstimator) EstimateArrival(
	ctx context.Context,
	from kernel.GeoPoint,
	to kernel.GeoPoint,
	at time.Time,
) (time.Time, error) {
	args := m.Called(ctx, from, to, at)
	return args.Get(0).(time.Time), args.Error(1)
}

type MockUoW struct{ mock.Mock }

func (m *MockUoW) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUoW) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUoW) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUoW) OrderRepository() ports.OrderRepository {
	args := m.Called()
	return args.Get(0).(ports.OrderRepository)
}

func (m *MockUoW) AgentRepository() ports.AgentRepository {
	args := m.Called()
	return args.Get(0).(ports.AgentRepository)
}

func (m *MockUoW) DeliveryRepository() ports.DeliveryRepository {
	args := m.Called()
	return args.Get(0).(ports.DeliveryRepository)
}

func (m *MockUoW) AuditLog() ports.AuditLog {
	args := m.Called()
	return args.Get(0).(ports.AuditLog)
}

type MockUoWFactory struct{ mock.Mock }

func (m *MockUoWFactory) Create() commands.UoW {
	args := m.Called()
	return args.Get(0).(commands.UoW)
}

type MockOrderUoW struct{ mock.Mock }

func (m *MockOrderUoW) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) OrderRepository() ports.OrderRepository {
	args := m.Called()
	return args.Get(0).(ports.OrderRepository)
}

type MockOrderUoWFactory struct{ mock.Mock }

func (m *MockOrderUoWFactory) Create() commands.OrderUoW {
	args := m.Called()
	return args.Get(0).(commands.OrderUoW)
}

type MockAgentUoW struct{ mock.Mock }

func (m *MockAgentUoW) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockAgentUoW) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockAgentUoW) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockAgentUoW) AgentRepository() ports.AgentRepository {
	args := m.Called()
	return args.Get(0).(ports.AgentRepository)
}

func (m *MockAgentUoW) AuditLog() ports.AuditLog {
	args := m.Called()
	return args.Get(0).(ports.AuditLog)
}

type MockAgentUoWFactory struct{ mock.Mock }

func (m *MockAgentUoWFactory) Create() commands.AgentUoW {
	args := m.Called()
	return args.Get(0).(commands.AgentUoW)
}

type MockAssignmentEscalator struct{ mock.Mock }

func (m *MockAssignmentEscalator) CancelConfirmation(orderID kernel.UUID) {
	m.Called(orderID)
}

func (m *MockAssignmentEscalator) EscalateToNextCandidate(ctx context.Context, orderID kernel.UUID, reason string) error {
	args := m.Called(ctx, orderID, reason)
	return args.Error(0)
}

type MockDeliveryWatcher struct{ mock.Mock }

func (m *MockDeliveryWatcher) Watch(deliveryID kernel.UUID) {
	m.Called(deliveryID)
}

func (m *MockDeliveryWatcher) Unwatch(deliveryID kernel.UUID) {
	m.Called(deliveryID)
}

type MockOrderReassigner struct{ mock.Mock }

func (m *MockOrderReassigner) ReassignAfterFailure(ctx context.Context, orderID kernel.UUID) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

type MockAttemptAssigner struct{ mock.Mock }

func (m *MockAttemptAssigner) AssignNextAttempt(
	ctx context.Context,
	orderID kernel.UUID,
	maxPriorAttempts int,
) (kernel.UUID, error) {
	args := m.Called(ctx, orderID, maxPriorAttempts)
	return args.Get(0).(kernel.UUID), args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func quietAlerts() (commands.Alerts, *MockNotifier) {
	notifier := new(MockNotifier)
	notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	return commands.NewAlerts(notifier, discardLogger()), notifier
}

// stubUoW wires the repository getters and the transaction lifecycle the way
// the handlers use them: Begin succeeds, Rollback in the defer never fails,
// Commit defaults to success. Tests override Commit by setting their own
// expectation first.
func stubUoW(orderRepo *MockOrderRepository, agentRepo *MockAgentRepository, deliveryRepo *MockDeliveryRepository, auditLog *MockAuditLog) (*MockUoW, *MockUoWFactory) {
	uow := new(MockUoW)
	uow.On("Begin", mock.Anything).Return(nil)
	uow.On("Commit", mock.Anything).Return(nil).Maybe()
	uow.On("Rollback", mock.Anything).Return(nil)
	uow.On("OrderRepository").Return(orderRepo).Maybe()
	uow.On("AgentRepository").Return(agentRepo).Maybe()
	uow.On("DeliveryRepository").Return(deliveryRepo).Maybe()
	uow.On("AuditLog").Return(auditLog).Maybe()

	factory := new(MockUoWFactory)
	factory.On("Create").Return(uow)
	return uow, factory
}

func quietAuditLog() *MockAuditLog {
	auditLog := new(MockAuditLog)
	auditLog.On("Record", mock.Anything, mock.Anything).Return(nil).Maybe()
	return auditLog
}

func testLocation(t *testing.T, lat, lon float64) kernel.GeoPoint {
	t.Helper()
	p, err := kernel.NewGeoPoint(lat, lon)
	require.NoError(t, err)
	return p
}

func newTestOrder(t *testing.T, method order.PaymentMethod) *order.Order {
	t.Helper()
	o, err := order.NewOrder(
		kernel.NewUUID(), "customer@example.com", "12 Oak Lane",
		testLocation(t, 41.0, 29.0), 80, method)
	require.NoError(t, err)
	return o
}

func newTestAgent(t *testing.T) *agent.Agent {
	t.Helper()
	a, err := agent.NewAgent(kernel.NewUUID(), "Alex Fielder", "alex@example.com", 5)
	require.NoError(t, err)
	return a
}

func newAssignedDelivery(t *testing.T, o *order.Order, agentID kernel.UUID) *delivery.Delivery {
	t.Helper()
	now := time.Now()
	d, err := delivery.NewDelivery(kernel.NewUUID(), o.ID(), agentID, 1, now.Add(45*time.Minute), now)
	require.NoError(t, err)
	return d
}

func newInProgressDelivery(t *testing.T, o *order.Order, agentID kernel.UUID) *delivery.Delivery {
	t.Helper()
	d := newAssignedDelivery(t, o, agentID)
	require.NoError(t, o.StartDelivery())
	require.NoError(t, d.Confirm())
	return d
}

func newRemittedDelivery(t *testing.T, o *order.Order, agentID kernel.UUID, collected, remitted float64) *delivery.Delivery {
	t.Helper()
	d := newInProgressDelivery(t, o, agentID)
	now := time.Now()
	require.NoError(t, d.Complete(now))
	require.NoError(t, d.RecordCollection(collected))
	require.NoError(t, d.RecordRemittance(remitted, "slip-1", now))
	return d
}
