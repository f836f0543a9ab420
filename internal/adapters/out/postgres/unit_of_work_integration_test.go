package postgres_test

import (
	"context"
	"testing"
	"time"

	postgres_adapter "dispatch/internal/adapters/out/postgres"
	"dispatch/internal/adapters/out/postgres/agentrepo"
	"dispatch/internal/adapters/out/postgres/auditrepo"
	"dispatch/internal/adapters/out/postgres/deliveryrepo"
	"dispatch/internal/adapters/out/postgres/orderrepo"
	"dispatch/internal/core/domain/model/agent"
	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/ports"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gorm_postgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// UnitOfWorkIntegrationTestSuite provides integration testing for the
// GORM-based Unit of Work implementation with a real PostgreSQL database.
type UnitOfWorkIntegrationTestSuite struct {
	suite.Suite
	container *postgres.PostgresContainer
	db        *gorm.DB
	factory   ports.UnitOfWorkFactory
}

// SetupSuite initializes PostgreSQL container and database connection for all
// tests. Runs database migrations to prepare schema for unit of work
// operations.
func (suite *UnitOfWorkIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	// Start PostgreSQL container
	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2)),
	)
	suite.Require().NoError(err)
	suite.container = container

	// Connect to database
	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	suite.Require().NoError(err)

	db, err := gorm.Open(gorm_postgres.Open(dsn), &gorm.Config{})
	suite.Require().NoError(err)
	suite.db = db

	// Run migrations
	err = db.AutoMigrate(
		&orderrepo.OrderDTO{},
		&agentrepo.AgentDTO{},
		&deliveryrepo.DeliveryDTO{},
		&deliveryrepo.FraudFlagDTO{},
		&auditrepo.AuditEventDTO{},
	)
	suite.Require().NoError(err)

	// Create factory
	suite.factory = postgres_adapter.NewGormUnitOfWorkFactory(db)
}

// SetupTest ensures clean database state before each test.
// Truncates all tables to prevent test interference.
func (suite *UnitOfWorkIntegrationTestSuite) SetupTest() {
	err := suite.db.Exec("TRUNCATE TABLE orders, agents, deliveries, fraud_flags, audit_events").Error
	suite.Require().NoError(err)
}

// TearDownSuite cleans up PostgreSQL container after all tests complete.
func (suite *UnitOfWorkIntegrationTestSuite) TearDownSuite() {
	if suite.container != nil {
		err := suite.container.Terminate(context.Background())
		suite.Require().NoError(err)
	}
}

func createTestOrder(suite *UnitOfWorkIntegrationTestSuite) *order.Order {
	location, err := kernel.NewGeoPoint(41.01, 28.97)
	suite.Require().NoError(err)

	testOrder, err := order.NewOrder(
		kernel.NewUUID(),
		"customer@example.com",
		"12 Oak Lane",
		location,
		90,
		order.CashOnDelivery,
	)
	suite.Require().NoError(err)
	return testOrder
}

func createTestAgent(suite *UnitOfWorkIntegrationTestSuite) *agent.Agent {
	testAgent, err := agent.NewAgent(kernel.NewUUID(), "Alex Fielder", "alex@example.com", 5)
	suite.Require().NoError(err)
	return testAgent
}

// TestUnitOfWorkFactory_Create verifies factory creates unit of work instances
// with proper initialization and isolation between instances.
func (suite *UnitOfWorkIntegrationTestSuite) TestUnitOfWorkFactory_Create() {
	uow1 := suite.factory.Create()
	uow2 := suite.factory.Create()

	suite.NotSame(uow1, uow2, "Factory should create separate instances")

	suite.NotNil(uow1.OrderRepository(), "First instance should provide order repository")
	suite.NotNil(uow1.DeliveryRepository(), "First instance should provide delivery repository")
	suite.NotNil(uow2.AgentRepository(), "Second instance should provide agent repository")
	suite.NotNil(uow2.AuditLog(), "Second instance should provide audit log")
}

// TestUnitOfWork_TransactionLifecycle verifies proper transaction management
// including begin, commit, and rollback operations.
func (suite *UnitOfWorkIntegrationTestSuite) TestUnitOfWork_TransactionLifecycle() {
	ctx := context.Background()
	uow := suite.factory.Create()

	err := uow.Begin(ctx)
	suite.Require().NoError(err, "Should begin transaction successfully")

	err = uow.Begin(ctx)
	suite.Require().NoError(err, "Multiple begin calls should be safe")

	err = uow.Commit(ctx)
	suite.Require().NoError(err, "Should commit transaction successfully")

	err = uow.Begin(ctx)
	suite.Require().NoError(err)

	err = uow.Rollback(ctx)
	suite.Require().NoError(err, "Should rollback transaction successfully")
}

// TestUnitOfWork_TransactionErrors verifies error handling for invalid transaction operations.
func (suite *UnitOfWorkIntegrationTestSuite) TestUnitOfWork_TransactionErrors() {
	ctx := context.Background()
	uow := suite.factory.Create()

	err := uow.Commit(ctx)
	suite.Require().Error(err, "Should error when committing without active transaction")

	err = uow.Rollback(ctx)
	suite.Require().Error(err, "Should error when rolling back without active transaction")
}

// TestUnitOfWork_SingleRepositoryTransaction verifies repository operations
// within a single transaction boundary work correctly.
func (suite *UnitOfWorkIntegrationTestSuite) TestUnitOfWork_SingleRepositoryTransaction() {
	ctx := context.Background()
	uow := suite.factory.Create()

	testOrder := createTestOrder(suite)

	err := uow.Begin(ctx)
	suite.Require().NoError(err)

	err = uow.OrderRepository().Add(ctx, testOrder)
	suite.Require().NoError(err)

	// Visible within the transaction before commit
	retrievedOrder, err := uow.OrderRepository().Get(ctx, testOrder.ID())
	suite.Require().NoError(err)
	suite.Equal(testOrder.ID(), retrievedOrder.ID())

	err = uow.Commit(ctx)
	suite.Require().NoError(err)

	// Visible from a fresh unit of work after commit
	newUow := suite.factory.Create()
	retrievedOrder, err = newUow.OrderRepository().Get(ctx, testOrder.ID())
	suite.Require().NoError(err)
	suite.Equal(testOrder.ID(), retrievedOrder.ID())
}

// TestUnitOfWork_AssignmentTransaction verifies the assignment write set
// commits atomically: order, delivery attempt, and audit trail together.
func (suite *UnitOfWorkIntegrationTestSuite) TestUnitOfWork_AssignmentTransaction() {
	ctx := context.Background()
	uow := suite.factory.Create()

	testOrder := createTestOrder(suite)
	testAgent := createTestAgent(suite)
	now := time.Now().UTC().Truncate(time.Second)

	err := uow.Begin(ctx)
	suite.Require().NoError(err)

	err = uow.OrderRepository().Add(ctx, testOrder)
	suite.Require().NoError(err)

	err = uow.AgentRepository().Add(ctx, testAgent)
	suite.Require().NoError(err)

	attempt, err := delivery.NewDelivery(
		kernel.NewUUID(), testOrder.ID(), testAgent.ID(), 1, now.Add(45*time.Minute), now)
	suite.Require().NoError(err)
	err = uow.DeliveryRepository().Add(ctx, attempt)
	suite.Require().NoError(err)

	err = testOrder.StartDelivery()
	suite.Require().NoError(err)
	err = uow.OrderRepository().Update(ctx, testOrder)
	suite.Require().NoError(err)

	err = uow.AuditLog().Record(ctx, ports.AuditEvent{
		EventType:  ports.AuditAssignmentOffered,
		DeliveryID: attempt.ID(),
		AgentID:    testAgent.ID(),
		Details:    "attempt 1 offered",
		OccurredAt: now,
	})
	suite.Require().NoError(err)

	err = uow.Commit(ctx)
	suite.Require().NoError(err)

	// Verify the full write set landed
	newUow := suite.factory.Create()

	retrievedOrder, err := newUow.OrderRepository().Get(ctx, testOrder.ID())
	suite.Require().NoError(err)
	suite.Equal(order.InDelivery, retrievedOrder.Status())

	retrievedAttempt, err := newUow.DeliveryRepository().GetActiveByOrder(ctx, testOrder.ID())
	suite.Require().NoError(err)
	suite.Equal(attempt.ID(), retrievedAttempt.ID())
	suite.Equal(testAgent.ID(), retrievedAttempt.AgentID())

	var auditCount int64
	err = suite.db.Model(&auditrepo.AuditEventDTO{}).
		Where("event_type = ?", ports.AuditAssignmentOffered).
		Count(&auditCount).Error
	suite.Require().NoError(err)
	suite.Equal(int64(1), auditCount)
}

// TestUnitOfWork_TransactionRollback verifies rollback discards all changes
// made within the transaction across multiple repositories.
func (suite *UnitOfWorkIntegrationTestSuite) TestUnitOfWork_TransactionRollback() {
	ctx := context.Background()
	uow := suite.factory.Create()

	testOrder := createTestOrder(suite)
	testAgent := createTestAgent(suite)

	err := uow.Begin(ctx)
	suite.Require().NoError(err)

	err = uow.OrderRepository().Add(ctx, testOrder)
	suite.Require().NoError(err)

	err = uow.AgentRepository().Add(ctx, testAgent)
	suite.Require().NoError(err)

	// Both visible within the transaction
	_, err = uow.OrderRepository().Get(ctx, testOrder.ID())
	suite.Require().NoError(err)

	_, err = uow.AgentRepository().Get(ctx, testAgent.ID())
	suite.Require().NoError(err)

	err = uow.Rollback(ctx)
	suite.Require().NoError(err)

	// Neither visible after rollback
	newUow := suite.factory.Create()

	_, err = newUow.OrderRepository().Get(ctx, testOrder.ID())
	suite.Require().Error(err, "Order should not exist after rollback")

	_, err = newUow.AgentRepository().Get(ctx, testAgent.ID())
	suite.Require().Error(err, "Agent should not exist after rollback")
}

// TestUnitOfWork_ConcurrentInstances verifies separate unit of work instances
// do not see each other's uncommitted writes.
func (suite *UnitOfWorkIntegrationTestSuite) TestUnitOfWork_ConcurrentInstances() {
	ctx := context.Background()

	uow1 := suite.factory.Create()
	uow2 := suite.factory.Create()

	testOrder := createTestOrder(suite)

	err := uow1.Begin(ctx)
	suite.Require().NoError(err)

	err = uow1.OrderRepository().Add(ctx, testOrder)
	suite.Require().NoError(err)

	// Not yet visible from the second instance
	_, err = uow2.OrderRepository().Get(ctx, testOrder.ID())
	suite.Require().Error(err, "Uncommitted order should not be visible elsewhere")

	err = uow1.Commit(ctx)
	suite.Require().NoError(err)

	retrievedOrder, err := uow2.OrderRepository().Get(ctx, testOrder.ID())
	suite.Require().NoError(err)
	suite.Equal(testOrder.ID(), retrievedOrder.ID())
}

func TestUnitOfWorkIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(UnitOfWorkIntegrationTestSuite))
}
