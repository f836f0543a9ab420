package deliveryrepo_test

import (
	"context"
	"testing"
	"time"

	"dispatch/internal/adapters/out/postgres/deliveryrepo"
	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	postgresdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// MockAggregateTracker is a mock implementation of aggregateTracker interface.
type MockAggregateTracker struct {
	mock.Mock
}

func (m *MockAggregateTracker) TrackAggregate(id kernel.UUID, aggregate any) {
	m.Called(id, aggregate)
}

// DeliveryRepositoryIntegrationTestSuite provides integration tests for
// DeliveryRepository using PostgreSQL containers, covering the attempt
// lineage queries and the settlement round trip with fraud findings.
type DeliveryRepositoryIntegrationTestSuite struct {
	suite.Suite
	container  *postgres.PostgresContainer
	db         *gorm.DB
	repository *deliveryrepo.GormDeliveryRepository
	tracker    *MockAggregateTracker
}

func (suite *DeliveryRepositoryIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	suite.Require().NoError(err)
	suite.container = container

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	suite.Require().NoError(err)

	db, err := gorm.Open(postgresdriver.Open(connStr), &gorm.Config{})
	suite.Require().NoError(err)
	suite.db = db

	suite.Require().NoError(db.AutoMigrate(&deliveryrepo.DeliveryDTO{}, &deliveryrepo.FraudFlagDTO{}))
}

func (suite *DeliveryRepositoryIntegrationTestSuite) SetupTest() {
	suite.Require().NoError(suite.db.Exec("TRUNCATE TABLE deliveries, fraud_flags").Error)

	suite.tracker = new(MockAggregateTracker)
	suite.tracker.On("TrackAggregate", mock.Anything, mock.Anything).Maybe()
	suite.repository = deliveryrepo.NewGormDeliveryRepository(suite.db, suite.tracker)
}

func (suite *DeliveryRepositoryIntegrationTestSuite) TearDownSuite() {
	if suite.container != nil {
		suite.Require().NoError(suite.container.Terminate(context.Background()))
	}
}

func (suite *DeliveryRepositoryIntegrationTestSuite) newDelivery(
	orderID, agentID kernel.UUID, attempt int, createdAt time.Time,
) *delivery.Delivery {
	d, err := delivery.NewDelivery(
		kernel.NewUUID(), orderID, agentID, attempt,
		createdAt.Add(45*time.Minute), createdAt,
	)
	suite.Require().NoError(err)
	return d
}

// settleDelivery walks a fresh delivery through collection and remittance.
func (suite *DeliveryRepositoryIntegrationTestSuite) settleDelivery(
	d *delivery.Delivery, collected, remitted float64, at time.Time,
) {
	suite.Require().NoError(d.Confirm())
	suite.Require().NoError(d.Complete(at))
	suite.Require().NoError(d.RecordCollection(collected))
	suite.Require().NoError(d.RecordRemittance(remitted, "receipt-7781", at.Add(time.Hour)))
}

func (suite *DeliveryRepositoryIntegrationTestSuite) TestAddAndGet_SettledDelivery_RoundTrips() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	d := suite.newDelivery(kernel.NewUUID(), kernel.NewUUID(), 1, now)
	suite.settleDelivery(d, 150, 90, now.Add(30*time.Minute))

	flag, err := delivery.NewFraudFlag(
		"amount_mismatch",
		"remitted 90.00 of 150.00 collected",
		0.8,
		map[string]string{"collected": "150.00", "remitted": "90.00"},
	)
	suite.Require().NoError(err)
	suite.Require().NoError(d.AttachFraudAssessment(0.74, []delivery.FraudFlag{flag}))
	suite.Require().NoError(d.Dispute())

	suite.Require().NoError(suite.repository.Add(ctx, d))

	retrieved, err := suite.repository.Get(ctx, d.ID())
	suite.Require().NoError(err)

	suite.Equal(d.ID(), retrieved.ID())
	suite.Equal(d.OrderID(), retrieved.OrderID())
	suite.Equal(d.AgentID(), retrieved.AgentID())
	suite.Equal(1, retrieved.Attempt())
	suite.Equal(delivery.PaymentDisputed, retrieved.Status())
	suite.Require().NotNil(retrieved.CashCollected())
	suite.InDelta(150, *retrieved.CashCollected(), 0.001)
	suite.Require().NotNil(retrieved.CashRemitted())
	suite.InDelta(90, *retrieved.CashRemitted(), 0.001)
	suite.Equal("receipt-7781", retrieved.RemittanceProof())
	suite.False(retrieved.IsRemittanceVerified())
	suite.Require().NotNil(retrieved.FraudScore())
	suite.InDelta(0.74, *retrieved.FraudScore(), 0.001)
	suite.Equal(delivery.ResolutionNone, retrieved.DisputeResolution())

	suite.Require().Len(retrieved.FraudFlags(), 1)
	suite.Equal("amount_mismatch", retrieved.FraudFlags()[0].Type())
	suite.InDelta(0.8, retrieved.FraudFlags()[0].Severity(), 0.001)
	suite.Equal("150.00", retrieved.FraudFlags()[0].Evidence()["collected"])
}

func (suite *DeliveryRepositoryIntegrationTestSuite) TestGet_NonExistentDelivery_ReturnsNotFoundError() {
	retrieved, err := suite.repository.Get(context.Background(), kernel.NewUUID())

	suite.Nil(retrieved)
	suite.Require().Error(err)

	var notFoundErr *errs.ObjectNotFoundError
	suite.Require().ErrorAs(err, &notFoundErr)
}

func (suite *DeliveryRepositoryIntegrationTestSuite) TestUpdate_SyncsFraudFlags() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	d := suite.newDelivery(kernel.NewUUID(), kernel.NewUUID(), 1, now)
	suite.Require().NoError(suite.repository.Add(ctx, d))

	suite.settleDelivery(d, 200, 140, now.Add(20*time.Minute))
	flag, err := delivery.NewFraudFlag("amount_mismatch", "short by 60.00", 0.6, nil)
	suite.Require().NoError(err)
	suite.Require().NoError(d.AttachFraudAssessment(0.55, []delivery.FraudFlag{flag}))
	suite.Require().NoError(d.MarkVerified())

	suite.Require().NoError(suite.repository.Update(ctx, d))

	retrieved, err := suite.repository.Get(ctx, d.ID())
	suite.Require().NoError(err)
	suite.Equal(delivery.DeliveredPaid, retrieved.Status())
	suite.True(retrieved.IsRemittanceVerified())
	suite.Require().Len(retrieved.FraudFlags(), 1)
	suite.Equal("short by 60.00", retrieved.FraudFlags()[0].Description())

	var flagCount int64
	suite.Require().NoError(suite.db.Model(&deliveryrepo.FraudFlagDTO{}).Count(&flagCount).Error)
	suite.Equal(int64(1), flagCount)
}

func (suite *DeliveryRepositoryIntegrationTestSuite) TestGetActiveByOrder_SkipsFinishedAttempts() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	orderID := kernel.NewUUID()

	failed := suite.newDelivery(orderID, kernel.NewUUID(), 1, now.Add(-2*time.Hour))
	suite.Require().NoError(failed.Fail("confirmation timed out"))
	suite.Require().NoError(suite.repository.Add(ctx, failed))

	active := suite.newDelivery(orderID, kernel.NewUUID(), 2, now)
	suite.Require().NoError(active.Confirm())
	suite.Require().NoError(suite.repository.Add(ctx, active))

	retrieved, err := suite.repository.GetActiveByOrder(ctx, orderID)
	suite.Require().NoError(err)
	suite.Equal(active.ID(), retrieved.ID())
	suite.Equal(2, retrieved.Attempt())
}

func (suite *DeliveryRepositoryIntegrationTestSuite) TestGetActiveByOrder_NoActiveAttempt_ReturnsNotFoundError() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	orderID := kernel.NewUUID()

	failed := suite.newDelivery(orderID, kernel.NewUUID(), 1, now)
	suite.Require().NoError(failed.Fail("agent rejected the assignment"))
	suite.Require().NoError(suite.repository.Add(ctx, failed))

	retrieved, err := suite.repository.GetActiveByOrder(ctx, orderID)

	suite.Nil(retrieved)
	var notFoundErr *errs.ObjectNotFoundError
	suite.Require().ErrorAs(err, &notFoundErr)
}

func (suite *DeliveryRepositoryIntegrationTestSuite) TestGetAllByOrder_ReturnsLineageOldestFirst() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	orderID := kernel.NewUUID()

	second := suite.newDelivery(orderID, kernel.NewUUID(), 2, now)
	suite.Require().NoError(suite.repository.Add(ctx, second))

	first := suite.newDelivery(orderID, kernel.NewUUID(), 1, now.Add(-time.Hour))
	suite.Require().NoError(first.Fail("confirmation timed out"))
	suite.Require().NoError(suite.repository.Add(ctx, first))

	// Another order's attempt must not leak into the lineage.
	other := suite.newDelivery(kernel.NewUUID(), kernel.NewUUID(), 1, now)
	suite.Require().NoError(suite.repository.Add(ctx, other))

	lineage, err := suite.repository.GetAllByOrder(ctx, orderID)
	suite.Require().NoError(err)
	suite.Require().Len(lineage, 2)
	suite.Equal(1, lineage[0].Attempt())
	suite.Equal(first.ID(), lineage[0].ID())
	suite.Equal(2, lineage[1].Attempt())
}

func (suite *DeliveryRepositoryIntegrationTestSuite) TestGetStatsByAgents_CountsPerAgent() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	busyAgent := kernel.NewUUID()
	idleAgent := kernel.NewUUID()

	inProgress := suite.newDelivery(kernel.NewUUID(), busyAgent, 1, now)
	suite.Require().NoError(inProgress.Confirm())
	suite.Require().NoError(suite.repository.Add(ctx, inProgress))

	completed := suite.newDelivery(kernel.NewUUID(), busyAgent, 1, now.Add(-3*time.Hour))
	suite.Require().NoError(completed.Confirm())
	suite.Require().NoError(completed.Complete(now.Add(-2*time.Hour)))
	suite.Require().NoError(suite.repository.Add(ctx, completed))

	failed := suite.newDelivery(kernel.NewUUID(), busyAgent, 1, now.Add(-5*time.Hour))
	suite.Require().NoError(failed.Fail("delay exceeded the failure threshold"))
	suite.Require().NoError(suite.repository.Add(ctx, failed))

	stats, err := suite.repository.GetStatsByAgents(ctx, []kernel.UUID{busyAgent, idleAgent})
	suite.Require().NoError(err)

	suite.Equal(1, stats[busyAgent].ActiveCount)
	suite.Equal(1, stats[busyAgent].CompletedCount)
	suite.Equal(1, stats[busyAgent].FailedCount)

	// Agents without rows fall back to the zero value.
	suite.Equal(0, stats[idleAgent].ActiveCount)
	suite.Equal(0, stats[idleAgent].CompletedCount)
}

func (suite *DeliveryRepositoryIntegrationTestSuite) TestGetStatsByAgents_EmptyInput_ReturnsEmptyMap() {
	stats, err := suite.repository.GetStatsByAgents(context.Background(), nil)
	suite.Require().NoError(err)
	suite.Empty(stats)
}

func (suite *DeliveryRepositoryIntegrationTestSuite) TestGetAllInProgress_ReturnsOnlyConfirmedAttempts() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	assigned := suite.newDelivery(kernel.NewUUID(), kernel.NewUUID(), 1, now)
	suite.Require().NoError(suite.repository.Add(ctx, assigned))

	confirmed := suite.newDelivery(kernel.NewUUID(), kernel.NewUUID(), 1, now)
	suite.Require().NoError(confirmed.Confirm())
	suite.Require().NoError(suite.repository.Add(ctx, confirmed))

	escalated := suite.newDelivery(kernel.NewUUID(), kernel.NewUUID(), 1, now)
	suite.Require().NoError(escalated.Confirm())
	suite.Require().NoError(escalated.Escalate())
	suite.Require().NoError(suite.repository.Add(ctx, escalated))

	inProgress, err := suite.repository.GetAllInProgress(ctx)
	suite.Require().NoError(err)
	suite.Require().Len(inProgress, 2)

	ids := []kernel.UUID{inProgress[0].ID(), inProgress[1].ID()}
	suite.Contains(ids, confirmed.ID())
	suite.Contains(ids, escalated.ID())
}

func (suite *DeliveryRepositoryIntegrationTestSuite) TestGetAllAssignedBefore_ReturnsExpiredUnconfirmed() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	stale := suite.newDelivery(kernel.NewUUID(), kernel.NewUUID(), 1, now.Add(-30*time.Minute))
	suite.Require().NoError(suite.repository.Add(ctx, stale))

	fresh := suite.newDelivery(kernel.NewUUID(), kernel.NewUUID(), 1, now)
	suite.Require().NoError(suite.repository.Add(ctx, fresh))

	confirmedOld := suite.newDelivery(kernel.NewUUID(), kernel.NewUUID(), 1, now.Add(-30*time.Minute))
	suite.Require().NoError(confirmedOld.Confirm())
	suite.Require().NoError(suite.repository.Add(ctx, confirmedOld))

	expired, err := suite.repository.GetAllAssignedBefore(ctx, now.Add(-15*time.Minute))
	suite.Require().NoError(err)
	suite.Require().Len(expired, 1)
	suite.Equal(stale.ID(), expired[0].ID())
}

func TestDeliveryRepositoryIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(DeliveryRepositoryIntegrationTestSuite))
}
