package agentrepo_test

import (
	"context"
	"testing"
	"time"

	"dispatch/internal/adapters/out/postgres/agentrepo"
	"dispatch/internal/core/domain/model/agent"
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

// AgentRepositoryIntegrationTestSuite provides integration tests for
// AgentRepository using PostgreSQL containers.
type AgentRepositoryIntegrationTestSuite struct {
	suite.Suite
	container  *postgres.PostgresContainer
	db         *gorm.DB
	repository *agentrepo.GormAgentRepository
	tracker    *MockAggregateTracker
}

func (suite *AgentRepositoryIntegrationTestSuite) SetupSuite() {
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

	suite.Require().NoError(db.AutoMigrate(&agentrepo.AgentDTO{}))
}

func (suite *AgentRepositoryIntegrationTestSuite) SetupTest() {
	suite.Require().NoError(suite.db.Exec("TRUNCATE TABLE agents").Error)

	suite.tracker = new(MockAggregateTracker)
	suite.tracker.On("TrackAggregate", mock.Anything, mock.Anything).Maybe()
	suite.repository = agentrepo.NewGormAgentRepository(suite.db, suite.tracker)
}

func (suite *AgentRepositoryIntegrationTestSuite) TearDownSuite() {
	if suite.container != nil {
		suite.Require().NoError(suite.container.Terminate(context.Background()))
	}
}

func (suite *AgentRepositoryIntegrationTestSuite) createTestAgent(name string) *agent.Agent {
	testAgent, err := agent.NewAgent(kernel.NewUUID(), name, name+"@example.com", 5)
	suite.Require().NoError(err)
	return testAgent
}

func (suite *AgentRepositoryIntegrationTestSuite) TestAddAndGet_AgentWithCashHistory_RoundTrips() {
	ctx := context.Background()

	testAgent := suite.createTestAgent("alex.fielder")
	location, err := kernel.NewGeoPoint(41.01, 28.97)
	suite.Require().NoError(err)
	suite.Require().NoError(testAgent.UpdateLocation(location))
	suite.Require().NoError(testAgent.AddCollection(300))
	suite.Require().NoError(testAgent.AddRemittance(180))
	testAgent.RegisterFraudIncident()

	suite.Require().NoError(suite.repository.Add(ctx, testAgent))

	retrieved, err := suite.repository.Get(ctx, testAgent.ID())
	suite.Require().NoError(err)

	suite.Equal(testAgent.ID(), retrieved.ID())
	suite.Equal("alex.fielder", retrieved.Name())
	suite.Equal("alex.fielder@example.com", retrieved.Contact())
	suite.True(retrieved.IsAvailable())
	suite.Equal(5, retrieved.MaxWorkload())
	suite.Require().NotNil(retrieved.LastKnownLocation())
	suite.InDelta(41.01, retrieved.LastKnownLocation().Lat(), 0.000001)
	suite.InDelta(300, retrieved.TotalCollected(), 0.001)
	suite.InDelta(180, retrieved.TotalRemitted(), 0.001)
	suite.InDelta(0.6, retrieved.RemittanceRating(), 0.001)
	suite.Equal(1, retrieved.FraudIncidents())
	suite.Nil(retrieved.RestrictedUntil())
}

func (suite *AgentRepositoryIntegrationTestSuite) TestGet_NonExistentAgent_ReturnsNotFoundError() {
	retrieved, err := suite.repository.Get(context.Background(), kernel.NewUUID())

	suite.Nil(retrieved)
	var notFoundErr *errs.ObjectNotFoundError
	suite.Require().ErrorAs(err, &notFoundErr)
}

func (suite *AgentRepositoryIntegrationTestSuite) TestUpdate_PersistsRestrictionAndAvailability() {
	ctx := context.Background()

	testAgent := suite.createTestAgent("jordan.reyes")
	suite.Require().NoError(suite.repository.Add(ctx, testAgent))

	until := time.Now().UTC().Add(7 * 24 * time.Hour).Truncate(time.Second)
	suite.Require().NoError(testAgent.Restrict(until))
	testAgent.SetAvailability(false)
	suite.Require().NoError(suite.repository.Update(ctx, testAgent))

	retrieved, err := suite.repository.Get(ctx, testAgent.ID())
	suite.Require().NoError(err)
	suite.False(retrieved.IsAvailable())
	suite.Require().NotNil(retrieved.RestrictedUntil())
	suite.WithinDuration(until, *retrieved.RestrictedUntil(), time.Second)
	suite.True(retrieved.IsRestrictedAt(time.Now()))

	// Lifting the restriction must clear the column, not keep the old value.
	retrieved.LiftRestriction()
	suite.Require().NoError(suite.repository.Update(ctx, retrieved))

	lifted, err := suite.repository.Get(ctx, testAgent.ID())
	suite.Require().NoError(err)
	suite.Nil(lifted.RestrictedUntil())
}

func (suite *AgentRepositoryIntegrationTestSuite) TestGetAllAvailable_FiltersOffDutyAgents() {
	ctx := context.Background()

	onDuty := suite.createTestAgent("on.duty")
	suite.Require().NoError(suite.repository.Add(ctx, onDuty))

	offDuty := suite.createTestAgent("off.duty")
	offDuty.SetAvailability(false)
	suite.Require().NoError(suite.repository.Add(ctx, offDuty))

	// Restricted agents stay in the result; the selector filters them with
	// the restriction window in hand.
	restricted := suite.createTestAgent("restricted")
	suite.Require().NoError(restricted.Restrict(time.Now().UTC().Add(time.Hour)))
	suite.Require().NoError(suite.repository.Add(ctx, restricted))

	available, err := suite.repository.GetAllAvailable(ctx)
	suite.Require().NoError(err)
	suite.Require().Len(available, 2)

	names := []string{available[0].Name(), available[1].Name()}
	suite.Contains(names, "on.duty")
	suite.Contains(names, "restricted")
}

func (suite *AgentRepositoryIntegrationTestSuite) TestGetAllRestrictedBefore_ReturnsExpiredRestrictions() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	expired := suite.createTestAgent("expired")
	suite.Require().NoError(expired.Restrict(now.Add(-time.Hour)))
	suite.Require().NoError(suite.repository.Add(ctx, expired))

	ongoing := suite.createTestAgent("ongoing")
	suite.Require().NoError(ongoing.Restrict(now.Add(48 * time.Hour)))
	suite.Require().NoError(suite.repository.Add(ctx, ongoing))

	unrestricted := suite.createTestAgent("unrestricted")
	suite.Require().NoError(suite.repository.Add(ctx, unrestricted))

	due, err := suite.repository.GetAllRestrictedBefore(ctx, now)
	suite.Require().NoError(err)
	suite.Require().Len(due, 1)
	suite.Equal(expired.ID(), due[0].ID())
}

func TestAgentRepositoryIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(AgentRepositoryIntegrationTestSuite))
}
