package cmd

import (
	"log/slog"
	"os"
	"strconv"

	httpin "dispatch/internal/adapters/in/http"
	"dispatch/internal/adapters/out/geo"
	"dispatch/internal/adapters/out/notify"
	"dispatch/internal/adapters/out/postgres"
	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
	"dispatch/internal/jobs"
	"dispatch/internal/scheduling"

	"gorm.io/gorm"
)

// CompositionRoot wires the lifecycle handlers, adapters and jobs. The
// assignment coordinator and the delivery monitor are singletons: they hold
// the armed timers and the pending candidate lists, and the other handlers
// collaborate with them through the narrow interfaces they implement.
type CompositionRoot struct {
	gormDB     *gorm.DB
	uowFactory postgres.GormUnitOfWorkFactory
	logger     *slog.Logger

	timers *scheduling.TimerSet
	locks  *scheduling.KeyedMutex
	alerts commands.Alerts

	assignHandler  *commands.AssignDeliveryCommandHandler
	monitorHandler *commands.UpdateLocationCommandHandler
}

func NewCompositionRoot(configs Config, gormDB *gorm.DB) (*CompositionRoot, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	c := &CompositionRoot{
		gormDB:     gormDB,
		uowFactory: *postgres.NewGormUnitOfWorkFactory(gormDB),
		logger:     logger,
		timers:     scheduling.NewTimerSet(),
		locks:      scheduling.NewKeyedMutex(),
	}
	c.alerts = commands.NewAlerts(c.createNotifier(configs), logger)

	estimator, err := geo.NewHaversineEstimator(geo.DefaultSpeedKmh)
	if err != nil {
		return nil, err
	}

	scoring := services.NewScoringEngine()

	c.assignHandler = commands.NewAssignDeliveryCommandHandler(
		c.createUoWFactory(),
		services.NewAgentSelector(scoring),
		c.timers,
		c.locks,
		c.alerts,
		commands.AssignmentConfig{},
		logger,
	)
	c.monitorHandler = commands.NewUpdateLocationCommandHandler(
		c.createUoWFactory(),
		estimator,
		c.assignHandler,
		c.timers,
		c.locks,
		c.alerts,
		commands.MonitorConfig{},
		logger,
	)

	return c, nil
}

// Logger returns the shared structured logger.
func (c *CompositionRoot) Logger() *slog.Logger {
	return c.logger
}

// Close releases the armed timers. Call on shutdown after the jobs stopped.
func (c *CompositionRoot) Close() {
	c.timers.Close()
}

func (c *CompositionRoot) createNotifier(configs Config) ports.Notifier {
	smtpPort, err := strconv.Atoi(configs.SMTPPort)
	if err != nil {
		smtpPort = 587
	}
	email := notify.NewEmailNotifier(notify.EmailConfig{
		Host:              configs.SMTPHost,
		Port:              smtpPort,
		Username:          configs.SMTPUser,
		Password:          configs.SMTPPassword,
		From:              configs.SMTPFrom,
		OperationsAddress: configs.OperationsEmail,
		FinanceAddress:    configs.FinanceEmail,
	})

	router := notify.NewRouter(c.logger)
	router.Route(ports.ChannelAgent, email)
	router.Route(ports.ChannelCustomer, email)
	if configs.OpsWebhookURL != "" {
		webhook := notify.NewWebhookNotifier(configs.OpsWebhookURL, nil)
		router.Route(ports.ChannelOperations, email, webhook)
		router.Route(ports.ChannelFinance, email, webhook)
	} else {
		router.Route(ports.ChannelOperations, email)
		router.Route(ports.ChannelFinance, email)
	}
	return router
}

func (c *CompositionRoot) createUoWFactory() commands.UoWFactory {
	return FuncUoWFactory(func() commands.UoW {
		return c.uowFactory.Create()
	})
}

func (c *CompositionRoot) CreateCreateOrderCommandHandler() commands.CreateOrderCommandHandler {
	var f commands.OrderUoWFactory = FuncOrderUoWFactory(func() commands.OrderUoW {
		return c.uowFactory.Create()
	})
	return commands.NewCreateOrderCommandHandler(f)
}

func (c *CompositionRoot) CreateCreateAgentCommandHandler() commands.CreateAgentCommandHandler {
	var f commands.AgentUoWFactory = FuncAgentUoWFactory(func() commands.AgentUoW {
		return c.uowFactory.Create()
	})
	return commands.NewCreateAgentCommandHandler(f)
}

func (c *CompositionRoot) CreateAssignDeliveryCommandHandler() *commands.AssignDeliveryCommandHandler {
	return c.assignHandler
}

func (c *CompositionRoot) CreateUpdateLocationCommandHandler() *commands.UpdateLocationCommandHandler {
	return c.monitorHandler
}

func (c *CompositionRoot) CreateConfirmAssignmentCommandHandler() commands.ConfirmAssignmentCommandHandler {
	return commands.NewConfirmAssignmentCommandHandler(
		c.createUoWFactory(),
		c.assignHandler,
		c.monitorHandler,
		c.locks,
		c.alerts,
		c.logger,
	)
}

func (c *CompositionRoot) CreateHoldDeliveryCommandHandler() commands.HoldDeliveryCommandHandler {
	return commands.NewHoldDeliveryCommandHandler(
		c.createUoWFactory(),
		c.locks,
		c.alerts,
		c.logger,
	)
}

func (c *CompositionRoot) CreateCompleteDeliveryCommandHandler() commands.CompleteDeliveryCommandHandler {
	return commands.NewCompleteDeliveryCommandHandler(
		c.createUoWFactory(),
		c.monitorHandler,
		c.locks,
		c.alerts,
		c.logger,
	)
}

func (c *CompositionRoot) CreateRecordRemittanceCommandHandler() commands.RecordRemittanceCommandHandler {
	return commands.NewRecordRemittanceCommandHandler(
		c.createUoWFactory(),
		services.NewRemittanceVerifier(services.NewScoringEngine()),
		c.locks,
		c.alerts,
		c.logger,
	)
}

func (c *CompositionRoot) CreateRequestRedeliveryCommandHandler() commands.RequestRedeliveryCommandHandler {
	return commands.NewRequestRedeliveryCommandHandler(c.assignHandler, c.logger)
}

func (c *CompositionRoot) CreateResolveFraudAlertCommandHandler() commands.ResolveFraudAlertCommandHandler {
	return commands.NewResolveFraudAlertCommandHandler(
		c.createUoWFactory(),
		c.locks,
		c.alerts,
		c.logger,
	)
}

func (c *CompositionRoot) CreateGetActiveDeliveriesQueryHandler() queries.GetActiveDeliveriesQueryHandler {
	return queries.NewGetActiveDeliveriesQueryHandler(c.gormDB)
}

func (c *CompositionRoot) CreateGetFraudAlertsQueryHandler() queries.GetFraudAlertsQueryHandler {
	return queries.NewGetFraudAlertsQueryHandler(c.gormDB)
}

func (c *CompositionRoot) CreateHTTPServer() *httpin.Server {
	return httpin.NewServer(
		c.CreateCreateOrderCommandHandler(),
		c.CreateCreateAgentCommandHandler(),
		c.CreateAssignDeliveryCommandHandler(),
		c.CreateConfirmAssignmentCommandHandler(),
		c.CreateUpdateLocationCommandHandler(),
		c.CreateHoldDeliveryCommandHandler(),
		c.CreateCompleteDeliveryCommandHandler(),
		c.CreateRecordRemittanceCommandHandler(),
		c.CreateRequestRedeliveryCommandHandler(),
		c.CreateResolveFraudAlertCommandHandler(),
		c.CreateGetActiveDeliveriesQueryHandler(),
		c.CreateGetFraudAlertsQueryHandler(),
	)
}

func (c *CompositionRoot) CreateJobManager() *jobs.JobManager {
	recovery := jobs.NewRecoveryJob(
		c.createUoWFactory(),
		c.assignHandler,
		c.monitorHandler,
		c.logger,
	)

	var f commands.AgentUoWFactory = FuncAgentUoWFactory(func() commands.AgentUoW {
		return c.uowFactory.Create()
	})
	restrictionExpiry := jobs.NewRestrictionExpiryJob(f, c.logger)

	return jobs.NewJobManager(recovery, restrictionExpiry)
}

type FuncAgentUoWFactory func() commands.AgentUoW

func (f FuncAgentUoWFactory) Create() commands.AgentUoW {
	return f()
}

type FuncOrderUoWFactory func() commands.OrderUoW

func (f FuncOrderUoWFactory) Create() commands.OrderUoW {
	return f()
}

type FuncUoWFactory func() commands.UoW

func (f FuncUoWFactory) Create() commands.UoW {
	return f()
}
