// Package http exposes the delivery lifecycle over a REST API.
// It coordinates between HTTP handlers and application use cases.
package http

import (
	"errors"
	"net/http"
	"time"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/errs"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// RequestValidator adapts go-playground/validator to echo's Validator
// interface so handlers can call Context.Validate on bound requests.
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator creates the echo request validator.
func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

// Validate implements echo.Validator.
func (v *RequestValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// Server implements the REST handlers for the delivery lifecycle.
type Server struct {
	// Command handlers
	createOrderHandler    commands.CreateOrderCommandHandler
	createAgentHandler    commands.CreateAgentCommandHandler
	assignHandler         *commands.AssignDeliveryCommandHandler
	confirmHandler        commands.ConfirmAssignmentCommandHandler
	updateLocationHandler *commands.UpdateLocationCommandHandler
	holdHandler           commands.HoldDeliveryCommandHandler
	completeHandler       commands.CompleteDeliveryCommandHandler
	remittanceHandler     commands.RecordRemittanceCommandHandler
	redeliveryHandler     commands.RequestRedeliveryCommandHandler
	resolveFraudHandler   commands.ResolveFraudAlertCommandHandler

	// Query handlers
	activeDeliveriesHandler queries.GetActiveDeliveriesQueryHandler
	fraudAlertsHandler      queries.GetFraudAlertsQueryHandler
}

// NewServer creates a new HTTP server with the required command and query
// handlers.
func NewServer(
	createOrderHandler commands.CreateOrderCommandHandler,
	createAgentHandler commands.CreateAgentCommandHandler,
	assignHandler *commands.AssignDeliveryCommandHandler,
	confirmHandler commands.ConfirmAssignmentCommandHandler,
	updateLocationHandler *commands.UpdateLocationCommandHandler,
	holdHandler commands.HoldDeliveryCommandHandler,
	completeHandler commands.CompleteDeliveryCommandHandler,
	remittanceHandler commands.RecordRemittanceCommandHandler,
	redeliveryHandler commands.RequestRedeliveryCommandHandler,
	resolveFraudHandler commands.ResolveFraudAlertCommandHandler,
	activeDeliveriesHandler queries.GetActiveDeliveriesQueryHandler,
	fraudAlertsHandler queries.GetFraudAlertsQueryHandler,
) *Server {
	return &Server{
		createOrderHandler:      createOrderHandler,
		createAgentHandler:      createAgentHandler,
		assignHandler:           assignHandler,
		confirmHandler:          confirmHandler,
		updateLocationHandler:   updateLocationHandler,
		holdHandler:             holdHandler,
		completeHandler:         completeHandler,
		remittanceHandler:       remittanceHandler,
		redeliveryHandler:       redeliveryHandler,
		resolveFraudHandler:     resolveFraudHandler,
		activeDeliveriesHandler: activeDeliveriesHandler,
		fraudAlertsHandler:      fraudAlertsHandler,
	}
}

// RegisterRoutes wires the API routes onto the echo instance.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.Validator = NewRequestValidator()

	api := e.Group("/api/v1")

	api.POST("/orders", s.CreateOrder)
	api.POST("/agents", s.CreateAgent)

	api.POST("/orders/:orderID/assignment", s.AssignDelivery)
	api.POST("/orders/:orderID/redelivery", s.RequestRedelivery)

	api.POST("/deliveries/:deliveryID/confirmation", s.ConfirmAssignment)
	api.POST("/deliveries/:deliveryID/location", s.UpdateLocation)
	api.POST("/deliveries/:deliveryID/hold", s.HoldDelivery)
	api.POST("/deliveries/:deliveryID/completion", s.CompleteDelivery)
	api.POST("/deliveries/:deliveryID/remittance", s.RecordRemittance)
	api.POST("/deliveries/:deliveryID/fraud-resolution", s.ResolveFraudAlert)

	api.GET("/deliveries/active", s.GetActiveDeliveries)
	api.GET("/fraud-alerts", s.GetFraudAlerts)
}

// ErrorResponse is the API error body.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewOrderRequest is the payload for creating an order.
type NewOrderRequest struct {
	CustomerContact string  `json:"customer_contact" validate:"required"`
	Street          string  `json:"street" validate:"required"`
	Lat             float64 `json:"lat" validate:"min=-90,max=90"`
	Lon             float64 `json:"lon" validate:"min=-180,max=180"`
	TotalAmount     float64 `json:"total_amount" validate:"gt=0"`
	PaymentMethod   string  `json:"payment_method" validate:"required"`
}

// CreateOrder handles POST /api/v1/orders.
func (s *Server) CreateOrder(ctx echo.Context) error {
	var req NewOrderRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return err
	}

	location, err := kernel.NewGeoPoint(req.Lat, req.Lon)
	if err != nil {
		return respondError(ctx, err)
	}
	method, err := order.PaymentMethodFromString(req.PaymentMethod)
	if err != nil {
		return respondError(ctx, err)
	}

	orderID := kernel.NewUUID()
	cmd, err := commands.NewCreateOrderCommand(
		orderID, req.CustomerContact, req.Street, location, req.TotalAmount, method)
	if err != nil {
		return respondError(ctx, err)
	}

	if err = s.createOrderHandler.Handle(ctx.Request().Context(), cmd); err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, map[string]string{"order_id": orderID.String()})
}

// NewAgentRequest is the payload for registering an agent.
type NewAgentRequest struct {
	Name        string `json:"name" validate:"required"`
	Contact     string `json:"contact" validate:"required"`
	MaxWorkload int    `json:"max_workload" validate:"gt=0"`
}

// CreateAgent handles POST /api/v1/agents.
func (s *Server) CreateAgent(ctx echo.Context) error {
	var req NewAgentRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return err
	}

	agentID := kernel.NewUUID()
	cmd, err := commands.NewCreateAgentCommand(agentID, req.Name, req.Contact, req.MaxWorkload)
	if err != nil {
		return respondError(ctx, err)
	}

	if err = s.createAgentHandler.Handle(ctx.Request().Context(), cmd); err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, map[string]string{"agent_id": agentID.String()})
}

// AssignDelivery handles POST /api/v1/orders/:orderID/assignment.
func (s *Server) AssignDelivery(ctx echo.Context) error {
	orderID, err := pathUUID(ctx, "orderID")
	if err != nil {
		return err
	}

	cmd, err := commands.NewAssignDeliveryCommand(orderID)
	if err != nil {
		return respondError(ctx, err)
	}

	deliveryID, err := s.assignHandler.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, map[string]string{"delivery_id": deliveryID.String()})
}

// RequestRedelivery handles POST /api/v1/orders/:orderID/redelivery.
func (s *Server) RequestRedelivery(ctx echo.Context) error {
	orderID, err := pathUUID(ctx, "orderID")
	if err != nil {
		return err
	}

	cmd, err := commands.NewRequestRedeliveryCommand(orderID)
	if err != nil {
		return respondError(ctx, err)
	}

	deliveryID, err := s.redeliveryHandler.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, map[string]string{"delivery_id": deliveryID.String()})
}

// ConfirmationRequest is the agent's answer to an assignment offer.
type ConfirmationRequest struct {
	Accepted bool `json:"accepted"`
}

// ConfirmAssignment handles POST /api/v1/deliveries/:deliveryID/confirmation.
func (s *Server) ConfirmAssignment(ctx echo.Context) error {
	deliveryID, err := pathUUID(ctx, "deliveryID")
	if err != nil {
		return err
	}

	var req ConfirmationRequest
	if err = bindAndValidate(ctx, &req); err != nil {
		return err
	}

	cmd, err := commands.NewConfirmAssignmentCommand(deliveryID, req.Accepted)
	if err != nil {
		return respondError(ctx, err)
	}

	if err = s.confirmHandler.Handle(ctx.Request().Context(), cmd); err != nil {
		return respondError(ctx, err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

// LocationUpdateRequest is the agent's position report.
type LocationUpdateRequest struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lon float64 `json:"lon" validate:"min=-180,max=180"`
}

// UpdateLocation handles POST /api/v1/deliveries/:deliveryID/location.
func (s *Server) UpdateLocation(ctx echo.Context) error {
	deliveryID, err := pathUUID(ctx, "deliveryID")
	if err != nil {
		return err
	}

	var req LocationUpdateRequest
	if err = bindAndValidate(ctx, &req); err != nil {
		return err
	}

	location, err := kernel.NewGeoPoint(req.Lat, req.Lon)
	if err != nil {
		return respondError(ctx, err)
	}

	cmd, err := commands.NewUpdateLocationCommand(deliveryID, location)
	if err != nil {
		return respondError(ctx, err)
	}

	if err = s.updateLocationHandler.Handle(ctx.Request().Context(), cmd); err != nil {
		return respondError(ctx, err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

// HoldRequest carries the reason for a manual intervention hold.
type HoldRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// HoldDelivery handles POST /api/v1/deliveries/:deliveryID/hold.
func (s *Server) HoldDelivery(ctx echo.Context) error {
	deliveryID, err := pathUUID(ctx, "deliveryID")
	if err != nil {
		return err
	}

	var req HoldRequest
	if err = bindAndValidate(ctx, &req); err != nil {
		return err
	}

	cmd, err := commands.NewHoldDeliveryCommand(deliveryID, req.Reason)
	if err != nil {
		return respondError(ctx, err)
	}

	if err = s.holdHandler.Handle(ctx.Request().Context(), cmd); err != nil {
		return respondError(ctx, err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

// CompletionRequest reports the drop-off, with the cash taken for
// cash-on-delivery orders.
type CompletionRequest struct {
	CashCollected *float64 `json:"cash_collected,omitempty" validate:"omitempty,gt=0"`
}

// CompleteDelivery handles POST /api/v1/deliveries/:deliveryID/completion.
func (s *Server) CompleteDelivery(ctx echo.Context) error {
	deliveryID, err := pathUUID(ctx, "deliveryID")
	if err != nil {
		return err
	}

	var req CompletionRequest
	if err = bindAndValidate(ctx, &req); err != nil {
		return err
	}

	cmd, err := commands.NewCompleteDeliveryCommand(deliveryID, req.CashCollected)
	if err != nil {
		return respondError(ctx, err)
	}

	result, err := s.completeHandler.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, CompletionResponse{
		DeliveryID:    result.DeliveryID.String(),
		OrderID:       result.OrderID.String(),
		AgentID:       result.AgentID.String(),
		Attempt:       result.Attempt,
		Status:        result.Status,
		CashCollected: result.CashCollected,
		CompletedAt:   result.CompletedAt,
	})
}

// CompletionResponse is the delivery state after a recorded drop-off.
type CompletionResponse struct {
	DeliveryID    string    `json:"delivery_id"`
	OrderID       string    `json:"order_id"`
	AgentID       string    `json:"agent_id"`
	Attempt       int       `json:"attempt"`
	Status        string    `json:"status"`
	CashCollected *float64  `json:"cash_collected,omitempty"`
	CompletedAt   time.Time `json:"completed_at"`
}

// RemittanceRequest reports the agent handing over collected cash.
type RemittanceRequest struct {
	Amount float64 `json:"amount" validate:"min=0"`
	Proof  string  `json:"proof"`
}

// RecordRemittance handles POST /api/v1/deliveries/:deliveryID/remittance.
func (s *Server) RecordRemittance(ctx echo.Context) error {
	deliveryID, err := pathUUID(ctx, "deliveryID")
	if err != nil {
		return err
	}

	var req RemittanceRequest
	if err = bindAndValidate(ctx, &req); err != nil {
		return err
	}

	cmd, err := commands.NewRecordRemittanceCommand(deliveryID, req.Amount, req.Proof)
	if err != nil {
		return respondError(ctx, err)
	}

	if err = s.remittanceHandler.Handle(ctx.Request().Context(), cmd); err != nil {
		return respondError(ctx, err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

// FraudResolutionRequest records the verdict of a manual fraud review.
type FraudResolutionRequest struct {
	ConfirmedFraud bool   `json:"confirmed_fraud"`
	Notes          string `json:"notes"`
}

// ResolveFraudAlert handles POST /api/v1/deliveries/:deliveryID/fraud-resolution.
func (s *Server) ResolveFraudAlert(ctx echo.Context) error {
	deliveryID, err := pathUUID(ctx, "deliveryID")
	if err != nil {
		return err
	}

	var req FraudResolutionRequest
	if err = bindAndValidate(ctx, &req); err != nil {
		return err
	}

	cmd, err := commands.NewResolveFraudAlertCommand(deliveryID, req.ConfirmedFraud, req.Notes)
	if err != nil {
		return respondError(ctx, err)
	}

	if err = s.resolveFraudHandler.Handle(ctx.Request().Context(), cmd); err != nil {
		return respondError(ctx, err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

// ActiveDelivery is the read model for one active delivery attempt.
type ActiveDelivery struct {
	DeliveryID       string     `json:"delivery_id"`
	OrderID          string     `json:"order_id"`
	AgentID          string     `json:"agent_id"`
	AgentName        string     `json:"agent_name"`
	Attempt          int        `json:"attempt"`
	Status           string     `json:"status"`
	ScheduledTime    time.Time  `json:"scheduled_time"`
	EstimatedArrival *time.Time `json:"estimated_arrival,omitempty"`
	DelayMinutes     int        `json:"delay_minutes"`
	Street           string     `json:"street"`
	CustomerContact  string     `json:"customer_contact"`
}

// GetActiveDeliveries handles GET /api/v1/deliveries/active.
func (s *Server) GetActiveDeliveries(ctx echo.Context) error {
	query := queries.NewGetActiveDeliveriesQuery()

	deliveries, err := s.activeDeliveriesHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		return respondError(ctx, err)
	}

	response := make([]ActiveDelivery, len(deliveries))
	for i, d := range deliveries {
		response[i] = ActiveDelivery{
			DeliveryID:       d.DeliveryID.String(),
			OrderID:          d.OrderID.String(),
			AgentID:          d.AgentID.String(),
			AgentName:        d.AgentName,
			Attempt:          d.Attempt,
			Status:           d.Status,
			ScheduledTime:    d.ScheduledTime,
			EstimatedArrival: d.EstimatedArrival,
			DelayMinutes:     d.DelayMinutes,
			Street:           d.Street,
			CustomerContact:  d.CustomerContact,
		}
	}

	return ctx.JSON(http.StatusOK, response)
}

// FraudAlert is the read model for one disputed settlement.
type FraudAlert struct {
	DeliveryID     string     `json:"delivery_id"`
	OrderID        string     `json:"order_id"`
	AgentID        string     `json:"agent_id"`
	AgentName      string     `json:"agent_name"`
	CashCollected  float64    `json:"cash_collected"`
	CashRemitted   float64    `json:"cash_remitted"`
	FraudScore     float64    `json:"fraud_score"`
	RemittanceTime *time.Time `json:"remittance_time,omitempty"`
	Resolution     string     `json:"resolution"`
	FlagCount      int        `json:"flag_count"`
}

// GetFraudAlerts handles GET /api/v1/fraud-alerts.
func (s *Server) GetFraudAlerts(ctx echo.Context) error {
	includeResolved := ctx.QueryParam("include_resolved") == "true"
	query := queries.NewGetFraudAlertsQuery(includeResolved)

	alerts, err := s.fraudAlertsHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		return respondError(ctx, err)
	}

	response := make([]FraudAlert, len(alerts))
	for i, a := range alerts {
		response[i] = FraudAlert{
			DeliveryID:     a.DeliveryID.String(),
			OrderID:        a.OrderID.String(),
			AgentID:        a.AgentID.String(),
			AgentName:      a.AgentName,
			CashCollected:  a.CashCollected,
			CashRemitted:   a.CashRemitted,
			FraudScore:     a.FraudScore,
			RemittanceTime: a.RemittanceTime,
			Resolution:     a.Resolution,
			FlagCount:      a.FlagCount,
		}
	}

	return ctx.JSON(http.StatusOK, response)
}

// bindAndValidate binds and validates the request body. Failures surface as
// echo HTTP errors, handled by echo's error handler as 400 responses.
func bindAndValidate(ctx echo.Context, req any) error {
	if err := ctx.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return ctx.Validate(req)
}

func pathUUID(ctx echo.Context, name string) (kernel.UUID, error) {
	id, err := kernel.UUIDFromString(ctx.Param(name))
	if err != nil {
		return kernel.UUID{}, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// respondError maps application and domain errors onto API status codes.
func respondError(ctx echo.Context, err error) error {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, errs.ErrObjectNotFound):
		status = http.StatusNotFound
	case errors.Is(err, commands.ErrNoAgentsAvailable),
		errors.Is(err, commands.ErrAssignmentExhausted),
		errors.Is(err, commands.ErrMaxAttemptsReached):
		status = http.StatusConflict
	case errors.Is(err, errs.ErrValueIsInvalid),
		errors.Is(err, errs.ErrValueIsOutOfRange):
		status = http.StatusConflict
	case errors.Is(err, errs.ErrValueIsRequired):
		status = http.StatusBadRequest
	}

	return ctx.JSON(status, ErrorResponse{
		Code:    status,
		Message: err.Error(),
	})
}
