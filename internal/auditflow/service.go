package auditflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/sfaudit/internal/api"
	"github.com/temirov/sfaudit/internal/lifecycle"
	"github.com/temirov/sfaudit/internal/polling"
)

const (
	clientMissingMessageConstant     = "audit client not configured"
	registryMissingMessageConstant   = "lifecycle registry not configured"
	missingRunSessionMessageConstant = "audit run response missing session identifier"

	defaultPollIntervalConstant = 2 * time.Second

	pollRegistrationKeyPrefix = "audit_status_"

	auditSubmittedMessageConstant = "audit submitted"
	auditSettledMessageConstant   = "audit reached terminal status"
	sessionFieldNameConstant      = "session_id"
	statusFieldNameConstant       = "status"
)

var (
	errClientMissing     = errors.New(clientMissingMessageConstant)
	errRegistryMissing   = errors.New(registryMissingMessageConstant)
	errMissingRunSession = errors.New(missingRunSessionMessageConstant)
)

// Client is the backend surface the audit workflow consumes.
type Client interface {
	RunAudit(requestContext context.Context, auditRequest api.AuditRequest) (api.AuditRunResponse, error)
	GetAuditData(requestContext context.Context, sessionIdentifier string) (api.Audit, error)
	UpdateAssumptions(requestContext context.Context, sessionIdentifier string, assumptions map[string]any) (api.Audit, error)
	GeneratePDF(requestContext context.Context, sessionIdentifier string) ([]byte, error)
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	Client       Client
	Registry     *lifecycle.Registry
	Logger       *zap.Logger
	PollInterval time.Duration
}

// Service orchestrates audit submission and completion polling.
type Service struct {
	client       Client
	registry     *lifecycle.Registry
	logger       *zap.Logger
	pollInterval time.Duration
}

// NewService constructs a Service with the provided dependencies.
func NewService(options ServiceOptions) (*Service, error) {
	if options.Client == nil {
		return nil, errClientMissing
	}
	if options.Registry == nil {
		return nil, errRegistryMissing
	}

	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	pollInterval := options.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollIntervalConstant
	}

	return &Service{
		client:       options.Client,
		registry:     options.Registry,
		logger:       logger,
		pollInterval: pollInterval,
	}, nil
}

// Run submits the audit request and blocks until the session reaches a
// terminal status or the context ends.
func (service *Service) Run(requestContext context.Context, auditRequest api.AuditRequest) (api.Audit, error) {
	runResponse, runError := service.client.RunAudit(requestContext, auditRequest)
	if runError != nil {
		return api.Audit{}, runError
	}

	if len(runResponse.SessionID) == 0 {
		return api.Audit{}, errMissingRunSession
	}

	service.logger.Info(auditSubmittedMessageConstant, zap.String(sessionFieldNameConstant, runResponse.SessionID))

	return service.WaitForCompletion(requestContext, runResponse.SessionID)
}

type pollOutcome struct {
	audit        api.Audit
	failureError error
}

// WaitForCompletion polls the audit session until its status leaves
// processing. The first fetch happens immediately; subsequent fetches follow
// the configured interval. Fetch failures stop the poll and surface to the
// caller.
func (service *Service) WaitForCompletion(requestContext context.Context, sessionIdentifier string) (api.Audit, error) {
	outcomeChannel := make(chan pollOutcome, 1)
	var deliverOnce sync.Once
	var controller *polling.Controller

	deliver := func(outcome pollOutcome) {
		controller.Stop()
		deliverOnce.Do(func() { outcomeChannel <- outcome })
	}

	pollCallback := func() {
		audit, fetchError := service.client.GetAuditData(requestContext, sessionIdentifier)
		if fetchError != nil {
			deliver(pollOutcome{failureError: fetchError})
			return
		}

		// Absent status marks a legacy completed payload.
		if len(audit.Status) == 0 {
			audit.Status = api.AuditStatusCompleted
		}

		if audit.Status.IsTerminal() {
			service.logger.Info(auditSettledMessageConstant,
				zap.String(sessionFieldNameConstant, sessionIdentifier),
				zap.String(statusFieldNameConstant, string(audit.Status)),
			)
			deliver(pollOutcome{audit: audit})
		}
	}

	controller, controllerError := polling.NewController(polling.ControllerOptions{
		Callback:        pollCallback,
		Interval:        service.pollInterval,
		Immediate:       true,
		Registry:        service.registry,
		RegistrationKey: pollRegistrationKeyPrefix + sessionIdentifier,
	})
	if controllerError != nil {
		return api.Audit{}, controllerError
	}

	controller.Start()

	select {
	case <-requestContext.Done():
		controller.Stop()
		return api.Audit{}, requestContext.Err()
	case outcome := <-outcomeChannel:
		if outcome.failureError != nil {
			return api.Audit{}, outcome.failureError
		}
		return outcome.audit, nil
	}
}
