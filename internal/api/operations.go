package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const (
	businessInfoEndpointConstant        = "/api/session/business-info"
	sessionsEndpointConstant            = "/api/audit/sessions"
	auditRunEndpointConstant            = "/api/audit/run"
	auditEndpointTemplateConstant       = "/api/audit/%s"
	assumptionsEndpointTemplateConstant = "/api/audit/%s/update-assumptions"
	pdfEndpointTemplateConstant         = "/api/audit/%s/pdf"
	oauthAuthorizeEndpointConstant      = "/api/oauth/authorize"
	healthEndpointConstant              = "/api/health"

	sessionIdentifierFieldNameConstant = "session_id"
	requiredValueMessageConstant       = "value required"

	saveBusinessInfoOperationName = "SaveBusinessInfo"
	getSessionsOperationName      = "GetSessions"
	getAuditDataOperationName     = "GetAuditData"
)

// SaveBusinessInfo submits the business profile and returns the server-issued
// business session identifier. Retried on transient failures.
func (client *Client) SaveBusinessInfo(requestContext context.Context, info BusinessInfo) (BusinessInfoResponse, error) {
	var response BusinessInfoResponse
	operationError := client.executeWithRetry(requestContext, saveBusinessInfoOperationName, func() error {
		response = BusinessInfoResponse{}
		return client.executeJSONRequest(requestContext, http.MethodPost, businessInfoEndpointConstant, info, &response, client.requestTimeout)
	})
	if operationError != nil {
		return BusinessInfoResponse{}, operationError
	}
	return response, nil
}

// GetSessions lists past audit sessions. Retried on transient failures.
func (client *Client) GetSessions(requestContext context.Context) ([]SessionSummary, error) {
	var sessions []SessionSummary
	operationError := client.executeWithRetry(requestContext, getSessionsOperationName, func() error {
		sessions = nil
		return client.executeJSONRequest(requestContext, http.MethodGet, sessionsEndpointConstant, nil, &sessions, client.requestTimeout)
	})
	if operationError != nil {
		return nil, operationError
	}
	return sessions, nil
}

// RunAudit submits a new audit run. The operation is expensive server-side,
// uses the extended timeout, and is never retried.
func (client *Client) RunAudit(requestContext context.Context, auditRequest AuditRequest) (AuditRunResponse, error) {
	var response AuditRunResponse
	operationError := client.executeJSONRequest(requestContext, http.MethodPost, auditRunEndpointConstant, auditRequest, &response, client.auditRunTimeout)
	if operationError != nil {
		return AuditRunResponse{}, operationError
	}
	return response, nil
}

// GetAuditData fetches one audit session by identifier. Retried on transient
// failures.
func (client *Client) GetAuditData(requestContext context.Context, sessionIdentifier string) (Audit, error) {
	trimmedIdentifier := strings.TrimSpace(sessionIdentifier)
	if len(trimmedIdentifier) == 0 {
		return Audit{}, InvalidInputError{FieldName: sessionIdentifierFieldNameConstant, Message: requiredValueMessageConstant}
	}

	var audit Audit
	operationError := client.executeWithRetry(requestContext, getAuditDataOperationName, func() error {
		audit = Audit{}
		return client.executeJSONRequest(requestContext, http.MethodGet, fmt.Sprintf(auditEndpointTemplateConstant, trimmedIdentifier), nil, &audit, client.requestTimeout)
	})
	if operationError != nil {
		return Audit{}, operationError
	}
	return audit, nil
}

// UpdateAssumptions replaces the calculation assumptions for an audit and
// returns the recalculated audit. Not retried.
func (client *Client) UpdateAssumptions(requestContext context.Context, sessionIdentifier string, assumptions map[string]any) (Audit, error) {
	trimmedIdentifier := strings.TrimSpace(sessionIdentifier)
	if len(trimmedIdentifier) == 0 {
		return Audit{}, InvalidInputError{FieldName: sessionIdentifierFieldNameConstant, Message: requiredValueMessageConstant}
	}

	var audit Audit
	operationError := client.executeJSONRequest(requestContext, http.MethodPost, fmt.Sprintf(assumptionsEndpointTemplateConstant, trimmedIdentifier), assumptions, &audit, client.requestTimeout)
	if operationError != nil {
		return Audit{}, operationError
	}
	return audit, nil
}

// GeneratePDF fetches the rendered audit report as raw bytes. Not retried to
// avoid duplicating expensive server-side rendering.
func (client *Client) GeneratePDF(requestContext context.Context, sessionIdentifier string) ([]byte, error) {
	trimmedIdentifier := strings.TrimSpace(sessionIdentifier)
	if len(trimmedIdentifier) == 0 {
		return nil, InvalidInputError{FieldName: sessionIdentifierFieldNameConstant, Message: requiredValueMessageConstant}
	}

	return client.executeRequest(requestContext, http.MethodGet, fmt.Sprintf(pdfEndpointTemplateConstant, trimmedIdentifier), nil, client.requestTimeout)
}

// OAuthURL returns the authorization endpoint for the configured backend.
// Pure string construction; no network call is made.
func (client *Client) OAuthURL() string {
	return client.baseAddress + oauthAuthorizeEndpointConstant
}

// HealthCheck probes the backend. It never returns an error; failures are
// captured in the result.
func (client *Client) HealthCheck(requestContext context.Context) HealthStatus {
	var details map[string]any
	checkError := client.executeJSONRequest(requestContext, http.MethodGet, healthEndpointConstant, nil, &details, client.requestTimeout)
	if checkError != nil {
		return HealthStatus{Status: HealthStateUnhealthy, Error: checkError.Error()}
	}
	return HealthStatus{Status: HealthStateHealthy, Details: details}
}
