package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBaseAddressConstant     = "http://localhost:8000"
	defaultRequestTimeoutConstant  = 10 * time.Second
	defaultAuditRunTimeoutConstant = 60 * time.Second
	defaultMaxRetryAttemptsCount   = 3
	defaultRetryBaseDelayConstant  = time.Second

	sessionHeaderNameConstant     = "X-Session-ID"
	contentTypeHeaderNameConstant = "Content-Type"
	jsonContentTypeConstant       = "application/json"

	baseAddressErrorTemplateConstant = "invalid base address: %w"

	requestSetupFailedMessageConstant = "Request failed. Please try again."
	networkErrorMessageConstant       = "Network error. Please check your connection and try again."
	sessionExpiredMessageConstant     = "Session expired. Please log in again."
	accessDeniedMessageConstant       = "Access denied. You do not have permission to perform this action."
	resourceNotFoundMessageConstant   = "The requested resource was not found."
	invalidDataMessageConstant        = "Invalid data provided. Please check your input."
	tooManyRequestsMessageConstant    = "Too many requests. Please wait a moment and try again."
	serverErrorMessageConstant        = "Server error. Our team has been notified."
	unexpectedErrorMessageConstant    = "An unexpected error occurred"

	responseMessageFieldConstant = "message"
	responseDetailFieldConstant  = "detail"

	requestCompletedMessageConstant = "request completed"
	requestFailedMessageConstant    = "request failed"
	httpMethodFieldNameConstant     = "http_method"
	requestPathFieldNameConstant    = "request_path"
	httpStatusFieldNameConstant     = "http_status"
	durationFieldNameConstant       = "duration_ms"
)

// SessionProvider exposes the stored Salesforce session identifier to the
// client and allows the client to clear it on authentication failure.
type SessionProvider interface {
	SalesforceSessionID() string
	ClearSalesforceSession()
}

// UnauthorizedHandler runs once per 401 response after the stored session has
// been cleared. The hosting application supplies the navigation behavior.
type UnauthorizedHandler func()

// DelayFunction waits for the given duration or until the context ends.
type DelayFunction func(waitContext context.Context, waitDuration time.Duration) error

// ClientOptions configures a Client instance. Zero values fall back to the
// documented defaults.
type ClientOptions struct {
	BaseAddress         string
	RequestTimeout      time.Duration
	AuditRunTimeout     time.Duration
	MaxRetryAttempts    int
	RetryBaseDelay      time.Duration
	SessionProvider     SessionProvider
	UnauthorizedHandler UnauthorizedHandler
	Logger              *zap.Logger
	HTTPTransport       http.RoundTripper
	Delay               DelayFunction
}

// Client issues typed requests against the audit backend.
type Client struct {
	baseAddress         string
	requestTimeout      time.Duration
	auditRunTimeout     time.Duration
	maxRetryAttempts    int
	retryBaseDelay      time.Duration
	sessionProvider     SessionProvider
	unauthorizedHandler UnauthorizedHandler
	logger              *zap.Logger
	httpClient          *http.Client
	delay               DelayFunction
}

// NewClient constructs a Client, applying defaults for unset options.
func NewClient(options ClientOptions) (*Client, error) {
	baseAddress := strings.TrimSpace(options.BaseAddress)
	if len(baseAddress) == 0 {
		baseAddress = defaultBaseAddressConstant
	}
	baseAddress = strings.TrimRight(baseAddress, "/")

	if _, parseError := url.Parse(baseAddress); parseError != nil {
		return nil, fmt.Errorf(baseAddressErrorTemplateConstant, parseError)
	}

	requestTimeout := options.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeoutConstant
	}

	auditRunTimeout := options.AuditRunTimeout
	if auditRunTimeout <= 0 {
		auditRunTimeout = defaultAuditRunTimeoutConstant
	}

	maxRetryAttempts := options.MaxRetryAttempts
	if maxRetryAttempts <= 0 {
		maxRetryAttempts = defaultMaxRetryAttemptsCount
	}

	retryBaseDelay := options.RetryBaseDelay
	if retryBaseDelay <= 0 {
		retryBaseDelay = defaultRetryBaseDelayConstant
	}

	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	delayFunction := options.Delay
	if delayFunction == nil {
		delayFunction = waitWithContext
	}

	return &Client{
		baseAddress:         baseAddress,
		requestTimeout:      requestTimeout,
		auditRunTimeout:     auditRunTimeout,
		maxRetryAttempts:    maxRetryAttempts,
		retryBaseDelay:      retryBaseDelay,
		sessionProvider:     options.SessionProvider,
		unauthorizedHandler: options.UnauthorizedHandler,
		logger:              logger,
		httpClient:          &http.Client{Transport: options.HTTPTransport},
		delay:               delayFunction,
	}, nil
}

// BaseAddress returns the normalized backend address the client targets.
func (client *Client) BaseAddress() string {
	return client.baseAddress
}

func (client *Client) executeJSONRequest(requestContext context.Context, httpMethod string, requestPath string, requestBody any, responseTarget any, requestTimeout time.Duration) error {
	responseBytes, requestError := client.executeRequest(requestContext, httpMethod, requestPath, requestBody, requestTimeout)
	if requestError != nil {
		return requestError
	}

	if responseTarget == nil || len(responseBytes) == 0 {
		return nil
	}

	if unmarshalError := json.Unmarshal(responseBytes, responseTarget); unmarshalError != nil {
		client.logger.Error(requestFailedMessageConstant, zap.String(requestPathFieldNameConstant, requestPath), zap.Error(unmarshalError))
		return &APIError{Message: requestSetupFailedMessageConstant, StatusCode: 0, Data: unmarshalError.Error(), Timestamp: time.Now()}
	}

	return nil
}

func (client *Client) executeRequest(requestContext context.Context, httpMethod string, requestPath string, requestBody any, requestTimeout time.Duration) ([]byte, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		encodedBody, marshalError := json.Marshal(requestBody)
		if marshalError != nil {
			return nil, &APIError{Message: requestSetupFailedMessageConstant, StatusCode: 0, Data: marshalError.Error(), Timestamp: time.Now()}
		}
		bodyReader = bytes.NewReader(encodedBody)
	}

	timeoutContext, cancelTimeout := context.WithTimeout(requestContext, requestTimeout)
	defer cancelTimeout()

	request, requestCreationError := http.NewRequestWithContext(timeoutContext, httpMethod, client.baseAddress+requestPath, bodyReader)
	if requestCreationError != nil {
		return nil, &APIError{Message: requestSetupFailedMessageConstant, StatusCode: 0, Data: requestCreationError.Error(), Timestamp: time.Now()}
	}

	request.Header.Set(contentTypeHeaderNameConstant, jsonContentTypeConstant)
	if client.sessionProvider != nil {
		if sessionIdentifier := client.sessionProvider.SalesforceSessionID(); len(sessionIdentifier) > 0 {
			request.Header.Set(sessionHeaderNameConstant, sessionIdentifier)
		}
	}

	requestStart := time.Now()
	response, transportError := client.httpClient.Do(request)
	if transportError != nil {
		client.logger.Warn(requestFailedMessageConstant,
			zap.String(httpMethodFieldNameConstant, httpMethod),
			zap.String(requestPathFieldNameConstant, requestPath),
			zap.Error(transportError),
		)
		return nil, &APIError{Message: networkErrorMessageConstant, StatusCode: 0, Data: transportError.Error(), Timestamp: time.Now()}
	}
	defer func() { _ = response.Body.Close() }()

	responseBytes, readError := io.ReadAll(response.Body)
	if readError != nil {
		return nil, &APIError{Message: networkErrorMessageConstant, StatusCode: 0, Data: readError.Error(), Timestamp: time.Now()}
	}

	client.logger.Debug(requestCompletedMessageConstant,
		zap.String(httpMethodFieldNameConstant, httpMethod),
		zap.String(requestPathFieldNameConstant, requestPath),
		zap.Int(httpStatusFieldNameConstant, response.StatusCode),
		zap.Int64(durationFieldNameConstant, time.Since(requestStart).Milliseconds()),
	)

	if response.StatusCode >= http.StatusBadRequest {
		return nil, client.mapStatusError(response.StatusCode, responseBytes)
	}

	return responseBytes, nil
}

func (client *Client) mapStatusError(statusCode int, responseBytes []byte) error {
	var responsePayload any
	if len(responseBytes) > 0 {
		if unmarshalError := json.Unmarshal(responseBytes, &responsePayload); unmarshalError != nil {
			responsePayload = string(responseBytes)
		}
	}

	switch statusCode {
	case http.StatusUnauthorized:
		if client.sessionProvider != nil {
			client.sessionProvider.ClearSalesforceSession()
		}
		if client.unauthorizedHandler != nil {
			client.unauthorizedHandler()
		}
		return &APIError{Message: sessionExpiredMessageConstant, StatusCode: statusCode, Data: responsePayload, Timestamp: time.Now()}
	case http.StatusForbidden:
		return &APIError{Message: accessDeniedMessageConstant, StatusCode: statusCode, Data: responsePayload, Timestamp: time.Now()}
	case http.StatusNotFound:
		return &APIError{Message: resourceNotFoundMessageConstant, StatusCode: statusCode, Data: responsePayload, Timestamp: time.Now()}
	case http.StatusUnprocessableEntity:
		return &APIError{Message: invalidDataMessageConstant, StatusCode: statusCode, Data: responsePayload, Timestamp: time.Now()}
	case http.StatusTooManyRequests:
		return &APIError{Message: tooManyRequestsMessageConstant, StatusCode: statusCode, Data: responsePayload, Timestamp: time.Now()}
	case http.StatusInternalServerError:
		return &APIError{Message: serverErrorMessageConstant, StatusCode: statusCode, Data: responsePayload, Timestamp: time.Now()}
	default:
		return &APIError{Message: serverProvidedMessage(responsePayload), StatusCode: statusCode, Data: responsePayload, Timestamp: time.Now()}
	}
}

// serverProvidedMessage extracts message or detail from the payload, falling
// back to the generic message.
func serverProvidedMessage(responsePayload any) string {
	payloadMap, isMap := responsePayload.(map[string]any)
	if !isMap {
		return unexpectedErrorMessageConstant
	}

	for _, fieldName := range []string{responseMessageFieldConstant, responseDetailFieldConstant} {
		if fieldValue, isString := payloadMap[fieldName].(string); isString && len(fieldValue) > 0 {
			return fieldValue
		}
	}

	return unexpectedErrorMessageConstant
}

func waitWithContext(waitContext context.Context, waitDuration time.Duration) error {
	waitTimer := time.NewTimer(waitDuration)
	defer waitTimer.Stop()

	select {
	case <-waitContext.Done():
		return waitContext.Err()
	case <-waitTimer.C:
		return nil
	}
}
