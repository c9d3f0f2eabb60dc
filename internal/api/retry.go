package api

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	retryScheduledMessageConstant = "retrying request"
	retryAttemptFieldNameConstant = "attempt"
	retryDelayMsFieldNameConstant = "delay_ms"
	retryOperationFieldName       = "operation"
	retryExhaustedMessageConstant = "retry budget exhausted"
	retryAbandonedMessageConstant = "retry wait interrupted"
)

// executeWithRetry re-invokes operation on retryable failures, waiting
// baseDelay * attemptNumber between attempts. Failures that carry an HTTP
// client-error status are surfaced immediately.
func (client *Client) executeWithRetry(requestContext context.Context, operationName string, operation func() error) error {
	for attemptNumber := 1; ; attemptNumber++ {
		operationError := operation()
		if operationError == nil {
			return nil
		}

		if attemptNumber > client.maxRetryAttempts || !isRetryableFailure(operationError) {
			if attemptNumber > client.maxRetryAttempts {
				client.logger.Warn(retryExhaustedMessageConstant, zap.String(retryOperationFieldName, operationName))
			}
			return operationError
		}

		retryDelay := client.retryBaseDelay * time.Duration(attemptNumber)
		client.logger.Debug(retryScheduledMessageConstant,
			zap.String(retryOperationFieldName, operationName),
			zap.Int(retryAttemptFieldNameConstant, attemptNumber),
			zap.Int64(retryDelayMsFieldNameConstant, retryDelay.Milliseconds()),
		)

		if waitError := client.delay(requestContext, retryDelay); waitError != nil {
			client.logger.Debug(retryAbandonedMessageConstant, zap.String(retryOperationFieldName, operationName))
			return operationError
		}
	}
}

// isRetryableFailure admits network-level failures and 5xx responses only.
func isRetryableFailure(operationError error) bool {
	apiError, isAPIError := AsAPIError(operationError)
	if !isAPIError {
		return false
	}
	if apiError.StatusCode == 0 {
		return true
	}
	return apiError.StatusCode >= http.StatusInternalServerError && apiError.StatusCode < 600
}
