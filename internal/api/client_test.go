package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/sfaudit/internal/api"
)

const (
	storedSessionIdentifierConstant = "sf-session-77"
	auditSessionIdentifierConstant  = "audit-4711"
	networkErrorMessageConstant     = "Network error. Please check your connection and try again."
	sessionExpiredMessageConstant   = "Session expired. Please log in again."
	resourceNotFoundMessageConstant = "The requested resource was not found."
	invalidDataMessageConstant      = "Invalid data provided. Please check your input."
	serverErrorMessageConstant      = "Server error. Our team has been notified."
	serverSuppliedDetailConstant    = "org limit reached"
)

type recordingSessionProvider struct {
	sessionIdentifier string
	clearedCount      atomic.Int64
}

func (provider *recordingSessionProvider) SalesforceSessionID() string {
	return provider.sessionIdentifier
}

func (provider *recordingSessionProvider) ClearSalesforceSession() {
	provider.clearedCount.Add(1)
}

func immediateDelay(recordedDelays *[]time.Duration) api.DelayFunction {
	return func(waitContext context.Context, waitDuration time.Duration) error {
		*recordedDelays = append(*recordedDelays, waitDuration)
		return nil
	}
}

func newClientForTest(testInstance *testing.T, options api.ClientOptions) *api.Client {
	testInstance.Helper()

	client, clientError := api.NewClient(options)
	require.NoError(testInstance, clientError)

	return client
}

func TestClientSendsSessionHeader(testInstance *testing.T) {
	testInstance.Parallel()

	var observedSessionHeader string
	testServer := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		observedSessionHeader = request.Header.Get("X-Session-ID")
		json.NewEncoder(responseWriter).Encode([]api.SessionSummary{})
	}))
	defer testServer.Close()

	sessionProvider := &recordingSessionProvider{sessionIdentifier: storedSessionIdentifierConstant}
	client := newClientForTest(testInstance, api.ClientOptions{
		BaseAddress:     testServer.URL,
		SessionProvider: sessionProvider,
	})

	_, requestError := client.GetSessions(context.Background())
	require.NoError(testInstance, requestError)
	require.Equal(testInstance, storedSessionIdentifierConstant, observedSessionHeader)
}

func TestClientRetriesTransientFailures(testInstance *testing.T) {
	testInstance.Parallel()

	var requestCount atomic.Int64
	testServer := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		if requestCount.Add(1) < 3 {
			responseWriter.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(responseWriter).Encode([]api.SessionSummary{{ID: auditSessionIdentifierConstant}})
	}))
	defer testServer.Close()

	var recordedDelays []time.Duration
	client := newClientForTest(testInstance, api.ClientOptions{
		BaseAddress: testServer.URL,
		Delay:       immediateDelay(&recordedDelays),
	})

	sessions, requestError := client.GetSessions(context.Background())
	require.NoError(testInstance, requestError)
	require.Len(testInstance, sessions, 1)
	require.Equal(testInstance, auditSessionIdentifierConstant, sessions[0].ID)
	require.Equal(testInstance, int64(3), requestCount.Load())
	require.Equal(testInstance, []time.Duration{time.Second, 2 * time.Second}, recordedDelays)
}

func TestClientExhaustsRetriesOnPersistentServerErrors(testInstance *testing.T) {
	testInstance.Parallel()

	var requestCount atomic.Int64
	testServer := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		requestCount.Add(1)
		responseWriter.WriteHeader(http.StatusInternalServerError)
	}))
	defer testServer.Close()

	var recordedDelays []time.Duration
	client := newClientForTest(testInstance, api.ClientOptions{
		BaseAddress: testServer.URL,
		Delay:       immediateDelay(&recordedDelays),
	})

	_, requestError := client.GetSessions(context.Background())
	require.Error(testInstance, requestError)

	apiError, isAPIError := api.AsAPIError(requestError)
	require.True(testInstance, isAPIError)
	require.Equal(testInstance, http.StatusInternalServerError, apiError.StatusCode)
	require.Equal(testInstance, serverErrorMessageConstant, apiError.Message)

	require.Equal(testInstance, int64(4), requestCount.Load())
	require.Equal(testInstance, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, recordedDelays)
}

func TestClientDoesNotRetryClientErrors(testInstance *testing.T) {
	testInstance.Parallel()

	testCases := []struct {
		name            string
		statusCode      int
		expectedMessage string
	}{
		{
			name:            "not_found",
			statusCode:      http.StatusNotFound,
			expectedMessage: resourceNotFoundMessageConstant,
		},
		{
			name:            "unprocessable_entity",
			statusCode:      http.StatusUnprocessableEntity,
			expectedMessage: invalidDataMessageConstant,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			testInstance.Parallel()

			var requestCount atomic.Int64
			testServer := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
				requestCount.Add(1)
				responseWriter.WriteHeader(testCase.statusCode)
			}))
			defer testServer.Close()

			var recordedDelays []time.Duration
			client := newClientForTest(testInstance, api.ClientOptions{
				BaseAddress: testServer.URL,
				Delay:       immediateDelay(&recordedDelays),
			})

			_, requestError := client.GetSessions(context.Background())
			require.Error(testInstance, requestError)

			apiError, isAPIError := api.AsAPIError(requestError)
			require.True(testInstance, isAPIError)
			require.Equal(testInstance, testCase.statusCode, apiError.StatusCode)
			require.Equal(testInstance, testCase.expectedMessage, apiError.Message)

			require.Equal(testInstance, int64(1), requestCount.Load())
			require.Empty(testInstance, recordedDelays)
		})
	}
}

func TestClientClearsSessionOnUnauthorized(testInstance *testing.T) {
	testInstance.Parallel()

	testServer := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		responseWriter.WriteHeader(http.StatusUnauthorized)
	}))
	defer testServer.Close()

	sessionProvider := &recordingSessionProvider{sessionIdentifier: storedSessionIdentifierConstant}
	var unauthorizedCallCount atomic.Int64
	var recordedDelays []time.Duration
	client := newClientForTest(testInstance, api.ClientOptions{
		BaseAddress:     testServer.URL,
		SessionProvider: sessionProvider,
		UnauthorizedHandler: func() {
			unauthorizedCallCount.Add(1)
		},
		Delay: immediateDelay(&recordedDelays),
	})

	_, requestError := client.GetSessions(context.Background())
	require.Error(testInstance, requestError)

	apiError, isAPIError := api.AsAPIError(requestError)
	require.True(testInstance, isAPIError)
	require.Equal(testInstance, http.StatusUnauthorized, apiError.StatusCode)
	require.Equal(testInstance, sessionExpiredMessageConstant, apiError.Message)

	require.Equal(testInstance, int64(1), sessionProvider.clearedCount.Load())
	require.Equal(testInstance, int64(1), unauthorizedCallCount.Load())
	require.Empty(testInstance, recordedDelays)
}

func TestClientReportsNetworkFailures(testInstance *testing.T) {
	testInstance.Parallel()

	unreachableServer := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {}))
	unreachableServer.Close()

	var recordedDelays []time.Duration
	client := newClientForTest(testInstance, api.ClientOptions{
		BaseAddress: unreachableServer.URL,
		Delay:       immediateDelay(&recordedDelays),
	})

	_, requestError := client.GetSessions(context.Background())
	require.Error(testInstance, requestError)

	apiError, isAPIError := api.AsAPIError(requestError)
	require.True(testInstance, isAPIError)
	require.Zero(testInstance, apiError.StatusCode)
	require.Equal(testInstance, networkErrorMessageConstant, apiError.Message)
	require.Len(testInstance, recordedDelays, 3)
}

func TestClientSurfacesServerProvidedDetail(testInstance *testing.T) {
	testInstance.Parallel()

	testServer := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		responseWriter.WriteHeader(http.StatusConflict)
		json.NewEncoder(responseWriter).Encode(map[string]string{"detail": serverSuppliedDetailConstant})
	}))
	defer testServer.Close()

	client := newClientForTest(testInstance, api.ClientOptions{BaseAddress: testServer.URL})

	_, requestError := client.GetSessions(context.Background())
	require.Error(testInstance, requestError)

	apiError, isAPIError := api.AsAPIError(requestError)
	require.True(testInstance, isAPIError)
	require.Equal(testInstance, http.StatusConflict, apiError.StatusCode)
	require.Equal(testInstance, serverSuppliedDetailConstant, apiError.Message)
}

func TestClientNormalizesBaseAddress(testInstance *testing.T) {
	testInstance.Parallel()

	client := newClientForTest(testInstance, api.ClientOptions{BaseAddress: "https://audit.example.com/"})

	require.Equal(testInstance, "https://audit.example.com", client.BaseAddress())
	require.Equal(testInstance, "https://audit.example.com/api/oauth/authorize", client.OAuthURL())
}
