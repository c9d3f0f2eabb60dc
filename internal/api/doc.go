// Package api implements the typed HTTP client for the Salesforce audit
// backend.
//
// Every transport or HTTP failure is mapped to a single APIError taxonomy
// with user-presentable messages. Idempotent read operations retry with
// linearly increasing backoff on network and 5xx failures only; expensive or
// side-effecting operations are never retried. A 401 anywhere clears the
// stored Salesforce session identifier and invokes the configured
// unauthorized handler.
package api
