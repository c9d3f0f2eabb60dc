package api

import (
	"errors"

	"github.com/temirov/sfaudit/internal/storage"
)

const storeNotConfiguredMessageConstant = "session store not configured"

var errStoreNotConfigured = errors.New(storeNotConfiguredMessageConstant)

// StoreSessionProvider adapts the persistent store to the SessionProvider
// contract and offers the write side used by the connect flow.
type StoreSessionProvider struct {
	store *storage.Store
}

// NewStoreSessionProvider constructs a provider over the given store.
func NewStoreSessionProvider(store *storage.Store) (*StoreSessionProvider, error) {
	if store == nil {
		return nil, errStoreNotConfigured
	}
	return &StoreSessionProvider{store: store}, nil
}

// SalesforceSessionID returns the stored identifier, or empty when absent.
func (provider *StoreSessionProvider) SalesforceSessionID() string {
	return provider.store.GetString(storage.KeySalesforceSessionID)
}

// ClearSalesforceSession removes the stored identifier.
func (provider *StoreSessionProvider) ClearSalesforceSession() {
	provider.store.RemoveItem(storage.KeySalesforceSessionID)
}

// StoreSalesforceSession persists the identifier, reporting success.
func (provider *StoreSessionProvider) StoreSalesforceSession(sessionIdentifier string) bool {
	return provider.store.SetItem(storage.KeySalesforceSessionID, sessionIdentifier)
}
