package storage_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/sfaudit/internal/storage"
)

const legacySessionValueConstant = "legacy-session-3"

func TestMigrateLegacyEntriesPromotesRawValues(testInstance *testing.T) {
	testInstance.Parallel()

	store, medium := newStoreForTest(testInstance, storage.StoreOptions{})

	require.NoError(testInstance, medium.Write(storage.KeySalesforceSessionID, legacySessionValueConstant))
	require.NoError(testInstance, medium.Write(storage.KeyBusinessSessionID, businessSessionValueConstant))

	migratedCount := store.MigrateLegacyEntries(storage.KeySalesforceSessionID, storage.KeyBusinessSessionID)
	require.Equal(testInstance, 2, migratedCount)

	require.Equal(testInstance, legacySessionValueConstant, store.GetString(storage.KeySalesforceSessionID))
	require.Equal(testInstance, businessSessionValueConstant, store.GetString(storage.KeyBusinessSessionID))

	_, legacyPresent, readError := medium.Read(storage.KeySalesforceSessionID)
	require.NoError(testInstance, readError)
	require.False(testInstance, legacyPresent)
}

func TestMigrateLegacyEntriesSkipsMissingKeys(testInstance *testing.T) {
	testInstance.Parallel()

	store, _ := newStoreForTest(testInstance, storage.StoreOptions{})

	require.Zero(testInstance, store.MigrateLegacyEntries(storage.KeySalesforceSessionID))
}

func TestMigrateLegacyEntriesLeavesNamespacedRecordsAlone(testInstance *testing.T) {
	testInstance.Parallel()

	store, _ := newStoreForTest(testInstance, storage.StoreOptions{})

	require.True(testInstance, store.SetItem(storage.KeySalesforceSessionID, sessionIdentifierConstant))
	require.Zero(testInstance, store.MigrateLegacyEntries(storage.KeySalesforceSessionID))
	require.Equal(testInstance, sessionIdentifierConstant, store.GetString(storage.KeySalesforceSessionID))
}
