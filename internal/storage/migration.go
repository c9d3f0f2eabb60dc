package storage

import (
	"encoding/json"

	"go.uber.org/zap"
)

const (
	legacyScanStartedMessageConstant   = "legacy migration scan started"
	legacyReadFailedMessageConstant    = "legacy value read failed"
	legacyMigrationFailedMsgConstant   = "legacy value rejected during migration"
	legacyDeleteFailedMessageConstant  = "legacy value delete failed"
	migrationCandidateKeysFieldMessage = "candidate_keys"
)

// MigrateLegacyEntries promotes raw, un-namespaced medium values for the given
// logical keys into the versioned envelope format, deleting the legacy entry
// once promoted. It returns the number of migrated keys. Values that fail
// their key's validation are left in place untouched.
func (store *Store) MigrateLegacyEntries(keys ...string) int {
	store.logger.Debug(legacyScanStartedMessageConstant, zap.Strings(migrationCandidateKeysFieldMessage, keys))

	migratedCount := 0
	for _, key := range keys {
		rawValue, present, readError := store.medium.Read(key)
		if readError != nil {
			store.logger.Warn(legacyReadFailedMessageConstant, zap.String(storageKeyFieldNameConstant, key), zap.Error(readError))
			continue
		}
		if !present {
			continue
		}

		var parsedValue any
		if unmarshalError := json.Unmarshal([]byte(rawValue), &parsedValue); unmarshalError != nil {
			parsedValue = rawValue
		}

		if !store.SetItem(key, parsedValue) {
			store.logger.Warn(legacyMigrationFailedMsgConstant, zap.String(storageKeyFieldNameConstant, key))
			continue
		}

		if deleteError := store.medium.Delete(key); deleteError != nil {
			store.logger.Warn(legacyDeleteFailedMessageConstant, zap.String(storageKeyFieldNameConstant, key), zap.Error(deleteError))
		}
		migratedCount++
	}

	return migratedCount
}
