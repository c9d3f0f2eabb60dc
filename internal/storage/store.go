package storage

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	namespacePrefixConstant        = "sf_audit_"
	encodingVersionConstant        = "1.0"
	encodingSeparatorConstant      = ":"
	defaultMaxRecordAgeConstant    = 30 * 24 * time.Hour
	availabilityProbeKeyConstant   = namespacePrefixConstant + "availability_probe"
	availabilityProbeValueConstant = "probe"

	mediumNotConfiguredMessageConstant = "storage medium not configured"

	validationFailedMessageConstant   = "value failed structural validation"
	serializationFailedMessage        = "record serialization failed"
	mediumWriteFailedMessageConstant  = "medium write failed"
	mediumReadFailedMessageConstant   = "medium read failed"
	mediumDeleteFailedMessageConstant = "medium delete failed"
	mediumKeysFailedMessageConstant   = "medium key listing failed"
	versionMismatchMessageConstant    = "record version mismatch, purging"
	malformedRecordMessageConstant    = "malformed record, purging"
	expiredRecordMessageConstant      = "record exceeded max age, purging"
	revalidationFailedMessageConstant = "stored value failed re-validation, purging"

	storageKeyFieldNameConstant = "storage_key"
)

// Known storage keys. Their validators are registered by default.
const (
	KeyBusinessInfo        = "business_info"
	KeyBusinessSessionID   = "business_session_id"
	KeySalesforceSessionID = "salesforce_session_id"
)

const (
	businessInfoRevenueFieldConstant   = "annual_revenue"
	businessInfoHeadcountFieldConstant = "employee_headcount"
)

var errMediumNotConfigured = errors.New(mediumNotConfiguredMessageConstant)

// Clock supplies the current time so freshness checks stay testable.
type Clock interface {
	Now() time.Time
}

// SystemClock satisfies Clock with the wall clock.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// KeyValidator reports whether a value is structurally acceptable for its key.
//
// Validators see the JSON-canonical form of the value (objects as
// map[string]any, numbers as float64) on both write and read.
type KeyValidator func(value any) bool

type storedRecord struct {
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
	Version   string `json:"version"`
}

// StoreOptions configures a Store instance.
type StoreOptions struct {
	Medium       Medium
	Logger       *zap.Logger
	Clock        Clock
	MaxRecordAge time.Duration
}

// Store wraps a Medium with versioned, validated, age-limited record handling.
type Store struct {
	medium       Medium
	logger       *zap.Logger
	clock        Clock
	maxRecordAge time.Duration
	validators   map[string]KeyValidator
}

// NewStore constructs a Store, registering the default per-key validators.
func NewStore(options StoreOptions) (*Store, error) {
	if options.Medium == nil {
		return nil, errMediumNotConfigured
	}

	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	clock := options.Clock
	if clock == nil {
		clock = SystemClock{}
	}

	maxRecordAge := options.MaxRecordAge
	if maxRecordAge <= 0 {
		maxRecordAge = defaultMaxRecordAgeConstant
	}

	store := &Store{
		medium:       options.Medium,
		logger:       logger,
		clock:        clock,
		maxRecordAge: maxRecordAge,
		validators:   map[string]KeyValidator{},
	}

	store.RegisterValidator(KeyBusinessInfo, validateBusinessInfoValue)
	store.RegisterValidator(KeyBusinessSessionID, validateNonEmptyStringValue)
	store.RegisterValidator(KeySalesforceSessionID, validateNonEmptyStringValue)

	return store, nil
}

// RegisterValidator installs validatorFunction for key, replacing any previous entry.
func (store *Store) RegisterValidator(key string, validatorFunction KeyValidator) {
	store.validators[key] = validatorFunction
}

// SetItem validates, wraps, encodes, and writes the value under the namespaced key.
// It reports whether the write took effect and never panics or propagates errors.
func (store *Store) SetItem(key string, value any) bool {
	canonicalValue, canonicalizationError := canonicalizeValue(value)
	if canonicalizationError != nil {
		store.logger.Error(serializationFailedMessage, zap.String(storageKeyFieldNameConstant, key), zap.Error(canonicalizationError))
		return false
	}

	if !store.validate(key, canonicalValue) {
		store.logger.Error(validationFailedMessageConstant, zap.String(storageKeyFieldNameConstant, key))
		return false
	}

	record := storedRecord{
		Data:      canonicalValue,
		Timestamp: store.clock.Now().UnixMilli(),
		Version:   encodingVersionConstant,
	}

	recordBytes, marshalError := json.Marshal(record)
	if marshalError != nil {
		store.logger.Error(serializationFailedMessage, zap.String(storageKeyFieldNameConstant, key), zap.Error(marshalError))
		return false
	}

	encodedRecord := encodingVersionConstant + encodingSeparatorConstant + base64.StdEncoding.EncodeToString(recordBytes)

	if writeError := store.medium.Write(namespacePrefixConstant+key, encodedRecord); writeError != nil {
		store.logger.Error(mediumWriteFailedMessageConstant, zap.String(storageKeyFieldNameConstant, key), zap.Error(writeError))
		return false
	}

	return true
}

// GetItem reads, decodes, and re-validates the record stored under key.
// Version mismatches, expiry, and structural failures purge the key and
// return nil; absence returns nil.
func (store *Store) GetItem(key string) any {
	encodedRecord, present, readError := store.medium.Read(namespacePrefixConstant + key)
	if readError != nil {
		store.logger.Error(mediumReadFailedMessageConstant, zap.String(storageKeyFieldNameConstant, key), zap.Error(readError))
		return nil
	}
	if !present {
		return nil
	}

	versionTag, encodedPayload, separatorFound := strings.Cut(encodedRecord, encodingSeparatorConstant)
	if !separatorFound || versionTag != encodingVersionConstant {
		store.logger.Warn(versionMismatchMessageConstant, zap.String(storageKeyFieldNameConstant, key))
		store.RemoveItem(key)
		return nil
	}

	recordBytes, decodingError := base64.StdEncoding.DecodeString(encodedPayload)
	if decodingError != nil {
		store.logger.Warn(malformedRecordMessageConstant, zap.String(storageKeyFieldNameConstant, key), zap.Error(decodingError))
		store.RemoveItem(key)
		return nil
	}

	var record storedRecord
	if unmarshalError := json.Unmarshal(recordBytes, &record); unmarshalError != nil {
		store.logger.Warn(malformedRecordMessageConstant, zap.String(storageKeyFieldNameConstant, key), zap.Error(unmarshalError))
		store.RemoveItem(key)
		return nil
	}

	if record.Version != encodingVersionConstant {
		store.logger.Warn(versionMismatchMessageConstant, zap.String(storageKeyFieldNameConstant, key))
		store.RemoveItem(key)
		return nil
	}

	recordAge := store.clock.Now().Sub(time.UnixMilli(record.Timestamp))
	if recordAge > store.maxRecordAge {
		store.logger.Warn(expiredRecordMessageConstant, zap.String(storageKeyFieldNameConstant, key))
		store.RemoveItem(key)
		return nil
	}

	if !store.validate(key, record.Data) {
		store.logger.Warn(revalidationFailedMessageConstant, zap.String(storageKeyFieldNameConstant, key))
		store.RemoveItem(key)
		return nil
	}

	return record.Data
}

// GetString returns the stored value for key when it is a string, else the empty string.
func (store *Store) GetString(key string) string {
	value, isString := store.GetItem(key).(string)
	if !isString {
		return ""
	}
	return value
}

// RemoveItem deletes the namespaced key and reports whether the delete succeeded.
func (store *Store) RemoveItem(key string) bool {
	if deleteError := store.medium.Delete(namespacePrefixConstant + key); deleteError != nil {
		store.logger.Error(mediumDeleteFailedMessageConstant, zap.String(storageKeyFieldNameConstant, key), zap.Error(deleteError))
		return false
	}
	return true
}

// Clear removes every namespaced key, leaving foreign keys in the medium untouched.
func (store *Store) Clear() bool {
	mediumKeys, keysError := store.medium.Keys()
	if keysError != nil {
		store.logger.Error(mediumKeysFailedMessageConstant, zap.Error(keysError))
		return false
	}

	cleared := true
	for _, mediumKey := range mediumKeys {
		if !strings.HasPrefix(mediumKey, namespacePrefixConstant) {
			continue
		}
		if deleteError := store.medium.Delete(mediumKey); deleteError != nil {
			store.logger.Error(mediumDeleteFailedMessageConstant, zap.String(storageKeyFieldNameConstant, mediumKey), zap.Error(deleteError))
			cleared = false
		}
	}

	return cleared
}

// Keys lists the logical (prefix-stripped) keys currently held by the medium.
func (store *Store) Keys() []string {
	mediumKeys, keysError := store.medium.Keys()
	if keysError != nil {
		store.logger.Error(mediumKeysFailedMessageConstant, zap.Error(keysError))
		return []string{}
	}

	logicalKeys := make([]string, 0, len(mediumKeys))
	for _, mediumKey := range mediumKeys {
		if strings.HasPrefix(mediumKey, namespacePrefixConstant) {
			logicalKeys = append(logicalKeys, strings.TrimPrefix(mediumKey, namespacePrefixConstant))
		}
	}

	return logicalKeys
}

// IsAvailable probes the medium with a round-trip write and delete.
func (store *Store) IsAvailable() bool {
	if writeError := store.medium.Write(availabilityProbeKeyConstant, availabilityProbeValueConstant); writeError != nil {
		return false
	}
	return store.medium.Delete(availabilityProbeKeyConstant) == nil
}

func (store *Store) validate(key string, value any) bool {
	validatorFunction, validatorExists := store.validators[key]
	if !validatorExists {
		return true
	}
	return validatorFunction(value)
}

// canonicalizeValue reduces arbitrary Go values to their JSON-decoded form so
// write-time and read-time validation observe identical shapes.
func canonicalizeValue(value any) (any, error) {
	encoded, marshalError := json.Marshal(value)
	if marshalError != nil {
		return nil, marshalError
	}

	var canonicalValue any
	if unmarshalError := json.Unmarshal(encoded, &canonicalValue); unmarshalError != nil {
		return nil, unmarshalError
	}

	return canonicalValue, nil
}

func validateBusinessInfoValue(value any) bool {
	valueMap, isMap := value.(map[string]any)
	if !isMap {
		return false
	}
	return truthyField(valueMap, businessInfoRevenueFieldConstant) || truthyField(valueMap, businessInfoHeadcountFieldConstant)
}

func validateNonEmptyStringValue(value any) bool {
	stringValue, isString := value.(string)
	return isString && len(stringValue) > 0
}

func truthyField(valueMap map[string]any, fieldName string) bool {
	switch fieldValue := valueMap[fieldName].(type) {
	case float64:
		return fieldValue != 0
	case string:
		return len(fieldValue) > 0
	case bool:
		return fieldValue
	default:
		return false
	}
}
