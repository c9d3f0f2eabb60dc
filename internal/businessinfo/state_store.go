// Package businessinfo owns the application-wide business profile state,
// backed by the persistent store and the audit backend.
package businessinfo

import (
	"context"
	"errors"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"go.uber.org/zap"

	"github.com/temirov/sfaudit/internal/api"
	"github.com/temirov/sfaudit/internal/storage"
)

const (
	saverMissingMessageConstant          = "business info saver not configured"
	storeMissingMessageConstant          = "persistent store not configured"
	missingRequiredFieldsMessageConstant = "business information requires annual revenue or employee headcount"
	missingServerSessionMessageConstant  = "server response missing business session identifier"
	localPersistenceMessageConstant      = "failed to persist business information locally"
	nothingToUpdateMessageConstant       = "no business information to update"
	loadFailedMessageConstant            = "failed to load saved business information"

	storedInfoDecodeFailedMessage = "stored business info decode failed"
	profileSavedMessageConstant   = "business info saved"
	profileClearedMessageConstant = "business info cleared"
)

// Package-level sentinel errors surfaced to callers.
var (
	ErrMissingRequiredFields = errors.New(missingRequiredFieldsMessageConstant)
	ErrMissingServerSession  = errors.New(missingServerSessionMessageConstant)
	ErrLocalPersistence      = errors.New(localPersistenceMessageConstant)
	ErrNothingToUpdate       = errors.New(nothingToUpdateMessageConstant)

	errSaverMissing = errors.New(saverMissingMessageConstant)
	errStoreMissing = errors.New(storeMissingMessageConstant)
)

// State enumerates the lifecycle of the business profile.
type State string

// Business profile states.
const (
	StateUnknown State = "unknown"
	StateLoading State = "loading"
	StateKnown   State = "known"
)

// Saver is the API surface the state store needs from the backend client.
type Saver interface {
	SaveBusinessInfo(requestContext context.Context, info api.BusinessInfo) (api.BusinessInfoResponse, error)
}

// Patch carries partial business profile updates. Nil fields keep the
// current value.
type Patch struct {
	AnnualRevenue     *float64
	EmployeeHeadcount *int
	RevenueRange      *string
	EmployeeRange     *string
}

// StateStore holds the in-memory business profile mirrored into the
// persistent store. Memory and storage are kept consistent: a save that
// cannot persist locally is rejected without marking the profile known.
type StateStore struct {
	saver  Saver
	store  *storage.Store
	logger *zap.Logger

	mutex     sync.Mutex
	state     State
	info      api.BusinessInfo
	lastError error
}

// NewStateStore constructs a StateStore in the unknown state.
func NewStateStore(saver Saver, store *storage.Store, logger *zap.Logger) (*StateStore, error) {
	if saver == nil {
		return nil, errSaverMissing
	}
	if store == nil {
		return nil, errStoreMissing
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &StateStore{saver: saver, store: store, logger: logger, state: StateUnknown}, nil
}

// Load reads the persisted profile and session identifier. Both must be
// present to reach the known state; a corrupt profile purges both keys and
// records the failure.
func (stateStore *StateStore) Load() {
	stateStore.mutex.Lock()
	defer stateStore.mutex.Unlock()

	stateStore.state = StateLoading
	stateStore.lastError = nil

	storedInfo := stateStore.store.GetItem(storage.KeyBusinessInfo)
	businessSessionID := stateStore.store.GetString(storage.KeyBusinessSessionID)

	if storedInfo == nil || len(businessSessionID) == 0 {
		stateStore.info = api.BusinessInfo{}
		stateStore.state = StateUnknown
		return
	}

	var decodedInfo api.BusinessInfo
	if decodeError := mapstructure.Decode(storedInfo, &decodedInfo); decodeError != nil {
		stateStore.logger.Error(storedInfoDecodeFailedMessage, zap.Error(decodeError))
		stateStore.store.RemoveItem(storage.KeyBusinessInfo)
		stateStore.store.RemoveItem(storage.KeyBusinessSessionID)
		stateStore.info = api.BusinessInfo{}
		stateStore.state = StateUnknown
		stateStore.lastError = errors.New(loadFailedMessageConstant)
		return
	}

	stateStore.info = decodedInfo
	stateStore.state = StateKnown
}

// Save validates the profile locally, submits it to the backend, persists the
// server-issued session identifier plus the profile, and transitions to
// known. Any local persistence failure purges both keys and rejects without
// mutating the in-memory profile.
func (stateStore *StateStore) Save(requestContext context.Context, info api.BusinessInfo) (api.BusinessInfoResponse, error) {
	if !info.HasRequiredFields() {
		return api.BusinessInfoResponse{}, ErrMissingRequiredFields
	}

	stateStore.setState(StateLoading)

	response, saveError := stateStore.saver.SaveBusinessInfo(requestContext, info)
	if saveError != nil {
		stateStore.recordFailure(saveError)
		return api.BusinessInfoResponse{}, saveError
	}

	if len(response.BusinessSessionID) == 0 {
		stateStore.recordFailure(ErrMissingServerSession)
		return api.BusinessInfoResponse{}, ErrMissingServerSession
	}

	sessionPersisted := stateStore.store.SetItem(storage.KeyBusinessSessionID, response.BusinessSessionID)
	infoPersisted := stateStore.store.SetItem(storage.KeyBusinessInfo, info)
	if !sessionPersisted || !infoPersisted {
		stateStore.store.RemoveItem(storage.KeyBusinessInfo)
		stateStore.store.RemoveItem(storage.KeyBusinessSessionID)
		stateStore.recordFailure(ErrLocalPersistence)
		return api.BusinessInfoResponse{}, ErrLocalPersistence
	}

	stateStore.mutex.Lock()
	stateStore.info = info
	stateStore.state = StateKnown
	stateStore.lastError = nil
	stateStore.mutex.Unlock()

	stateStore.logger.Debug(profileSavedMessageConstant)
	return response, nil
}

// Clear removes both persisted keys and resets to the unknown state. Never
// fails outward; lower-layer failures are absorbed by the storage layer.
func (stateStore *StateStore) Clear() {
	stateStore.store.RemoveItem(storage.KeyBusinessInfo)
	stateStore.store.RemoveItem(storage.KeyBusinessSessionID)

	stateStore.mutex.Lock()
	stateStore.info = api.BusinessInfo{}
	stateStore.state = StateUnknown
	stateStore.lastError = nil
	stateStore.mutex.Unlock()

	stateStore.logger.Debug(profileClearedMessageConstant)
}

// Update merges the patch over the current known profile and re-runs Save.
func (stateStore *StateStore) Update(requestContext context.Context, patch Patch) (api.BusinessInfoResponse, error) {
	currentInfo, infoKnown := stateStore.Info()
	if !infoKnown {
		return api.BusinessInfoResponse{}, ErrNothingToUpdate
	}

	if patch.AnnualRevenue != nil {
		currentInfo.AnnualRevenue = *patch.AnnualRevenue
	}
	if patch.EmployeeHeadcount != nil {
		currentInfo.EmployeeHeadcount = *patch.EmployeeHeadcount
	}
	if patch.RevenueRange != nil {
		currentInfo.RevenueRange = *patch.RevenueRange
	}
	if patch.EmployeeRange != nil {
		currentInfo.EmployeeRange = *patch.EmployeeRange
	}

	return stateStore.Save(requestContext, currentInfo)
}

// HasBusinessInfo reports whether a profile is currently known.
func (stateStore *StateStore) HasBusinessInfo() bool {
	stateStore.mutex.Lock()
	defer stateStore.mutex.Unlock()

	return stateStore.state == StateKnown
}

// Info returns the current profile and whether one is known.
func (stateStore *StateStore) Info() (api.BusinessInfo, bool) {
	stateStore.mutex.Lock()
	defer stateStore.mutex.Unlock()

	return stateStore.info, stateStore.state == StateKnown
}

// State returns the current lifecycle state.
func (stateStore *StateStore) State() State {
	stateStore.mutex.Lock()
	defer stateStore.mutex.Unlock()

	return stateStore.state
}

// LastError returns the most recent recorded failure, if any.
func (stateStore *StateStore) LastError() error {
	stateStore.mutex.Lock()
	defer stateStore.mutex.Unlock()

	return stateStore.lastError
}

func (stateStore *StateStore) setState(state State) {
	stateStore.mutex.Lock()
	defer stateStore.mutex.Unlock()

	stateStore.state = state
	stateStore.lastError = nil
}

// recordFailure restores the pre-save state: known when a profile was already
// held, unknown otherwise.
func (stateStore *StateStore) recordFailure(failure error) {
	stateStore.mutex.Lock()
	defer stateStore.mutex.Unlock()

	if stateStore.info.HasRequiredFields() {
		stateStore.state = StateKnown
	} else {
		stateStore.state = StateUnknown
	}
	stateStore.lastError = failure
}
